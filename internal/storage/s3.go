package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"

	"streamgo/internal/config"
	"streamgo/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config" // Alias config to avoid clash
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3Storage implements the ObjectStorage interface using an S3-compatible backend.
type s3Storage struct {
	client        *s3.Client        // Regular client for multipart and object operations
	presignClient *s3.PresignClient // Special client for generating presigned URLs
	bucketName    string
	region        string
}

// NewS3Storage creates a new S3 storage service instance.
func NewS3Storage(cfg config.S3Config) (ObjectStorage, error) {
	// Custom resolver for S3-compatible endpoints (like MinIO, DigitalOcean Spaces)
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.Endpoint != "" {
			return aws.Endpoint{
				PartitionID:   "aws",
				URL:           cfg.Endpoint,
				SigningRegion: cfg.Region,
			}, nil
		}
		// Fallback to default AWS endpoint resolution if no custom endpoint is set
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsSDKConfig, err := awsCfg.LoadDefaultConfig(context.TODO(),
		awsCfg.WithRegion(cfg.Region),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		awsCfg.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		log.Printf("ERROR: Failed to load AWS SDK config for S3: %v", err)
		return nil, err
	}

	// Force path-style addressing required by most S3-compatible services (like MinIO)
	s3Client := s3.NewFromConfig(awsSDKConfig, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	presignClient := s3.NewPresignClient(s3Client)

	log.Printf("INFO: S3 storage initialized for endpoint: %s, bucket: %s", cfg.Endpoint, cfg.BucketName)

	return &s3Storage{
		client:        s3Client,
		presignClient: presignClient,
		bucketName:    cfg.BucketName,
		region:        cfg.Region,
	}, nil
}

// InitiateMultipartUpload opens a multipart session in the bucket.
func (s *s3Storage) InitiateMultipartUpload(ctx context.Context, objectKey, contentType string) (string, error) {
	out, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		log.Printf("ERROR: Failed to create multipart upload for key '%s': %v", objectKey, err)
		return "", err
	}
	return aws.ToString(out.UploadId), nil
}

// UploadPart writes one part. Part writes are commutative; callers may
// upload them concurrently in any order.
func (s *s3Storage) UploadPart(ctx context.Context, objectKey, uploadID string, partNumber int32, body io.Reader) (string, error) {
	out, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(s.bucketName),
		Key:        aws.String(objectKey),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(partNumber),
		Body:       body,
	})
	if err != nil {
		log.Printf("ERROR: Failed to upload part %d for key '%s': %v", partNumber, objectKey, err)
		return "", err
	}
	return aws.ToString(out.ETag), nil
}

// ListParts returns every part recorded for the session, sorted by part number.
func (s *s3Storage) ListParts(ctx context.Context, objectKey, uploadID string) ([]domain.UploadPart, error) {
	var parts []domain.UploadPart
	input := &s3.ListPartsInput{
		Bucket:   aws.String(s.bucketName),
		Key:      aws.String(objectKey),
		UploadId: aws.String(uploadID),
	}
	// ListParts pages at 1000 parts; follow the marker until done.
	for {
		out, err := s.client.ListParts(ctx, input)
		if err != nil {
			log.Printf("ERROR: Failed to list parts for key '%s': %v", objectKey, err)
			return nil, err
		}
		for _, p := range out.Parts {
			parts = append(parts, domain.UploadPart{
				PartNumber: aws.ToInt32(p.PartNumber),
				ETag:       aws.ToString(p.ETag),
			})
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		input.PartNumberMarker = out.NextPartNumberMarker
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	return parts, nil
}

// CompleteMultipartUpload finalizes the object and returns its location URL.
func (s *s3Storage) CompleteMultipartUpload(ctx context.Context, objectKey, uploadID string, parts []domain.UploadPart) (string, error) {
	if len(parts) == 0 {
		return "", ErrNoParts
	}
	completed := make([]types.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = types.CompletedPart{
			PartNumber: aws.Int32(p.PartNumber),
			ETag:       aws.String(p.ETag),
		}
	}
	out, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucketName),
		Key:      aws.String(objectKey),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		log.Printf("ERROR: Failed to complete multipart upload for key '%s': %v", objectKey, err)
		return "", err
	}
	location := aws.ToString(out.Location)
	if location == "" {
		// Some S3-compatible backends omit Location; reconstruct it.
		location = fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucketName, s.region, objectKey)
	}
	return location, nil
}

// AbortMultipartUpload discards the session and any uploaded parts.
func (s *s3Storage) AbortMultipartUpload(ctx context.Context, objectKey, uploadID string) error {
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucketName),
		Key:      aws.String(objectKey),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		log.Printf("ERROR: Failed to abort multipart upload for key '%s': %v", objectKey, err)
	}
	return err
}

// GetObject streams an object's content. Empty bucket means the default bucket.
func (s *s3Storage) GetObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error) {
	if bucket == "" {
		bucket = s.bucketName
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		log.Printf("ERROR: Failed to get object '%s' from bucket '%s': %v", objectKey, bucket, err)
		return nil, err
	}
	return out.Body, nil
}

// PutObject writes an object in one request.
func (s *s3Storage) PutObject(ctx context.Context, bucket, objectKey, contentType string, body io.Reader) error {
	if bucket == "" {
		bucket = s.bucketName
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
		Body:        body,
	})
	if err != nil {
		log.Printf("ERROR: Failed to put object '%s' to bucket '%s': %v", objectKey, bucket, err)
		return err
	}
	return nil
}

// DeleteObject removes an object from the S3 bucket.
func (s *s3Storage) DeleteObject(ctx context.Context, objectKey string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		log.Printf("ERROR: Failed to delete object '%s' from bucket '%s': %v", objectKey, s.bucketName, err)
		return err
	}
	log.Printf("INFO: Deleted object '%s' from bucket '%s'", objectKey, s.bucketName)
	return nil
}

// PresignGetObject creates a temporary GET URL with response header overrides.
func (s *s3Storage) PresignGetObject(ctx context.Context, bucket, objectKey string, opts PresignOptions) (string, error) {
	if bucket == "" {
		bucket = s.bucketName
	}
	expires := opts.Expires
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectKey),
	}
	if opts.ResponseContentType != "" {
		input.ResponseContentType = aws.String(opts.ResponseContentType)
	}
	if opts.ResponseCacheControl != "" {
		input.ResponseCacheControl = aws.String(opts.ResponseCacheControl)
	}
	if opts.ResponseContentDisposition != "" {
		input.ResponseContentDisposition = aws.String(opts.ResponseContentDisposition)
	}

	req, err := s.presignClient.PresignGetObject(ctx, input, s3.WithPresignExpires(expires))
	if err != nil {
		log.Printf("ERROR: Failed to generate presigned GET URL for key '%s': %v", objectKey, err)
		return "", err
	}
	return req.URL, nil
}

var _ ObjectStorage = (*s3Storage)(nil)
