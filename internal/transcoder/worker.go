package transcoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"streamgo/internal/config"
	"streamgo/internal/domain"
	"streamgo/internal/storage"
)

// ErrTranscode marks a job that failed somewhere in the encode ladder.
var ErrTranscode = errors.New("transcode failed")

const (
	manifestContentType  = "application/x-mpegURL"
	segmentContentType   = "video/MP2T"
	thumbnailContentType = "image/jpeg"
	thumbnailFileName    = "thumbnail.jpg"
	uploadConcurrency    = 8
)

// Worker converts one source object per message into a complete HLS package
// (five-rung bitrate ladder, master manifest, best-effort poster thumbnail)
// and publishes it under hls/<sanitizedId>/ in the object store.
type Worker struct {
	storage storage.ObjectStorage
	cfg     config.TranscodeConfig
	ladder  []domain.RenditionPreset
	runner  CommandRunner
}

// NewWorker creates a transcode worker with the default bitrate ladder.
func NewWorker(objectStorage storage.ObjectStorage, cfg config.TranscodeConfig) *Worker {
	if cfg.SegmentSeconds <= 0 {
		cfg.SegmentSeconds = 4
	}
	return &Worker{
		storage: objectStorage,
		cfg:     cfg,
		ladder:  DefaultLadder,
		runner:  execRunner{},
	}
}

// HandleMessage is the broker handler: parse, process, drop. A message that
// cannot be parsed is logged and dropped; a failed job is logged and dropped
// after this one attempt (no retry, no dead-letter).
func (w *Worker) HandleMessage(ctx context.Context, key, value []byte) error {
	var job domain.TranscodeJob
	if err := json.Unmarshal(value, &job); err != nil {
		log.Printf("ERROR: Dropping unparseable transcode message: %v", err)
		return nil
	}
	if job.URL == "" {
		log.Printf("ERROR: Dropping transcode message without source URL (title %q)", job.Title)
		return nil
	}

	log.Printf("INFO: Transcoding started for %q (%s)", job.Title, job.URL)
	if err := w.Process(ctx, job); err != nil {
		return fmt.Errorf("%w: %v", ErrTranscode, err)
	}
	log.Printf("INFO: Transcoding completed for %q", job.Title)
	return nil
}

// Process runs one full job: download, ladder encode behind an
// all-or-nothing barrier, master manifest, upload. The job-scoped working
// directory is purged unconditionally, success or failure.
func (w *Worker) Process(ctx context.Context, job domain.TranscodeJob) error {
	bucket, sourceKey, err := storage.ParseObjectURL(job.URL)
	if err != nil {
		return fmt.Errorf("parse source URL: %w", err)
	}

	if err := os.MkdirAll(w.cfg.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create work root: %w", err)
	}
	workDir, err := os.MkdirTemp(w.cfg.WorkDir, "job-*")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			log.Printf("ERROR: Failed to purge work dir %s: %v", workDir, rmErr)
		}
	}()

	sourcePath := filepath.Join(workDir, "source.mp4")
	if err := w.download(ctx, bucket, sourceKey, sourcePath); err != nil {
		return fmt.Errorf("download source: %w", err)
	}

	sanitizedID := Sanitize(job.Title)

	// Best-effort poster frame; a failure here never aborts the job.
	thumbPath := filepath.Join(workDir, thumbnailFileName)
	if err := w.extractThumbnail(ctx, sourcePath, thumbPath); err != nil {
		log.Printf("ERROR: Thumbnail extraction failed for %q (continuing): %v", job.Title, err)
		thumbPath = ""
	}

	// Fan out the ladder; the barrier fails the whole job on any rung
	// failure so no partial ladder reaches the canonical output path.
	g, gctx := errgroup.WithContext(ctx)
	for _, preset := range w.ladder {
		g.Go(func() error {
			return w.encodeRendition(gctx, sourcePath, workDir, sanitizedID, preset)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("encode ladder: %w", err)
	}

	renditions := make([]domain.Rendition, len(w.ladder))
	for i, preset := range w.ladder {
		renditions[i] = domain.Rendition{
			Resolution: preset.Resolution,
			Bandwidth:  preset.Bandwidth,
			Playlist:   VariantPlaylistName(sanitizedID, preset.Resolution),
		}
	}
	master := BuildMasterManifest(renditions)

	return w.uploadPackage(ctx, bucket, sanitizedID, workDir, master, thumbPath)
}

// download streams the source object into the job's working directory.
func (w *Worker) download(ctx context.Context, bucket, key, destPath string) error {
	body, err := w.storage.GetObject(ctx, bucket, key)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return err
	}
	return f.Sync()
}

// encodeRendition runs one ffmpeg pass producing the rung's variant
// playlist and its fixed-duration segments.
func (w *Worker) encodeRendition(ctx context.Context, sourcePath, workDir, sanitizedID string, preset domain.RenditionPreset) error {
	variant := strings.TrimSuffix(VariantPlaylistName(sanitizedID, preset.Resolution), ".m3u8")
	playlistPath := filepath.Join(workDir, variant+".m3u8")
	segmentPattern := filepath.Join(workDir, variant+"_%03d.ts")

	args := []string{
		"-i", sourcePath,
		"-c:v", "h264",
		"-b:v", preset.Bitrate,
		"-maxrate", preset.MaxRate,
		"-bufsize", preset.BufSize,
		"-c:a", "aac",
		"-b:a", "128k",
		"-vf", "scale=" + strings.Replace(preset.Resolution, "x", ":", 1),
		"-g", "48",
		"-sc_threshold", "0",
		"-preset", "veryfast",
		"-profile:v", "main",
		"-movflags", "+faststart",
		"-b_strategy", "0",
		"-bf", "2",
		"-hls_time", strconv.Itoa(w.cfg.SegmentSeconds),
		"-hls_list_size", "0",
		"-start_number", "0",
		"-hls_playlist_type", "vod",
		"-hls_segment_type", "mpegts",
		"-hls_segment_filename", segmentPattern,
		"-f", "hls",
		playlistPath,
	}

	if err := w.runner.Run(ctx, w.ffmpeg(), args...); err != nil {
		return fmt.Errorf("rendition %s: %w", preset.Name, err)
	}
	return nil
}

// extractThumbnail grabs one poster frame at the configured offset, padded
// to a 16:9 1280x720 canvas.
func (w *Worker) extractThumbnail(ctx context.Context, sourcePath, destPath string) error {
	offset := w.cfg.ThumbnailOffset
	if offset <= 0 {
		offset = 3 * time.Second
	}
	args := []string{
		"-ss", fmt.Sprintf("%.3f", offset.Seconds()),
		"-i", sourcePath,
		"-vframes", "1",
		"-vf", "scale=1280:720:force_original_aspect_ratio=decrease,pad=1280:720:(ow-iw)/2:(oh-ih)/2",
		"-y",
		destPath,
	}
	return w.runner.Run(ctx, w.ffmpeg(), args...)
}

// uploadPackage pushes the master manifest, every playlist and segment in
// the working directory, and the thumbnail when one was produced. Nothing is
// uploaded before the whole ladder has succeeded.
func (w *Worker) uploadPackage(ctx context.Context, bucket, sanitizedID, workDir, master, thumbPath string) error {
	destPrefix := "hls/" + sanitizedID

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)

	g.Go(func() error {
		return w.storage.PutObject(gctx, bucket, destPrefix+"/master.m3u8", manifestContentType, strings.NewReader(master))
	})

	entries, err := os.ReadDir(workDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		var contentType string
		switch {
		case strings.HasSuffix(name, ".m3u8"):
			contentType = manifestContentType
		case strings.HasSuffix(name, ".ts"):
			contentType = segmentContentType
		default:
			continue
		}
		g.Go(func() error {
			f, err := os.Open(filepath.Join(workDir, name))
			if err != nil {
				return err
			}
			defer f.Close()
			return w.storage.PutObject(gctx, bucket, destPrefix+"/"+name, contentType, f)
		})
	}

	if thumbPath != "" {
		g.Go(func() error {
			f, err := os.Open(thumbPath)
			if err != nil {
				return err
			}
			defer f.Close()
			return w.storage.PutObject(gctx, bucket, destPrefix+"/"+thumbnailFileName, thumbnailContentType, f)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("upload package: %w", err)
	}
	log.Printf("INFO: HLS package published under %s/", destPrefix)
	return nil
}

func (w *Worker) ffmpeg() string {
	if w.cfg.FFmpegPath != "" {
		return w.cfg.FFmpegPath
	}
	return "ffmpeg"
}
