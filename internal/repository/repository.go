package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"streamgo/internal/domain"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// VideoRepository defines the interface for interacting with video metadata.
type VideoRepository interface {
	Create(ctx context.Context, video *domain.VideoAsset) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.VideoAsset, error)
	// List returns one page of videos, newest first, plus the total count.
	List(ctx context.Context, page, limit int) ([]domain.VideoAsset, int64, error)
	// All streams every video; used by the index resync path.
	All(ctx context.Context) ([]domain.VideoAsset, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}
