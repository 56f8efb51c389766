package buckets

import (
	"context"

	"github.com/google/uuid"

	"github.com/quartalhq/quartal/internal/extraction"
)

// System defines the public contract for settlement bucket operations.
type System interface {
	Handler() *Handler

	List(ctx context.Context, practiceID uuid.UUID) ([]Bucket, error)
	Find(ctx context.Context, practiceID uuid.UUID, year, quarter int) (*Bucket, error)

	AddFile(ctx context.Context, cmd AddFileCommand) (*Bucket, error)
	RemoveFile(ctx context.Context, practiceID uuid.UUID, year, quarter int, fileID uuid.UUID) (*Bucket, error)
	ReplaceExtraction(ctx context.Context, practiceID uuid.UUID, year, quarter int, fileID uuid.UUID, result *extraction.Result) (*Bucket, error)

	ReanalyzeFile(ctx context.Context, practiceID uuid.UUID, year, quarter int, fileID uuid.UUID) (*Bucket, error)
	ReanalyzeBucket(ctx context.Context, practiceID uuid.UUID, year, quarter int) (*Bucket, error)
}
