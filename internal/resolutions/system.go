package resolutions

import (
	"context"

	"github.com/google/uuid"

	"github.com/quartalhq/quartal/internal/buckets"
	"github.com/quartalhq/quartal/pkg/pagination"
)

// System defines the public contract for the resolution queue.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		practiceID uuid.UUID,
		page pagination.PageRequest,
	) (*pagination.PageResult[Resolution], error)

	Next(ctx context.Context, practiceID uuid.UUID) (*Resolution, error)
	Enqueue(ctx context.Context, cmd EnqueueCommand) (*Resolution, error)
	Resolve(ctx context.Context, practiceID, fileID uuid.UUID, quarter int) (*buckets.Bucket, error)
	Cancel(ctx context.Context, practiceID, fileID uuid.UUID) error
}
