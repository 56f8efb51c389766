package api

import (
	"github.com/quartalhq/quartal/internal/batch"
	"github.com/quartalhq/quartal/internal/buckets"
	"github.com/quartalhq/quartal/internal/classify"
	"github.com/quartalhq/quartal/internal/extraction"
	"github.com/quartalhq/quartal/internal/resolutions"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Buckets     buckets.System
	Resolutions resolutions.System
	Batch       *batch.Coordinator
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	extractor := extraction.New(runtime.Extraction, runtime.Logger)

	classifier := classify.New(
		extractor,
		classify.StrictPolicy{},
		runtime.Extraction.TimeoutDuration(),
		runtime.Logger,
	)

	bucketSys := buckets.New(
		runtime.Database.Connection(),
		runtime.Storage,
		extractor,
		runtime.Extraction.TimeoutDuration(),
		runtime.Logger,
	)

	resolutionSys := resolutions.New(
		runtime.Database.Connection(),
		bucketSys,
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	coordinator := batch.NewCoordinator(
		runtime.Storage,
		classifier,
		bucketSys,
		resolutionSys,
		runtime.Batch,
		runtime.Logger,
	)

	return &Domain{
		Buckets:     bucketSys,
		Resolutions: resolutionSys,
		Batch:       coordinator,
	}
}
