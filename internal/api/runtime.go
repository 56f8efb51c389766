package api

import (
	"github.com/quartalhq/quartal/internal/batch"
	"github.com/quartalhq/quartal/internal/config"
	"github.com/quartalhq/quartal/internal/extraction"
	"github.com/quartalhq/quartal/internal/infrastructure"
	"github.com/quartalhq/quartal/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Extraction *extraction.Config
	Batch      *batch.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
		},
		Pagination: cfg.API.Pagination,
		Extraction: &cfg.Extraction,
		Batch:      &cfg.Batch,
	}
}
