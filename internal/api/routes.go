package api

import (
	"net/http"

	"github.com/quartalhq/quartal/internal/config"
	"github.com/quartalhq/quartal/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	routes.Register(
		mux,
		domain.Batch.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Buckets.Handler().Routes(),
		domain.Resolutions.Handler().Routes(),
		newStorageHandler(runtime.Storage, runtime.Logger).routes(),
	)
}
