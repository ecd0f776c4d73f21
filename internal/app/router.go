package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/labdent/labexport/internal/laborator"
	laboratorhttp "github.com/labdent/labexport/internal/laborator/http"
	"github.com/labdent/labexport/internal/observability"
	"github.com/labdent/labexport/internal/platform/httpx"
	"github.com/labdent/labexport/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	Source        laborator.SourceSelection
	ExportHandler *laboratorhttp.Handler
	JobHandler    *jobs.Handler
	Metrics       *observability.Metrics
}

type healthBody struct {
	OK        bool   `json:"ok"`
	Source    string `json:"source"`
	UsingMock bool   `json:"usingMock"`
}

// NewRouter constructs the chi.Router with the server defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, healthBody{
			OK:        true,
			Source:    string(params.Source.Kind),
			UsingMock: params.Source.UsingMock(),
		})
	})

	if params.ExportHandler != nil {
		params.ExportHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
