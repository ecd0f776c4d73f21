// Package laboratorhttp exposes the laboratory export over HTTP.
package laboratorhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/labdent/labexport/internal/platform/httpx"
)

// ExportPath is the route of the export endpoint.
const ExportPath = "/api/export-laborator"

const (
	rateLimit  = 10
	rateWindow = time.Minute
)

// MountRoutes registers the export endpoint and its CORS preflight.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Error(w, http.StatusTooManyRequests, "too many export requests", "")
		}),
	)
	r.Group(func(r chi.Router) {
		r.Use(cors)
		r.Options(ExportPath, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.With(limiter).Get(ExportPath, h.export)
		r.With(limiter).Post(ExportPath, h.export)
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Export-ID")
		next.ServeHTTP(w, r)
	})
}
