package laboratorhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labdent/labexport/internal/laborator"
	"github.com/labdent/labexport/internal/platform/httpx"
)

// ExportService is the behaviour required by the handler.
type ExportService interface {
	Export(ctx context.Context, req laborator.Request) (*laborator.Result, error)
}

// Handler serves the export endpoint.
type Handler struct {
	logger  *slog.Logger
	service ExportService
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service ExportService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeRequest(r)
	if err != nil {
		httpx.Error(w, httpx.StatusFor(err), "invalid_json", err.Error())
		return
	}
	req, err := laborator.ParseRequest(raw)
	if err != nil {
		h.respondError(w, err)
		return
	}
	req.WantJSON = laborator.AcceptsOnlyJSON(r.Header.Get("Accept"))

	res, err := h.service.Export(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("X-Export-ID", res.ID)
	switch res.Kind {
	case laborator.ResultSummary:
		httpx.JSON(w, http.StatusOK, res.Summary)
	case laborator.ResultEmpty:
		httpx.Message(w, res.Message)
	default:
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", `attachment; filename="`+res.Filename+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(res.Archive)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(res.Archive); err != nil {
			h.logger.Warn("write export archive", slog.String("export_id", res.ID), slog.Any("error", err))
		}
	}
}

func decodeRequest(r *http.Request) (laborator.RawRequest, error) {
	var raw laborator.RawRequest
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		raw.StartDate = q.Get("startDate")
		raw.EndDate = q.Get("endDate")
		raw.Debug = laborator.Flag(laborator.ParseFlag(q.Get("debug")))
		return raw, nil
	}
	if err := httpx.DecodeJSON(r, &raw); err != nil {
		return raw, err
	}
	// A debug flag on the query string also applies to POST requests.
	if q := r.URL.Query().Get("debug"); q != "" {
		raw.Debug = laborator.Flag(laborator.ParseFlag(q))
	}
	return raw, nil
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var (
		lookupErr *laborator.LookupError
		buildErr  *laborator.BuildError
	)
	switch {
	case errors.Is(err, laborator.ErrValidation):
		httpx.Error(w, http.StatusBadRequest, err.Error(), "")
	case errors.As(err, &lookupErr):
		httpx.RespondError(w, http.StatusInternalServerError, lookupErr)
	case errors.As(err, &buildErr):
		httpx.RespondError(w, http.StatusInternalServerError, buildErr)
	default:
		httpx.RespondError(w, 0, err)
	}
}
