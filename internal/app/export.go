package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labdent/labexport/internal/laborator"
	labdb "github.com/labdent/labexport/internal/laborator/db"
	"github.com/labdent/labexport/internal/laborator/rest"
	"github.com/labdent/labexport/internal/laborator/workbook"
	platformdb "github.com/labdent/labexport/internal/platform/db"
)

// Export bundles the export service with the resources it holds open.
type Export struct {
	Selection laborator.SourceSelection
	Service   *laborator.Service
	pool      *pgxpool.Pool
}

// Close releases the database pool, if any.
func (e *Export) Close() {
	if e != nil && e.pool != nil {
		e.pool.Close()
	}
}

// NewExport selects the data source once and builds the export service.
// In test mode the demo dataset is always used.
func NewExport(ctx context.Context, cfg *Config, logger *slog.Logger, recorder laborator.Recorder) (*Export, error) {
	if logger == nil {
		logger = slog.Default()
	}
	exp := &Export{}
	settings := cfg.StoreSettings()
	if InTestMode() {
		settings = laborator.StoreSettings{}
	}
	schema := cfg.Schema()
	selection, err := laborator.SelectSource(ctx, settings, func(ctx context.Context, kind laborator.SourceKind, s laborator.StoreSettings) (laborator.Source, error) {
		switch kind {
		case laborator.SourcePostgres:
			pool, err := platformdb.New(ctx, s.DSN, platformdb.Options{
				ApplicationName: "labexport",
				MaxConns:        cfg.PGMaxConns,
				ReadOnly:        true,
			})
			if err != nil {
				return nil, err
			}
			exp.pool = pool
			return labdb.New(pool, schema), nil
		case laborator.SourceREST:
			return rest.NewClient(s.URL, s.Key, schema), nil
		}
		return nil, fmt.Errorf("unsupported source %q", kind)
	})
	if err != nil {
		return nil, fmt.Errorf("select export source: %w", err)
	}
	if selection.UsingMock() {
		attrs := []any{}
		if selection.Reason != nil {
			attrs = append(attrs, slog.Any("missing", selection.Reason.Missing))
		}
		logger.Warn("live store not configured, using demo dataset", attrs...)
	} else {
		logger.Info("export source selected", slog.String("source", string(selection.Kind)))
	}

	exp.Selection = selection
	exp.Service = laborator.NewService(laborator.ServiceConfig{
		Selection: selection,
		Renderer: workbook.NewBuilder(workbook.Options{
			Title:      cfg.ExportTitle,
			TitleAlign: cfg.ExportTitleAlign,
			LogoPath:   cfg.LogoPath,
			Logger:     logger,
		}),
		WorkbookExt: workbook.Extension,
		Logger:      logger,
		Recorder:    recorder,
	})
	return exp, nil
}
