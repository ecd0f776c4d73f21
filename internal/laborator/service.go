package laborator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/labdent/labexport/internal/laborator/archive"
)

// WorkbookRenderer renders one doctor's orders.
type WorkbookRenderer interface {
	Build(doctorName string, orders []Order) ([]byte, error)
}

// Recorder receives export outcomes. Implementations must tolerate nil use.
type Recorder interface {
	ObserveExport(outcome string, duration time.Duration, workbooks int)
}

// Export outcomes reported to the Recorder.
const (
	OutcomeArchive = "archive"
	OutcomeSummary = "summary"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

// ResultKind tells the caller which response to write.
type ResultKind int

const (
	ResultArchive ResultKind = iota
	ResultSummary
	ResultEmpty
)

// Result is the outcome of one export.
type Result struct {
	ID       string
	Kind     ResultKind
	Archive  []byte
	Filename string
	Entries  []string
	Summary  Summary
	Message  string
}

// ServiceConfig wires the export service.
type ServiceConfig struct {
	Selection   SourceSelection
	Renderer    WorkbookRenderer
	WorkbookExt string
	Logger      *slog.Logger
	Recorder    Recorder
	Clock       func() time.Time
}

// Service runs exports. It keeps no state between calls.
type Service struct {
	selection  SourceSelection
	aggregator *Aggregator
	renderer   WorkbookRenderer
	ext        string
	logger     *slog.Logger
	recorder   Recorder
	clock      func() time.Time
}

// NewService constructs the export service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		selection:  cfg.Selection,
		aggregator: NewAggregator(cfg.Selection.Source),
		renderer:   cfg.Renderer,
		ext:        cfg.WorkbookExt,
		logger:     cfg.Logger,
		recorder:   cfg.Recorder,
		clock:      cfg.Clock,
	}
	if s.ext == "" {
		s.ext = ".xlsx"
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// UsingMock reports whether the demo dataset backs this service.
func (s *Service) UsingMock() bool {
	return s.selection.UsingMock()
}

// Export runs one export request to completion.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	start := s.clock()
	id := uuid.NewString()
	logger := s.logger.With(slog.String("export_id", id), slog.String("source", string(s.selection.Kind)))

	res, workbooks, err := s.export(ctx, logger, req)
	outcome := OutcomeError
	if err == nil {
		res.ID = id
		switch res.Kind {
		case ResultArchive:
			outcome = OutcomeArchive
		case ResultSummary:
			outcome = OutcomeSummary
		case ResultEmpty:
			outcome = OutcomeEmpty
		}
	}
	if s.recorder != nil {
		s.recorder.ObserveExport(outcome, s.clock().Sub(start), workbooks)
	}
	if err != nil {
		logger.Error("export failed", slog.Any("error", err))
		return nil, err
	}
	logger.Info("export finished", slog.String("outcome", outcome), slog.Int("workbooks", workbooks))
	return res, nil
}

func (s *Service) export(ctx context.Context, logger *slog.Logger, req Request) (*Result, int, error) {
	orders, err := s.aggregator.Orders(ctx, req.Range)
	if err != nil {
		return nil, 0, err
	}
	if req.Debug || req.WantJSON {
		return &Result{Kind: ResultSummary, Summary: Summarize(orders, s.UsingMock())}, 0, nil
	}
	if len(orders) == 0 {
		return &Result{Kind: ResultEmpty, Message: EmptyMessage}, 0, nil
	}

	agg, err := s.aggregator.Enrich(ctx, orders)
	if err != nil {
		return nil, 0, err
	}
	groups := GroupByDoctor(agg.Orders)
	logger.Debug("export grouped", slog.Int("orders", len(agg.Orders)), slog.Int("doctors", groups.Len()))

	now := s.clock()
	pk := archive.NewAt(now)
	for _, key := range groups.Keys() {
		doctorOrders := groups.Orders(key)
		name := doctorName(doctorOrders)
		display := name
		if display == "" {
			display = "Doctor_" + key
		}
		data, err := s.renderer.Build(display, doctorOrders)
		if err != nil {
			pk.Abort()
			return nil, 0, &BuildError{Stage: "workbook", Doctor: display, Err: err}
		}
		if err := pk.Append(archive.WorkbookFilename(name, key, s.ext), data); err != nil {
			pk.Abort()
			return nil, 0, &BuildError{Stage: "archive", Doctor: display, Err: err}
		}
	}
	entries := pk.Entries()
	zipped, err := pk.Finalize()
	if err != nil {
		return nil, len(entries), &BuildError{Stage: "archive", Err: err}
	}
	return &Result{
		Kind:     ResultArchive,
		Archive:  zipped,
		Filename: archive.ExportFilename(now.UnixMilli()),
		Entries:  entries,
		Summary:  Summarize(orders, s.UsingMock()),
	}, len(entries), nil
}

func doctorName(orders []Order) string {
	for _, o := range orders {
		if o.Doctor != nil && o.Doctor.Name != "" {
			return o.Doctor.Name
		}
	}
	return ""
}
