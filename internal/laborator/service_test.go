package laborator

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct {
	failFor string
	names   []string
}

func (s *stubRenderer) Build(doctorName string, orders []Order) ([]byte, error) {
	if doctorName == s.failFor {
		return nil, errors.New("renderer exploded")
	}
	s.names = append(s.names, doctorName)
	return []byte(doctorName), nil
}

type recordedExport struct {
	outcome   string
	workbooks int
}

type stubRecorder struct {
	mu      sync.Mutex
	exports []recordedExport
}

func (s *stubRecorder) ObserveExport(outcome string, _ time.Duration, workbooks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports = append(s.exports, recordedExport{outcome: outcome, workbooks: workbooks})
}

func newTestService(src Source, kind SourceKind, renderer WorkbookRenderer, rec Recorder) *Service {
	return NewService(ServiceConfig{
		Selection:   SourceSelection{Source: src, Kind: kind},
		Renderer:    renderer,
		WorkbookExt: ".xlsx",
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Recorder:    rec,
		Clock:       func() time.Time { return time.UnixMilli(1700000000000) },
	})
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = string(body)
	}
	return out
}

func TestExportBuildsOneWorkbookPerDoctor(t *testing.T) {
	src := fixture()
	src.orders = append(src.orders, Order{ID: 8, PatientID: 10, Status: StatusFinalized, CompletedAt: at("2025-01-20T00:00:00Z")})
	src.orderProducts = append(src.orderProducts, OrderProduct{ID: 10, OrderID: 8, ProductID: 100, Quantity: 1})
	renderer := &stubRenderer{}
	rec := &stubRecorder{}

	res, err := newTestService(src, SourcePostgres, renderer, rec).Export(context.Background(), Request{Range: january()})
	require.NoError(t, err)

	assert.Equal(t, ResultArchive, res.Kind)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "export_1700000000000.zip", res.Filename)
	assert.Equal(t, []string{"Doctor_Dr._Ionescu.xlsx", "Doctor_Dr._Popa.xlsx", "Doctor_unknown.xlsx"}, res.Entries)
	assert.Equal(t, []string{"Dr. Ionescu", "Dr. Popa", "Doctor_unknown"}, renderer.names)

	files := readZip(t, res.Archive)
	assert.Equal(t, "Dr. Popa", files["Doctor_Dr._Popa.xlsx"])
	assert.Len(t, files, 3)

	require.Len(t, rec.exports, 1)
	assert.Equal(t, recordedExport{outcome: OutcomeArchive, workbooks: 3}, rec.exports[0])
}

func TestExportEmptyRange(t *testing.T) {
	rec := &stubRecorder{}
	start := at("2030-01-01T00:00:00Z")
	res, err := newTestService(fixture(), SourcePostgres, &stubRenderer{}, rec).Export(context.Background(), Request{Range: DateRange{Start: start}})
	require.NoError(t, err)

	assert.Equal(t, ResultEmpty, res.Kind)
	assert.Equal(t, EmptyMessage, res.Message)
	assert.Nil(t, res.Archive)
	assert.Equal(t, OutcomeEmpty, rec.exports[0].outcome)
}

func TestExportDebugSummary(t *testing.T) {
	renderer := &stubRenderer{}
	res, err := newTestService(fixture(), SourceREST, renderer, nil).Export(context.Background(), Request{Range: january(), Debug: true})
	require.NoError(t, err)

	assert.Equal(t, ResultSummary, res.Kind)
	assert.Equal(t, Summary{OK: true, OrderCount: 3, PatientCount: 3, DoctorCount: 2}, res.Summary)
	assert.Empty(t, renderer.names)
}

func TestExportWantJSONUsesSummary(t *testing.T) {
	res, err := newTestService(fixture(), SourceREST, &stubRenderer{}, nil).Export(context.Background(), Request{Range: january(), WantJSON: true})
	require.NoError(t, err)
	assert.Equal(t, ResultSummary, res.Kind)
}

func TestExportDemoFallback(t *testing.T) {
	svc := newTestService(NewDemoSource(), SourceDemo, &stubRenderer{}, nil)
	assert.True(t, svc.UsingMock())

	res, err := svc.Export(context.Background(), Request{Debug: true})
	require.NoError(t, err)
	assert.True(t, res.Summary.UsingMock)
	assert.Equal(t, 1, res.Summary.OrderCount)

	res, err = svc.Export(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Doctor_Dr._Demo.xlsx"}, res.Entries)
}

func TestExportRendererFailureAborts(t *testing.T) {
	rec := &stubRecorder{}
	renderer := &stubRenderer{failFor: "Dr. Popa"}

	res, err := newTestService(fixture(), SourcePostgres, renderer, rec).Export(context.Background(), Request{Range: january()})
	require.Error(t, err)
	assert.Nil(t, res)

	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "workbook", buildErr.Stage)
	assert.Equal(t, "Dr. Popa", buildErr.Doctor)
	assert.EqualError(t, errors.Unwrap(err), "renderer exploded")
	assert.Equal(t, OutcomeError, rec.exports[0].outcome)
}

func TestExportLookupFailure(t *testing.T) {
	src := fixture()
	src.failOn = "produse"

	_, err := newTestService(src, SourcePostgres, &stubRenderer{}, nil).Export(context.Background(), Request{Range: january()})
	var lookupErr *LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, "produse", lookupErr.Collection)
}

func TestExportConcurrentCallsAreIndependent(t *testing.T) {
	svc := NewService(ServiceConfig{
		Selection: SourceSelection{Source: fixture(), Kind: SourcePostgres},
		Renderer:  concurrentRenderer{},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Export(context.Background(), Request{Range: january()})
			if assert.NoError(t, err) {
				assert.Len(t, res.Entries, 2)
				ids[i] = res.ID
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{})
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, len(ids))
}

type concurrentRenderer struct{}

func (concurrentRenderer) Build(doctorName string, _ []Order) ([]byte, error) {
	return []byte(doctorName), nil
}
