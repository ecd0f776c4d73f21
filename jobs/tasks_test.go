package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExportLaboratorTaskRoundTrip(t *testing.T) {
	task, err := NewExportLaboratorTask(ExportLaboratorPayload{StartDate: "2025-01-01", EndDate: "2025-01-31"})
	require.NoError(t, err)
	assert.Equal(t, TaskExportLaborator, task.Type())

	payload, err := ParseExportLaboratorPayload(task)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", payload.StartDate)
	assert.Equal(t, "2025-01-31", payload.EndDate)
}

func TestParseExportLaboratorPayloadEmpty(t *testing.T) {
	payload, err := ParseExportLaboratorPayload(asynq.NewTask(TaskExportLaborator, nil))
	require.NoError(t, err)
	assert.Empty(t, payload.StartDate)
	assert.Empty(t, payload.EndDate)
}

func TestParseExportLaboratorPayloadMalformedSkipsRetry(t *testing.T) {
	_, err := ParseExportLaboratorPayload(asynq.NewTask(TaskExportLaborator, []byte("{")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"}})
	require.Error(t, err)

	_, err = NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"},
		Handlers:  []TaskHandler{{Type: TaskExportLaborator}},
	})
	require.Error(t, err)
}

func TestNewWorkerRejectsBadSchedule(t *testing.T) {
	task, err := NewExportLaboratorTask(ExportLaboratorPayload{})
	require.NoError(t, err)
	noop := func(context.Context, *asynq.Task) error { return nil }

	_, err = NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"},
		Handlers:  []TaskHandler{{Type: TaskExportLaborator, Handler: noop}},
		Schedule:  []ScheduledTask{{Cron: "every month", Task: task}},
	})
	require.Error(t, err)

	w, err := NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"},
		Handlers:  []TaskHandler{{Type: TaskExportLaborator, Handler: noop}},
		Schedule:  []ScheduledTask{{Cron: "0 3 1 * *", Task: task}},
	})
	require.NoError(t, err)
	assert.NotNil(t, w.scheduler)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func serveHealth(t *testing.T, inspector QueueInspector) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(inspector, slog.New(slog.NewTextHandler(io.Discard, nil))).MountRoutes(r)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	return rr
}

func TestHealthReportsQueue(t *testing.T) {
	rr := serveHealth(t, stubInspector{info: &asynq.QueueInfo{Queue: QueueExports, Pending: 3, Failed: 1}})
	require.Equal(t, http.StatusOK, rr.Code)

	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, queueHealth{Queue: QueueExports, Pending: 3, Failed: 1}, body)
}

func TestHealthUnavailable(t *testing.T) {
	rr := serveHealth(t, stubInspector{err: errors.New("redis down")})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
