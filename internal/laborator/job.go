package laborator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	jobmetrics "github.com/labdent/labexport/internal/jobs"
	"github.com/labdent/labexport/internal/platform/cache"
	"github.com/labdent/labexport/jobs"
)

const (
	jobName     = "export_laborator"
	lockPrefix  = "labexport:lock:export:"
	lockTTL     = 15 * time.Minute
	storageMode = 0o750
)

// Exporter runs one export.
type Exporter interface {
	Export(ctx context.Context, req Request) (*Result, error)
}

// JobConfig wires dependencies required by the export job.
type JobConfig struct {
	Exporter   Exporter
	StorageDir string
	// Redis guards a period against concurrent runs. Nil disables locking.
	Redis   redis.Cmdable
	Metrics *jobmetrics.Metrics
	Logger  *slog.Logger
	Clock   func() time.Time
}

// Job builds export archives from queued tasks and stores them on disk.
type Job struct {
	exporter   Exporter
	storageDir string
	redis      redis.Cmdable
	metrics    *jobmetrics.Metrics
	logger     *slog.Logger
	clock      func() time.Time
}

// NewJob constructs a Job handler.
func NewJob(cfg JobConfig) *Job {
	j := &Job{
		exporter:   cfg.Exporter,
		storageDir: cfg.StorageDir,
		redis:      cfg.Redis,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		clock:      cfg.Clock,
	}
	if j.logger == nil {
		j.logger = slog.Default()
	}
	if j.clock == nil {
		j.clock = time.Now
	}
	return j
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *Job) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.exporter == nil || j.storageDir == "" {
		return errors.New("export job not configured")
	}
	payload, err := jobs.ParseExportLaboratorPayload(task)
	if err != nil {
		return err
	}
	req, err := j.request(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	_, err = j.Run(ctx, req)
	return err
}

// Run exports req and writes the archive into the storage directory. It
// returns the written path, or "" when no archive was produced.
func (j *Job) Run(ctx context.Context, req Request) (path string, err error) {
	run := j.metrics.Begin(jobName)
	defer func() { err = run.Done(err) }()

	period := periodKey(req.Range)
	logger := j.logger.With(slog.String("job", jobName), slog.String("period", period))
	if j.redis != nil {
		lock, err := cache.Acquire(ctx, j.redis, lockPrefix+period, lockTTL)
		if errors.Is(err, cache.ErrLocked) {
			logger.Info("export already running")
			return "", nil
		}
		if err != nil {
			return "", err
		}
		defer func() {
			if rerr := lock.Release(context.WithoutCancel(ctx)); rerr != nil {
				logger.Warn("release export lock", slog.Any("error", rerr))
			}
		}()
	}

	res, err := j.exporter.Export(ctx, req)
	if err != nil {
		return "", err
	}
	if res.Kind != ResultArchive {
		j.metrics.AddArchive(jobName, true)
		logger.Info("no archive produced", slog.String("message", res.Message))
		return "", nil
	}
	path, err = writeArchive(j.storageDir, res.Filename, res.Archive)
	if err != nil {
		return "", err
	}
	j.metrics.AddArchive(jobName, false)
	logger.Info("export stored", slog.String("path", path), slog.Int("workbooks", len(res.Entries)))
	return path, nil
}

func (j *Job) request(payload jobs.ExportLaboratorPayload) (Request, error) {
	if payload.StartDate == "" && payload.EndDate == "" {
		return Request{Range: PreviousMonth(j.clock())}, nil
	}
	return ParseRequest(RawRequest{StartDate: payload.StartDate, EndDate: payload.EndDate})
}

// PreviousMonth returns the calendar month before now, in UTC.
func PreviousMonth(now time.Time) DateRange {
	now = now.UTC()
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := thisMonth.AddDate(0, -1, 0)
	end := thisMonth.Add(-time.Nanosecond)
	return DateRange{Start: &start, End: &end}
}

func periodKey(r DateRange) string {
	day := func(t *time.Time) string {
		if t == nil {
			return "open"
		}
		return t.UTC().Format(time.DateOnly)
	}
	return day(r.Start) + "_" + day(r.End)
}

func writeArchive(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, storageMode); err != nil {
		return "", fmt.Errorf("create storage dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*.zip")
	if err != nil {
		return "", fmt.Errorf("create temp archive: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close archive: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("store archive: %w", err)
	}
	return path, nil
}
