package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueExports holds export tasks so large archives do not starve other work.
	QueueExports = "exports"
	// TaskExportLaborator builds a laboratory export archive and stores it.
	TaskExportLaborator = "export:laborator"
)

// ExportLaboratorPayload selects the completion-date range of a queued export.
// Both dates empty means the previous calendar month.
type ExportLaboratorPayload struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// NewExportLaboratorTask constructs an Asynq task.
func NewExportLaboratorTask(payload ExportLaboratorPayload, opts ...asynq.Option) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	opts = append([]asynq.Option{asynq.Queue(QueueExports), asynq.MaxRetry(3), asynq.Timeout(10 * time.Minute)}, opts...)
	return asynq.NewTask(TaskExportLaborator, data, opts...), nil
}

// ParseExportLaboratorPayload decodes a task payload. Malformed payloads are
// wrapped with asynq.SkipRetry since retrying cannot fix them.
func ParseExportLaboratorPayload(task *asynq.Task) (ExportLaboratorPayload, error) {
	var payload ExportLaboratorPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %v: %w", TaskExportLaborator, err, asynq.SkipRetry)
	}
	return payload, nil
}
