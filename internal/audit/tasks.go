// Package audit records committed override changes: durable rows in
// Postgres plus a capped per-project recent-changes feed in Redis.
package audit

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/crewbase/crewbase/internal/permissions"
)

const (
	// QueueDefault is the queue processed by the audit worker.
	QueueDefault = "default"
	// TaskTypeOverrideChanged is the task type for committed override
	// replacements.
	TaskTypeOverrideChanged = "permissions:override_changed"
)

// NewOverrideChangedTask wraps the event into an asynq task.
func NewOverrideChangedTask(evt permissions.OverrideChangedEvent) (*asynq.Task, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeOverrideChanged, data, asynq.Queue(QueueDefault)), nil
}
