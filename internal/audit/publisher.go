package audit

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/crewbase/crewbase/internal/permissions"
)

// Publisher enqueues override-change events for the audit worker. The
// engine calls it only after the storage transaction has committed, so the
// audit trail never observes a change the store will not also observe.
type Publisher struct {
	client *asynq.Client
}

// NewPublisher wraps an asynq client.
func NewPublisher(client *asynq.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishOverrideChanged enqueues the event. Delivery retries are handled
// by asynq once the task is accepted.
func (p *Publisher) PublishOverrideChanged(ctx context.Context, evt permissions.OverrideChangedEvent) error {
	task, err := NewOverrideChangedTask(evt)
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}
	if _, err := p.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("audit: enqueue event: %w", err)
	}
	return nil
}
