package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewbase/crewbase/internal/permissions"
)

// Recorder is the worker-side consumer: it persists override-change events
// as audit rows and appends them to the recent-changes feed.
type Recorder struct {
	pool   *pgxpool.Pool
	feed   *Feed
	logger *slog.Logger
}

// NewRecorder constructs a Recorder.
func NewRecorder(pool *pgxpool.Pool, feed *Feed, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{pool: pool, feed: feed, logger: logger}
}

// HandleOverrideChangedTask processes TaskTypeOverrideChanged tasks. A
// malformed payload is dropped rather than retried.
func (r *Recorder) HandleOverrideChangedTask(ctx context.Context, t *asynq.Task) error {
	var evt permissions.OverrideChangedEvent
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		r.logger.Error("decode override change payload", slog.Any("error", err))
		return asynq.SkipRetry
	}

	if err := r.record(ctx, evt); err != nil {
		return err
	}

	if r.feed != nil {
		if err := r.feed.Append(ctx, evt); err != nil {
			// The durable row is written; the feed is best effort.
			r.logger.Warn("append recent change",
				slog.Int64("project_id", evt.ProjectID),
				slog.Any("error", err))
		}
	}
	return nil
}

func (r *Recorder) record(ctx context.Context, evt permissions.OverrideChangedEvent) error {
	previous, err := json.Marshal(evt.Previous)
	if err != nil {
		return err
	}
	next, err := json.Marshal(evt.New)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO permission_audit_logs (event_id, project_id, member_id, actor, previous_overrides, new_overrides, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING
	`
	_, err = r.pool.Exec(ctx, query,
		evt.ID, evt.ProjectID, evt.MemberID, evt.Actor, previous, next, evt.OccurredAt)
	return err
}
