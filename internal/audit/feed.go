package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crewbase/crewbase/internal/permissions"
)

const defaultFeedLimit = 50

// Change is one entry in a project's recent-changes feed.
type Change struct {
	ID         string                    `json:"id"`
	MemberID   int64                     `json:"memberId"`
	Actor      int64                     `json:"actor"`
	Previous   map[permissions.Kind]bool `json:"previous"`
	New        map[permissions.Kind]bool `json:"new"`
	OccurredAt time.Time                 `json:"occurredAt"`
}

// Feed keeps a capped per-project list of recent override changes in
// Redis so UIs can show a timeline without hitting the audit table.
type Feed struct {
	client *redis.Client
	limit  int64
	ttl    time.Duration
}

// NewFeed constructs a Feed. Limit caps entries per project; ttl expires
// idle feeds.
func NewFeed(client *redis.Client, limit int64, ttl time.Duration) *Feed {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	return &Feed{client: client, limit: limit, ttl: ttl}
}

func feedKey(projectID int64) string {
	return fmt.Sprintf("permissions:changes:%d", projectID)
}

// Append pushes the event onto the project's feed and trims it.
func (f *Feed) Append(ctx context.Context, evt permissions.OverrideChangedEvent) error {
	change := Change{
		ID:         evt.ID,
		MemberID:   evt.MemberID,
		Actor:      evt.Actor,
		Previous:   evt.Previous,
		New:        evt.New,
		OccurredAt: evt.OccurredAt,
	}
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	key := feedKey(evt.ProjectID)
	pipe := f.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, f.limit-1)
	if f.ttl > 0 {
		pipe.Expire(ctx, key, f.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns the newest changes for the project, most recent first.
func (f *Feed) Recent(ctx context.Context, projectID int64) ([]Change, error) {
	raw, err := f.client.LRange(ctx, feedKey(projectID), 0, f.limit-1).Result()
	if err != nil {
		return nil, err
	}
	changes := make([]Change, 0, len(raw))
	for _, item := range raw {
		var change Change
		if err := json.Unmarshal([]byte(item), &change); err != nil {
			continue
		}
		changes = append(changes, change)
	}
	return changes, nil
}
