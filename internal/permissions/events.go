package permissions

import (
	"context"
	"time"
)

// OverrideChangedEvent captures one committed replace-overrides write for
// the external audit collaborator. It is published only after the storage
// transaction commits.
type OverrideChangedEvent struct {
	ID         string        `json:"id"`
	ProjectID  int64         `json:"project_id"`
	MemberID   int64         `json:"member_id"`
	Actor      int64         `json:"actor"`
	Previous   map[Kind]bool `json:"previous"`
	New        map[Kind]bool `json:"new"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// EventPublisher hands override-change events to the audit collaborator.
type EventPublisher interface {
	PublishOverrideChanged(ctx context.Context, evt OverrideChangedEvent) error
}
