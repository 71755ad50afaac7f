// Package notify distributes record change notifications so downstream
// consumers (harvest schedulers, search indexes, caches) can react to
// catalogue updates.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChangeType enumerates the kinds of record change a notification reports.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// RecordChange is one catalogue change notification.
type RecordChange struct {
	ID         uuid.UUID  `json:"id"`
	Type       ChangeType `json:"type"`
	Identifier string     `json:"identifier"`
	Typename   string     `json:"typename,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// NewRecordChange builds a notification for a record change that just
// happened.
func NewRecordChange(changeType ChangeType, identifier, typename string) RecordChange {
	return RecordChange{
		ID:         uuid.New(),
		Type:       changeType,
		Identifier: identifier,
		Typename:   typename,
		OccurredAt: time.Now().UTC(),
	}
}

// Notifier publishes record change notifications.
type Notifier interface {
	RecordChanged(ctx context.Context, change RecordChange) error
}
