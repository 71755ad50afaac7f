package notify

import (
	"context"
	"sync"
)

var _ Notifier = (*CollectingNotifier)(nil)

// CollectingNotifier records change notifications in memory, for testing
// and single-process deployments that have no broker.
type CollectingNotifier struct {
	mu      sync.Mutex
	changes []RecordChange
}

// NewCollectingNotifier creates an empty collecting notifier.
func NewCollectingNotifier() *CollectingNotifier { return &CollectingNotifier{} }

// RecordChanged appends the change to the collected list.
func (n *CollectingNotifier) RecordChanged(_ context.Context, change RecordChange) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, change)
	return nil
}

// Changes returns a copy of every collected notification.
func (n *CollectingNotifier) Changes() []RecordChange {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]RecordChange(nil), n.changes...)
}
