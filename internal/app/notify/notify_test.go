package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecordChange(t *testing.T) {
	t.Parallel()

	change := NewRecordChange(ChangeCreated, "rec-1", "csw:Record")

	assert.NotEqual(t, uuid.Nil, change.ID)
	assert.Equal(t, ChangeCreated, change.Type)
	assert.Equal(t, "rec-1", change.Identifier)
	assert.Equal(t, "csw:Record", change.Typename)
	assert.False(t, change.OccurredAt.IsZero())
}

func TestRecordChange_JSONOmitsEmptyTypename(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(NewRecordChange(ChangeDeleted, "rec-1", ""))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "deleted", decoded["type"])
	assert.NotContains(t, decoded, "typename")
}

func TestCollectingNotifier(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	n := NewCollectingNotifier()
	assert.Empty(t, n.Changes())

	require.NoError(t, n.RecordChanged(ctx, NewRecordChange(ChangeCreated, "rec-1", "csw:Record")))
	require.NoError(t, n.RecordChanged(ctx, NewRecordChange(ChangeUpdated, "rec-1", "csw:Record")))

	changes := n.Changes()
	require.Len(t, changes, 2)
	assert.Equal(t, ChangeCreated, changes[0].Type)
	assert.Equal(t, ChangeUpdated, changes[1].Type)

	// The returned slice is a copy; mutating it must not affect the notifier.
	changes[0].Identifier = "mutated"
	assert.Equal(t, "rec-1", n.Changes()[0].Identifier)
}
