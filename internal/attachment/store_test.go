package attachment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingRecord(id, name string, size int64) Record {
	return Record{ID: id, FileName: name, SizeBytes: size, Status: StatusPending}
}

func TestStore_AppendPreservesOrder(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Append([]Record{
		pendingRecord("a", "first.txt", 1),
		pendingRecord("b", "second.txt", 2),
	}))
	require.NoError(t, store.Append([]Record{pendingRecord("c", "third.txt", 3)}))

	records := store.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
	assert.Equal(t, "c", records[2].ID)
}

func TestStore_AppendDuplicateID(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Append([]Record{pendingRecord("a", "first.txt", 1)}))

	err := store.Append([]Record{
		pendingRecord("b", "second.txt", 2),
		pendingRecord("a", "dup.txt", 3),
	})

	var dupErr *DuplicateIDError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "a", dupErr.ID)

	// Nothing from the failed batch may be committed.
	assert.Equal(t, 1, store.Len())
}

func TestStore_AppendDuplicateWithinBatch(t *testing.T) {
	store := NewStore()

	err := store.Append([]Record{
		pendingRecord("a", "first.txt", 1),
		pendingRecord("a", "second.txt", 2),
	})

	var dupErr *DuplicateIDError
	require.ErrorAs(t, err, &dupErr)
	assert.Zero(t, store.Len())
}

func TestStore_UpdateStatusFieldsAreExclusive(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Append([]Record{pendingRecord("a", "file.txt", 10)}))

	require.True(t, store.UpdateStatus("a", StatusError, Resolution{ErrorMessage: "disk full"}))

	rec, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, StatusError, rec.Status)
	assert.Equal(t, "disk full", rec.ErrorMessage)
	assert.Empty(t, rec.RemotePath)
	assert.False(t, rec.ResolvedAt.IsZero())

	// Retry path: uploading clears the prior error message.
	require.True(t, store.UpdateStatus("a", StatusUploading, Resolution{}))

	rec, _ = store.Get("a")
	assert.Equal(t, StatusUploading, rec.Status)
	assert.Empty(t, rec.ErrorMessage)
	assert.True(t, rec.ResolvedAt.IsZero())

	require.True(t, store.UpdateStatus("a", StatusSuccess, Resolution{RemotePath: "/workspace/file.txt"}))

	rec, _ = store.Get("a")
	assert.Equal(t, StatusSuccess, rec.Status)
	assert.Equal(t, "/workspace/file.txt", rec.RemotePath)
	assert.Empty(t, rec.ErrorMessage)
}

// A transfer may resolve after the user removed the record; the late status
// update must be swallowed, not raised.
func TestStore_UpdateStatusAbsentIDIsNoOp(t *testing.T) {
	store := NewStore()

	assert.False(t, store.UpdateStatus("ghost", StatusSuccess, Resolution{RemotePath: "/x"}))
	assert.Zero(t, store.Len())
}

func TestStore_RemoveIsIdempotent(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Append([]Record{pendingRecord("a", "file.txt", 10)}))

	store.Remove("a")
	store.Remove("a")
	store.Remove("never-existed")

	assert.Zero(t, store.Len())
}

func TestStore_ClearTerminalKeepsActiveRecordsInOrder(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Append([]Record{
		pendingRecord("a", "a.txt", 1),
		pendingRecord("b", "b.txt", 2),
		pendingRecord("c", "c.txt", 3),
		pendingRecord("d", "d.txt", 4),
		pendingRecord("e", "e.txt", 5),
	}))

	store.UpdateStatus("a", StatusSuccess, Resolution{RemotePath: "/a"})
	store.UpdateStatus("c", StatusError, Resolution{ErrorMessage: "boom"})
	store.UpdateStatus("d", StatusUploading, Resolution{})

	store.ClearTerminal()

	records := store.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "b", records[0].ID)
	assert.Equal(t, "d", records[1].ID)
	assert.Equal(t, "e", records[2].ID)
}

func TestStore_ObserversSeeCommittedState(t *testing.T) {
	store := NewStore()

	var events []Event

	unsubscribe := store.Subscribe(func(ev Event) {
		events = append(events, ev)

		// The mutation must already be committed when the observer runs.
		if ev.Kind == EventUpdated {
			rec, ok := store.Get(ev.Record.ID)
			require.True(t, ok)
			assert.Equal(t, ev.Record.Status, rec.Status)
		}
	})
	defer unsubscribe()

	require.NoError(t, store.Append([]Record{
		pendingRecord("a", "a.txt", 1),
		pendingRecord("b", "b.txt", 2),
	}))
	store.UpdateStatus("a", StatusUploading, Resolution{})
	store.SetUploading(true)
	store.Remove("b")
	store.Clear()

	require.Len(t, events, 6)
	assert.Equal(t, EventAppended, events[0].Kind)
	assert.Equal(t, EventAppended, events[1].Kind)
	assert.Equal(t, EventUpdated, events[2].Kind)
	assert.Equal(t, EventUploading, events[3].Kind)
	assert.True(t, events[3].Uploading)
	assert.Equal(t, EventRemoved, events[4].Kind)
	assert.Equal(t, EventCleared, events[5].Kind)
}

func TestStore_Unsubscribe(t *testing.T) {
	store := NewStore()

	calls := 0
	unsubscribe := store.Subscribe(func(Event) { calls++ })

	require.NoError(t, store.Append([]Record{pendingRecord("a", "a.txt", 1)}))
	unsubscribe()
	store.Remove("a")

	assert.Equal(t, 1, calls)
}

func TestStore_PendingSnapshot(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Append([]Record{
		pendingRecord("a", "a.txt", 1),
		pendingRecord("b", "b.txt", 2),
	}))
	store.UpdateStatus("a", StatusSuccess, Resolution{RemotePath: "/a"})

	pending := store.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].ID)
}
