package attachment

import (
	"context"
	"errors"
	"testing"

	"github.com/italolelis/session_uploader/internal/picker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePicker struct {
	result *picker.Result
	err    error
}

func (p *fakePicker) Pick(ctx context.Context) (*picker.Result, error) {
	return p.result, p.err
}

type recordingRegistry struct {
	handles map[string]string
}

func (r *recordingRegistry) Register(id, path string) {
	if r.handles == nil {
		r.handles = make(map[string]string)
	}

	r.handles[id] = path
}

func TestSelector_PickFilesQueuesPendingRecords(t *testing.T) {
	store := NewStore()
	registry := &recordingRegistry{}

	selector := NewSelector(store, &fakePicker{result: &picker.Result{Items: []picker.Item{
		{Name: "notes.md", Size: 42, Handle: "/tmp/notes.md"},
		{Name: "data.bin", Size: 0, Handle: "/tmp/data.bin"},
		{Name: "img.png", Size: 1024, Handle: "/tmp/img.png"},
	}}}, registry)

	added, err := selector.PickFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	records := store.Records()
	require.Len(t, records, 3)

	seen := make(map[string]bool)

	for i, rec := range records {
		assert.Equal(t, StatusPending, rec.Status)
		assert.NotEmpty(t, rec.ID)
		assert.False(t, seen[rec.ID], "ids must be distinct")
		seen[rec.ID] = true

		// Picker order is preserved.
		switch i {
		case 0:
			assert.Equal(t, "notes.md", rec.FileName)
			assert.EqualValues(t, 42, rec.SizeBytes)
		case 1:
			assert.Equal(t, "data.bin", rec.FileName)
			assert.Zero(t, rec.SizeBytes)
		case 2:
			assert.Equal(t, "img.png", rec.FileName)
		}

		assert.Contains(t, registry.handles, rec.ID)
	}
}

func TestSelector_CancelledPickLeavesStoreUntouched(t *testing.T) {
	store := NewStore()

	selector := NewSelector(store, &fakePicker{result: &picker.Result{Cancelled: true}}, &recordingRegistry{})

	added, err := selector.PickFiles(context.Background())
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Zero(t, store.Len())
}

func TestSelector_PickerFailureReturnsSelectionError(t *testing.T) {
	store := NewStore()
	cause := errors.New("permission denied")

	selector := NewSelector(store, &fakePicker{err: cause}, &recordingRegistry{})

	_, err := selector.PickFiles(context.Background())

	var selErr *SelectionError
	require.ErrorAs(t, err, &selErr)
	assert.ErrorIs(t, err, cause)

	// Partial selections must never be committed.
	assert.Zero(t, store.Len())
}

func TestSelector_NegativeSizeDefaultsToZero(t *testing.T) {
	store := NewStore()

	selector := NewSelector(store, &fakePicker{result: &picker.Result{Items: []picker.Item{
		{Name: "odd.bin", Size: -1, Handle: "/tmp/odd.bin"},
	}}}, &recordingRegistry{})

	_, err := selector.PickFiles(context.Background())
	require.NoError(t, err)

	records := store.Records()
	require.Len(t, records, 1)
	assert.Zero(t, records[0].SizeBytes)
}
