package attachment

import (
	"context"

	"github.com/google/uuid"
	"github.com/italolelis/session_uploader/internal/logctx"
	"github.com/italolelis/session_uploader/internal/picker"
)

// HandleRegistry receives the local path behind each newly queued record.
// The upload engine implements it; the registry is how the user-visible
// record stays free of transport-local concerns.
type HandleRegistry interface {
	Register(id, path string)
}

// Selector turns picker results into pending records appended to the store.
type Selector struct {
	store   *Store
	picker  picker.FilePicker
	handles HandleRegistry
}

func NewSelector(store *Store, p picker.FilePicker, handles HandleRegistry) *Selector {
	return &Selector{store: store, picker: p, handles: handles}
}

// PickFiles invokes the picker and queues one pending record per chosen item,
// in picker order, each with a freshly generated ID. A cancelled pick queues
// nothing. A picker failure returns a SelectionError and leaves the store
// untouched; partial selections are never committed.
func (s *Selector) PickFiles(ctx context.Context) (int, error) {
	logger := logctx.LoggerFromContext(ctx)

	result, err := s.picker.Pick(ctx)
	if err != nil {
		return 0, &SelectionError{Err: err}
	}

	if result.Cancelled || len(result.Items) == 0 {
		logger.Debug("file pick produced no items", "cancelled", result.Cancelled)

		return 0, nil
	}

	records := make([]Record, 0, len(result.Items))

	for _, item := range result.Items {
		size := item.Size
		if size < 0 {
			size = 0
		}

		records = append(records, Record{
			ID:        uuid.New().String(),
			FileName:  item.Name,
			SizeBytes: size,
			Status:    StatusPending,
		})
	}

	if err := s.store.Append(records); err != nil {
		return 0, err
	}

	for i, item := range result.Items {
		s.handles.Register(records[i].ID, item.Handle)
	}

	logger.Info("queued attachments", "count", len(records))

	return len(records), nil
}
