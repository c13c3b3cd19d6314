package cleanup

import (
	"context"
	"time"

	"github.com/italolelis/session_uploader/internal/attachment"
	"github.com/italolelis/session_uploader/internal/logctx"
)

// HandleDropper forgets the local path behind a removed attachment.
type HandleDropper interface {
	Drop(id string)
}

// RemoveExpired drops records that reached a terminal status more than
// keepDuration ago. Pending and uploading records are never touched.
// Returns the number of records removed.
func RemoveExpired(ctx context.Context, store *attachment.Store, handles HandleDropper, keepDuration time.Duration) int {
	logger := logctx.LoggerFromContext(ctx)
	now := time.Now()

	removed := 0

	for _, rec := range store.Records() {
		if !rec.Status.Terminal() || rec.ResolvedAt.IsZero() {
			continue
		}

		if now.Sub(rec.ResolvedAt) <= keepDuration {
			continue
		}

		store.Remove(rec.ID)
		handles.Drop(rec.ID)
		removed++

		logger.Info("removed expired attachment record",
			"attachment_id", rec.ID,
			"file_name", rec.FileName,
			"status", string(rec.Status))
	}

	return removed
}
