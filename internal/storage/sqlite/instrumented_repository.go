package sqlite

import (
	"context"
	"database/sql"

	"github.com/italolelis/session_uploader/internal/storage"
	"github.com/italolelis/session_uploader/internal/telemetry"
)

// InstrumentedHistoryRepository wraps HistoryRepository with telemetry.
type InstrumentedHistoryRepository struct {
	repo      *HistoryRepository
	telemetry *telemetry.Telemetry
}

// NewInstrumentedHistoryRepository creates a new instrumented history repository.
func NewInstrumentedHistoryRepository(dbConn *sql.DB, tel *telemetry.Telemetry) *InstrumentedHistoryRepository {
	return &InstrumentedHistoryRepository{
		repo:      NewHistoryRepository(dbConn),
		telemetry: tel,
	}
}

// RecordOutcome appends one terminal transfer result with telemetry.
func (r *InstrumentedHistoryRepository) RecordOutcome(outcome storage.UploadOutcome) error {
	return r.telemetry.InstrumentDBOperation(context.Background(), "record_outcome", func(ctx context.Context) error {
		return r.repo.RecordOutcome(outcome)
	})
}

// RecentOutcomes returns the most recent outcomes with telemetry.
func (r *InstrumentedHistoryRepository) RecentOutcomes(limit int) ([]storage.UploadOutcome, error) {
	var result []storage.UploadOutcome

	var err error

	instrumentedErr := r.telemetry.InstrumentDBOperation(context.Background(), "recent_outcomes", func(ctx context.Context) error {
		result, err = r.repo.RecentOutcomes(limit)

		return err
	})

	if instrumentedErr != nil {
		return nil, instrumentedErr
	}

	return result, nil
}
