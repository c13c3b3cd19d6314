package sqlite

import (
	"database/sql"

	"github.com/italolelis/session_uploader/internal/storage"
)

// HistoryRepository stores upload outcomes in SQLite.
type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(dbConn *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: dbConn}
}

// RecordOutcome appends one terminal transfer result.
func (r *HistoryRepository) RecordOutcome(outcome storage.UploadOutcome) error {
	_, err := r.db.Exec(
		`INSERT INTO upload_history (attachment_id, file_name, size_bytes, status, remote_path, error_message, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		outcome.AttachmentID,
		outcome.FileName,
		outcome.SizeBytes,
		outcome.Status,
		outcome.RemotePath,
		outcome.ErrorMessage,
		outcome.ResolvedAt,
	)

	return err
}

// RecentOutcomes returns the most recent outcomes, newest first.
func (r *HistoryRepository) RecentOutcomes(limit int) ([]storage.UploadOutcome, error) {
	rows, err := r.db.Query(
		`SELECT attachment_id, file_name, size_bytes, status, remote_path, error_message, resolved_at
		 FROM upload_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []storage.UploadOutcome

	for rows.Next() {
		var outcome storage.UploadOutcome

		var remotePath, errorMessage sql.NullString

		err := rows.Scan(
			&outcome.AttachmentID,
			&outcome.FileName,
			&outcome.SizeBytes,
			&outcome.Status,
			&remotePath,
			&errorMessage,
			&outcome.ResolvedAt,
		)
		if err != nil {
			return nil, err
		}

		if remotePath.Valid {
			outcome.RemotePath = remotePath.String
		}

		if errorMessage.Valid {
			outcome.ErrorMessage = errorMessage.String
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes, rows.Err()
}
