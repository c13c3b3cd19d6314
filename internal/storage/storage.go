package storage

// UploadOutcome is one row of the append-only upload history: the terminal
// result of a transfer. It is an audit record, never read back into the live
// attachment store.
type UploadOutcome struct {
	AttachmentID string
	FileName     string
	SizeBytes    int64
	Status       string
	RemotePath   string
	ErrorMessage string
	ResolvedAt   string
}

// UploadHistoryReader serves the history view.
type UploadHistoryReader interface {
	RecentOutcomes(limit int) ([]UploadOutcome, error)
}

// UploadHistoryWriter appends terminal outcomes.
type UploadHistoryWriter interface {
	RecordOutcome(outcome UploadOutcome) error
}
