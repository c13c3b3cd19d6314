package attachment

import "time"

// Status is the lifecycle state of an attachment record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// Terminal reports whether no further transfer is automatically attempted
// from this status.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// Record is the user-visible state of one attachment. The local file path
// behind it is tracked separately by the upload engine, keyed by ID.
type Record struct {
	ID           string
	FileName     string
	SizeBytes    int64
	Status       Status
	ErrorMessage string    // set only when Status is error
	RemotePath   string    // set only when Status is success
	ResolvedAt   time.Time // time of the terminal transition, zero otherwise
}

// Resolution carries the status-dependent fields of a transition.
// ErrorMessage and RemotePath are mutually exclusive.
type Resolution struct {
	ErrorMessage string
	RemotePath   string
}
