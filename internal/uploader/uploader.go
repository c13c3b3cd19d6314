package uploader

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/italolelis/session_uploader/internal/attachment"
	"github.com/italolelis/session_uploader/internal/logctx"
)

// fallbackErrorMessage is shown when neither the transfer channel nor the
// transport fault produced a usable message.
const fallbackErrorMessage = "upload failed"

// ErrNotRetryable is returned by Retry for records that are not in error
// status.
var ErrNotRetryable = errors.New("attachment is not in a retryable status")

// UploadFileRequest is the payload delivered to the transfer channel,
// scoped to one session.
type UploadFileRequest struct {
	FileName string `json:"fileName"`
	Content  string `json:"content"` // base64, standard alphabet, no wrapping
	SubPath  string `json:"subPath,omitempty"`
}

// UploadFileResponse is the structured result of an upload call.
type UploadFileResponse struct {
	Success bool   `json:"success"`
	Path    string `json:"path,omitempty"`
	Size    int64  `json:"size,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TransferChannel delivers encoded file content to a session's working
// directory. A returned error means the call itself failed at the transport
// level; an application-level refusal comes back as Success=false.
type TransferChannel interface {
	UploadFile(ctx context.Context, sessionID string, req UploadFileRequest) (*UploadFileResponse, error)
}

// FileReader reads the full contents of a locally picked file.
type FileReader interface {
	ReadFile(name string) ([]byte, error)
}

// OSFileReader is the FileReader backed by the local filesystem.
type OSFileReader struct{}

func (OSFileReader) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// Engine transfers attachments one at a time and resolves each record to a
// terminal status in the store. Per-file read and transfer faults become
// record state, never errors to the caller; that is what lets a batch run
// past a bad file without special-casing it.
//
// Engine also owns the id-to-local-path handle index. Handles are registered
// by the selector and dropped when records are removed, keeping local paths
// out of the user-visible record.
type Engine struct {
	store     *attachment.Store
	channel   TransferChannel
	reader    FileReader
	sessionID string

	mu      sync.Mutex
	handles map[string]string
}

func NewEngine(store *attachment.Store, channel TransferChannel, reader FileReader, sessionID string) *Engine {
	return &Engine{
		store:     store,
		channel:   channel,
		reader:    reader,
		sessionID: sessionID,
		handles:   make(map[string]string),
	}
}

// Register records the local path behind an attachment id.
func (e *Engine) Register(id, path string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.handles[id] = path
}

// Drop forgets the local path behind an attachment id. Dropping an unknown
// id has no effect.
func (e *Engine) Drop(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.handles, id)
}

// Handle returns the local path behind an attachment id, if registered.
func (e *Engine) Handle(id string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	path, ok := e.handles[id]

	return path, ok
}

// TransferOne uploads a single attachment and commits its terminal status.
// A missing session id or local handle is a silent no-op: both are caller
// invariants, and a half-configured engine must not poison the record.
// The record always leaves uploading by the time this returns.
func (e *Engine) TransferOne(ctx context.Context, rec attachment.Record, subPath string) {
	logger := logctx.LoggerFromContext(ctx).With("attachment_id", rec.ID, "file_name", rec.FileName)

	if e.sessionID == "" {
		logger.Warn("no session bound, skipping transfer")

		return
	}

	path, ok := e.Handle(rec.ID)
	if !ok {
		logger.Warn("no local handle registered, skipping transfer")

		return
	}

	e.store.UpdateStatus(rec.ID, attachment.StatusUploading, attachment.Resolution{})

	data, err := e.reader.ReadFile(path)
	if err != nil {
		logger.Error("failed to read local file", "path", path, "err", err)

		e.store.UpdateStatus(rec.ID, attachment.StatusError, attachment.Resolution{
			ErrorMessage: err.Error(),
		})

		return
	}

	req := UploadFileRequest{
		FileName: rec.FileName,
		Content:  base64.StdEncoding.EncodeToString(data),
		SubPath:  subPath,
	}

	resp, err := e.channel.UploadFile(ctx, e.sessionID, req)
	if err != nil {
		logger.Error("transfer channel call failed", "err", err)

		message := err.Error()
		if message == "" {
			message = fallbackErrorMessage
		}

		e.store.UpdateStatus(rec.ID, attachment.StatusError, attachment.Resolution{
			ErrorMessage: message,
		})

		return
	}

	if resp.Success {
		logger.Info("attachment uploaded",
			"remote_path", resp.Path,
			"file_size", humanize.Bytes(uint64(len(data))))

		e.store.UpdateStatus(rec.ID, attachment.StatusSuccess, attachment.Resolution{
			RemotePath: resp.Path,
		})

		return
	}

	message := resp.Error
	if message == "" {
		message = fallbackErrorMessage
	}

	logger.Error("transfer channel rejected upload", "err", message)

	e.store.UpdateStatus(rec.ID, attachment.StatusError, attachment.Resolution{
		ErrorMessage: message,
	})
}

// UploadPending transfers a batch strictly one at a time. A nil records slice
// means "everything pending in the store right now"; records queued after
// that snapshot belong to the next batch. An empty batch never touches the
// in-progress flag. The flag is cleared on the way out no matter how an
// individual transfer resolved.
//
// Callers must gate new batches on the store's uploading flag; the engine
// does not defend against concurrent batches.
func (e *Engine) UploadPending(ctx context.Context, records []attachment.Record, subPath string) {
	logger := logctx.LoggerFromContext(ctx)

	if records == nil {
		records = e.store.Pending()
	}

	if len(records) == 0 {
		logger.Debug("no pending attachments to upload")

		return
	}

	e.store.SetUploading(true)
	defer e.store.SetUploading(false)

	logger.Info("starting upload batch", "batch_size", len(records), "sub_path", subPath)

	for _, rec := range records {
		e.TransferOne(ctx, rec, subPath)
	}

	logger.Info("upload batch finished", "batch_size", len(records))
}

// Retry re-runs the transfer for a record currently in error status. The
// prior error message is cleared by the uploading transition.
func (e *Engine) Retry(ctx context.Context, id, subPath string) error {
	rec, ok := e.store.Get(id)
	if !ok {
		return &attachment.NotFoundError{ID: id}
	}

	if rec.Status != attachment.StatusError {
		return fmt.Errorf("%w: %s is %s", ErrNotRetryable, id, rec.Status)
	}

	e.TransferOne(ctx, rec, subPath)

	return nil
}
