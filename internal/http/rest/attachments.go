package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/italolelis/session_uploader/internal/attachment"
	"github.com/italolelis/session_uploader/internal/logctx"
	"github.com/italolelis/session_uploader/internal/storage"
	"github.com/italolelis/session_uploader/internal/telemetry"
	"github.com/italolelis/session_uploader/internal/uploader"
)

const defaultHistoryLimit = 50

// AttachmentView is a Record plus the derived display fields. The status
// line is computed here, not stored: formatted size plus a status suffix.
type AttachmentView struct {
	ID           string `json:"id"`
	FileName     string `json:"fileName"`
	SizeBytes    int64  `json:"sizeBytes"`
	Status       string `json:"status"`
	StatusLine   string `json:"statusLine"`
	RemotePath   string `json:"remotePath,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Removable    bool   `json:"removable"`
}

// AttachmentListResponse is the read-only view of the store.
type AttachmentListResponse struct {
	UploadInProgress bool             `json:"uploadInProgress"`
	Attachments      []AttachmentView `json:"attachments"`
}

type uploadRequest struct {
	SubPath string `json:"subPath"`
}

// AttachmentHandler is the presentation adapter over the attachment core:
// it renders the store and forwards pick/upload/retry/remove intents.
type AttachmentHandler struct {
	username string
	password string
	store    *attachment.Store
	selector *attachment.Selector
	engine   *uploader.Engine
	history  storage.UploadHistoryReader
}

// NewAttachmentHandler creates a new attachment API handler. Empty basic-auth
// credentials disable authentication.
func NewAttachmentHandler(
	username, password string,
	store *attachment.Store,
	selector *attachment.Selector,
	engine *uploader.Engine,
	history storage.UploadHistoryReader,
) *AttachmentHandler {
	return &AttachmentHandler{
		username: username,
		password: password,
		store:    store,
		selector: selector,
		engine:   engine,
		history:  history,
	}
}

func (h *AttachmentHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(telemetry.RequestID)

	if h.username != "" {
		r.Use(h.basicAuthMiddleware)
	}

	r.Get("/attachments", h.HandleList)
	r.Post("/attachments/pick", h.HandlePick)
	r.Post("/attachments/upload", h.HandleUpload)
	r.Post("/attachments/{id}/retry", h.HandleRetry)
	r.Delete("/attachments/{id}", h.HandleRemove)
	r.Delete("/attachments/completed", h.HandleClearCompleted)
	r.Get("/history", h.HandleHistory)

	return r
}

// HandleList renders the current records and the batch-in-progress flag.
func (h *AttachmentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	records := h.store.Records()

	views := make([]AttachmentView, 0, len(records))
	for _, rec := range records {
		views = append(views, newAttachmentView(rec))
	}

	writeJSON(w, r, http.StatusOK, AttachmentListResponse{
		UploadInProgress: h.store.Uploading(),
		Attachments:      views,
	})
}

// HandlePick runs the selector and reports how many records were queued.
func (h *AttachmentHandler) HandlePick(w http.ResponseWriter, r *http.Request) {
	logger := logctx.LoggerFromContext(r.Context())

	added, err := h.selector.PickFiles(r.Context())
	if err != nil {
		logger.Error("file pick failed", "err", err)
		http.Error(w, err.Error(), http.StatusBadGateway)

		return
	}

	writeJSON(w, r, http.StatusOK, map[string]int{"added": added})
}

// HandleUpload starts a batch over everything currently pending. One batch
// at a time: a second request while a batch runs gets 409.
func (h *AttachmentHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	logger := logctx.LoggerFromContext(r.Context())

	if h.store.Uploading() {
		http.Error(w, "an upload batch is already in progress", http.StatusConflict)

		return
	}

	var req uploadRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)

			return
		}
	}

	batch := h.store.Pending()
	if len(batch) == 0 {
		writeJSON(w, r, http.StatusOK, map[string]int{"queued": 0})

		return
	}

	// The batch outlives the request; detach from its cancellation but keep
	// its logger and correlation id.
	batchCtx := context.WithoutCancel(r.Context())

	go h.engine.UploadPending(batchCtx, batch, req.SubPath)

	logger.Info("upload batch accepted", "batch_size", len(batch))

	writeJSON(w, r, http.StatusAccepted, map[string]int{"queued": len(batch)})
}

// HandleRetry re-runs the transfer for a failed record.
func (h *AttachmentHandler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	logger := logctx.LoggerFromContext(r.Context())

	if h.store.Uploading() {
		http.Error(w, "an upload batch is already in progress", http.StatusConflict)

		return
	}

	id := chi.URLParam(r, "id")

	err := h.engine.Retry(r.Context(), id, "")

	var notFound *attachment.NotFoundError

	switch {
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)

		return
	case errors.Is(err, uploader.ErrNotRetryable):
		http.Error(w, err.Error(), http.StatusConflict)

		return
	case err != nil:
		logger.Error("retry failed", "attachment_id", id, "err", err)
		http.Error(w, "retry failed", http.StatusInternalServerError)

		return
	}

	rec, _ := h.store.Get(id)

	writeJSON(w, r, http.StatusOK, newAttachmentView(rec))
}

// HandleRemove deletes a record. Removing an uploading record is refused so
// an in-flight transfer is never orphaned; removing an unknown id is a no-op.
func (h *AttachmentHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if rec, ok := h.store.Get(id); ok && rec.Status == attachment.StatusUploading {
		http.Error(w, "attachment is uploading and cannot be removed", http.StatusConflict)

		return
	}

	h.store.Remove(id)
	h.engine.Drop(id)

	w.WriteHeader(http.StatusNoContent)
}

// HandleClearCompleted removes every record in a terminal status.
func (h *AttachmentHandler) HandleClearCompleted(w http.ResponseWriter, r *http.Request) {
	for _, rec := range h.store.Records() {
		if rec.Status.Terminal() {
			h.engine.Drop(rec.ID)
		}
	}

	h.store.ClearTerminal()

	w.WriteHeader(http.StatusNoContent)
}

// HandleHistory serves recent terminal outcomes from the history log.
func (h *AttachmentHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	logger := logctx.LoggerFromContext(r.Context())

	if h.history == nil {
		http.Error(w, "history is not configured", http.StatusNotFound)

		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)

			return
		}

		limit = parsed
	}

	outcomes, err := h.history.RecentOutcomes(limit)
	if err != nil {
		logger.Error("failed to read upload history", "err", err)
		http.Error(w, "failed to read upload history", http.StatusInternalServerError)

		return
	}

	if outcomes == nil {
		outcomes = []storage.UploadOutcome{}
	}

	writeJSON(w, r, http.StatusOK, outcomes)
}

func (h *AttachmentHandler) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			http.Error(w, "invalid authorization format", http.StatusUnauthorized)

			return
		}

		if username != h.username || password != h.password {
			http.Error(w, "invalid username or password", http.StatusUnauthorized)

			return
		}

		next.ServeHTTP(w, r)
	})
}

func newAttachmentView(rec attachment.Record) AttachmentView {
	return AttachmentView{
		ID:           rec.ID,
		FileName:     rec.FileName,
		SizeBytes:    rec.SizeBytes,
		Status:       string(rec.Status),
		StatusLine:   statusLine(rec),
		RemotePath:   rec.RemotePath,
		ErrorMessage: rec.ErrorMessage,
		Removable:    rec.Status != attachment.StatusUploading,
	}
}

// statusLine composes the per-record display line: formatted size plus a
// suffix for every status except pending.
func statusLine(rec attachment.Record) string {
	size := attachment.FormatSize(rec.SizeBytes)

	switch rec.Status {
	case attachment.StatusUploading:
		return fmt.Sprintf("%s (uploading)", size)
	case attachment.StatusSuccess:
		return fmt.Sprintf("%s (uploaded)", size)
	case attachment.StatusError:
		message := rec.ErrorMessage
		if message == "" {
			message = "upload failed"
		}

		return fmt.Sprintf("%s (%s)", size, message)
	default:
		return size
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	logger := logctx.LoggerFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "err", err)
	}
}
