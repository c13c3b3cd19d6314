package telemetry

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/italolelis/session_uploader/internal/logctx"
)

// RequestIDHeader carries the correlation id between client and server.
const RequestIDHeader = "X-Request-ID"

// RequestID middleware attaches a correlation id to each request. An
// X-Request-ID header from upstream is reused; otherwise a fresh uuid is
// generated. The id lands in the response header and in the request context,
// where the logctx trace handler picks it up for every log line.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := logctx.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
