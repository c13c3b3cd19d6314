package logctx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

// TestTraceHandler_NoCorrelation verifies that logs without span or request
// context carry no correlation fields.
func TestTraceHandler_NoCorrelation(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(NewTraceHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{})))

	logger.InfoContext(context.Background(), "test message", "key", "value")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log output: %v", err)
	}

	for _, field := range []string{"trace_id", "span_id", "request_id"} {
		if _, exists := entry[field]; exists {
			t.Errorf("%s should not be present without correlation context, got: %v", field, entry[field])
		}
	}

	if entry["msg"] != "test message" {
		t.Errorf("expected msg='test message', got: %v", entry["msg"])
	}

	if entry["key"] != "value" {
		t.Errorf("expected key='value', got: %v", entry["key"])
	}
}

// TestTraceHandler_RequestID verifies that a request id attached to the
// context is injected into the record.
func TestTraceHandler_RequestID(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(NewTraceHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{})))

	ctx := WithRequestID(context.Background(), "req-123")
	logger.InfoContext(ctx, "test message")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log output: %v", err)
	}

	if entry["request_id"] != "req-123" {
		t.Errorf("expected request_id='req-123', got: %v", entry["request_id"])
	}
}

func TestNewTraceHandler_NilHandler(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for nil handler")
		}
	}()

	NewTraceHandler(nil)
}

func TestLoggerFromContext_Default(t *testing.T) {
	if LoggerFromContext(context.Background()) == nil {
		t.Error("expected default logger for bare context")
	}
}

func TestLoggerFromContext_RoundTrip(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	ctx := WithLogger(context.Background(), logger)
	if got := LoggerFromContext(ctx); got != logger {
		t.Error("expected the logger attached to the context")
	}
}
