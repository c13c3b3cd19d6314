package uploader

import (
	"context"
	"time"

	"github.com/italolelis/session_uploader/internal/telemetry"
)

// InstrumentedChannel wraps a TransferChannel with telemetry. A call counts
// as an error both when the transport fails and when the channel answers
// Success=false; the engine treats those the same way.
type InstrumentedChannel struct {
	channel   TransferChannel
	telemetry *telemetry.Telemetry
}

// NewInstrumentedChannel creates a new instrumented transfer channel.
func NewInstrumentedChannel(channel TransferChannel, tel *telemetry.Telemetry) *InstrumentedChannel {
	return &InstrumentedChannel{
		channel:   channel,
		telemetry: tel,
	}
}

// UploadFile delivers an upload through the wrapped channel with telemetry.
func (c *InstrumentedChannel) UploadFile(ctx context.Context, sessionID string, req UploadFileRequest) (*UploadFileResponse, error) {
	c.telemetry.IncrementActiveUploads(ctx)
	defer c.telemetry.DecrementActiveUploads(ctx)

	var resp *UploadFileResponse

	var err error

	start := time.Now()

	instrumentedErr := c.telemetry.InstrumentOperation(ctx, "upload_file", "transfer_channel", func(ctx context.Context) error {
		resp, err = c.channel.UploadFile(ctx, sessionID, req)

		return err
	})

	status := "success"
	if instrumentedErr != nil || (resp != nil && !resp.Success) {
		status = "error"
	}

	c.telemetry.RecordUpload(ctx, status, time.Since(start), len(req.Content))

	if instrumentedErr != nil {
		return nil, instrumentedErr
	}

	return resp, nil
}
