package session

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/italolelis/session_uploader/internal/logctx"
	"github.com/italolelis/session_uploader/internal/uploader"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
)

// Client talks JSON request/response to the remote session endpoint. It is
// the concrete transfer channel: one POST per upload, scoped to a session id,
// answering with the structured upload result.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Options configures the session client.
type Options struct {
	Token    string
	Timeout  time.Duration
	Insecure bool // skip TLS verification if true
}

// NewClient creates a session client for the given base URL. When a token is
// configured, requests carry it as a bearer credential via an oauth2 static
// token source.
func NewClient(baseURL string, opts Options) *Client {
	transport := http.DefaultTransport

	if opts.Insecure {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	httpClient := &http.Client{
		Timeout:   opts.Timeout,
		Transport: otelhttp.NewTransport(transport),
	}

	if opts.Token != "" {
		tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)

		httpClient = oauth2.NewClient(ctx, tokenSource)
		httpClient.Timeout = opts.Timeout
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

type rpcRequest struct {
	Method string                     `json:"method"`
	Params uploader.UploadFileRequest `json:"params"`
}

// UploadFile implements uploader.TransferChannel. A transport fault or a
// non-200 answer comes back as an error; an application-level refusal comes
// back as a response with Success=false.
func (c *Client) UploadFile(ctx context.Context, sessionID string, req uploader.UploadFileRequest) (*uploader.UploadFileResponse, error) {
	logger := logctx.LoggerFromContext(ctx).With("session_id", sessionID, "file_name", req.FileName)

	body, err := json.Marshal(rpcRequest{Method: "uploadFile", Params: req})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upload request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/sessions/%s/rpc", c.baseURL, url.PathEscape(sessionID))

	logger.Debug("sending uploadFile", "url", endpoint, "content_length", len(req.Content))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		logger.Error("non-200 response", "status", resp.StatusCode, "body", string(b))

		return nil, fmt.Errorf("upload request failed: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var result uploader.UploadFileResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}

	return &result, nil
}
