package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"go.uber.org/zap"
)

const InvokePath = "/invoke"

// HTTPBoundary posts the envelope to a backend served over HTTP. The response
// body is the same newline-delimited message stream as ExecBoundary reads.
type HTTPBoundary struct {
	logger     *zap.Logger
	endpoint   *url.URL
	httpClient *http.Client
	onEvent    EventHandler
}

type HTTPOption func(*HTTPBoundary)

func WithHTTPClient(httpClient *http.Client) HTTPOption {
	return func(b *HTTPBoundary) {
		b.httpClient = httpClient
	}
}

func WithHTTPEvents(onEvent EventHandler) HTTPOption {
	return func(b *HTTPBoundary) {
		b.onEvent = onEvent
	}
}

func NewHTTPBoundary(logger *zap.Logger, endpoint string, opts ...HTTPOption) (*HTTPBoundary, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse endpoint '%s': %w", endpoint, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("endpoint must use http or https scheme, got: %s", parsed.Scheme)
	}

	b := &HTTPBoundary{logger: logger, endpoint: parsed}
	for _, opt := range opts {
		opt(b)
	}
	if b.httpClient == nil {
		// Jobs run as long as they need to, so the client has no timeout.
		b.httpClient = &http.Client{Transport: cleanhttp.DefaultPooledTransport()}
	}
	return b, nil
}

func (b *HTTPBoundary) Invoke(ctx context.Context, command string, payload any) (json.RawMessage, error) {
	body, err := encodeEnvelope(command, payload)
	if err != nil {
		return nil, err
	}

	target := b.endpoint.JoinPath(InvokePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")

	b.logger.Debug("posting to backend", zap.String("url", target.String()), zap.String("command", command))

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("backend returned %s: %s", resp.Status, strings.TrimSpace(string(text)))
	}

	return readMessages(resp.Body, b.onEvent)
}
