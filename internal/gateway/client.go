// Package gateway is the typed client of the remote voting service.
//
// Every response uses the envelope {"success": true, ...fields} or
// {"success": false, "error": "..."}. Admin endpoints carry a bearer
// credential; a missing credential fails locally before any request is built.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/votedesk/console/internal/metrics"
)

// DefaultBaseURL is used when Options.BaseURL is empty.
const DefaultBaseURL = "http://localhost:8085"

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Client. It is built once at startup and passed down.
type Options struct {
	BaseURL    string
	Credential string
	Transport  Doer
	Logger     *zap.Logger
}

// Client talks to the voting service.
type Client struct {
	baseURL    string
	credential string
	transport  Doer
	logger     *zap.Logger
}

// New creates a Client. Trailing slashes are trimmed from the base URL.
func New(opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	transport := opts.Transport
	if transport == nil {
		transport = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		credential: opts.Credential,
		transport:  transport,
		logger:     logger,
	}
}

type call struct {
	op     string
	method string
	path   string
	admin  bool
	body   interface{}
}

func (c *Client) do(ctx context.Context, in call, out interface{}) error {
	if in.admin && c.credential == "" {
		return ErrMissingCredential
	}

	var reader io.Reader
	if in.body != nil {
		raw, err := json.Marshal(in.body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", in.op, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, in.method, c.baseURL+in.path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", in.op, err)
	}
	if in.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if in.admin {
		req.Header.Set("Authorization", "Bearer "+c.credential)
	}

	start := time.Now()
	err = c.roundTrip(req, out)
	metrics.GatewayDuration.WithLabelValues(in.op).Observe(time.Since(start).Seconds())
	metrics.GatewayRequests.WithLabelValues(in.op, outcome(err)).Inc()

	if err != nil {
		c.logger.Warn("voting api call failed",
			zap.String("op", in.op),
			zap.String("method", in.method),
			zap.String("path", in.path),
			zap.Error(err),
		)
		return err
	}
	c.logger.Debug("voting api call", zap.String("op", in.op), zap.Duration("latency", time.Since(start)))
	return nil
}

func (c *Client) roundTrip(req *http.Request, out interface{}) error {
	resp, err := c.transport.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	return decodeEnvelope(resp.StatusCode, raw, out)
}

// decodeEnvelope interprets a response body. An empty body on a 2xx is a bare
// success; anything that is not an envelope carries the raw status and body.
func decodeEnvelope(status int, raw []byte, out interface{}) error {
	ok := status >= 200 && status < 300
	if len(bytes.TrimSpace(raw)) == 0 {
		if ok {
			return nil
		}
		return &HTTPError{Status: status}
	}

	var env struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || env.Success == nil {
		return &HTTPError{Status: status, Body: string(raw)}
	}
	if !*env.Success {
		return &APIError{Status: status, Message: env.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &HTTPError{Status: status, Body: string(raw)}
	}
	return nil
}

func outcome(err error) string {
	var apiErr *APIError
	var httpErr *HTTPError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.As(err, &httpErr):
		return "http_error"
	case errors.Is(err, ErrMissingCredential):
		return "no_credential"
	}
	return "transport_error"
}
