package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"civicportal/internal/auth"
)

// APIError is a non-success reply from the grievance API. Message is the
// API's own "message" field and may be empty.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
}

// MessageOr returns the API's message carried by err, or fallback.
func MessageOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type envelope struct {
	Message string `json:"message"`
}

type request struct {
	op          string
	method      string
	path        string
	creds       auth.Credentials
	body        io.Reader
	contentType string
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// do sends req and decodes a 2xx body into out. The reply's message and raw
// response are returned for callers that inspect them.
func (c *Client) do(ctx context.Context, req request, out any) (string, *http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, req.body)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", req.op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.creds != "" {
		httpReq.Header.Set("Cookie", string(req.creds))
	}

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", req.op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", resp, fmt.Errorf("%s: read body: %w", req.op, err)
	}
	c.logger.Debug("upstream call",
		"op", req.op, "method", req.method, "path", req.path,
		"status", resp.StatusCode, "duration", time.Since(started))

	var env envelope
	if len(bytes.TrimSpace(data)) > 0 {
		_ = json.Unmarshal(data, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return env.Message, resp, &APIError{Op: req.op, Status: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return env.Message, resp, fmt.Errorf("%s: decode response: %w", req.op, err)
		}
	}
	return env.Message, resp, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, creds auth.Credentials, out any) error {
	_, _, err := c.do(ctx, request{op: op, method: http.MethodGet, path: path, creds: creds}, out)
	return err
}

func (c *Client) postJSON(ctx context.Context, op, path string, creds auth.Credentials, in, out any) (string, *http.Response, error) {
	body, err := jsonBody(in)
	if err != nil {
		return "", nil, fmt.Errorf("%s: encode request: %w", op, err)
	}
	return c.do(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        path,
		creds:       creds,
		body:        body,
		contentType: "application/json",
	}, out)
}
