package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/scopewise/scopewise/internal/config"
	"github.com/scopewise/scopewise/internal/model/scoping"
)

const apiPrefix = "/api/v1"

// Client issues typed requests against the scoping backend. It holds no
// session state; every failure is surfaced as an *APIError.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the configured backend. A non-positive
// timeout falls back to 30 seconds.
func NewClient(cfg config.ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateSession starts a new scoping session.
func (c *Client) CreateSession(ctx context.Context, req scoping.CreateSessionRequest) (scoping.Session, error) {
	var session scoping.Session
	err := c.do(ctx, http.MethodPost, apiPrefix+"/sessions", req, &session)
	return session, err
}

// GetSession fetches one session by id. Unknown ids fail with a 404 APIError.
func (c *Client) GetSession(ctx context.Context, id string) (scoping.Session, error) {
	var session scoping.Session
	err := c.do(ctx, http.MethodGet, apiPrefix+"/sessions/"+url.PathEscape(id), nil, &session)
	return session, err
}

// ListSessions fetches all sessions owned by a user, in server order.
func (c *Client) ListSessions(ctx context.Context, userID string) ([]scoping.Session, error) {
	var sessions []scoping.Session
	path := apiPrefix + "/sessions?user_id=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteSession removes a session. Deleting an id that no longer exists is
// not an error.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, apiPrefix+"/sessions/"+url.PathEscape(id), nil, nil)
	if apiErr, ok := AsAPIError(err); ok && apiErr.IsNotFound() {
		return nil
	}
	return err
}

// GetProgress fetches the server-maintained progress snapshot. Unknown
// session ids fail with a 404 APIError.
func (c *Client) GetProgress(ctx context.Context, id string) (scoping.Progress, error) {
	var progress scoping.Progress
	err := c.do(ctx, http.MethodGet, apiPrefix+"/sessions/"+url.PathEscape(id)+"/progress", nil, &progress)
	return progress, err
}

// SubmitAnswer sends one answer. Stage-range validation is server-side.
func (c *Client) SubmitAnswer(ctx context.Context, id string, req scoping.AnswerRequest) (scoping.AnswerReceipt, error) {
	var receipt scoping.AnswerReceipt
	err := c.do(ctx, http.MethodPost, apiPrefix+"/sessions/"+url.PathEscape(id)+"/answer", req, &receipt)
	return receipt, err
}

// GetEvents fetches the full event log. Unknown session ids yield an empty
// sequence, not an error; callers that need missing-session detection should
// use GetProgress.
func (c *Client) GetEvents(ctx context.Context, id string) ([]scoping.ProgressEvent, error) {
	var events []scoping.ProgressEvent
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/sessions/"+url.PathEscape(id)+"/events", nil, &events); err != nil {
		return nil, err
	}
	if events == nil {
		events = []scoping.ProgressEvent{}
	}
	return events, nil
}

// HealthCheck probes backend liveness.
func (c *Client) HealthCheck(ctx context.Context) (scoping.Health, error) {
	var health scoping.Health
	err := c.do(ctx, http.MethodGet, "/health", nil, &health)
	return health, err
}

// do performs one JSON request/response round trip. A nil out discards the
// response body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return transportError(err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return transportError(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Status: 500, Message: "failed to decode response body", Data: err.Error()}
	}
	return nil
}

// decodeError turns a non-2xx response into an *APIError, preferring the
// server's detail message when one is present.
func decodeError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	message := fallbackMessage
	var detail struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &detail); err == nil {
		switch {
		case detail.Error != "":
			message = detail.Error
		case detail.Detail != "":
			message = detail.Detail
		}
	}

	var data any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			data = string(raw)
		}
	}

	return &APIError{Status: resp.StatusCode, Message: message, Data: data}
}
