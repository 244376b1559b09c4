package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/scopewise/scopewise/internal/model/scoping"
)

// Subscription is a live event stream for one session. Events arrive on
// Events() until the stream terminates; after the channel closes, Err reports
// the terminal error, if any. Closing is idempotent and guarantees no further
// deliveries.
type Subscription struct {
	events chan scoping.ProgressEvent
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

// SubscribeToStream opens the live SSE stream for a session. Multiple
// subscriptions to the same session id are independent. The stream does not
// resume from a cursor; events emitted before the subscription opened are
// only available via GetEvents.
func (c *Client) SubscribeToStream(ctx context.Context, sessionID string) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	path := c.baseURL + apiPrefix + "/sessions/" + url.PathEscape(sessionID) + "/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		cancel()
		return nil, transportError(err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// The shared client's fixed timeout would cut a long-lived stream short.
	streamClient := &http.Client{Transport: c.http.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, transportError(err)
	}
	if resp.StatusCode >= 400 {
		apiErr := decodeError(resp)
		resp.Body.Close()
		cancel()
		return nil, apiErr
	}

	sub := &Subscription{
		events: make(chan scoping.ProgressEvent, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go sub.read(resp.Body)
	return sub, nil
}

// Events returns the delivery channel. It is closed when the stream ends for
// any reason.
func (s *Subscription) Events() <-chan scoping.ProgressEvent {
	return s.events
}

// Err returns the terminal stream error. It is meaningful only after the
// Events channel has closed; a stream ended by Close reports nil.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close cancels the subscription and releases the connection. Safe to call
// multiple times and concurrently with delivery.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.cancel()
	})
}

func (s *Subscription) read(body io.ReadCloser) {
	defer close(s.events)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}

		var event scoping.ProgressEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			log.Printf("[sse] skipping malformed event: %v", err)
			continue
		}

		// Once done is closed no further event may be delivered, so the
		// closed-done case must win over a ready buffered send.
		select {
		case <-s.done:
			return
		default:
		}
		select {
		case s.events <- event:
		case <-s.done:
			return
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case <-s.done:
			// Closed locally; the read error is a side effect of cancellation.
		default:
			s.mu.Lock()
			s.err = transportError(err)
			s.mu.Unlock()
		}
	}
}
