package state

import (
	"context"
	"errors"
	"sync"

	"github.com/scopewise/scopewise/internal/api"
	"github.com/scopewise/scopewise/internal/model/scoping"
)

// ErrNoSession is returned by SubmitAnswer when no session is being tracked.
var ErrNoSession = errors.New("no active session")

// Tracker owns per-session progress: the server's snapshot, the append-only
// event log, and the single live subscription. Switching sessions replaces
// all state wholesale and tears the old subscription down before the new one
// opens; events from a superseded subscription are discarded by epoch tag so
// they can never leak into the new session's state.
type Tracker struct {
	client *api.Client

	mu        sync.Mutex
	sessionID string
	epoch     int
	progress  scoping.Progress
	log       []scoping.ProgressEvent
	ready     bool
	loading   bool
	err       error
	sub       *api.Subscription
}

// NewTracker builds an idle tracker around an API client. Call SetSession to
// start following a session.
func NewTracker(client *api.Client) *Tracker {
	return &Tracker{client: client}
}

// SetSession switches the tracker to a session: it closes any previous
// subscription, fetches progress and the event log concurrently, replaces
// local state with the results, and opens one live subscription. An empty id
// resets the tracker to idle.
func (t *Tracker) SetSession(ctx context.Context, sessionID string) {
	t.mu.Lock()
	if t.sub != nil {
		t.sub.Close()
		t.sub = nil
	}
	t.epoch++
	epoch := t.epoch
	t.sessionID = sessionID
	t.err = nil

	if sessionID == "" {
		t.progress = scoping.Progress{}
		t.log = nil
		t.ready = false
		t.loading = false
		t.mu.Unlock()
		return
	}

	t.loading = true
	t.mu.Unlock()

	t.reload(ctx, sessionID, epoch)
	t.subscribe(ctx, sessionID, epoch)
}

// Refresh re-runs the fetch-and-replace step for the tracked session.
func (t *Tracker) Refresh(ctx context.Context) {
	t.mu.Lock()
	sessionID, epoch := t.sessionID, t.epoch
	if sessionID == "" {
		t.mu.Unlock()
		return
	}
	t.loading = true
	t.mu.Unlock()

	t.reload(ctx, sessionID, epoch)
}

// SubmitAnswer sends one answer and, on success, refetches the authoritative
// server state before clearing the loading flag. Failures are stored and
// also returned so callers can keep the user's input for retry.
func (t *Tracker) SubmitAnswer(ctx context.Context, req scoping.AnswerRequest) error {
	t.mu.Lock()
	sessionID, epoch := t.sessionID, t.epoch
	if sessionID == "" {
		t.mu.Unlock()
		return ErrNoSession
	}
	t.loading = true
	t.mu.Unlock()

	if _, err := t.client.SubmitAnswer(ctx, sessionID, req); err != nil {
		t.mu.Lock()
		if epoch == t.epoch {
			t.err = err
			t.loading = false
		}
		t.mu.Unlock()
		return err
	}

	t.reload(ctx, sessionID, epoch)
	return nil
}

// ClearError resets the stored error.
func (t *Tracker) ClearError() {
	t.mu.Lock()
	t.err = nil
	t.mu.Unlock()
}

// Close stops the live subscription and invalidates any in-flight work.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.epoch++
	if t.sub != nil {
		t.sub.Close()
		t.sub = nil
	}
	t.mu.Unlock()
}

// Progress returns the current snapshot.
func (t *Tracker) Progress() scoping.Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// EventLog returns a copy of the locally held event log, in arrival order.
// Duplicate stream deliveries appear as duplicate entries.
func (t *Tracker) EventLog() []scoping.ProgressEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	copied := make([]scoping.ProgressEvent, len(t.log))
	copy(copied, t.log)
	return copied
}

// SessionID returns the tracked session id, or "" when idle.
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// Ready reports whether at least one fetch has completed successfully since
// the last session change. Stale-but-ready data survives later fetch errors.
func (t *Tracker) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ready
}

// Loading reports whether a fetch or submit is in flight. Advisory only.
func (t *Tracker) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

// Err returns the stored error from the most recent failed operation.
func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// reload fetches progress and events concurrently and replaces local state
// wholesale. On failure the previous data stays in place.
func (t *Tracker) reload(ctx context.Context, sessionID string, epoch int) {
	var (
		progress scoping.Progress
		events   []scoping.ProgressEvent
		pErr     error
		eErr     error
		wg       sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		progress, pErr = t.client.GetProgress(ctx, sessionID)
	}()
	go func() {
		defer wg.Done()
		events, eErr = t.client.GetEvents(ctx, sessionID)
	}()
	wg.Wait()

	t.mu.Lock()
	defer t.mu.Unlock()
	if epoch != t.epoch {
		return
	}

	t.loading = false
	if pErr != nil {
		t.err = pErr
		return
	}
	if eErr != nil {
		t.err = eErr
		return
	}

	t.progress = progress
	t.log = events
	t.ready = true
	t.err = nil
}

// subscribe opens the single live subscription for the session and consumes
// it until it terminates. A subscription superseded before it was stored is
// closed immediately.
func (t *Tracker) subscribe(ctx context.Context, sessionID string, epoch int) {
	sub, err := t.client.SubscribeToStream(ctx, sessionID)

	t.mu.Lock()
	if epoch != t.epoch {
		t.mu.Unlock()
		if sub != nil {
			sub.Close()
		}
		return
	}
	if err != nil {
		t.err = err
		t.mu.Unlock()
		return
	}
	t.sub = sub
	t.mu.Unlock()

	go t.consume(sub, sessionID, epoch)
}

func (t *Tracker) consume(sub *api.Subscription, sessionID string, epoch int) {
	for event := range sub.Events() {
		t.apply(sessionID, epoch, event)
	}

	if err := sub.Err(); err != nil {
		t.mu.Lock()
		if epoch == t.epoch {
			t.err = err
		}
		t.mu.Unlock()
	}
}

// apply appends a live event to the log and, for PROGRESS_UPDATE events,
// shallow-merges its payload over the snapshot. Events tagged with a stale
// epoch or a foreign session id are dropped.
func (t *Tracker) apply(sessionID string, epoch int, event scoping.ProgressEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if epoch != t.epoch || sessionID != t.sessionID {
		return
	}
	if event.SessionID != "" && event.SessionID != sessionID {
		return
	}

	t.log = append(t.log, event)
	if event.Type == scoping.EventProgressUpdate {
		t.progress = t.progress.MergePayload(event.Data)
	}
}
