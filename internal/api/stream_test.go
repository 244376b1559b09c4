package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/scopewise/scopewise/internal/api"
	"github.com/scopewise/scopewise/internal/model/scoping"
)

func waitForEvent(t *testing.T, sub *api.Subscription, eventType scoping.EventType) scoping.ProgressEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event, open := <-sub.Events():
			if !open {
				t.Fatalf("stream closed while waiting for %s (err: %v)", eventType, sub.Err())
			}
			if event.Type == eventType {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", eventType)
		}
	}
}

func TestSubscriptionDeliversLiveEvents(t *testing.T) {
	client, store := newClientAndStore(t)
	ctx := context.Background()

	// A small delivery delay keeps the stream realistic without slowing tests.
	store.SetDeliveryDelay(20 * time.Millisecond)

	created, err := client.CreateSession(ctx, scoping.CreateSessionRequest{UserID: "u", ProjectName: "p"})
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	sub, err := client.SubscribeToStream(ctx, created.ID)
	if err != nil {
		t.Fatalf("SubscribeToStream err: %v", err)
	}
	defer sub.Close()

	if _, err := store.SubmitAnswer(created.ID, scoping.AnswerRequest{
		StageNumber: 1,
		QuestionID:  "q1",
		Answer:      "hello",
	}); err != nil {
		t.Fatalf("SubmitAnswer err: %v", err)
	}

	event := waitForEvent(t, sub, scoping.EventQuestionAnswered)
	if event.SessionID != created.ID {
		t.Fatalf("unexpected session id: %s", event.SessionID)
	}
	if event.Data["answer"] != "hello" {
		t.Fatalf("unexpected payload: %v", event.Data["answer"])
	}
}

func TestConcurrentSubscriptionsAreIndependent(t *testing.T) {
	client, store := newClientAndStore(t)
	ctx := context.Background()

	created, err := client.CreateSession(ctx, scoping.CreateSessionRequest{UserID: "u", ProjectName: "p"})
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	first, err := client.SubscribeToStream(ctx, created.ID)
	if err != nil {
		t.Fatalf("first SubscribeToStream err: %v", err)
	}
	defer first.Close()

	second, err := client.SubscribeToStream(ctx, created.ID)
	if err != nil {
		t.Fatalf("second SubscribeToStream err: %v", err)
	}
	defer second.Close()

	if _, err := store.SubmitAnswer(created.ID, scoping.AnswerRequest{
		StageNumber: 1,
		QuestionID:  "q1",
		Answer:      "both",
	}); err != nil {
		t.Fatalf("SubmitAnswer err: %v", err)
	}

	waitForEvent(t, first, scoping.EventQuestionAnswered)
	waitForEvent(t, second, scoping.EventQuestionAnswered)

	// Closing one subscription must not disturb the other.
	first.Close()

	if _, err := store.SubmitAnswer(created.ID, scoping.AnswerRequest{
		StageNumber: 1,
		QuestionID:  "q2",
		Answer:      "still here",
	}); err != nil {
		t.Fatalf("SubmitAnswer err: %v", err)
	}

	event := waitForEvent(t, second, scoping.EventQuestionAnswered)
	if event.Data["answer"] != "still here" {
		t.Fatalf("unexpected payload: %v", event.Data["answer"])
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	client, store := newClientAndStore(t)
	ctx := context.Background()

	created, err := client.CreateSession(ctx, scoping.CreateSessionRequest{UserID: "u", ProjectName: "p"})
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	sub, err := client.SubscribeToStream(ctx, created.ID)
	if err != nil {
		t.Fatalf("SubscribeToStream err: %v", err)
	}

	sub.Close()
	sub.Close()

	if _, err := store.SubmitAnswer(created.ID, scoping.AnswerRequest{
		StageNumber: 1,
		QuestionID:  "q1",
		Answer:      "after close",
	}); err != nil {
		t.Fatalf("SubmitAnswer err: %v", err)
	}

	// The channel must close; anything drained here was already in flight at
	// cancel time, and nothing submitted after close may appear.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event, open := <-sub.Events():
			if !open {
				if err := sub.Err(); err != nil {
					t.Fatalf("expected nil Err after local close, got %v", err)
				}
				return
			}
			if event.Data["answer"] == "after close" {
				t.Fatal("received event submitted after close")
			}
		case <-deadline:
			t.Fatal("events channel never closed")
		}
	}
}

func TestSubscribeWithCancelledContext(t *testing.T) {
	client, _ := newClientAndStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.SubscribeToStream(ctx, "any"); err == nil {
		t.Fatal("expected error for cancelled context")
	} else if _, ok := api.AsAPIError(err); !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
}
