package state_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/scopewise/scopewise/internal/api"
	"github.com/scopewise/scopewise/internal/config"
	"github.com/scopewise/scopewise/internal/mockapi"
	"github.com/scopewise/scopewise/internal/state"
)

func newClientAndStore(t *testing.T) (*api.Client, *mockapi.Store) {
	t.Helper()
	store := mockapi.NewStore()
	server := httptest.NewServer(mockapi.NewServer(store))
	t.Cleanup(server.Close)
	return api.NewClient(config.ClientConfig{BaseURL: server.URL}), store
}

func TestCreateNewSessionBecomesCurrent(t *testing.T) {
	client, _ := newClientAndStore(t)
	sessions := state.NewSessionState(client)
	ctx := context.Background()

	sessions.CreateNewSession(ctx, "user-1", "Project X", "")

	if err := sessions.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessions.SessionID() == "" {
		t.Fatal("expected current session to be set")
	}
	if sessions.Status() == "" {
		t.Fatal("expected derived status")
	}
	if sessions.Current().ProjectName != "Project X" {
		t.Fatalf("unexpected current session: %+v", sessions.Current())
	}
}

func TestCreateFailureLeavesCurrentUntouched(t *testing.T) {
	client, _ := newClientAndStore(t)
	sessions := state.NewSessionState(client)
	ctx := context.Background()

	sessions.CreateNewSession(ctx, "user-1", "keeper", "")
	keeper := sessions.SessionID()

	sessions.CreateNewSession(ctx, "user-1", "", "")

	if sessions.Err() == nil {
		t.Fatal("expected stored error")
	}
	if sessions.SessionID() != keeper {
		t.Fatal("failed create must not change the current session")
	}
}

func TestGetSessionDetails404KeepsPriorCurrent(t *testing.T) {
	client, _ := newClientAndStore(t)
	sessions := state.NewSessionState(client)
	ctx := context.Background()

	sessions.CreateNewSession(ctx, "user-1", "keeper", "")
	keeper := sessions.SessionID()

	sessions.GetSessionDetails(ctx, "missing")

	err := sessions.Err()
	if err == nil {
		t.Fatal("expected stored error")
	}
	if apiErr, ok := api.AsAPIError(err); !ok || !apiErr.IsNotFound() {
		t.Fatalf("expected 404 APIError, got %v", err)
	}
	if sessions.SessionID() != keeper {
		t.Fatal("404 must not clear the prior current session")
	}
}

func TestListUserSessionsDoesNotTouchCurrent(t *testing.T) {
	client, _ := newClientAndStore(t)
	sessions := state.NewSessionState(client)
	ctx := context.Background()

	sessions.CreateNewSession(ctx, "user-1", "current", "")
	current := sessions.SessionID()
	sessions.CreateNewSession(ctx, "user-1", "other", "")
	other := sessions.SessionID()
	if other == current {
		t.Fatal("expected distinct sessions")
	}

	sessions.ListUserSessions(ctx, "user-1")

	if err := sessions.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions.Sessions()) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions.Sessions()))
	}
	if sessions.SessionID() != other {
		t.Fatal("listing must not change the current session")
	}
}

func TestDeleteCurrentSessionClearsOnlyMatchingID(t *testing.T) {
	client, _ := newClientAndStore(t)
	sessions := state.NewSessionState(client)
	ctx := context.Background()

	sessions.CreateNewSession(ctx, "user-1", "first", "")
	first := sessions.SessionID()
	sessions.CreateNewSession(ctx, "user-1", "second", "")
	second := sessions.SessionID()

	sessions.DeleteCurrentSession(ctx, first)
	if err := sessions.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessions.SessionID() != second {
		t.Fatal("deleting a non-current id must keep the current session")
	}

	sessions.DeleteCurrentSession(ctx, second)
	if sessions.SessionID() != "" {
		t.Fatal("deleting the current id must clear the current session")
	}

	// Repeat deletes never error.
	sessions.DeleteCurrentSession(ctx, second)
	if err := sessions.Err(); err != nil {
		t.Fatalf("repeated delete stored an error: %v", err)
	}
}

func TestClearError(t *testing.T) {
	client, _ := newClientAndStore(t)
	sessions := state.NewSessionState(client)
	ctx := context.Background()

	sessions.GetSessionDetails(ctx, "missing")
	if sessions.Err() == nil {
		t.Fatal("expected stored error")
	}

	sessions.ClearError()
	if sessions.Err() != nil {
		t.Fatal("expected error to be cleared")
	}
	sessions.ClearError()
	if sessions.Err() != nil {
		t.Fatal("ClearError must be idempotent")
	}
}
