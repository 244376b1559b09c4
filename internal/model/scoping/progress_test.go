package scoping_test

import (
	"testing"

	"github.com/scopewise/scopewise/internal/model/scoping"
)

func TestMergePayloadOverlaysKnownFields(t *testing.T) {
	progress := scoping.Progress{
		SessionID:         "s1",
		Status:            scoping.StatusInProgress,
		CurrentStage:      2,
		QuestionsAnswered: 4,
		CharterStatus:     scoping.CharterPending,
	}

	merged := progress.MergePayload(map[string]any{
		"questions_answered": 5,
		"charter_status":     "generating",
	})

	if merged.QuestionsAnswered != 5 {
		t.Fatalf("expected 5 answered, got %d", merged.QuestionsAnswered)
	}
	if merged.CharterStatus != scoping.CharterGenerating {
		t.Fatalf("unexpected charter status: %s", merged.CharterStatus)
	}
	// Untouched fields survive the merge.
	if merged.SessionID != "s1" || merged.CurrentStage != 2 {
		t.Fatalf("merge disturbed unrelated fields: %+v", merged)
	}
}

func TestMergePayloadIgnoresUnknownKeysAndBadValues(t *testing.T) {
	progress := scoping.Progress{SessionID: "s1", QuestionsAnswered: 3}

	merged := progress.MergePayload(map[string]any{
		"no_such_field":      42,
		"questions_answered": "not a number",
	})

	if merged.SessionID != "s1" {
		t.Fatalf("unexpected session id: %s", merged.SessionID)
	}
	// A payload that cannot decode leaves the snapshot unchanged.
	if merged.QuestionsAnswered != 3 {
		t.Fatalf("expected snapshot preserved, got %d", merged.QuestionsAnswered)
	}
}

func TestMergePayloadEmpty(t *testing.T) {
	progress := scoping.Progress{SessionID: "s1", CurrentStage: 3}
	if merged := progress.MergePayload(nil); merged != progress {
		t.Fatalf("empty merge changed the snapshot: %+v", merged)
	}
}
