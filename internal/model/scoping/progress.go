package scoping

import (
	"encoding/json"
	"time"
)

// TotalStages is the fixed number of questionnaire stages.
const TotalStages = 5

// CharterStatus reports the backend's charter generation state.
type CharterStatus string

const (
	CharterPending    CharterStatus = "pending"
	CharterGenerating CharterStatus = "generating"
	CharterCompleted  CharterStatus = "completed"
	CharterError      CharterStatus = "error"
)

// Progress is the server-maintained snapshot for a session. The client never
// derives it locally; it only replaces or merges what the server reports.
type Progress struct {
	SessionID         string        `json:"session_id"`
	Status            SessionStatus `json:"status"`
	CurrentStage      int           `json:"current_stage"`
	TotalStages       int           `json:"total_stages,omitempty"`
	QuestionsAnswered int           `json:"questions_answered"`
	CharterStatus     CharterStatus `json:"charter_status"`
	TotalQuestions    *int          `json:"total_questions,omitempty"`
	StartedAt         *time.Time    `json:"started_at,omitempty"`
}

// MergePayload overlays the keys of a PROGRESS_UPDATE payload onto the
// snapshot and returns the result. Unknown keys are ignored; the merge is
// shallow. On a malformed payload the snapshot is returned unchanged.
func (p Progress) MergePayload(data map[string]any) Progress {
	if len(data) == 0 {
		return p
	}

	base, err := json.Marshal(p)
	if err != nil {
		return p
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return p
	}

	for key, value := range data {
		raw, err := json.Marshal(value)
		if err != nil {
			continue
		}
		fields[key] = raw
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return p
	}

	var out Progress
	if err := json.Unmarshal(merged, &out); err != nil {
		return p
	}
	return out
}
