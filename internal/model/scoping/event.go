package scoping

import "time"

// EventType tags a progress event record.
type EventType string

const (
	EventStageStarted     EventType = "STAGE_STARTED"
	EventQuestionAnswered EventType = "QUESTION_ANSWERED"
	EventProgressUpdate   EventType = "PROGRESS_UPDATE"
)

// ProgressEvent is an immutable record of something that happened during a
// session. Payload keys depend on the event type. Events are ordered by
// arrival; the stream carries no sequence numbers, so delivery may skip or
// duplicate entries after a dropped connection.
type ProgressEvent struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"session_id"`
	Type        EventType      `json:"event_type"`
	StageNumber int            `json:"stage_number"`
	Timestamp   time.Time      `json:"timestamp"`
	Data        map[string]any `json:"data,omitempty"`
}
