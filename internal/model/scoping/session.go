package scoping

import "time"

// SessionStatus tracks where a session is in its lifecycle.
type SessionStatus string

const (
	StatusPending    SessionStatus = "pending"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// Session is one user's questionnaire run. Identifiers are server-assigned.
type Session struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	ProjectName string        `json:"project_name"`
	Description string        `json:"description,omitempty"`
	Status      SessionStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
}

// CreateSessionRequest starts a new scoping session for a user.
type CreateSessionRequest struct {
	UserID      string `json:"user_id"`
	ProjectName string `json:"project_name"`
	Description string `json:"description,omitempty"`
}

// AnswerRequest submits one answer for a stage question. Stage range checks
// belong to the server; the client passes the value through untouched.
type AnswerRequest struct {
	StageNumber  int      `json:"stage_number"`
	QuestionID   string   `json:"question_id"`
	Answer       string   `json:"answer"`
	QualityScore *float64 `json:"quality_score,omitempty"`
}

// AnswerReceipt acknowledges a submitted answer.
type AnswerReceipt struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
}

// Health is the backend liveness probe response.
type Health struct {
	Status string `json:"status"`
}
