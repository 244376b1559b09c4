package mockapi

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scopewise/scopewise/internal/model/scoping"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUserRequired    = errors.New("user_id is required")
	ErrProjectRequired = errors.New("project_name is required")
)

// questionsPerStage controls how many answers advance a stage.
const questionsPerStage = 3

// Store keeps sessions, progress snapshots, and append-only event logs in
// memory, and fans freshly-appended events out to stream subscribers. It is
// the deterministic stand-in for the real backend.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]scoping.Session
	progress  map[string]scoping.Progress
	events    map[string][]scoping.ProgressEvent
	subs      map[string]map[int]chan scoping.ProgressEvent
	nextSubID int

	// order records creation sequence so listings stay deterministic even
	// when two sessions share a timestamp.
	order   map[string]int
	nextSeq int

	// delay is applied before each fanout delivery to simulate a network.
	delay time.Duration

	now func() time.Time
}

// NewStore bootstraps an empty in-memory backend.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]scoping.Session),
		progress: make(map[string]scoping.Progress),
		events:   make(map[string][]scoping.ProgressEvent),
		subs:     make(map[string]map[int]chan scoping.ProgressEvent),
		order:    make(map[string]int),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetDeliveryDelay makes stream fanout wait before each delivery.
func (s *Store) SetDeliveryDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// CreateSession provisions a pending session with an initial progress
// snapshot and a STAGE_STARTED event for stage 1.
func (s *Store) CreateSession(req scoping.CreateSessionRequest) (scoping.Session, error) {
	if req.UserID == "" {
		return scoping.Session{}, ErrUserRequired
	}
	if req.ProjectName == "" {
		return scoping.Session{}, ErrProjectRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session := scoping.Session{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		ProjectName: req.ProjectName,
		Description: req.Description,
		Status:      scoping.StatusPending,
		CreatedAt:   s.now(),
	}

	s.sessions[session.ID] = session
	s.order[session.ID] = s.nextSeq
	s.nextSeq++
	s.progress[session.ID] = scoping.Progress{
		SessionID:     session.ID,
		Status:        scoping.StatusPending,
		CurrentStage:  1,
		TotalStages:   scoping.TotalStages,
		CharterStatus: scoping.CharterPending,
	}
	s.events[session.ID] = make([]scoping.ProgressEvent, 0, 16)

	s.appendEventLocked(session.ID, scoping.EventStageStarted, 1, map[string]any{
		"stage_number": 1,
	})

	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Store) GetSession(id string) (scoping.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return scoping.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// ListSessions returns the user's sessions in creation order.
func (s *Store) ListSessions(userID string) []scoping.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]scoping.Session, 0)
	for _, session := range s.sessions {
		if session.UserID == userID {
			matched = append(matched, session)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return s.order[matched[i].ID] < s.order[matched[j].ID]
	})
	return matched
}

// DeleteSession removes a session and its derived data. Unknown ids are a
// no-op; repeated deletes must never fail.
func (s *Store) DeleteSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	delete(s.progress, id)
	delete(s.events, id)
	delete(s.order, id)
}

// GetProgress returns the derived snapshot; unknown sessions are an error,
// unlike Events.
func (s *Store) GetProgress(id string) (scoping.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	progress, ok := s.progress[id]
	if !ok {
		return scoping.Progress{}, ErrSessionNotFound
	}
	return progress, nil
}

// Events returns a copy of the session's event log. Unknown sessions yield
// an empty log, never an error.
func (s *Store) Events(id string) []scoping.ProgressEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.events[id]
	copied := make([]scoping.ProgressEvent, len(log))
	copy(copied, log)
	return copied
}

// SubmitAnswer records one answer: it appends a QUESTION_ANSWERED event,
// advances the progress counters, and emits PROGRESS_UPDATE (and, on a stage
// boundary, STAGE_STARTED) events. Stage numbers outside the valid range are
// accepted and recorded as-is.
func (s *Store) SubmitAnswer(id string, req scoping.AnswerRequest) (scoping.AnswerReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	progress, ok := s.progress[id]
	if !ok {
		return scoping.AnswerReceipt{}, ErrSessionNotFound
	}
	session := s.sessions[id]

	score := scoreAnswer(req)

	s.appendEventLocked(id, scoping.EventQuestionAnswered, req.StageNumber, map[string]any{
		"question_id":   req.QuestionID,
		"answer":        req.Answer,
		"quality_score": score,
	})

	progress.QuestionsAnswered++
	if session.Status == scoping.StatusPending {
		session.Status = scoping.StatusInProgress
		started := s.now()
		session.StartedAt = &started
		progress.StartedAt = &started
	}
	progress.Status = session.Status

	update := map[string]any{
		"questions_answered": progress.QuestionsAnswered,
	}

	if progress.QuestionsAnswered%questionsPerStage == 0 {
		if progress.CurrentStage < scoping.TotalStages {
			progress.CurrentStage++
			s.appendEventLocked(id, scoping.EventStageStarted, progress.CurrentStage, map[string]any{
				"stage_number": progress.CurrentStage,
			})
			update["current_stage"] = progress.CurrentStage
		} else {
			session.Status = scoping.StatusCompleted
			progress.Status = scoping.StatusCompleted
			progress.CharterStatus = scoping.CharterCompleted
			update["status"] = string(scoping.StatusCompleted)
			update["charter_status"] = string(scoping.CharterCompleted)
		}
	}

	s.sessions[id] = session
	s.progress[id] = progress

	s.appendEventLocked(id, scoping.EventProgressUpdate, progress.CurrentStage, update)

	return scoping.AnswerReceipt{Status: "accepted", SessionID: id}, nil
}

// Subscribe registers a stream consumer for a session. The returned channel
// receives every event appended after the call; cancel removes the consumer
// and closes the channel.
func (s *Store) Subscribe(id string) (<-chan scoping.ProgressEvent, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan scoping.ProgressEvent, 32)
	subID := s.nextSubID
	s.nextSubID++

	if s.subs[id] == nil {
		s.subs[id] = make(map[int]chan scoping.ProgressEvent)
	}
	s.subs[id][subID] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id][subID]; ok {
			delete(s.subs[id], subID)
			close(sub)
		}
	}
	return ch, cancel
}

// appendEventLocked records an event and fans it out. Callers hold s.mu.
func (s *Store) appendEventLocked(id string, eventType scoping.EventType, stage int, data map[string]any) {
	event := scoping.ProgressEvent{
		ID:          uuid.NewString(),
		SessionID:   id,
		Type:        eventType,
		StageNumber: stage,
		Timestamp:   s.now(),
		Data:        data,
	}
	s.events[id] = append(s.events[id], event)

	for _, ch := range s.subs[id] {
		select {
		case ch <- event:
		default:
			// A stalled subscriber loses events rather than blocking the
			// store, matching the lossy stream contract.
		}
	}
}

// DeliveryDelay reports the configured per-event stream delay.
func (s *Store) DeliveryDelay() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.delay
}

// scoreAnswer returns the caller-provided quality score, or a deterministic
// length-based heuristic when none was given. Real scoring is backend-owned.
func scoreAnswer(req scoping.AnswerRequest) float64 {
	if req.QualityScore != nil {
		return *req.QualityScore
	}
	length := len(req.Answer)
	if length > 200 {
		length = 200
	}
	return float64(length) / 200
}
