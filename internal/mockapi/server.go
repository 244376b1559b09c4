package mockapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	middlewarePkg "github.com/scopewise/scopewise/internal/middleware"
	"github.com/scopewise/scopewise/internal/model/scoping"
	"github.com/scopewise/scopewise/pkg/httputil"
)

// NewServer wires the mock backend's HTTP routes around a store. The routes
// mirror the production backend contract exactly, including the asymmetry
// between /progress (404 for unknown sessions) and /events (empty list).
func NewServer(store *Store) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	h := &handler{store: store}

	r.Get("/health", h.handleHealth)

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/sessions", h.handleCreateSession)
		api.Get("/sessions", h.handleListSessions)
		api.Get("/sessions/{sessionID}", h.handleGetSession)
		api.Delete("/sessions/{sessionID}", h.handleDeleteSession)
		api.Get("/sessions/{sessionID}/progress", h.handleGetProgress)
		api.Post("/sessions/{sessionID}/answer", h.handleSubmitAnswer)
		api.Get("/sessions/{sessionID}/events", h.handleGetEvents)
		api.Get("/sessions/{sessionID}/stream", h.handleStream)
	})

	return r
}

type handler struct {
	store *Store
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, scoping.Health{Status: "ok"})
}

func (h *handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req scoping.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.store.CreateSession(req)
	if err != nil {
		httputil.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, session)
}

func (h *handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, h.store.ListSessions(userID))
}

func (h *handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.GetSession(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, session)
}

func (h *handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	// Deletes are idempotent: unknown ids still return 204.
	h.store.DeleteSession(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.store.GetProgress(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, progress)
}

func (h *handler) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req scoping.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := h.store.SubmitAnswer(chi.URLParam(r, "sessionID"), req)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, receipt)
}

func (h *handler) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.store.Events(chi.URLParam(r, "sessionID")))
}

// handleStream serves the live SSE feed. Events appended after the
// subscription opened are delivered as `data:` JSON lines; there is no
// catch-up from the historical log.
func (h *handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	events, cancel := h.store.Subscribe(sessionID)
	defer cancel()

	httputil.SetupSSEHeaders(w)
	flusher.Flush()

	ctx := r.Context()
	delay := h.store.DeliveryDelay()
	log.Printf("[sse] opening stream for session=%s", sessionID)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] closing stream for session=%s", sessionID)
			return
		case event, open := <-events:
			if !open {
				return
			}
			if delay > 0 {
				time.Sleep(delay)
			}
			httputil.SendSSEChunk(w, flusher, event)
		}
	}
}

func respondStoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, ErrSessionNotFound) {
		status = http.StatusNotFound
	}
	httputil.RespondError(w, status, err.Error())
}
