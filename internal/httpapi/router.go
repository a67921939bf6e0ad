package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dawsonblock/rfsn-kernel/internal/session"
)

// Config configures the router: a Manager to create/look up sessions,
// an EventHub to fan out turn events, and per-route rate limits.
type Config struct {
	Manager   *Manager
	Events    *EventHub
	RateLimit map[string]RateLimit
}

// NewRouter builds the chi router exposing the session API:
//
//	POST   /v1/sessions                -> create a session
//	GET    /v1/sessions/{id}            -> session state
//	POST   /v1/sessions/{id}/step       -> run one turn
//	GET    /v1/sessions/{id}/tools      -> list capabilities + grants
//	POST   /v1/sessions/{id}/tools/{tool}/grant
//	POST   /v1/sessions/{id}/tools/{tool}/revoke
//	GET    /v1/sessions/{id}/events     -> WebSocket turn-event stream
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()

	limiter := NewRateLimiter(cfg.RateLimit)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1/sessions", func(sr chi.Router) {
		sr.Use(limiter.Middleware("sessions"))
		sr.Post("/", handleCreateSession(cfg))

		sr.Route("/{id}", func(idr chi.Router) {
			idr.Use(limiter.Middleware("sessions.detail"))
			idr.Get("/", handleSessionState(cfg))
			idr.Post("/step", handleStep(cfg))
			idr.Get("/tools", handleListTools(cfg))
			idr.Post("/tools/{tool}/grant", handleGrantTool(cfg))
			idr.Post("/tools/{tool}/revoke", handleRevokeTool(cfg))
			idr.Get("/events", handleEvents(cfg))
		})
	})

	return r
}

func handleCreateSession(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s, err := cfg.Manager.Create()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if cfg.Events != nil {
			s.SetEmit(cfg.Events.EmitterFor(s.SessionID))
		}
		writeJSON(w, http.StatusCreated, map[string]any{"session_id": s.SessionID})
	}
}

func lookupSession(cfg Config, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	s, ok := cfg.Manager.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": errNotFound.Error()})
		return nil, false
	}
	return s, true
}

func handleSessionState(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, s.State())
	}
}

type stepRequest struct {
	Text string `json:"text"`
}

func handleStep(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		var req stepRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		result, err := s.Step(req.Text)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleListTools(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, s.ListTools())
	}
}

func handleGrantTool(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		s.GrantTool(chi.URLParam(r, "tool"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleRevokeTool(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		s.RevokeTool(chi.URLParam(r, "tool"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleEvents(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		if cfg.Events == nil {
			writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "event stream not configured"})
			return
		}
		cfg.Events.ServeEvents(s.SessionID)(w, r)
	}
}
