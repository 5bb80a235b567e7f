// server/router.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"blackjack-table/server/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// historyReader is the read side of the audit log served over HTTP.
type historyReader interface {
	Ping(ctx context.Context) error
	ListSessions(ctx context.Context, limit int) ([]store.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (store.Session, error)
	SessionRounds(ctx context.Context, id uuid.UUID) ([]store.Round, error)
	SessionDecisions(ctx context.Context, id uuid.UUID) ([]store.Decision, error)
	SessionJudgeAccuracy(ctx context.Context, id uuid.UUID) (store.JudgeAccuracy, error)
}

func Router(db historyReader) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/api/health", func(w http.ResponseWriter, req *http.Request) {
		ok := db.Ping(req.Context()) == nil
		writeJSON(w, map[string]any{"ok": true, "db": ok})
	})

	r.Get("/api/sessions", func(w http.ResponseWriter, req *http.Request) {
		limit := 50
		if s := req.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				httpError(w, http.StatusBadRequest, "bad limit")
				return
			}
			limit = n
		}
		list, err := db.ListSessions(req.Context(), limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, map[string]any{"sessions": list})
	})

	r.Route("/api/sessions/{id}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			id, ok := sessionID(w, req)
			if !ok {
				return
			}
			s, err := db.GetSession(req.Context(), id)
			if !storeOK(w, err) {
				return
			}
			writeJSON(w, s)
		})

		r.Get("/rounds", func(w http.ResponseWriter, req *http.Request) {
			id, ok := sessionID(w, req)
			if !ok {
				return
			}
			if _, err := db.GetSession(req.Context(), id); !storeOK(w, err) {
				return
			}
			rounds, err := db.SessionRounds(req.Context(), id)
			if !storeOK(w, err) {
				return
			}
			writeJSON(w, map[string]any{"session_id": id, "rounds": rounds})
		})

		r.Get("/decisions", func(w http.ResponseWriter, req *http.Request) {
			id, ok := sessionID(w, req)
			if !ok {
				return
			}
			if _, err := db.GetSession(req.Context(), id); !storeOK(w, err) {
				return
			}
			ds, err := db.SessionDecisions(req.Context(), id)
			if !storeOK(w, err) {
				return
			}
			writeJSON(w, map[string]any{"session_id": id, "decisions": ds})
		})

		r.Get("/judge-accuracy", func(w http.ResponseWriter, req *http.Request) {
			id, ok := sessionID(w, req)
			if !ok {
				return
			}
			if _, err := db.GetSession(req.Context(), id); !storeOK(w, err) {
				return
			}
			ja, err := db.SessionJudgeAccuracy(req.Context(), id)
			if !storeOK(w, err) {
				return
			}
			writeJSON(w, map[string]any{
				"session_id": id,
				"good":       ja.Good,
				"total":      ja.Total,
				"ratio":      ja.Ratio(),
			})
		})
	})

	return r
}

func sessionID(w http.ResponseWriter, req *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(req, "id"))
	if err != nil {
		httpError(w, http.StatusBadRequest, "bad session id")
		return uuid.Nil, false
	}
	return id, true
}

func storeOK(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, store.ErrNotFound):
		httpError(w, http.StatusNotFound, "session not found")
	default:
		httpError(w, http.StatusInternalServerError, err.Error())
	}
	return false
}

func httpError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
