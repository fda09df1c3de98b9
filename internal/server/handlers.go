package server

import (
	"net/http"
	"time"
)

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	feed := s.feed
	builtAt := s.builtAt
	s.mu.RUnlock()

	if feed == "" {
		http.Error(w, "no schedule built yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Last-Modified", builtAt.UTC().Format(http.TimeFormat))
	_, _ = w.Write([]byte(feed))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	lastErr := s.lastErr
	builtAt := s.builtAt
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")

	if lastErr != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"degraded"}`))
		return
	}

	body := `{"status":"ok"`
	if !builtAt.IsZero() {
		body += `,"built_at":"` + builtAt.UTC().Format(time.RFC3339) + `"`
	}
	body += "}"
	_, _ = w.Write([]byte(body))
}
