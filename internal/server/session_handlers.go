package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"plc-copilot/internal/copilot"
	"plc-copilot/internal/store"
	"plc-copilot/internal/types"
)

// handleDownload returns the code panel as program.st, placeholder included.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(w, r)
	code := copilot.PlaceholderCode
	if sess, ok := s.sessions.Peek(sid); ok {
		code = sess.Code()
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", copilot.DownloadName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(code))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(w, r)
	transcript, panels, err := s.snapshot(r.Context(), sid)
	if err != nil {
		s.logger.Error("history lookup failed", zap.String("session", sid), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	theme, err := s.store.Theme(r.Context(), sid)
	if err != nil {
		s.logger.Warn("theme lookup failed", zap.String("session", sid), zap.Error(err))
		theme = store.DefaultTheme
	}
	writeJSON(w, http.StatusOK, types.StateView{
		SessionID:  sid,
		Transcript: transcript,
		Panels:     panels,
		Theme:      theme,
	})
}

// snapshot reads a session without registering it. IDs with no live session
// are answered from the store with default panels.
func (s *Server) snapshot(ctx context.Context, sid string) ([]types.Message, types.Panels, error) {
	if sess, ok := s.sessions.Peek(sid); ok {
		transcript, panels := sess.Snapshot()
		return transcript, panels, nil
	}
	transcript, err := s.store.History(ctx, sid)
	if err != nil {
		return nil, types.Panels{}, err
	}
	if transcript == nil {
		transcript = []types.Message{}
	}
	if s.cfg.MaxTranscript > 0 && len(transcript) > s.cfg.MaxTranscript {
		transcript = transcript[len(transcript)-s.cfg.MaxTranscript:]
	}
	return transcript, copilot.EmptyPanels(), nil
}

// handleClearHistory empties the transcript. Panels are left as they are.
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(w, r)
	if err := s.store.Clear(r.Context(), sid); err != nil {
		s.logger.Error("clear history failed", zap.String("session", sid), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}
	if sess, ok := s.sessions.Peek(sid); ok {
		sess.ClearTranscript()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(w, r)
	theme, err := s.store.Theme(r.Context(), sid)
	if err != nil {
		s.logger.Error("theme lookup failed", zap.String("session", sid), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load theme")
		return
	}
	writeJSON(w, http.StatusOK, types.ThemeRequest{Theme: theme})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req types.ThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sid := s.getOrCreateSessionID(w, r)

	theme, err := store.NormalizeTheme(req.Theme)
	if errors.Is(err, store.ErrInvalidTheme) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.SetTheme(r.Context(), sid, theme); err != nil {
		s.logger.Error("save theme failed", zap.String("session", sid), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to save theme")
		return
	}
	writeJSON(w, http.StatusOK, types.ThemeRequest{Theme: theme})
}
