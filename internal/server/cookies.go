package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"plc-copilot/internal/store"
)

const (
	// CookieName is the name of the session cookie
	CookieName = "plc_copilot_session"
	// CookieMaxAge keeps the console session for a month
	CookieMaxAge = 30 * 24 * time.Hour
	// SessionHeader carries the session ID for clients without cookies
	SessionHeader = "X-Session-Id"
)

// SetSessionCookie sets an HTTP-only session cookie.
func SetSessionCookie(w http.ResponseWriter, sessionID string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

// GetSessionCookie reads the session ID from the cookie
func GetSessionCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// getSessionID looks at the cookie, then the header, then the query
// parameter. IDs that are not safe store keys are ignored.
func getSessionID(r *http.Request) string {
	candidates := make([]string, 0, 3)
	if c, err := GetSessionCookie(r); err == nil {
		candidates = append(candidates, c)
	}
	candidates = append(candidates, r.Header.Get(SessionHeader), r.URL.Query().Get("sessionId"))
	for _, sid := range candidates {
		if store.ValidSessionID(sid) {
			return sid
		}
	}
	return ""
}

// getOrCreateSessionID returns the caller's session ID, minting a new one and
// setting the cookie when none was sent.
func (s *Server) getOrCreateSessionID(w http.ResponseWriter, r *http.Request) string {
	sid := getSessionID(r)
	if sid == "" {
		sid = uuid.NewString()
		s.logger.Debug("creating new session", zap.String("session", sid), zap.String("path", r.URL.Path))
		SetSessionCookie(w, sid, s.cfg.CookieSecure)
	}
	w.Header().Set(SessionHeader, sid)
	return sid
}
