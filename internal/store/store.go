package store

import (
	"context"
	"errors"
	"strings"

	"plc-copilot/internal/types"
)

// Themes accepted by SetTheme.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// DefaultTheme is returned for sessions that never chose one.
const DefaultTheme = ThemeLight

var (
	ErrInvalidTheme   = errors.New("theme must be light or dark")
	ErrInvalidSession = errors.New("invalid session id")
)

// Store persists chat transcripts and the theme preference per session.
// Transcripts are unbounded unless a backend is given a limit, and are
// cleared only on request.
type Store interface {
	Append(ctx context.Context, sessionID string, msg types.Message) error
	History(ctx context.Context, sessionID string) ([]types.Message, error)
	Clear(ctx context.Context, sessionID string) error
	Theme(ctx context.Context, sessionID string) (string, error)
	SetTheme(ctx context.Context, sessionID, theme string) error
	Close() error
}

// NormalizeTheme lower-cases and validates a theme name.
func NormalizeTheme(theme string) (string, error) {
	switch t := strings.ToLower(strings.TrimSpace(theme)); t {
	case ThemeLight, ThemeDark:
		return t, nil
	default:
		return "", ErrInvalidTheme
	}
}

// ValidSessionID reports whether id is safe to use as a key and file name.
func ValidSessionID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func checkSession(id string) error {
	if !ValidSessionID(id) {
		return ErrInvalidSession
	}
	return nil
}
