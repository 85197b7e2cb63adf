package copilot

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"plc-copilot/internal/types"
)

// DownloadName is the file name offered for the code panel.
const DownloadName = "program.st"

var ErrEmptyPrompt = errors.New("prompt is empty")

// Generator sends one prompt upstream and returns the raw response body.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// Verifier checks Structured Text with the external verification service.
type Verifier interface {
	Verify(ctx context.Context, code string) (types.VerifyResponse, error)
}

// History persists transcript entries for a session.
type History interface {
	Append(ctx context.Context, sessionID string, msg types.Message) error
}

// Outcome is what one user action changed.
type Outcome struct {
	Kind          string
	Messages      []types.Message
	Panels        types.Panels
	Notifications []types.Notification
}

// Session owns the State of one console and runs its actions one at a time.
type Session struct {
	ID string

	mu       sync.Mutex
	state    *State
	gen      Generator
	verifier Verifier
	history  History
	logger   *zap.Logger
	// limit caps the transcript like the store does; 0 keeps everything.
	limit int
}

func NewSession(id string, gen Generator, verifier Verifier, history History, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		ID:       id,
		state:    NewState(),
		gen:      gen,
		verifier: verifier,
		history:  history,
		logger:   logger.With(zap.String("session", id)),
	}
}

// Restore replaces the transcript with previously persisted messages.
func (s *Session) Restore(msgs []types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Transcript = append([]types.Message(nil), msgs...)
	s.state.TrimTranscript(s.limit)
}

// Send forwards a prompt upstream once and routes the answer. Upstream
// failures never surface as errors; they become the fixed error message.
func (s *Session) Send(ctx context.Context, prompt string) (Outcome, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Outcome{}, ErrEmptyPrompt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mark := len(s.state.Transcript)
	s.state.AddUser(prompt)
	s.state.Notify(LevelInfo, NoteContacting)

	kind := KindError
	body, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("generation request failed", zap.Error(err))
		Fail(s.state)
	} else if resp, perr := ParseResponse(body); perr != nil {
		s.logger.Error("generation response rejected", zap.Error(perr), zap.Int("bytes", len(body)))
		Fail(s.state)
	} else {
		kind = resp.Kind()
		if u, ok := resp.(UnknownResponse); ok {
			s.logger.Warn("unexpected response type", zap.String("response_type", u.Type))
		}
		Route(s.state, resp)
	}
	return s.finish(ctx, kind, mark), nil
}

// Validate sends the code panel (or override, when non-empty) to the
// verifier. Placeholder or empty code is not sent.
func (s *Session) Validate(ctx context.Context, override string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	mark := len(s.state.Transcript)
	code := s.state.Panels.Code
	if strings.TrimSpace(override) != "" {
		code = override
	}
	if strings.TrimSpace(code) == "" || strings.HasPrefix(code, "//") {
		s.state.Notify(LevelWarning, NoteNothingToCheck)
		return s.finish(ctx, "", mark)
	}

	s.state.Notify(LevelInfo, NoteValidating)
	res, err := s.verifier.Verify(ctx, code)
	switch {
	case err != nil:
		s.logger.Error("validation request failed", zap.Error(err))
		s.state.AddAssistant(MsgValidatorDown)
		s.state.Notify(LevelError, NoteValidatorDown)
	case res.Status == "success":
		s.state.Notify(LevelSuccess, NoteValidationOK)
	default:
		s.state.AddAssistant("⚠️ Validation Failed:\n" + res.Details)
		s.state.Notify(LevelError, NoteValidationFailed)
	}
	return s.finish(ctx, "", mark)
}

// Code returns the current content of the code panel.
func (s *Session) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Panels.Code
}

// Snapshot returns copies of the transcript and panels.
func (s *Session) Snapshot() ([]types.Message, types.Panels) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.MessagesSince(0), s.state.Panels
}

func (s *Session) ClearTranscript() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ClearTranscript()
}

// finish persists the messages appended since mark, trims the transcript and
// builds the outcome. Persisting outlives a cancelled request so the store
// keeps what the session shows. Must be called with s.mu held.
func (s *Session) finish(ctx context.Context, kind string, mark int) Outcome {
	msgs := s.state.MessagesSince(mark)
	if s.history != nil {
		persistCtx := context.WithoutCancel(ctx)
		for _, m := range msgs {
			if err := s.history.Append(persistCtx, s.ID, m); err != nil {
				s.logger.Warn("transcript persist failed", zap.Error(err))
				break
			}
		}
	}
	s.state.TrimTranscript(s.limit)
	return Outcome{
		Kind:          kind,
		Messages:      msgs,
		Panels:        s.state.Panels,
		Notifications: s.state.DrainNotifications(),
	}
}
