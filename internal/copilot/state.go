package copilot

import "plc-copilot/internal/types"

// Message types in the transcript.
const (
	MessageUser      = "user"
	MessageAssistant = "assistant"
)

// Notification levels.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// State is the application state one console works against: the chat
// transcript, the four output panels and the pending notifications.
// It is not safe for concurrent use; Session serializes access.
type State struct {
	Transcript    []types.Message
	Panels        types.Panels
	Notifications []types.Notification
}

func NewState() *State {
	return &State{Panels: EmptyPanels()}
}

// EmptyPanels returns the panels as shown before any code was received.
func EmptyPanels() types.Panels {
	return types.Panels{
		Code:              PlaceholderCode,
		Variables:         PlaceholderVariables,
		Simulation:        PlaceholderSimulation,
		VerificationNotes: PlaceholderVerificationNotes,
	}
}

func (s *State) AddUser(content string) {
	s.Transcript = append(s.Transcript, types.Message{Type: MessageUser, Content: content})
}

func (s *State) AddAssistant(content string) {
	s.Transcript = append(s.Transcript, types.Message{Type: MessageAssistant, Content: content})
}

func (s *State) Notify(level, text string) {
	s.Notifications = append(s.Notifications, types.Notification{Level: level, Text: text})
}

// DrainNotifications returns and clears the pending notifications.
func (s *State) DrainNotifications() []types.Notification {
	out := s.Notifications
	s.Notifications = nil
	if out == nil {
		out = []types.Notification{}
	}
	return out
}

func (s *State) ClearTranscript() {
	s.Transcript = nil
}

// TrimTranscript drops the oldest entries beyond limit. limit <= 0 keeps all.
func (s *State) TrimTranscript(limit int) {
	if limit <= 0 || len(s.Transcript) <= limit {
		return
	}
	s.Transcript = append([]types.Message(nil), s.Transcript[len(s.Transcript)-limit:]...)
}

// MessagesSince returns a copy of the transcript entries appended after mark.
func (s *State) MessagesSince(mark int) []types.Message {
	if mark < 0 || mark > len(s.Transcript) {
		mark = len(s.Transcript)
	}
	out := make([]types.Message, len(s.Transcript)-mark)
	copy(out, s.Transcript[mark:])
	return out
}
