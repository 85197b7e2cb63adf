package types

// GenerateRequest is the body posted to the orchestrator or n8n webhook.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// VerifyRequest is the body posted to the verification service.
type VerifyRequest struct {
	STCode string `json:"st_code"`
}

// VerifyResponse is the verification service answer.
type VerifyResponse struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

type ChatRequest struct {
	Prompt string `json:"prompt"`
}

type ValidateRequest struct {
	STCode string `json:"st_code,omitempty"`
}

type ThemeRequest struct {
	Theme string `json:"theme"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type Panels struct {
	Code              string `json:"code"`
	Variables         string `json:"variables"`
	Simulation        string `json:"simulation"`
	VerificationNotes string `json:"verificationNotes"`
}

type Notification struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// ActionView tells the console what changed after one user action:
// the messages to append, the current panels and the toasts to show.
type ActionView struct {
	SessionID     string         `json:"sessionId"`
	Kind          string         `json:"kind,omitempty"`
	Messages      []Message      `json:"messages"`
	Panels        Panels         `json:"panels"`
	Notifications []Notification `json:"notifications"`
}

// StateView is the full session state used to restore the console on reload.
type StateView struct {
	SessionID  string    `json:"sessionId"`
	Transcript []Message `json:"transcript"`
	Panels     Panels    `json:"panels"`
	Theme      string    `json:"theme"`
}
