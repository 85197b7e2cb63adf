package copilot

import "fmt"

// Placeholders shown in a panel whose field was absent.
const (
	PlaceholderCode              = "// No code generated."
	PlaceholderVariables         = "// No variables declared."
	PlaceholderSimulation        = "No simulation trace provided."
	PlaceholderVerificationNotes = "No verification notes provided."
)

// Fixed user-facing texts.
const (
	MsgEmptyResponse      = "Received an empty response from the server."
	MsgCodeReceived       = "Generated PLC logic received. See output panels for details."
	MsgUnexpectedResponse = "Received an unexpected response from the server."
	MsgOrchestratorDown   = "⚠️ Error: Could not reach the AI Orchestrator server."
	MsgValidatorDown      = "⚠️ Error: Could not reach the validation server. Make sure the service is running."

	NoteContacting       = "Contacting AI Orchestrator..."
	NoteOrchestratorDown = "Error: Could not reach the main server."
	NoteUnexpected       = "Unexpected response type from the AI Orchestrator."
	NoteNothingToCheck   = "Nothing to validate."
	NoteValidating       = "Sending code for validation..."
	NoteValidationOK     = "Validation Successful: Syntax OK!"
	NoteValidationFailed = "Validation Failed: Check chat for error details."
	NoteValidatorDown    = "Error: Could not reach the validation server."
)

// Route applies a classified upstream response to the state. Chat answers
// only add a message; code answers add the explanation and replace all four
// panels; anything else adds the fallback message and leaves panels alone.
func Route(s *State, resp Response) {
	switch r := resp.(type) {
	case ChatResponse:
		s.AddAssistant(orDefault(r.Message, MsgEmptyResponse))
	case CodeResponse:
		out := r.Output
		s.AddAssistant(orDefault(out.Explanation, MsgCodeReceived))
		s.Panels.Code = orDefault(out.StructuredText, PlaceholderCode)
		s.Panels.Variables = orDefault(out.RequiredVariables, PlaceholderVariables)
		s.Panels.Simulation = orDefault(out.SimulationTrace, PlaceholderSimulation)
		s.Panels.VerificationNotes = orDefault(out.VerificationNotes, PlaceholderVerificationNotes)
		status := "unknown"
		if r.Verification != nil && r.Verification.Status != "" {
			status = r.Verification.Status
		}
		s.Notify(LevelSuccess, fmt.Sprintf("Code received. Verification status: %s", status))
	default:
		s.AddAssistant(MsgUnexpectedResponse)
		s.Notify(LevelWarning, NoteUnexpected)
	}
}

// Fail records a failed generation attempt. Panels are left as they were.
func Fail(s *State) {
	s.AddAssistant(MsgOrchestratorDown)
	s.Notify(LevelError, NoteOrchestratorDown)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
