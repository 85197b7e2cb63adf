package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"plc-copilot/internal/copilot"
	"plc-copilot/internal/types"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	levelStyles = map[string]lipgloss.Style{
		copilot.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		copilot.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		copilot.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		copilot.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
)

// Terminal prints copilot outcomes for the command line client.
type Terminal struct {
	w io.Writer
	// Panels lists which output panels are printed, by name.
	Panels []string
}

// Panel names accepted in Terminal.Panels.
const (
	PanelCode       = "code"
	PanelVariables  = "variables"
	PanelSimulation = "simulation"
	PanelNotes      = "notes"
)

var AllPanels = []string{PanelCode, PanelVariables, PanelSimulation, PanelNotes}

func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w, Panels: AllPanels}
}

// Outcome prints the notifications, the new messages and, for code answers,
// the selected panels.
func (t *Terminal) Outcome(out copilot.Outcome) {
	for _, n := range out.Notifications {
		t.Notification(n)
	}
	for _, m := range out.Messages {
		t.Message(m)
	}
	if out.Kind == copilot.KindCode {
		t.PanelSet(out.Panels)
	}
}

func (t *Terminal) Message(m types.Message) {
	if m.Type == copilot.MessageUser {
		fmt.Fprintln(t.w, userStyle.Render("you › ")+m.Content)
		return
	}
	fmt.Fprintln(t.w, titleStyle.Render("copilot › ")+m.Content)
}

func (t *Terminal) Notification(n types.Notification) {
	style, ok := levelStyles[n.Level]
	if !ok {
		style = faintStyle
	}
	fmt.Fprintln(t.w, style.Render(fmt.Sprintf("[%s] %s", n.Level, n.Text)))
}

// PanelSet prints the selected panels in a fixed order.
func (t *Terminal) PanelSet(p types.Panels) {
	for _, name := range t.Panels {
		title, content, ok := panel(p, name)
		if !ok {
			continue
		}
		body := titleStyle.Render(title) + "\n" + strings.TrimRight(content, "\n")
		fmt.Fprintln(t.w, panelStyle.Render(body))
	}
}

func panel(p types.Panels, name string) (string, string, bool) {
	switch name {
	case PanelCode:
		return "Structured Text", p.Code, true
	case PanelVariables:
		return "Variables", p.Variables, true
	case PanelSimulation:
		return "Simulation trace", p.Simulation, true
	case PanelNotes:
		return "Verification notes", p.VerificationNotes, true
	}
	return "", "", false
}
