package setup

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	promptTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	promptLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	promptHelpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	promptErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

var ErrCancelled = errors.New("setup cancelled")

const (
	fieldURL = iota
	fieldAnonKey
)

// Prompt asks for the backend URL and anonymous key.
type Prompt struct {
	inputs    []textinput.Model
	focus     int
	submitted bool
	cancelled bool
	errorMsg  string
}

// NewPrompt pre-fills the fields with the current values.
func NewPrompt(url, anonKey string) Prompt {
	urlInput := textinput.New()
	urlInput.Placeholder = "https://portal.example.com"
	urlInput.SetValue(url)
	urlInput.CharLimit = 512
	urlInput.Focus()

	keyInput := textinput.New()
	keyInput.Placeholder = "anonymous key"
	keyInput.SetValue(anonKey)
	keyInput.EchoMode = textinput.EchoPassword
	keyInput.EchoCharacter = '•'
	keyInput.CharLimit = 2048

	return Prompt{inputs: []textinput.Model{urlInput, keyInput}}
}

func (m Prompt) Init() tea.Cmd {
	return textinput.Blink
}

func (m Prompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyTab, tea.KeyDown:
			return m.move(1), nil
		case tea.KeyShiftTab, tea.KeyUp:
			return m.move(-1), nil
		case tea.KeyEnter:
			if m.focus < len(m.inputs)-1 {
				return m.move(1), nil
			}
			url, key := m.values()
			if url == "" || key == "" {
				m.errorMsg = MissingValuesMessage
				return m, nil
			}
			m.submitted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Prompt) move(delta int) Prompt {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focus].Focus()
	return m
}

func (m Prompt) values() (string, string) {
	return strings.TrimSpace(m.inputs[fieldURL].Value()), strings.TrimSpace(m.inputs[fieldAnonKey].Value())
}

func (m Prompt) View() string {
	if m.submitted || m.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(promptTitleStyle.Render("=== Review Portal Backend Selection ==="))
	b.WriteString("\n\n")
	b.WriteString(promptLabelStyle.Render("Service URL"))
	b.WriteString("\n")
	b.WriteString(m.inputs[fieldURL].View())
	b.WriteString("\n\n")
	b.WriteString(promptLabelStyle.Render("Anon Key"))
	b.WriteString("\n")
	b.WriteString(m.inputs[fieldAnonKey].View())
	b.WriteString("\n\n")
	if m.errorMsg != "" {
		b.WriteString(promptErrorStyle.Render(m.errorMsg))
		b.WriteString("\n")
	}
	b.WriteString(promptHelpStyle.Render("tab: next field • enter: save • esc: cancel"))
	b.WriteString("\n")
	return b.String()
}

// Result returns the entered values and whether the user confirmed them.
func (m Prompt) Result() (url, anonKey string, ok bool) {
	url, anonKey = m.values()
	return url, anonKey, m.submitted
}

// Ask runs the prompt on the given terminal streams.
func Ask(in io.Reader, out io.Writer, url, anonKey string) (string, string, error) {
	final, err := tea.NewProgram(NewPrompt(url, anonKey), tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return "", "", fmt.Errorf("prompt failed: %w", err)
	}
	url, anonKey, ok := final.(Prompt).Result()
	if !ok {
		return "", "", ErrCancelled
	}
	return url, anonKey, nil
}
