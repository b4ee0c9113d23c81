package debugger

import (
	"io"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// TerminalInput reads commands with an interactive single-line prompt.
// Up and down recall earlier commands.
type TerminalInput struct {
	in      io.Reader
	out     io.Writer
	styles  styles
	history []string
}

// NewTerminalInput prompts on out and reads keys from in.
func NewTerminalInput(in io.Reader, out io.Writer) *TerminalInput {
	return &TerminalInput{in: in, out: out, styles: newStyles(out)}
}

func (t *TerminalInput) ReadLine(prompt string) (string, error) {
	ti := textinput.New()
	ti.Prompt = t.styles.prompt.Render(prompt)
	ti.CharLimit = 512
	ti.Focus()

	m := &promptModel{input: ti, history: t.history, pos: len(t.history)}
	p := tea.NewProgram(m, tea.WithInput(t.in), tea.WithOutput(t.out))
	if _, err := p.Run(); err != nil {
		return "", err
	}
	if m.cancelled {
		return "", io.EOF
	}
	if m.value != "" {
		t.history = append(t.history, m.value)
	}
	return m.value, nil
}

type promptModel struct {
	input     textinput.Model
	value     string
	history   []string
	pos       int
	done      bool
	cancelled bool
}

func (m *promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.value = m.input.Value()
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyCtrlD:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyUp:
			if m.pos > 0 {
				m.pos--
				m.input.SetValue(m.history[m.pos])
				m.input.CursorEnd()
			}
			return m, nil
		case tea.KeyDown:
			if m.pos < len(m.history) {
				m.pos++
				value := ""
				if m.pos < len(m.history) {
					value = m.history[m.pos]
				}
				m.input.SetValue(value)
				m.input.CursorEnd()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *promptModel) View() string {
	if m.done || m.cancelled {
		return m.input.Prompt + m.value + "\n"
	}
	return m.input.View()
}
