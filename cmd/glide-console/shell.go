package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/glide-ffi/value"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	lineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// maxShown bounds how many past commands the shell keeps on screen.
const maxShown = 20

type executor interface {
	exec(words []string) (value.Value, error)
}

type entry struct {
	line   string
	out    string
	failed bool
}

type shellModel struct {
	sess    executor
	target  string
	input   textinput.Model
	history []entry
	recall  []string
	cursor  int
	busy    bool
}

type execResultMsg struct {
	entry entry
}

func newShellModel(sess executor, target string) *shellModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "GET key"
	ti.Width = 60
	ti.Focus()
	return &shellModel{sess: sess, target: target, input: ti}
}

func (m *shellModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			if line == "" || m.busy {
				return m, nil
			}
			if line == "quit" || line == "exit" {
				return m, tea.Quit
			}
			m.input.Reset()
			m.recall = append(m.recall, line)
			m.cursor = len(m.recall)
			m.busy = true
			return m, m.run(line)

		case tea.KeyUp:
			if m.cursor > 0 {
				m.cursor--
				m.input.SetValue(m.recall[m.cursor])
				m.input.CursorEnd()
			}
			return m, nil

		case tea.KeyDown:
			if m.cursor < len(m.recall)-1 {
				m.cursor++
				m.input.SetValue(m.recall[m.cursor])
				m.input.CursorEnd()
			} else {
				m.cursor = len(m.recall)
				m.input.Reset()
			}
			return m, nil
		}

	case execResultMsg:
		m.busy = false
		m.history = append(m.history, msg.entry)
		if len(m.history) > maxShown {
			m.history = m.history[len(m.history)-maxShown:]
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *shellModel) run(line string) tea.Cmd {
	return func() tea.Msg {
		return execResultMsg{entry: execute(m.sess, line)}
	}
}

func execute(sess executor, line string) entry {
	words, err := splitLine(line)
	if err != nil {
		return entry{line: line, out: err.Error(), failed: true}
	}
	v, err := sess.exec(words)
	if err != nil {
		return entry{line: line, out: err.Error(), failed: true}
	}
	return entry{line: line, out: value.Format(v)}
}

func (m *shellModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("glide console"))
	b.WriteString(" ")
	b.WriteString(m.target)
	b.WriteString("\n\n")

	for _, e := range m.history {
		b.WriteString(lineStyle.Render("> " + e.line))
		b.WriteString("\n")
		if e.failed {
			b.WriteString(errorStyle.Render("(error) " + e.out))
		} else {
			b.WriteString(resultStyle.Render(e.out))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	if m.busy {
		b.WriteString(helpStyle.Render("waiting for reply..."))
	} else {
		b.WriteString(helpStyle.Render("enter send • ↑/↓ history • esc quit"))
	}
	return b.String()
}

// runLines is the shell for piped input: one command per line, replies
// written plainly.
func runLines(sess executor, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e := execute(sess, line)
		if e.failed {
			fmt.Fprintf(out, "(error) %s\n", e.out)
			continue
		}
		fmt.Fprintln(out, e.out)
	}
	return sc.Err()
}

func runShell(sess executor, target string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return runLines(sess, os.Stdin, os.Stdout)
	}
	p := tea.NewProgram(newShellModel(sess, target), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
