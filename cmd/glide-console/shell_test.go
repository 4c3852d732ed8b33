package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/glide-ffi/value"
)

type fakeExecutor struct {
	calls [][]string
}

func (f *fakeExecutor) exec(words []string) (value.Value, error) {
	f.calls = append(f.calls, words)
	if strings.EqualFold(words[0], "fail") {
		return value.Value{}, errors.New("boom")
	}
	return value.Simple(strings.Join(words, "|")), nil
}

func TestRunLines(t *testing.T) {
	f := &fakeExecutor{}
	in := strings.NewReader("PING\n\n# comment\nSET k \"a b\"\nfail now\nSET \"open\n")
	var out bytes.Buffer
	if err := runLines(f, in, &out); err != nil {
		t.Fatalf("runLines: %v", err)
	}
	want := "PING\nSET|k|a b\n(error) boom\n(error) unterminated quote or escape\n"
	if out.String() != want {
		t.Fatalf("output:\n%s\nwant:\n%s", out.String(), want)
	}
	if len(f.calls) != 3 {
		t.Fatalf("calls = %d", len(f.calls))
	}
}

func press(m *shellModel, k tea.KeyType) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: k})
	return cmd
}

func TestShellModel_Enter(t *testing.T) {
	f := &fakeExecutor{}
	m := newShellModel(f, "localhost:6379")

	m.input.SetValue("GET k")
	cmd := press(m, tea.KeyEnter)
	if cmd == nil || !m.busy {
		t.Fatal("enter did not start a command")
	}
	if m.input.Value() != "" {
		t.Fatalf("input not cleared: %q", m.input.Value())
	}

	msg := cmd()
	res, ok := msg.(execResultMsg)
	if !ok {
		t.Fatalf("got %T", msg)
	}
	m.Update(res)
	if m.busy || len(m.history) != 1 || m.history[0].out != "GET|k" {
		t.Fatalf("history = %+v", m.history)
	}
	if !strings.Contains(m.View(), "GET|k") {
		t.Fatal("view does not show the reply")
	}
}

func TestShellModel_Recall(t *testing.T) {
	m := newShellModel(&fakeExecutor{}, "x")
	for _, line := range []string{"first", "second"} {
		m.input.SetValue(line)
		if cmd := press(m, tea.KeyEnter); cmd != nil {
			m.Update(cmd())
		}
	}

	press(m, tea.KeyUp)
	if got := m.input.Value(); got != "second" {
		t.Fatalf("up = %q", got)
	}
	press(m, tea.KeyUp)
	if got := m.input.Value(); got != "first" {
		t.Fatalf("up up = %q", got)
	}
	press(m, tea.KeyDown)
	press(m, tea.KeyDown)
	if got := m.input.Value(); got != "" {
		t.Fatalf("down past end = %q", got)
	}
}

func TestShellModel_Quit(t *testing.T) {
	for _, k := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		m := newShellModel(&fakeExecutor{}, "x")
		cmd := press(m, k)
		if cmd == nil {
			t.Fatalf("%v: no command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("%v: not a quit", k)
		}
	}

	m := newShellModel(&fakeExecutor{}, "x")
	m.input.SetValue("exit")
	if _, ok := press(m, tea.KeyEnter)().(tea.QuitMsg); !ok {
		t.Fatal("exit did not quit")
	}
}

func TestShellModel_HistoryBounded(t *testing.T) {
	m := newShellModel(&fakeExecutor{}, "x")
	for i := 0; i < maxShown+5; i++ {
		m.Update(execResultMsg{entry: entry{line: "PING", out: "PONG"}})
	}
	if len(m.history) != maxShown {
		t.Fatalf("history = %d", len(m.history))
	}
}
