package chat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"researchdesk/internal/conversation"
	"researchdesk/internal/logging"

	tea "github.com/charmbracelet/bubbletea"
)

// askDoneMsg carries a finished ask back into the event loop.
type askDoneMsg struct {
	out conversation.AskOutcome
}

// ingestDoneMsg carries a finished upload back into the event loop.
type ingestDoneMsg struct {
	out conversation.IngestOutcome
}

// healthMsg reports the result of a health probe.
type healthMsg struct {
	status string
	err    error
}

// DropMsg asks the model to upload a file that appeared in the drop folder.
type DropMsg struct {
	Path string
}

const helpText = "Enter: send | Ctrl+O or /pick: choose a PDF | /upload <path>: upload a file | PgUp/PgDn: scroll | /quit: exit"

func runAsk(ctx context.Context, p *conversation.PendingAsk) tea.Cmd {
	return func() tea.Msg {
		return askDoneMsg{out: p.Run(ctx)}
	}
}

func runIngest(ctx context.Context, p *conversation.PendingIngest) tea.Cmd {
	return func() tea.Msg {
		return ingestDoneMsg{out: p.Run(ctx)}
	}
}

func (m Model) checkHealth() tea.Cmd {
	if m.assist == nil {
		return nil
	}
	assist, ctx := m.assist, m.ctx
	return func() tea.Msg {
		status, err := assist.Health(ctx)
		return healthMsg{status: status, err: err}
	}
}

// send handles Enter on a plain message.
func (m Model) send(text string) (Model, tea.Cmd) {
	pending, ok := m.requests.Send(text)
	if !ok {
		return m, nil
	}
	m.textarea.Reset()
	m.setStatus("", false)
	m.refresh()
	return m, runAsk(m.ctx, pending)
}

// upload starts an ingest for the first of paths.
func (m Model) upload(paths ...string) (Model, tea.Cmd) {
	pending, err := m.uploads.Select(paths...)
	if err != nil {
		if errors.Is(err, conversation.ErrRejected) {
			m.setStatus(err.Error(), true)
		}
		return m, nil
	}
	if pending == nil {
		if m.uploads.Busy() {
			m.setStatus("An upload is already in progress", true)
		}
		return m, nil
	}
	m.setStatus("", false)
	m.refresh()
	return m, runIngest(m.ctx, pending)
}

var commands = map[string]bool{
	"/quit": true, "/exit": true, "/help": true, "/pick": true, "/upload": true,
}

// isCommand reports whether input starts with a known slash command. Any
// other text, including text that merely begins with "/", is a message.
func isCommand(input string) bool {
	fields := strings.Fields(input)
	return len(fields) > 0 && commands[strings.ToLower(fields[0])]
}

// handleCommand runs a slash command.
func (m Model) handleCommand(input string) (Model, tea.Cmd) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	logging.Get(logging.CategoryUI).Debug("command %s", cmd)

	switch cmd {
	case "/quit", "/exit":
		return m, tea.Quit

	case "/help":
		m.textarea.Reset()
		m.setStatus(helpText, false)
		return m, nil

	case "/pick":
		m.textarea.Reset()
		return m.openPicker()

	case "/upload":
		if len(fields) < 2 {
			m.setStatus("Usage: /upload <path>", true)
			return m, nil
		}
		m.textarea.Reset()
		return m.upload(uploadArgs(input[len(fields[0]):])...)
	}

	m.setStatus(fmt.Sprintf("Unknown command %s (try /help)", cmd), true)
	return m, nil
}

// uploadArgs splits the argument text of /upload into paths. The whole text
// is taken as one path when it names an existing file, so names with spaces
// need no quoting; surrounding quotes and backslash-escaped spaces, as
// terminals paste them for dropped files, are also accepted.
func uploadArgs(rest string) []string {
	rest = strings.TrimSpace(rest)
	if n := len(rest); n >= 2 && (rest[0] == '"' || rest[0] == '\'') && rest[n-1] == rest[0] {
		return []string{rest[1 : n-1]}
	}
	if _, err := os.Stat(rest); err == nil {
		return []string{rest}
	}
	if unescaped := strings.ReplaceAll(rest, `\ `, " "); unescaped != rest {
		return []string{unescaped}
	}
	return strings.Fields(rest)
}

func (m Model) openPicker() (Model, tea.Cmd) {
	if m.uploads.Busy() {
		m.setStatus("An upload is already in progress", true)
		return m, nil
	}
	m.picking = true
	return m, m.filepicker.Init()
}
