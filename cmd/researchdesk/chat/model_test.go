package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"researchdesk/internal/assistant"
	"researchdesk/internal/config"
	"researchdesk/internal/conversation"
	"researchdesk/internal/session"
	"researchdesk/internal/transcript"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeAssistant struct {
	mu        sync.Mutex
	reply     string
	status    string
	askErr    error
	ingestErr error
	healthErr error
	asked     []string
	ingested  []string
}

func (f *fakeAssistant) Ask(_ context.Context, text, _ string) (assistant.AskReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, text)
	if f.askErr != nil {
		return assistant.AskReply{}, f.askErr
	}
	return assistant.AskReply{Response: f.reply}, nil
}

func (f *fakeAssistant) Ingest(_ context.Context, doc assistant.Document, _ string) (assistant.IngestReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingested = append(f.ingested, doc.Name)
	if f.ingestErr != nil {
		return assistant.IngestReply{}, f.ingestErr
	}
	return assistant.IngestReply{Status: f.status}, nil
}

func (f *fakeAssistant) Health(context.Context) (string, error) {
	if f.healthErr != nil {
		return "", f.healthErr
	}
	return "healthy", nil
}

func newTestModel(t *testing.T, fake *fakeAssistant) Model {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.UI.Markdown = false
	m := New(Options{
		Config:    cfg,
		Session:   session.New(),
		Assistant: fake,
		StartDir:  t.TempDir(),
	})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func enter(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.textarea.SetValue(text)
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func texts(m Model) []string {
	var out []string
	for _, msg := range m.Session().Transcript().All() {
		out = append(out, msg.Text)
	}
	return out
}

func writePDF(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0644))
	return path
}

func TestModel_InitialView(t *testing.T) {
	m := New(Options{Assistant: &fakeAssistant{}, StartDir: t.TempDir()})
	assert.Equal(t, "Initializing...", m.View())
	assert.NotNil(t, m.Init())

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	view := m.View()
	assert.Contains(t, view, "Research Assistant")
	assert.Contains(t, view, "Connecting...")
	assert.Equal(t, []string{session.DefaultGreeting}, texts(m))
}

func TestModel_AskRoundTrip(t *testing.T) {
	fake := &fakeAssistant{reply: "Here is what I found."}
	m := newTestModel(t, fake)

	m, cmd := enter(t, m, "What is RAG?")
	require.NotNil(t, cmd)
	assert.Empty(t, m.textarea.Value(), "input clears on send")
	assert.Equal(t, session.RequestAwaitingReply, m.Session().RequestState())
	assert.Contains(t, m.View(), "Thinking...")

	// A second Enter while awaiting a reply changes nothing.
	m, again := enter(t, m, "follow up")
	assert.Nil(t, again)
	assert.Equal(t, "follow up", m.textarea.Value())

	m, healthCmd := update(t, m, cmd())
	assert.Equal(t, session.RequestIdle, m.Session().RequestState())
	assert.Equal(t, []string{session.DefaultGreeting, "What is RAG?", "Here is what I found."}, texts(m))
	assert.Equal(t, []string{"What is RAG?"}, fake.asked)

	require.NotNil(t, healthCmd)
	m, _ = update(t, m, healthCmd())
	assert.Contains(t, m.View(), "Online")
}

func TestModel_AskFailureShowsFallback(t *testing.T) {
	fake := &fakeAssistant{askErr: errors.New("connection refused"), healthErr: errors.New("down")}
	m := newTestModel(t, fake)

	m, cmd := enter(t, m, "hello")
	m, healthCmd := update(t, m, cmd())
	m, _ = update(t, m, healthCmd())

	got := texts(m)
	assert.Equal(t, conversation.AskFallback, got[len(got)-1])
	assert.Equal(t, session.RequestIdle, m.Session().RequestState())
	assert.Contains(t, m.View(), "Offline")
	assert.NotContains(t, m.View(), "connection refused")
}

func TestModel_BlankEnterIsNoop(t *testing.T) {
	m := newTestModel(t, &fakeAssistant{})

	for _, text := range []string{"", "   ", "\t"} {
		var cmd tea.Cmd
		m, cmd = enter(t, m, text)
		assert.Nil(t, cmd)
	}
	assert.Equal(t, 1, m.Session().Transcript().Len())
	assert.Equal(t, session.RequestIdle, m.Session().RequestState())
}

func TestModel_UploadCommand(t *testing.T) {
	fake := &fakeAssistant{status: "Processed paper.pdf"}
	m := newTestModel(t, fake)
	path := writePDF(t, "paper.pdf")

	m, cmd := enter(t, m, "/upload "+path)
	require.NotNil(t, cmd)
	assert.Empty(t, m.textarea.Value())
	assert.True(t, m.uploads.Busy())
	assert.Contains(t, m.View(), "Uploading paper.pdf...")

	m, _ = update(t, m, cmd())
	assert.False(t, m.uploads.Busy())
	assert.Empty(t, m.uploads.Selection())
	assert.False(t, m.pickerStale.Load(), "reset signal consumed by the picker")
	assert.Equal(t, []string{session.DefaultGreeting, "Uploading: paper.pdf", "Processed paper.pdf"}, texts(m))

	// The same file can be uploaded again after reset.
	m, cmd = enter(t, m, "/upload "+path)
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Equal(t, []string{"paper.pdf", "paper.pdf"}, fake.ingested)
}

func TestModel_UploadPathWithSpaces(t *testing.T) {
	fake := &fakeAssistant{status: "stored"}
	m := newTestModel(t, fake)

	dir := filepath.Join(t.TempDir(), "My Papers")
	require.NoError(t, os.Mkdir(dir, 0755))
	path := filepath.Join(dir, "deep learning.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0644))

	for _, arg := range []string{path, `"` + path + `"`, strings.ReplaceAll(path, " ", `\ `)} {
		var cmd tea.Cmd
		m, cmd = enter(t, m, "/upload "+arg)
		require.NotNil(t, cmd, "arg %q", arg)
		assert.False(t, m.statusIsErr, "arg %q: %s", arg, m.status)
		m, _ = update(t, m, cmd())
	}

	assert.Equal(t, []string{"deep learning.pdf", "deep learning.pdf", "deep learning.pdf"}, fake.ingested)
	assert.Contains(t, texts(m), "Uploading: deep learning.pdf")
}

func TestModel_LongPasteIsNotTruncated(t *testing.T) {
	fake := &fakeAssistant{reply: "ok"}
	m := newTestModel(t, fake)
	long := strings.Repeat("a", 5000)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(long), Paste: true})
	assert.Len(t, m.textarea.Value(), 5000)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	got := texts(m)
	require.Len(t, got, 3)
	assert.Equal(t, long, got[1])
	require.Len(t, fake.asked, 1)
	assert.Len(t, fake.asked[0], 5000)
}

func TestModel_UploadFailureShowsFallback(t *testing.T) {
	m := newTestModel(t, &fakeAssistant{ingestErr: errors.New("500")})

	m, cmd := enter(t, m, "/upload "+writePDF(t, "bad.pdf"))
	m, _ = update(t, m, cmd())

	got := texts(m)
	assert.Equal(t, conversation.IngestFallback, got[len(got)-1])
	assert.False(t, m.uploads.Busy())
}

func TestModel_RejectedUploadOnlyTouchesStatus(t *testing.T) {
	m := newTestModel(t, &fakeAssistant{})
	txt := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0644))

	m, cmd := enter(t, m, "/upload "+txt)
	assert.Nil(t, cmd)
	assert.Equal(t, 1, m.Session().Transcript().Len())
	assert.True(t, m.statusIsErr)
	assert.Contains(t, m.View(), "unsupported file type")

	m, _ = enter(t, m, "/upload")
	assert.Contains(t, m.status, "Usage")
}

func TestModel_DropMsgUploads(t *testing.T) {
	fake := &fakeAssistant{status: "ok"}
	m := newTestModel(t, fake)

	m, cmd := update(t, m, DropMsg{Path: writePDF(t, "dropped.pdf")})
	require.NotNil(t, cmd)

	// A second drop while uploading is ignored.
	m, second := update(t, m, DropMsg{Path: writePDF(t, "other.pdf")})
	assert.Nil(t, second)

	m, _ = update(t, m, cmd())
	assert.Equal(t, []string{"dropped.pdf"}, fake.ingested)
}

func TestModel_AskAndUploadAreIndependent(t *testing.T) {
	fake := &fakeAssistant{reply: "answer", status: "stored"}
	m := newTestModel(t, fake)

	m, askCmd := enter(t, m, "question")
	m, upCmd := enter(t, m, "/upload "+writePDF(t, "doc.pdf"))
	require.NotNil(t, askCmd)
	require.NotNil(t, upCmd)

	// Outcomes may arrive in either order.
	m, _ = update(t, m, upCmd())
	assert.True(t, m.requests.Busy())
	m, _ = update(t, m, askCmd())

	assert.Equal(t, []string{session.DefaultGreeting, "question", "Uploading: doc.pdf", "stored", "answer"}, texts(m))
}

func TestModel_PickerOpensAndCancels(t *testing.T) {
	m := newTestModel(t, &fakeAssistant{})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.True(t, m.picking)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Select a PDF")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.picking)
	assert.Equal(t, 1, m.Session().Transcript().Len(), "cancelling the picker uploads nothing")

	m, _ = enter(t, m, "/pick")
	assert.True(t, m.picking)
}

func TestModel_HelpAndQuit(t *testing.T) {
	m := newTestModel(t, &fakeAssistant{})

	m, _ = enter(t, m, "/help")
	assert.Equal(t, helpText, m.status)
	assert.Empty(t, m.textarea.Value())

	_, cmd := enter(t, m, "/quit")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_SlashTextIsSentAsMessage(t *testing.T) {
	fake := &fakeAssistant{reply: "ok"}
	m := newTestModel(t, fake)

	m, cmd := enter(t, m, "/r/golang thoughts?")
	require.NotNil(t, cmd)
	_, _ = update(t, m, cmd())
	assert.Equal(t, []string{"/r/golang thoughts?"}, fake.asked)
}

func TestModel_TranscriptHasUserSender(t *testing.T) {
	m := newTestModel(t, &fakeAssistant{reply: "r"})
	m, cmd := enter(t, m, "https://youtu.be/xyz")
	m, _ = update(t, m, cmd())

	all := m.Session().Transcript().All()
	require.Len(t, all, 3)
	assert.Equal(t, transcript.SenderUser, all[1].Sender)
	assert.Contains(t, m.viewport.View(), "YouTube")
}
