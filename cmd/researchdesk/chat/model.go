// Package chat implements the interactive researchdesk terminal client: a
// Bubble Tea model that owns the event loop and drives both conversation
// coordinators against one session.
package chat

import (
	"context"
	"os"
	"sync/atomic"

	"researchdesk/cmd/researchdesk/ui"
	"researchdesk/internal/config"
	"researchdesk/internal/conversation"
	"researchdesk/internal/session"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Assistant is everything the chat client needs from the remote assistant.
type Assistant interface {
	conversation.Asker
	conversation.Ingester
	Health(ctx context.Context) (string, error)
}

// Options wires a Model.
type Options struct {
	Config    *config.Config
	Session   *session.Session
	Assistant Assistant
	// Context bounds every outbound call. Defaults to context.Background().
	Context context.Context
	// StartDir is where the file picker opens. Defaults to the working directory.
	StartDir string
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx    context.Context
	cfg    *config.Config
	assist Assistant

	sess     *session.Session
	requests *conversation.Requests
	uploads  *conversation.Uploads

	styles   ui.Styles
	renderer *ui.Renderer

	textarea   textarea.Model
	viewport   viewport.Model
	spinner    spinner.Model
	filepicker filepicker.Model
	picking    bool
	startDir   string

	// set by the upload coordinator on every exit from uploading
	pickerStale *atomic.Bool

	healthKnown bool
	online      bool
	status      string
	statusIsErr bool

	width  int
	height int
	ready  bool
}

// New builds the chat model. It does not contact the assistant until Init.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	sess := opts.Session
	if sess == nil {
		sess = session.New(session.WithGreeting(cfg.UI.Greeting))
	}
	startDir := opts.StartDir
	if startDir == "" {
		startDir, _ = os.Getwd()
	}

	styles := ui.DefaultStyles()
	if cfg.UI.DarkMode {
		styles = ui.NewStyles(ui.DarkTheme())
	}

	ta := textarea.New()
	ta.Placeholder = "Ask a question or paste a link... (Enter to send, Ctrl+O to upload)"
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	vp := viewport.New(80, 20)

	m := Model{
		ctx:         ctx,
		cfg:         cfg,
		assist:      opts.Assistant,
		sess:        sess,
		requests:    conversation.NewRequests(sess, opts.Assistant),
		styles:      styles,
		renderer:    ui.NewRenderer(styles, 76, cfg.UI.Markdown),
		textarea:    ta,
		viewport:    vp,
		spinner:     sp,
		startDir:    startDir,
		pickerStale: &atomic.Bool{},
	}
	m.uploads = conversation.NewUploads(sess, opts.Assistant,
		conversation.WithMaxBytes(cfg.Uploads.MaxBytes),
		conversation.WithAllowed(cfg.IsAllowedUpload),
	)
	stale := m.pickerStale
	m.uploads.OnReset(func() { stale.Store(true) })

	m.filepicker = m.newPicker()
	m.refresh()
	return m
}

func (m Model) newPicker() filepicker.Model {
	fp := filepicker.New()
	fp.AllowedTypes = append([]string(nil), m.cfg.Uploads.AllowedTypes...)
	fp.CurrentDirectory = m.startDir
	if m.height > 0 {
		fp.Height = max(m.height-6, 5)
	}
	return fp
}

// Session returns the session the model is driving.
func (m Model) Session() *session.Session {
	return m.sess
}

// Init starts the cursor, the spinner, and the first health probe.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.checkHealth())
}

// refresh re-renders the transcript and keeps the newest entry in view.
func (m *Model) refresh() {
	frame := ui.BuildFrame(m.sess.Snapshot())
	m.viewport.SetContent(m.renderer.Transcript(frame))
	m.viewport.GotoBottom()
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusIsErr = isErr
}
