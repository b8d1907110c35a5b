package ui

import (
	"strings"

	"researchdesk/internal/classify"
	"researchdesk/internal/session"
	"researchdesk/internal/transcript"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Bubble is one transcript entry as displayed.
type Bubble struct {
	Message transcript.Message
	Source  *classify.Result // nil for plain text
}

// Frame is everything the screen shows for one session snapshot.
type Frame struct {
	Bubbles []Bubble
	// Typing is set exactly while an ask is outstanding.
	Typing bool
	// Uploading is set exactly while an ingest is pending.
	Uploading bool
}

// BuildFrame projects a session snapshot into a Frame, in transcript order.
func BuildFrame(v session.View) Frame {
	f := Frame{
		Bubbles:   make([]Bubble, 0, len(v.Messages)),
		Typing:    v.Request == session.RequestAwaitingReply,
		Uploading: v.Upload == session.UploadUploading,
	}
	for _, msg := range v.Messages {
		b := Bubble{Message: msg}
		if res, ok := classify.Classify(msg.Text); ok {
			b.Source = &res
		}
		f.Bubbles = append(f.Bubbles, b)
	}
	return f
}

// Renderer turns Frames into styled terminal text.
type Renderer struct {
	styles   Styles
	markdown *glamour.TermRenderer
}

// NewRenderer builds a renderer. When markdown is false, or glamour cannot be
// initialized, assistant text is shown verbatim.
func NewRenderer(styles Styles, width int, markdown bool) *Renderer {
	r := &Renderer{styles: styles}
	if markdown {
		r.markdown = newMarkdown(styles.Theme, width)
	}
	return r
}

func newMarkdown(theme Theme, width int) *glamour.TermRenderer {
	if width < 20 {
		width = 20
	}
	var renderer *glamour.TermRenderer
	if theme.IsDark {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath("dark"),
			glamour.WithWordWrap(width),
		)
	} else {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath("light"),
			glamour.WithWordWrap(width),
		)
	}
	return renderer
}

// SetWidth rebuilds the markdown renderer for a new wrap width.
func (r *Renderer) SetWidth(width int) {
	if r.markdown != nil {
		r.markdown = newMarkdown(r.styles.Theme, width)
	}
}

// Transcript renders every bubble followed by the typing indicator, if any.
func (r *Renderer) Transcript(f Frame) string {
	var sb strings.Builder

	for _, b := range f.Bubbles {
		if b.Message.IsUser() {
			sb.WriteString(r.label(r.styles.UserLabel, "You", b.Message.Timestamp) + "\n")
			if b.Source != nil {
				sb.WriteString("  " + r.Badge(*b.Source) + "\n")
			}
			sb.WriteString(r.styles.UserBubble.Render(b.Message.Text))
			sb.WriteString("\n\n")
			continue
		}

		sb.WriteString(r.label(r.styles.AssistantLabel, "Assistant", b.Message.Timestamp) + "\n")
		if b.Source != nil {
			sb.WriteString(" " + r.Badge(*b.Source) + "\n")
		}
		sb.WriteString(r.styles.AssistantBody.Render(strings.TrimRight(r.safeRenderMarkdown(b.Message.Text), "\n")))
		sb.WriteString("\n")
	}

	if f.Typing {
		sb.WriteString(r.styles.AssistantLabel.Render("Assistant") + "\n")
		sb.WriteString(r.styles.Typing.Render("● ● ●"))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (r *Renderer) label(style lipgloss.Style, who, ts string) string {
	return style.Render(who) + " " + r.styles.Timestamp.Render(ts)
}

// Badge renders the source-type chip shown above a classified message.
func (r *Renderer) Badge(res classify.Result) string {
	return r.styles.SourceBadge.Render(res.Icon + " " + res.Label)
}

// UploadControl renders the upload affordance: a spinner and the file name
// while uploading, otherwise the hint for starting one.
func (r *Renderer) UploadControl(f Frame, spin, file string) string {
	if f.Uploading {
		if file == "" {
			return r.styles.Upload.Render(spin + " Uploading...")
		}
		return r.styles.Upload.Render(spin + " Uploading " + file + "...")
	}
	return r.styles.Upload.Render("📎 Ctrl+O upload PDF")
}

// safeRenderMarkdown renders markdown with panic recovery
func (r *Renderer) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if rec := recover(); rec != nil {
			result = content
		}
	}()

	if r.markdown != nil && content != "" {
		rendered, err := r.markdown.Render(content)
		if err == nil {
			return rendered
		}
	}
	return content
}
