package ui

import (
	"strings"
	"testing"
	"time"

	"researchdesk/internal/classify"
	"researchdesk/internal/session"
	"researchdesk/internal/transcript"

	"github.com/google/go-cmp/cmp"
)

var fixed = time.Date(2026, 3, 4, 9, 5, 0, 0, time.UTC)

func msg(sender transcript.Sender, text string) transcript.Message {
	return transcript.NewMessage(sender, text, fixed)
}

func TestBuildFrame(t *testing.T) {
	video := classify.Result{Kind: classify.VideoLink, Label: "YouTube", Icon: "▶️"}
	doc := classify.Result{Kind: classify.DocumentReference, Label: "PDF Document", Icon: "📄"}

	tests := []struct {
		name string
		view session.View
		want Frame
	}{
		{
			name: "idle greeting only",
			view: session.View{Messages: []transcript.Message{msg(transcript.SenderAssistant, "Hello")}},
			want: Frame{Bubbles: []Bubble{{Message: msg(transcript.SenderAssistant, "Hello")}}},
		},
		{
			name: "awaiting reply shows typing",
			view: session.View{
				Messages: []transcript.Message{
					msg(transcript.SenderAssistant, "Hello"),
					msg(transcript.SenderUser, "see https://youtu.be/abc"),
				},
				Request: session.RequestAwaitingReply,
			},
			want: Frame{
				Bubbles: []Bubble{
					{Message: msg(transcript.SenderAssistant, "Hello")},
					{Message: msg(transcript.SenderUser, "see https://youtu.be/abc"), Source: &video},
				},
				Typing: true,
			},
		},
		{
			name: "uploading shows spinner and no typing",
			view: session.View{
				Messages: []transcript.Message{msg(transcript.SenderUser, "Uploading: paper.pdf")},
				Upload:   session.UploadUploading,
			},
			want: Frame{
				Bubbles:   []Bubble{{Message: msg(transcript.SenderUser, "Uploading: paper.pdf"), Source: &doc}},
				Uploading: true,
			},
		},
		{
			name: "both in flight",
			view: session.View{
				Request: session.RequestAwaitingReply,
				Upload:  session.UploadUploading,
			},
			want: Frame{Bubbles: []Bubble{}, Typing: true, Uploading: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildFrame(tt.view)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BuildFrame mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRendererTranscript(t *testing.T) {
	r := NewRenderer(NewStyles(LightTheme()), 80, false)

	f := BuildFrame(session.View{
		Messages: []transcript.Message{
			msg(transcript.SenderAssistant, "Hello"),
			msg(transcript.SenderUser, "https://example.com/post"),
		},
		Request: session.RequestAwaitingReply,
	})
	out := r.Transcript(f)

	for _, want := range []string{"Assistant", "Hello", "You", "https://example.com/post", "Web Article", "09:05", "● ● ●"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered transcript missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Hello") > strings.Index(out, "https://example.com/post") {
		t.Errorf("bubbles rendered out of order:\n%s", out)
	}

	f.Typing = false
	if strings.Contains(r.Transcript(f), "● ● ●") {
		t.Errorf("typing indicator shown while idle")
	}
}

func TestRendererUploadControl(t *testing.T) {
	r := NewRenderer(NewStyles(DarkTheme()), 80, false)

	if got := r.UploadControl(Frame{Uploading: true}, "*", ""); !strings.Contains(got, "Uploading...") {
		t.Errorf("expected spinner label, got %q", got)
	}
	if got := r.UploadControl(Frame{Uploading: true}, "*", "paper.pdf"); !strings.Contains(got, "Uploading paper.pdf...") {
		t.Errorf("expected file name in label, got %q", got)
	}
	if got := r.UploadControl(Frame{}, "*", "paper.pdf"); strings.Contains(got, "Uploading") {
		t.Errorf("expected idle hint, got %q", got)
	}
}

func TestRendererMarkdown(t *testing.T) {
	r := NewRenderer(NewStyles(LightTheme()), 60, true)
	r.SetWidth(40)

	out := r.Transcript(Frame{Bubbles: []Bubble{{Message: msg(transcript.SenderAssistant, "**bold** answer")}}})
	if !strings.Contains(out, "answer") {
		t.Errorf("markdown output lost text:\n%s", out)
	}
}
