// Package classify tags message text with the kind of source it refers to.
package classify

import "regexp"

// Kind is the source type detected in a message.
type Kind int

const (
	None Kind = iota
	VideoLink
	WebLink
	DocumentReference
)

func (k Kind) String() string {
	switch k {
	case VideoLink:
		return "video-link"
	case WebLink:
		return "web-link"
	case DocumentReference:
		return "document-reference"
	}
	return "none"
}

// Result is the decoration a renderer attaches to a message bubble.
type Result struct {
	Kind  Kind
	Label string
	Icon  string
}

var (
	videoPattern = regexp.MustCompile(`youtube\.com|youtu\.be`)
	urlPattern   = regexp.MustCompile(`https?://[^\s]+`)
	pdfPattern   = regexp.MustCompile(`\.pdf$`)
)

// rules are evaluated in order; the first match wins.
var rules = []struct {
	pattern *regexp.Regexp
	result  Result
}{
	{videoPattern, Result{Kind: VideoLink, Label: "YouTube", Icon: "▶️"}},
	{urlPattern, Result{Kind: WebLink, Label: "Web Article", Icon: "🌐"}},
	{pdfPattern, Result{Kind: DocumentReference, Label: "PDF Document", Icon: "📄"}},
}

// Classify returns the decoration for text, or false for plain text.
func Classify(text string) (Result, bool) {
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			return r.result, true
		}
	}
	return Result{Kind: None}, false
}
