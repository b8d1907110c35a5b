// Package transcript holds the append-only message log shown as chat history.
package transcript

import "time"

// Sender identifies who a transcript entry is attributed to.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// TimestampLayout is the hour:minute display format fixed at creation.
const TimestampLayout = "15:04"

// Message is a single transcript entry. Values are immutable once created;
// the store only ever hands out copies.
type Message struct {
	Text      string
	Sender    Sender
	Timestamp string
	CreatedAt time.Time
}

// NewMessage stamps a message with the display time of now.
func NewMessage(sender Sender, text string, now time.Time) Message {
	return Message{
		Text:      text,
		Sender:    sender,
		Timestamp: now.Format(TimestampLayout),
		CreatedAt: now,
	}
}

// IsUser reports whether the entry was authored by the local user.
func (m Message) IsUser() bool {
	return m.Sender == SenderUser
}
