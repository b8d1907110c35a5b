// Package session owns the per-process conversation state: the identity
// token, the transcript, and the two lifecycle flags.
package session

import (
	"sync"
	"time"

	"researchdesk/internal/transcript"
)

// DefaultGreeting seeds every new transcript.
const DefaultGreeting = "Hello! I'm your research assistant. You can paste YouTube links, upload PDFs, or ask me questions about your research."

// RequestState is the ask lifecycle flag.
type RequestState int

const (
	RequestIdle RequestState = iota
	RequestAwaitingReply
)

func (s RequestState) String() string {
	switch s {
	case RequestIdle:
		return "idle"
	case RequestAwaitingReply:
		return "awaiting-reply"
	}
	return "unknown"
}

// UploadState is the ingest lifecycle flag.
type UploadState int

const (
	UploadIdle UploadState = iota
	UploadUploading
)

func (s UploadState) String() string {
	switch s {
	case UploadIdle:
		return "idle"
	case UploadUploading:
		return "uploading"
	}
	return "unknown"
}

// View is a read-only snapshot handed to renderers.
type View struct {
	ID       string
	Messages []transcript.Message
	Request  RequestState
	Upload   UploadState
}

// Option configures a Session.
type Option func(*Session)

// WithIdentity replaces the generated identity.
func WithIdentity(id Identity) Option {
	return func(s *Session) { s.identity = id }
}

// WithClock overrides the time source used to stamp messages.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithGreeting overrides the seeded assistant greeting.
func WithGreeting(text string) Option {
	return func(s *Session) {
		if text != "" {
			s.greeting = text
		}
	}
}

// Session is constructed once at startup and passed to both coordinators.
// The two lifecycle flags are independent of each other.
type Session struct {
	identity   Identity
	transcript *transcript.Store
	now        func() time.Time
	greeting   string

	mu      sync.Mutex
	request RequestState
	upload  UploadState
}

// New creates a session with a fresh identity and a seeded transcript.
func New(opts ...Option) *Session {
	s := &Session{
		identity: NewIdentity(),
		now:      time.Now,
		greeting: DefaultGreeting,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.transcript = transcript.NewStore(transcript.NewMessage(transcript.SenderAssistant, s.greeting, s.now()))
	return s
}

// ID returns the session token attached to every outbound request.
func (s *Session) ID() string {
	return s.identity.Token()
}

// Transcript exposes the underlying store for observers.
func (s *Session) Transcript() *transcript.Store {
	return s.transcript
}

// Append stamps and records a new message.
func (s *Session) Append(sender transcript.Sender, text string) transcript.Message {
	msg := transcript.NewMessage(sender, text, s.now())
	s.transcript.Append(msg)
	return msg
}

// RequestState returns the current ask lifecycle flag.
func (s *Session) RequestState() RequestState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request
}

// SetRequestState sets the ask lifecycle flag unconditionally.
func (s *Session) SetRequestState(state RequestState) {
	s.mu.Lock()
	s.request = state
	s.mu.Unlock()
}

// SwapRequestState moves from -> to atomically and reports whether it did.
func (s *Session) SwapRequestState(from, to RequestState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.request != from {
		return false
	}
	s.request = to
	return true
}

// UploadState returns the current ingest lifecycle flag.
func (s *Session) UploadState() UploadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upload
}

// SetUploadState sets the ingest lifecycle flag unconditionally.
func (s *Session) SetUploadState(state UploadState) {
	s.mu.Lock()
	s.upload = state
	s.mu.Unlock()
}

// SwapUploadState moves from -> to atomically and reports whether it did.
func (s *Session) SwapUploadState(from, to UploadState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upload != from {
		return false
	}
	s.upload = to
	return true
}

// Snapshot captures the transcript and both flags for rendering.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	req, up := s.request, s.upload
	s.mu.Unlock()

	return View{
		ID:       s.ID(),
		Messages: s.transcript.All(),
		Request:  req,
		Upload:   up,
	}
}
