package conversation

import (
	"context"
	"strings"
	"sync"

	"researchdesk/internal/logging"
	"researchdesk/internal/session"
	"researchdesk/internal/transcript"
)

// Requests coordinates the single outstanding ask.
type Requests struct {
	sess  *session.Session
	asker Asker

	resolving sync.Mutex
}

// NewRequests binds the ask coordinator to a session and collaborator.
func NewRequests(sess *session.Session, asker Asker) *Requests {
	return &Requests{sess: sess, asker: asker}
}

// PendingAsk is an issued ask whose outcome has not been applied yet.
type PendingAsk struct {
	Text      string
	SessionID string
	asker     Asker
}

// AskOutcome is the terminal result of a PendingAsk.
type AskOutcome struct {
	Reply string
	Err   error
}

// Run performs the call. It never panics; a panicking collaborator is
// reported as a failed outcome.
func (p *PendingAsk) Run(ctx context.Context) (out AskOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = AskOutcome{Err: recovered(r)}
		}
	}()

	reply, err := p.asker.Ask(ctx, p.Text, p.SessionID)
	if err != nil {
		return AskOutcome{Err: err}
	}
	return AskOutcome{Reply: reply.Response}
}

// Send is the idle -> awaiting-reply transition. It returns false, and
// changes nothing, when text is blank or an ask is already outstanding.
// On success the raw text has been appended as a user message.
func (r *Requests) Send(text string) (*PendingAsk, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}
	if !r.sess.SwapRequestState(session.RequestIdle, session.RequestAwaitingReply) {
		logging.Session("send ignored: ask already outstanding")
		return nil, false
	}

	r.sess.Append(transcript.SenderUser, text)
	logging.Session("request idle -> awaiting-reply (%d chars)", len(text))

	return &PendingAsk{Text: text, SessionID: r.sess.ID(), asker: r.asker}, true
}

// Resolve is the awaiting-reply -> idle transition. It always restores
// idle, whatever the outcome, and returns the appended assistant message.
// An outcome arriving while no ask is outstanding is dropped, and the zero
// Message is returned.
func (r *Requests) Resolve(out AskOutcome) transcript.Message {
	r.resolving.Lock()
	defer r.resolving.Unlock()

	if r.sess.RequestState() != session.RequestAwaitingReply {
		logging.Get(logging.CategoryAsk).Warn("dropping ask outcome: no ask outstanding")
		return transcript.Message{}
	}
	defer r.sess.SetRequestState(session.RequestIdle)

	if out.Err != nil {
		logging.Get(logging.CategoryAsk).Error("ask failed: %v", out.Err)
		logging.Session("request awaiting-reply -> idle (failure)")
		return r.sess.Append(transcript.SenderAssistant, AskFallback)
	}

	logging.Session("request awaiting-reply -> idle (reply)")
	return r.sess.Append(transcript.SenderAssistant, out.Reply)
}

// Do runs a whole send synchronously and reports whether it was accepted.
func (r *Requests) Do(ctx context.Context, text string) bool {
	pending, ok := r.Send(text)
	if !ok {
		return false
	}
	r.Resolve(pending.Run(ctx))
	return true
}

// Busy reports whether an ask is outstanding.
func (r *Requests) Busy() bool {
	return r.sess.RequestState() == session.RequestAwaitingReply
}
