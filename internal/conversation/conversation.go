// Package conversation implements the two lifecycle state machines that
// mutate a session: the ask (chat) coordinator and the upload coordinator.
//
// Each transition is split in two halves so an event loop can own ordering:
// a synchronous begin (guard, append, flag set) that hands back a pending
// call, and a resolve that appends the outcome and restores idle. The
// pending call is the only part that blocks and may run on any goroutine.
package conversation

import (
	"context"
	"fmt"

	"researchdesk/internal/assistant"
)

// Fixed user-visible fallback lines. Underlying errors are never shown.
const (
	AskFallback    = "I'm having trouble connecting right now. Please try again later."
	IngestFallback = "Failed to process document. Please try a different file."
)

// UploadNoticePrefix precedes the filename in the upload notice entry.
const UploadNoticePrefix = "Uploading: "

// Asker is the chat half of the assistant collaborator.
type Asker interface {
	Ask(ctx context.Context, text, sessionID string) (assistant.AskReply, error)
}

// Ingester is the document half of the assistant collaborator.
type Ingester interface {
	Ingest(ctx context.Context, doc assistant.Document, sessionID string) (assistant.IngestReply, error)
}

// recovered converts a panic value from a collaborator call into an error.
func recovered(r interface{}) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("collaborator panicked: %w", err)
	}
	return fmt.Errorf("collaborator panicked: %v", r)
}
