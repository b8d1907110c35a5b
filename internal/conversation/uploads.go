package conversation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"researchdesk/internal/assistant"
	"researchdesk/internal/logging"
	"researchdesk/internal/session"
	"researchdesk/internal/transcript"
)

// ErrRejected is returned by Select when a chosen file fails validation.
// A rejected file causes no state change and no transcript entry.
var ErrRejected = errors.New("file rejected")

// UploadOption configures an Uploads coordinator.
type UploadOption func(*Uploads)

// WithMaxBytes rejects files larger than n bytes. n <= 0 disables the check.
func WithMaxBytes(n int64) UploadOption {
	return func(u *Uploads) { u.maxBytes = n }
}

// WithAllowed rejects files for which allow returns false.
func WithAllowed(allow func(name string) bool) UploadOption {
	return func(u *Uploads) { u.allow = allow }
}

// Uploads coordinates document ingestion, independently of Requests.
type Uploads struct {
	sess     *session.Session
	ingester Ingester
	maxBytes int64
	allow    func(name string) bool

	mu        sync.Mutex
	selection string
	onReset   []func()

	resolving sync.Mutex
}

// NewUploads binds the upload coordinator to a session and collaborator.
func NewUploads(sess *session.Session, ingester Ingester, opts ...UploadOption) *Uploads {
	u := &Uploads{sess: sess, ingester: ingester}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// PendingIngest is an issued upload whose outcome has not been applied yet.
type PendingIngest struct {
	Path      string
	Name      string
	SessionID string
	maxBytes  int64
	ingester  Ingester
}

// IngestOutcome is the terminal result of a PendingIngest.
type IngestOutcome struct {
	Name   string
	Status string
	Err    error
}

// Run reads the file and transmits it. It never panics.
func (p *PendingIngest) Run(ctx context.Context) (out IngestOutcome) {
	out.Name = p.Name
	defer func() {
		if r := recover(); r != nil {
			out = IngestOutcome{Name: p.Name, Err: recovered(r)}
		}
	}()

	doc, err := assistant.ReadDocument(p.Path, p.maxBytes)
	if err != nil {
		out.Err = err
		return out
	}
	ack, err := p.ingester.Ingest(ctx, doc, p.SessionID)
	if err != nil {
		out.Err = err
		return out
	}
	out.Status = ack.Status
	return out
}

// Select is the idle -> uploading transition for the first of paths.
//
// It returns (nil, nil) when nothing was chosen or an upload is already
// pending, and (nil, ErrRejected-wrapped) when the file fails validation;
// neither changes any state. Otherwise the upload notice has been appended.
func (u *Uploads) Select(paths ...string) (*PendingIngest, error) {
	if len(paths) == 0 || paths[0] == "" {
		return nil, nil
	}
	path := paths[0]
	name := filepath.Base(path)

	if err := u.validate(path, name); err != nil {
		logging.Get(logging.CategoryIngest).Warn("rejected %s: %v", path, err)
		return nil, err
	}

	if !u.sess.SwapUploadState(session.UploadIdle, session.UploadUploading) {
		logging.Session("select ignored: upload already pending")
		return nil, nil
	}

	u.mu.Lock()
	u.selection = path
	u.mu.Unlock()

	u.sess.Append(transcript.SenderUser, UploadNoticePrefix+name)
	logging.Session("upload idle -> uploading (%s)", name)

	return &PendingIngest{
		Path:      path,
		Name:      name,
		SessionID: u.sess.ID(),
		maxBytes:  u.maxBytes,
		ingester:  u.ingester,
	}, nil
}

func (u *Uploads) validate(path, name string) error {
	if u.allow != nil && !u.allow(name) {
		return fmt.Errorf("%s: unsupported file type: %w", name, ErrRejected)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", name, err, ErrRejected)
	}
	if info.IsDir() {
		return fmt.Errorf("%s: is a directory: %w", name, ErrRejected)
	}
	if u.maxBytes > 0 && info.Size() > u.maxBytes {
		return fmt.Errorf("%s: %d bytes exceeds limit of %d: %w", name, info.Size(), u.maxBytes, ErrRejected)
	}
	return nil
}

// Resolve is the uploading -> idle transition. It always restores idle,
// clears the held selection, and notifies reset observers. An outcome
// arriving while no upload is pending is dropped, and the zero Message is
// returned.
func (u *Uploads) Resolve(out IngestOutcome) transcript.Message {
	u.resolving.Lock()
	defer u.resolving.Unlock()

	if u.sess.UploadState() != session.UploadUploading {
		logging.Get(logging.CategoryIngest).Warn("dropping ingest outcome for %s: no upload pending", out.Name)
		return transcript.Message{}
	}
	defer u.reset()

	if out.Err != nil {
		logging.Get(logging.CategoryIngest).Error("ingest of %s failed: %v", out.Name, out.Err)
		logging.Session("upload uploading -> idle (failure)")
		return u.sess.Append(transcript.SenderAssistant, IngestFallback)
	}

	logging.Session("upload uploading -> idle (ack)")
	return u.sess.Append(transcript.SenderAssistant, out.Status)
}

func (u *Uploads) reset() {
	u.mu.Lock()
	u.selection = ""
	observers := u.onReset
	u.mu.Unlock()

	u.sess.SetUploadState(session.UploadIdle)
	for _, fn := range observers {
		fn()
	}
}

// OnReset registers fn to run on every exit from uploading, so selection
// inputs can be cleared and the same file picked again.
func (u *Uploads) OnReset(fn func()) {
	if fn == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.onReset = append(u.onReset, fn)
}

// Selection returns the path currently being uploaded, or "".
func (u *Uploads) Selection() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.selection
}

// Do runs a whole upload synchronously. It reports whether the select was
// accepted; a validation rejection is returned as an error.
func (u *Uploads) Do(ctx context.Context, paths ...string) (bool, error) {
	pending, err := u.Select(paths...)
	if err != nil || pending == nil {
		return false, err
	}
	u.Resolve(pending.Run(ctx))
	return true, nil
}

// Busy reports whether an upload is pending.
func (u *Uploads) Busy() bool {
	return u.sess.UploadState() == session.UploadUploading
}
