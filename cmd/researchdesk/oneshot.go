package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"researchdesk/internal/conversation"
	"researchdesk/internal/session"
	"researchdesk/internal/transcript"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errUnavailable is returned when a one-shot call ended in the fallback reply,
// so scripts see a non-zero exit.
var errUnavailable = errors.New("assistant request failed")

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func newSession(greeting string) *session.Session {
	opts := []session.Option{session.WithGreeting(greeting)}
	if sessionID != "" {
		opts = append(opts, session.WithIdentity(session.IdentityFrom(sessionID)))
	}
	return session.New(opts...)
}

// echoTranscript prints every entry appended to sess from now on, in the
// form "[15:04] You: text", as it lands.
func echoTranscript(w io.Writer, sess *session.Session) {
	sess.Transcript().OnAppend(func(msg transcript.Message) {
		who := "Assistant"
		if msg.IsUser() {
			who = "You"
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", msg.Timestamp, who, msg.Text)
	})
}

func lastText(msgs []transcript.Message) string {
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Text
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess := newSession(cfg.UI.Greeting)
	requests := conversation.NewRequests(sess, newClient(cfg))

	question := joinArgs(args)
	logger.Info("Sending question", zap.String("session", sess.ID()), zap.Int("chars", len(question)))

	start := sess.Transcript().Len()
	echoTranscript(cmd.OutOrStdout(), sess)
	if !requests.Do(ctx, question) {
		return fmt.Errorf("nothing to send")
	}

	delta := sess.Transcript().Since(start)
	fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", sess.ID())

	if lastText(delta) == conversation.AskFallback {
		return errUnavailable
	}
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess := newSession(cfg.UI.Greeting)
	uploads := conversation.NewUploads(sess, newClient(cfg),
		conversation.WithMaxBytes(cfg.Uploads.MaxBytes),
		conversation.WithAllowed(cfg.IsAllowedUpload),
	)
	uploads.OnReset(func() {
		logger.Debug("Upload state reset", zap.String("session", sess.ID()))
	})

	if len(args) > 1 {
		logger.Warn("Only the first file is uploaded", zap.Strings("ignored", args[1:]))
	}

	start := sess.Transcript().Len()
	echoTranscript(cmd.OutOrStdout(), sess)
	accepted, err := uploads.Do(ctx, args...)
	if err != nil {
		return err
	}
	if !accepted {
		return fmt.Errorf("nothing to upload")
	}

	delta := sess.Transcript().Since(start)
	fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", sess.ID())

	if lastText(delta) == conversation.IngestFallback {
		return errUnavailable
	}
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := newClient(cfg)
	status, err := client.Health(ctx)
	if err != nil {
		logger.Debug("Health probe failed", zap.Error(err))
		return fmt.Errorf("%s is unreachable: %w", client.BaseURL(), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", client.BaseURL(), status)
	return nil
}
