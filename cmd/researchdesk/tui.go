package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"researchdesk/cmd/researchdesk/chat"
	"researchdesk/internal/logging"
	"researchdesk/internal/session"
	"researchdesk/internal/watch"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// runChat starts the interactive UI, and the drop folder when configured.
func runChat(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logging.CloseAll()

	sess := session.New(session.WithGreeting(cfg.UI.Greeting))
	logging.Session("session %s started", sess.ID())

	model := chat.New(chat.Options{
		Config:    cfg,
		Session:   sess,
		Assistant: newClient(cfg),
		Context:   ctx,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	var drop *watch.DropFolder
	if cfg.Uploads.WatchDir != "" {
		drop, err = watch.NewDropFolder(cfg.Uploads.WatchDir, cfg.IsAllowedUpload)
		if err != nil {
			return err
		}
		if err := drop.Start(ctx); err != nil {
			return fmt.Errorf("drop folder: %w", err)
		}
		logging.Get(logging.CategoryWatch).Info("watching %s for new PDFs", drop.Dir())
	}

	g, gctx := errgroup.WithContext(ctx)

	if drop != nil {
		g.Go(func() error {
			forwardDrops(gctx, drop.Events(), program.Send)
			return nil
		})
	}

	g.Go(func() error {
		if drop != nil {
			defer drop.Stop()
		}
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})

	return g.Wait()
}

// forwardDrops delivers each dropped file to the UI until events closes or
// ctx ends.
func forwardDrops(ctx context.Context, events <-chan string, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-events:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Info("forwarding %s to chat", path)
			send(chat.DropMsg{Path: path})
		}
	}
}
