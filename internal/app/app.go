// Package app contains the top-level orchestration shared by both roles:
// connect, trade nicknames, then run the game until it ends.
package app

import (
	"context"
	"fmt"

	"github.com/1ureka/pongon/internal/chat"
	"github.com/1ureka/pongon/internal/config"
	"github.com/1ureka/pongon/internal/game"
	"github.com/1ureka/pongon/internal/session"
	"github.com/1ureka/pongon/internal/ui"
	"github.com/1ureka/pongon/internal/util"
)

// Run orchestrates one game:
//  1. Establish the link for the configured role and transport
//  2. Exchange nicknames
//  3. Take over the terminal (renderer + keyboard)
//  4. Run the frame loop until quit, cancellation or a sync failure
//  5. Give the terminal back and close the session
func Run(ctx context.Context, cfg config.Config) error {
	s, err := session.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	remote, err := s.ExchangeIdentity(ctx, cfg.Nick)
	if err != nil {
		return err
	}
	util.LogSuccess("connected to: %s", remote)

	util.StartStatsReporter(ctx)

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var composer *chat.Composer
	var outbox *chat.Mailbox
	if cfg.Chat {
		util.LogWarning("chat is on: %s must also start with -chat, or the game stops out of step", remote)
		outbox = &chat.Mailbox{}
		composer = chat.NewComposer(outbox)
	}

	kb := ui.NewKeyboard(composer)
	renderer, err := ui.StartRenderer()
	if err != nil {
		return fmt.Errorf("failed to start renderer: %w", err)
	}

	kb.Start(loopCtx)
	loop := newLoop(cfg, s, kb, renderer, outbox, composer)
	err = loop.Run(loopCtx)

	kb.Stop()
	if stopErr := renderer.Stop(); stopErr != nil {
		util.LogDebug("failed to stop renderer: %v", stopErr)
	}

	if err != nil {
		return err
	}
	util.LogInfo("game over (%d frames, last status: %s)", util.Stats.Frames.Load(), s.Status())
	return nil
}

// newLoop assembles the frame loop for one session. outbox and composer are
// nil when chat is off.
func newLoop(cfg config.Config, s *session.Session, events game.EventSource, r game.Renderer,
	outbox *chat.Mailbox, composer *chat.Composer) *game.Loop {
	loop := &game.Loop{
		World:      game.NewWorld(s.Role()),
		Sync:       s,
		Events:     events,
		Renderer:   r,
		LocalNick:  s.LocalNick(),
		RemoteNick: s.RemoteNick(),
	}
	if cfg.Chat && outbox != nil {
		loop.Chat = &game.Chat{
			Outbox:   outbox,
			Log:      &chat.Log{},
			Composer: composer,
		}
	}
	return loop
}
