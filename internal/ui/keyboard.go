package ui

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"

	"github.com/1ureka/pongon/internal/chat"
	"github.com/1ureka/pongon/internal/game"
	"github.com/1ureka/pongon/internal/util"
)

// Terminals report key presses but never releases. A held key auto-repeats,
// so a key counts as released once no repeat arrived for KeyReleaseDelay.
const KeyReleaseDelay = 120 * time.Millisecond

const (
	eventBufferSize = 64
	stopWait        = 500 * time.Millisecond
)

// Keyboard turns terminal key presses into game events. When a composer is
// set, Enter opens a chat draft and keys go to the draft until it is sent
// or cancelled.
type Keyboard struct {
	composer *chat.Composer
	events   chan game.Event
	release  time.Duration

	mu      sync.Mutex
	held    game.Key
	holding bool
	timer   *time.Timer

	emitMu sync.Mutex
	closed bool // a close event was queued

	stopping atomic.Bool
	running  atomic.Bool
	done     chan struct{}
}

// NewKeyboard returns an idle Keyboard. composer may be nil.
func NewKeyboard(composer *chat.Composer) *Keyboard {
	return &Keyboard{
		composer: composer,
		events:   make(chan game.Event, eventBufferSize),
		release:  KeyReleaseDelay,
		done:     make(chan struct{}),
	}
}

// Events implements game.EventSource.
func (k *Keyboard) Events() <-chan game.Event {
	return k.events
}

// Start listens for key presses in the background until Stop is called or
// ctx ends.
func (k *Keyboard) Start(ctx context.Context) {
	k.running.Store(true)
	go func() {
		defer close(k.done)
		defer k.running.Store(false)
		if err := keyboard.Listen(k.onKey); err != nil {
			util.LogError("keyboard input stopped: %v", err)
			k.emit(game.Event{Kind: game.EventClose})
		}
	}()
	context.AfterFunc(ctx, k.Stop)
}

// Stop ends the listener and gives the terminal back. The listener only
// notices on its next key, so one is injected.
func (k *Keyboard) Stop() {
	if k.stopping.Swap(true) {
		return
	}
	k.mu.Lock()
	if k.timer != nil {
		k.timer.Stop()
	}
	k.mu.Unlock()

	if !k.running.Load() {
		return
	}
	go keyboard.SimulateKeyPress(keys.Escape)

	select {
	case <-k.done:
	case <-time.After(stopWait):
		util.LogDebug("keyboard listener did not stop in %s", stopWait)
	}
}

// onKey is the keyboard.Listen callback. Returning true ends the listener.
func (k *Keyboard) onKey(key keys.Key) (bool, error) {
	if k.stopping.Load() {
		return true, nil
	}
	if key.Code == keys.CtrlC {
		k.emit(game.Event{Kind: game.EventClose})
		return true, nil
	}

	if k.composer != nil && k.composer.Active() {
		k.compose(key)
		return false, nil
	}

	switch key.Code {
	case keys.Escape:
		k.emit(game.Event{Kind: game.EventClose})
		return true, nil
	case keys.Enter:
		if k.composer != nil {
			k.releaseNow()
			k.composer.Begin()
		}
	case keys.Up:
		k.press(game.KeyUp)
	case keys.Down:
		k.press(game.KeyDown)
	case keys.RuneKey:
		switch runeOf(key) {
		case 'q', 'Q':
			k.emit(game.Event{Kind: game.EventClose})
			return true, nil
		case 'w', 'W':
			k.press(game.KeyUp)
		case 's', 'S':
			k.press(game.KeyDown)
		default:
			k.press(game.KeyOther)
		}
	default:
		// Space and every other key stop the paddle.
		k.press(game.KeyOther)
	}
	return false, nil
}

// compose routes a key to the chat draft.
func (k *Keyboard) compose(key keys.Key) {
	switch key.Code {
	case keys.Enter:
		if err := k.composer.Submit(); err != nil && !errors.Is(err, chat.ErrBlank) {
			util.LogDebug("chat: %v", err)
		}
	case keys.Escape:
		k.composer.Cancel()
	case keys.Backspace, keys.CtrlH:
		k.composer.Backspace()
	case keys.Space:
		k.composer.Type(' ')
	case keys.RuneKey:
		for _, r := range key.Runes {
			k.composer.Type(r)
		}
	}
}

// press reports key as down. An auto-repeat of the key already held only
// extends the hold.
func (k *Keyboard) press(key game.Key) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.timer != nil {
		k.timer.Stop()
	}
	if !k.holding || k.held != key {
		k.emit(game.Event{Kind: game.EventKeyDown, Key: key})
	}
	k.held, k.holding = key, true
	k.timer = time.AfterFunc(k.release, k.releaseHeld)
}

func (k *Keyboard) releaseHeld() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.releaseLocked()
}

// releaseNow releases the held key immediately.
func (k *Keyboard) releaseNow() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.timer != nil {
		k.timer.Stop()
	}
	k.releaseLocked()
}

func (k *Keyboard) releaseLocked() {
	if !k.holding {
		return
	}
	k.holding = false
	k.emit(game.Event{Kind: game.EventKeyUp, Key: k.held})
}

// emit never blocks the listener. When the loop has fallen behind, the
// oldest queued events are discarded so the newest one always gets in: the
// paddle follows the last key event and a close is never lost. Nothing is
// queued after a close.
func (k *Keyboard) emit(ev game.Event) {
	k.emitMu.Lock()
	defer k.emitMu.Unlock()

	if k.closed {
		return
	}
	if ev.Kind == game.EventClose {
		k.closed = true
	}

	for {
		select {
		case k.events <- ev:
			return
		default:
		}
		select {
		case <-k.events:
		default:
		}
	}
}

func runeOf(key keys.Key) rune {
	if len(key.Runes) == 0 {
		return 0
	}
	return key.Runes[0]
}
