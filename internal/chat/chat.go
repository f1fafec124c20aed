// Package chat implements the optional chat that rides along the per-tick
// sync: a one-slot outbox filled from the keyboard, a draft editor and the
// scrollback shown under the playfield.
package chat

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/1ureka/pongon/internal/config"
)

// Scrollback limits.
const (
	MaxLines  = 100 // the log is trimmed once it holds this many lines
	KeepLines = 20  // lines kept after a trim, and lines shown on screen
)

var (
	ErrBlank = errors.New("chat message is blank")
	ErrBusy  = errors.New("previous chat message not sent yet")
)

// Format builds the line sent to the peer and echoed locally. msg is cut to
// config.MaxChatLen runes.
func Format(nick, msg string) string {
	if utf8.RuneCountInString(msg) > config.MaxChatLen {
		msg = string([]rune(msg)[:config.MaxChatLen])
	}
	return nick + ":> " + msg
}

// ---------------------------------------------------------------------------
// Mailbox
// ---------------------------------------------------------------------------

// Mailbox holds at most one outgoing message. The keyboard goroutine offers,
// the frame loop takes.
type Mailbox struct {
	slot atomic.Pointer[string]
}

// Offer stores msg if the slot is free and reports whether it did.
func (m *Mailbox) Offer(msg string) bool {
	return m.slot.CompareAndSwap(nil, &msg)
}

// Take empties the slot and returns what was in it.
func (m *Mailbox) Take() (string, bool) {
	p := m.slot.Swap(nil)
	if p == nil {
		return "", false
	}
	return *p, true
}

// ---------------------------------------------------------------------------
// Composer
// ---------------------------------------------------------------------------

// Composer edits the draft message while the player is typing. It is written
// by the keyboard goroutine and read by the renderer.
type Composer struct {
	out *Mailbox

	mu     sync.Mutex
	active bool
	draft  []rune
}

func NewComposer(out *Mailbox) *Composer {
	return &Composer{out: out}
}

// Begin starts a new draft.
func (c *Composer) Begin() {
	c.mu.Lock()
	c.active = true
	c.draft = c.draft[:0]
	c.mu.Unlock()
}

// Active reports whether a draft is being edited.
func (c *Composer) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Draft returns the current draft and whether one is being edited.
func (c *Composer) Draft() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.draft), c.active
}

// Type appends r to the draft. Input past config.MaxChatLen runes is ignored.
func (c *Composer) Type(r rune) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active || len(c.draft) >= config.MaxChatLen {
		return
	}
	c.draft = append(c.draft, r)
}

func (c *Composer) Backspace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := len(c.draft); c.active && n > 0 {
		c.draft = c.draft[:n-1]
	}
}

// Cancel drops the draft.
func (c *Composer) Cancel() {
	c.mu.Lock()
	c.active = false
	c.draft = c.draft[:0]
	c.mu.Unlock()
}

// Submit hands the draft to the mailbox and ends editing. A blank draft is
// discarded with ErrBlank; if the mailbox is still full the draft is kept and
// ErrBusy is returned.
func (c *Composer) Submit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := strings.TrimSpace(string(c.draft))
	if msg == "" {
		c.active = false
		c.draft = c.draft[:0]
		return ErrBlank
	}
	if !c.out.Offer(msg) {
		return ErrBusy
	}
	c.active = false
	c.draft = c.draft[:0]
	return nil
}

// ---------------------------------------------------------------------------
// Log
// ---------------------------------------------------------------------------

// Log is the chat scrollback. Not safe for concurrent use; it is owned by
// the frame loop.
type Log struct {
	lines []string
}

// Append adds a line, trimming the log to the last KeepLines lines once it
// reaches MaxLines.
func (l *Log) Append(line string) {
	l.lines = append(l.lines, line)
	if len(l.lines) >= MaxLines {
		n := copy(l.lines, l.lines[len(l.lines)-KeepLines:])
		clear(l.lines[n:])
		l.lines = l.lines[:n]
	}
}

func (l *Log) Len() int { return len(l.lines) }

// Tail returns a copy of the last n lines (fewer if the log is shorter).
func (l *Log) Tail(n int) []string {
	if n > len(l.lines) {
		n = len(l.lines)
	}
	out := make([]string, n)
	copy(out, l.lines[len(l.lines)-n:])
	return out
}
