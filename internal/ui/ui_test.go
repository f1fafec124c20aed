package ui

import (
	"strings"
	"testing"
	"time"

	"atomicgo.dev/keyboard/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1ureka/pongon/internal/chat"
	"github.com/1ureka/pongon/internal/config"
	"github.com/1ureka/pongon/internal/game"
)

func frameFor(role config.Role) game.Frame {
	w := game.NewWorld(role)
	return game.Frame{
		Field:      w.Field,
		Ball:       w.Ball,
		Local:      w.Local,
		Remote:     w.Remote,
		LocalNick:  "Alice",
		RemoteNick: "Bob",
	}
}

func TestDrawLayout(t *testing.T) {
	lines := strings.Split(Draw(frameFor(config.RoleInitiator)), "\n")

	// header, border, 16 rows, border, help, trailing empty string
	require.Len(t, lines, 1+1+16+1+1+1)
	assert.True(t, strings.HasPrefix(lines[0], " Alice"))
	assert.True(t, strings.HasSuffix(lines[0], "Bob "))
	assert.Equal(t, "+"+strings.Repeat("-", 64)+"+", lines[1])

	row := func(r int) []rune { return []rune(lines[2+r]) }

	assert.Equal(t, ballGlyph, row(8)[1+32])
	for r := 6; r <= 9; r++ {
		assert.Equal(t, paddleGlyph, row(r)[1], "left paddle row %d", r)
		assert.Equal(t, paddleGlyph, row(r)[1+63], "right paddle row %d", r)
	}
	assert.Equal(t, emptyGlyph, row(5)[1])
	assert.Equal(t, emptyGlyph, row(10)[1])
}

func TestDrawHeaderFollowsPaddleSide(t *testing.T) {
	f := frameFor(config.RoleResponder)
	head := strings.Split(Draw(f), "\n")[0]
	assert.True(t, strings.HasPrefix(head, " Bob"))
	assert.True(t, strings.HasSuffix(head, "Alice "))
}

func TestDrawChat(t *testing.T) {
	f := frameFor(config.RoleInitiator)
	out := Draw(f)
	assert.NotContains(t, out, "CHAT")

	f.Chat = []string{"Alice:> hi", "Bob:> yo"}
	f.Composing = true
	f.Draft = "gg"
	out = Draw(f)
	assert.Contains(t, out, "=== CHAT")
	assert.Contains(t, out, "Alice:> hi\nBob:> yo\n> gg_\n")
}

func TestDrawBallOutsideField(t *testing.T) {
	f := frameFor(config.RoleInitiator)
	f.Ball.X = -20
	assert.NotContains(t, Draw(f), string(ballGlyph))

	f.Ball.X = 600
	assert.NotContains(t, Draw(f), string(ballGlyph))
}

// ---------------------------------------------------------------------------
// Keyboard
// ---------------------------------------------------------------------------

func newTestKeyboard(composer *chat.Composer) *Keyboard {
	k := NewKeyboard(composer)
	k.release = 30 * time.Millisecond
	return k
}

func runeKey(r rune) keys.Key {
	return keys.Key{Code: keys.RuneKey, Runes: []rune{r}}
}

func next(t *testing.T, k *Keyboard) game.Event {
	t.Helper()
	select {
	case ev := <-k.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event")
		return game.Event{}
	}
}

func assertNoEvent(t *testing.T, k *Keyboard) {
	t.Helper()
	select {
	case ev := <-k.Events():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestKeyboardMovement(t *testing.T) {
	testCases := []struct {
		name string
		key  keys.Key
		want game.Key
	}{
		{"w", runeKey('w'), game.KeyUp},
		{"W", runeKey('W'), game.KeyUp},
		{"arrow up", keys.Key{Code: keys.Up}, game.KeyUp},
		{"s", runeKey('s'), game.KeyDown},
		{"arrow down", keys.Key{Code: keys.Down}, game.KeyDown},
		{"space", keys.Key{Code: keys.Space}, game.KeyOther},
		{"other rune", runeKey('x'), game.KeyOther},
		{"tab", keys.Key{Code: keys.Tab}, game.KeyOther},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			k := newTestKeyboard(nil)

			stop, err := k.onKey(tc.key)
			require.NoError(t, err)
			assert.False(t, stop)

			assert.Equal(t, game.Event{Kind: game.EventKeyDown, Key: tc.want}, next(t, k))
			assert.Equal(t, game.Event{Kind: game.EventKeyUp, Key: tc.want}, next(t, k))
		})
	}
}

// TestKeyboardRepeatIsOneHold feeds auto-repeats of a held key: only one
// key-down is reported and the key-up follows the last repeat.
func TestKeyboardRepeatIsOneHold(t *testing.T) {
	k := newTestKeyboard(nil)

	for i := 0; i < 5; i++ {
		k.onKey(runeKey('w'))
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, game.Event{Kind: game.EventKeyDown, Key: game.KeyUp}, next(t, k))
	assertNoEvent(t, k)

	assert.Equal(t, game.Event{Kind: game.EventKeyUp, Key: game.KeyUp}, next(t, k))
}

func TestKeyboardSwitchKeys(t *testing.T) {
	k := newTestKeyboard(nil)

	k.onKey(runeKey('s'))
	k.onKey(runeKey('w'))
	assert.Equal(t, game.Event{Kind: game.EventKeyDown, Key: game.KeyDown}, next(t, k))
	assert.Equal(t, game.Event{Kind: game.EventKeyDown, Key: game.KeyUp}, next(t, k))
	assert.Equal(t, game.Event{Kind: game.EventKeyUp, Key: game.KeyUp}, next(t, k))
}

func TestKeyboardQuit(t *testing.T) {
	for _, key := range []keys.Key{{Code: keys.Escape}, {Code: keys.CtrlC}, runeKey('q'), runeKey('Q')} {
		k := newTestKeyboard(nil)
		stop, err := k.onKey(key)
		require.NoError(t, err)
		assert.True(t, stop, key.String())
		assert.Equal(t, game.Event{Kind: game.EventClose}, next(t, k))
	}
}

func TestKeyboardStopped(t *testing.T) {
	k := newTestKeyboard(nil)
	k.Stop()

	stop, err := k.onKey(runeKey('w'))
	require.NoError(t, err)
	assert.True(t, stop)
	assertNoEvent(t, k)
}

func TestKeyboardChat(t *testing.T) {
	outbox := &chat.Mailbox{}
	composer := chat.NewComposer(outbox)
	k := newTestKeyboard(composer)

	k.onKey(keys.Key{Code: keys.Enter})
	require.True(t, composer.Active())

	// Movement and quit keys type into the draft instead.
	for _, key := range []keys.Key{runeKey('h'), runeKey('i'), {Code: keys.Space}, runeKey('q'), {Code: keys.Backspace}, runeKey('w')} {
		stop, _ := k.onKey(key)
		assert.False(t, stop)
	}
	draft, _ := composer.Draft()
	assert.Equal(t, "hi w", draft)
	assertNoEvent(t, k)

	k.onKey(keys.Key{Code: keys.Enter})
	assert.False(t, composer.Active())
	msg, ok := outbox.Take()
	require.True(t, ok)
	assert.Equal(t, "hi w", msg)

	// Esc while composing cancels the draft rather than quitting.
	k.onKey(keys.Key{Code: keys.Enter})
	k.onKey(runeKey('x'))
	stop, _ := k.onKey(keys.Key{Code: keys.Escape})
	assert.False(t, stop)
	assert.False(t, composer.Active())
	assertNoEvent(t, k)
}

func TestKeyboardEnterReleasesPaddle(t *testing.T) {
	k := newTestKeyboard(chat.NewComposer(&chat.Mailbox{}))

	k.onKey(runeKey('s'))
	k.onKey(keys.Key{Code: keys.Enter})
	assert.Equal(t, game.Event{Kind: game.EventKeyDown, Key: game.KeyDown}, next(t, k))
	assert.Equal(t, game.Event{Kind: game.EventKeyUp, Key: game.KeyDown}, next(t, k))
}

// TestKeyboardOverflowKeepsLatest floods the queue while nobody reads it:
// the newest events survive, a close is never lost and nothing follows it.
func TestKeyboardOverflowKeepsLatest(t *testing.T) {
	k := newTestKeyboard(nil)
	k.release = time.Hour

	for i := 0; i < eventBufferSize*2; i++ {
		if i%2 == 0 {
			k.onKey(runeKey('w'))
		} else {
			k.onKey(runeKey('s'))
		}
	}
	k.releaseNow()

	var last game.Event
	for i := 0; i < eventBufferSize; i++ {
		last = next(t, k)
	}
	assertNoEvent(t, k)
	assert.Equal(t, game.Event{Kind: game.EventKeyUp, Key: game.KeyDown}, last)

	for i := 0; i < eventBufferSize*2; i++ {
		k.onKey(runeKey('w'))
		k.onKey(runeKey('s'))
	}
	k.onKey(runeKey('q'))
	k.onKey(runeKey('w'))
	k.releaseNow()

	for i := 0; i < eventBufferSize-1; i++ {
		next(t, k)
	}
	assert.Equal(t, game.Event{Kind: game.EventClose}, next(t, k))
	assertNoEvent(t, k)
}
