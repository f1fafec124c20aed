package ui

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1ureka/pongon/internal/config"
)

// scriptedInput answers prompts from a fixed list, then reports EOF.
func scriptedInput(t *testing.T, answers ...string) *int {
	t.Helper()

	calls := 0
	orig := readInput
	readInput = func(string) (string, error) {
		calls++
		if len(answers) == 0 {
			return "", io.EOF
		}
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}
	t.Cleanup(func() { readInput = orig })
	return &calls
}

func TestAskNickRetriesBlank(t *testing.T) {
	calls := scriptedInput(t, "   ", "", "Bartholomew")

	nick, err := AskNick()
	require.NoError(t, err)
	assert.Equal(t, "Bartholome", nick)
	assert.Equal(t, 3, *calls)
}

func TestAskAddressTrims(t *testing.T) {
	scriptedInput(t, "  10.0.0.2 ")

	addr, err := AskAddress(config.TransportTCP)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", addr)
}

func TestAskStopsWhenInputEnds(t *testing.T) {
	calls := scriptedInput(t, "")

	_, err := AskNick()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, *calls)

	_, err = AskAddress(config.TransportWS)
	assert.ErrorIs(t, err, io.EOF)
}
