package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(msgs ...[]byte) *messageReader {
	r := &messageReader{}
	r.next = func() ([]byte, error) {
		if len(msgs) == 0 {
			return nil, ErrLinkClosed
		}
		m := msgs[0]
		msgs = msgs[1:]
		return m, nil
	}
	return r
}

func TestMessageReaderSpansMessages(t *testing.T) {
	r := feed([]byte{1}, []byte{}, []byte{2, 3, 4}, []byte{5})

	buf := make([]byte, 3)
	n, err := r.readFull(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{1, 2, 3}, buf)

	buf = make([]byte, 2)
	n, err = r.readFull(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{4, 5}, buf)
}

func TestMessageReaderShort(t *testing.T) {
	r := feed([]byte{1, 2})

	n, err := r.readFull(make([]byte, 4))
	assert.Equal(t, 2, n)
	assert.True(t, errors.Is(err, ErrLinkClosed))
}
