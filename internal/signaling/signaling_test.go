package signaling

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1ureka/pongon/internal/transport"
)

func startServer(t *testing.T, pin string) (*server, string) {
	t.Helper()

	srv := newServer(pin)
	port, err := srv.start("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(srv.close)

	base := "ws://127.0.0.1:" + strconv.Itoa(port) + transport.WSPath
	return srv, base
}

func TestGeneratePIN(t *testing.T) {
	for _, n := range []int{1, 4, pinLength} {
		pin := generatePIN(n)
		assert.Len(t, pin, n)
		for _, c := range pin {
			assert.True(t, c >= '0' && c <= '9', "non-digit %q in %q", c, pin)
		}
	}
}

func TestServerRejectsWrongPIN(t *testing.T) {
	_, base := startServer(t, "123456")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	testCases := []struct {
		name  string
		query string
	}{
		{"missing", ""},
		{"wrong", "?pin=654321"},
		{"prefix", "?pin=123"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.DialContext(ctx, base+tc.query, nil)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestServerAcceptsFirstClientOnly(t *testing.T) {
	srv, base := startServer(t, "0000")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, err := connect(ctx, base+"?pin=0000")
	require.NoError(t, err)
	defer first.Close()

	hostSide, err := srv.waitForClient(ctx)
	require.NoError(t, err)
	defer hostSide.Close()

	// Messages travel as JSON in both directions.
	require.NoError(t, first.WriteJSON(message{Type: msgTypeOffer, SDP: "v=0"}))
	var got message
	require.NoError(t, hostSide.ReadJSON(&got))
	assert.Equal(t, message{Type: msgTypeOffer, SDP: "v=0"}, got)

	// Fill the slot again so the next client is turned away.
	srv.connCh <- nil
	second, err := connect(ctx, base+"?pin=0000")
	require.NoError(t, err)
	defer second.Close()

	_, _, err = second.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
}

func TestWaitForClientCancelled(t *testing.T) {
	srv, _ := startServer(t, "1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := srv.waitForClient(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConnectError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := connect(ctx, "ws://127.0.0.1:1/ws")
	var ce *transport.ConnectError
	assert.ErrorAs(t, err, &ce)
}

func TestStartBindError(t *testing.T) {
	taken := newServer("1")
	port, err := taken.start("127.0.0.1:0")
	require.NoError(t, err)
	defer taken.close()

	srv := newServer("1")
	_, err = srv.start("127.0.0.1:" + strconv.Itoa(port))
	var be *transport.BindError
	assert.ErrorAs(t, err, &be)
}

func TestJoinHint(t *testing.T) {
	hint := joinHint(7171, "424242")
	assert.Contains(t, hint, "7171")
	assert.Contains(t, hint, "pin=424242")
}

// TestEstablishLoopback brings both sides up repeatedly. Whichever side opens
// first hangs up the WebSocket; the other must still finish.
func TestEstablishLoopback(t *testing.T) {
	for i := 0; i < 3; i++ {
		t.Run("attempt "+strconv.Itoa(i), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			h, err := Listen("127.0.0.1:0")
			require.NoError(t, err)
			url := "ws://127.0.0.1:" + strconv.Itoa(h.Port()) + transport.WSPath + "?pin=" + h.PIN()

			hostCh := make(chan error, 1)
			var host *transport.PeerLink
			go func() {
				var err error
				host, err = h.Accept(ctx)
				hostCh <- err
			}()

			client, err := EstablishAsClient(ctx, url)
			require.NoError(t, err)
			defer client.Close()

			select {
			case err := <-hostCh:
				require.NoError(t, err)
			case <-time.After(handoffGrace + 5*time.Second):
				t.Fatal("host never finished signaling")
			}
			defer host.Close()

			// Bytes flow both ways over the DataChannel.
			require.NoError(t, host.Send([]byte("ping")))
			buf := make([]byte, 4)
			require.NoError(t, client.Receive(buf))
			assert.Equal(t, "ping", string(buf))

			require.NoError(t, client.Send([]byte("pong")))
			require.NoError(t, host.Receive(buf))
			assert.Equal(t, "pong", string(buf))
		})
	}
}

func TestNegotiateFailsOnEarlyHangup(t *testing.T) {
	srv, base := startServer(t, "42")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := connect(ctx, base+"?pin=42")
	require.NoError(t, err)
	defer conn.Close()

	hostSide, err := srv.waitForClient(ctx)
	require.NoError(t, err)
	require.NoError(t, hostSide.Close())

	// No offer ever arrived, so the hang-up is fatal.
	_, err = negotiate(ctx, conn, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, errHangup)
}

func TestHostCloseBeforeClient(t *testing.T) {
	h, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	assert.Len(t, h.PIN(), pinLength)
	assert.NotZero(t, h.Port())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Accept(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
