package session

import (
	"context"
	"fmt"

	"github.com/1ureka/pongon/internal/config"
	"github.com/1ureka/pongon/internal/signaling"
	"github.com/1ureka/pongon/internal/transport"
	"github.com/1ureka/pongon/internal/util"
)

// Open establishes the link for cfg's role and transport and returns a
// Session ready for ExchangeIdentity.
func Open(ctx context.Context, cfg config.Config) (*Session, error) {
	var (
		link transport.Link
		err  error
	)

	switch cfg.Role {
	case config.RoleInitiator:
		link, err = listen(ctx, cfg)
	case config.RoleResponder:
		link, err = connect(ctx, cfg)
	default:
		return nil, fmt.Errorf("invalid role %q", cfg.Role)
	}
	if err != nil {
		return nil, err
	}

	s := New(cfg.Role, link, Options{Timeout: cfg.Timeout})
	util.Logf(s.Tag(), "%s link up: %s <-> %s", cfg.Transport, link.LocalAddr(), link.RemoteAddr())
	return s, nil
}

// listen binds and blocks until exactly one peer has connected.
func listen(ctx context.Context, cfg config.Config) (transport.Link, error) {
	util.LogInfo("booting as server...")

	switch cfg.Transport {
	case config.TransportTCP:
		ln, err := transport.Listen(cfg.ListenAddr())
		if err != nil {
			return nil, err
		}
		util.LogInfo("waiting for client on %s (tcp)...", ln.Addr())
		return ln.Accept(ctx)

	case config.TransportWS:
		ln, err := transport.ListenWS(cfg.ListenAddr())
		if err != nil {
			return nil, err
		}
		util.LogInfo("waiting for client on ws://%s%s ...", ln.Addr(), transport.WSPath)
		return ln.Accept(ctx)

	case config.TransportWebRTC:
		return signaling.EstablishAsHost(ctx, cfg.ListenAddr())

	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
}

// connect dials the Initiator.
func connect(ctx context.Context, cfg config.Config) (transport.Link, error) {
	util.LogInfo("booting as client...")

	switch cfg.Transport {
	case config.TransportTCP:
		return transport.Dial(ctx, cfg.PeerAddr())

	case config.TransportWS:
		wsURL, err := transport.NormalizeWSURL(cfg.Addr, cfg.Port)
		if err != nil {
			return nil, err
		}
		return transport.DialWS(ctx, wsURL)

	case config.TransportWebRTC:
		wsURL, err := transport.NormalizeWSURL(cfg.Addr, cfg.Port)
		if err != nil {
			return nil, err
		}
		return signaling.EstablishAsClient(ctx, wsURL)

	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
}
