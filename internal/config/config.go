// Package config holds the CLI configuration types.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Role represents the peer role chosen on the command line. It only decides
// who listens and who sends first; gameplay is symmetric.
type Role string

const (
	RoleInitiator Role = "server" // listens, sends first
	RoleResponder Role = "client" // connects, receives first
)

// TransportKind selects the link that carries the byte stream.
type TransportKind string

const (
	TransportTCP    TransportKind = "tcp"
	TransportWS     TransportKind = "ws"
	TransportWebRTC TransportKind = "webrtc"
)

const (
	DefaultPort    = 7171
	DefaultTimeout = 10 * time.Second
	MaxNickLen     = 10 // runes
	MaxChatLen     = 50 // runes
)

// Config stores all parameters gathered from CLI flags and interactive prompts.
type Config struct {
	Role      Role
	Transport TransportKind
	Nick      string
	Addr      string        // Responder: peer host (tcp) or URL (ws, webrtc)
	Port      int           // Initiator: listen port; Responder (tcp): peer port
	Timeout   time.Duration // per-exchange deadline, 0 disables
	Chat      bool
	Debug     bool
}

// Default returns a Config with every optional field set to its default.
func Default(role Role) Config {
	return Config{
		Role:      role,
		Transport: TransportTCP,
		Port:      DefaultPort,
		Timeout:   DefaultTimeout,
	}
}

// ParseRole maps the CLI mode word to a Role.
func ParseRole(arg string) (Role, error) {
	switch arg {
	case "-server":
		return RoleInitiator, nil
	case "-client":
		return RoleResponder, nil
	default:
		return "", fmt.Errorf("unknown argument: %s", arg)
	}
}

// ParseTransport maps the -transport flag value to a TransportKind.
func ParseTransport(s string) (TransportKind, error) {
	switch k := TransportKind(strings.ToLower(strings.TrimSpace(s))); k {
	case TransportTCP, TransportWS, TransportWebRTC:
		return k, nil
	default:
		return "", fmt.Errorf("invalid -transport %q: must be tcp, ws or webrtc", s)
	}
}

// TruncateNick trims surrounding whitespace and cuts the nickname to MaxNickLen runes.
func TruncateNick(nick string) string {
	return truncateRunes(strings.TrimSpace(nick), MaxNickLen)
}

// Validate checks that the config is complete for its role and transport.
func (c *Config) Validate() error {
	if c.Role != RoleInitiator && c.Role != RoleResponder {
		return fmt.Errorf("invalid role %q", c.Role)
	}
	if _, err := ParseTransport(string(c.Transport)); err != nil {
		return err
	}
	if c.Nick == "" {
		return fmt.Errorf("nickname must not be empty")
	}
	if utf8.RuneCountInString(c.Nick) > MaxNickLen {
		return fmt.Errorf("nickname longer than %d characters", MaxNickLen)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.Role == RoleResponder && c.Addr == "" {
		return fmt.Errorf("missing peer address for client role")
	}
	// ws/webrtc clients carry the port inside the URL.
	if c.Role == RoleInitiator || c.Transport == TransportTCP {
		if c.Port < 0 || c.Port > 65535 {
			return fmt.Errorf("invalid port %d (must be 0~65535)", c.Port)
		}
	}
	return nil
}

// ListenAddr returns the address the Initiator binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// PeerAddr returns the host:port a TCP Responder dials.
func (c *Config) PeerAddr() string {
	if _, _, err := net.SplitHostPort(c.Addr); err == nil {
		return c.Addr
	}
	return net.JoinHostPort(c.Addr, strconv.Itoa(c.Port))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
