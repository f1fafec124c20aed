package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	testCases := []struct {
		arg     string
		want    Role
		wantErr bool
	}{
		{"-server", RoleInitiator, false},
		{"-client", RoleResponder, false},
		{"server", "", true},
		{"--server", "", true},
		{"", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.arg, func(t *testing.T) {
			got, err := ParseRole(tc.arg)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseTransport(t *testing.T) {
	for _, s := range []string{"tcp", "WS", " webrtc "} {
		_, err := ParseTransport(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseTransport("udp")
	assert.Error(t, err)
}

func TestTruncateNick(t *testing.T) {
	assert.Equal(t, "Alice", TruncateNick("  Alice "))
	assert.Equal(t, "abcdefghij", TruncateNick("abcdefghijklmnop"))
	assert.Equal(t, "ニックネームニックネ", TruncateNick("ニックネームニックネーム"))
}

func TestValidate(t *testing.T) {
	base := Default(RoleResponder)
	base.Nick = "Bob"
	base.Addr = "127.0.0.1"
	require.NoError(t, base.Validate())

	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty nick", func(c *Config) { c.Nick = "" }},
		{"long nick", func(c *Config) { c.Nick = "abcdefghijk" }},
		{"missing addr", func(c *Config) { c.Addr = "" }},
		{"bad port", func(c *Config) { c.Port = 70000 }},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }},
		{"bad transport", func(c *Config) { c.Transport = "carrier-pigeon" }},
		{"bad role", func(c *Config) { c.Role = "spectator" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestPeerAddr(t *testing.T) {
	c := Default(RoleResponder)
	c.Addr = "10.0.0.2"
	assert.Equal(t, "10.0.0.2:7171", c.PeerAddr())

	c.Addr = "10.0.0.2:9000"
	assert.Equal(t, "10.0.0.2:9000", c.PeerAddr())

	c.Addr = "::1"
	assert.Equal(t, "[::1]:7171", c.PeerAddr())
}
