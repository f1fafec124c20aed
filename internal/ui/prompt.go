package ui

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/1ureka/pongon/internal/config"
	"github.com/1ureka/pongon/internal/util"
)

// readInput shows one interactive text prompt. Replaced in tests.
var readInput = func(prompt string) (string, error) {
	return pterm.DefaultInteractiveTextInput.
		WithDefaultText(prompt).
		Show()
}

// AskNick prompts until a non-blank nickname is entered. The result is cut
// to config.MaxNickLen characters. An unreadable terminal is an error.
func AskNick() (string, error) {
	return ask("Enter your nickname", "nickname must not be empty", config.TruncateNick)
}

// AskAddress prompts until a non-blank peer address is entered.
func AskAddress(kind config.TransportKind) (string, error) {
	hint := "Server address (e.g. 192.168.0.10)"
	if kind != config.TransportTCP {
		hint = "Server URL (e.g. 192.168.0.10:7171 or wss://example.devtunnels.ms)"
	}
	return ask(hint, "address must not be empty", strings.TrimSpace)
}

func ask(prompt, warning string, clean func(string) string) (string, error) {
	for {
		raw, err := readInput(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}

		if v := clean(raw); v != "" {
			pterm.Println()
			return v, nil
		}

		util.LogWarning(warning)
		pterm.Println()
	}
}
