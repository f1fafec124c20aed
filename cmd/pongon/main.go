// PongOn: CLI entry point.
//
// Two-player Pong over a direct link. One player starts with -server and
// waits; the other starts with -client and connects. Each process simulates
// the game locally and the two trade paddle velocities every frame.
//
// Missing nickname and address are asked for interactively.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/pterm/pterm"

	"github.com/1ureka/pongon/internal/app"
	"github.com/1ureka/pongon/internal/config"
	"github.com/1ureka/pongon/internal/ui"
	"github.com/1ureka/pongon/internal/util"
)

var version = "dev"

const usage = `usage: pongon <mode> [options]
mode: -server, -client
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	role, err := config.ParseRole(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n%s", err, usage)
		os.Exit(1)
	}

	cfg, err := parseFlags(role, os.Args[2:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if cfg.Debug {
		util.EnableDebug()
	}

	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pterm.Info.Println(fmt.Sprintf("PongOn v%s", version))
	pterm.Println()

	if cfg.Nick == "" {
		if cfg.Nick, err = ui.AskNick(); err != nil {
			util.LogError("%v", err)
			os.Exit(1)
		}
	}
	if cfg.Role == config.RoleResponder && cfg.Addr == "" {
		if cfg.Addr, err = ui.AskAddress(cfg.Transport); err != nil {
			util.LogError("%v", err)
			os.Exit(1)
		}
	}
	cfg.Nick = config.TruncateNick(cfg.Nick)

	if err := cfg.Validate(); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	if err := app.Run(ctx, cfg); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	util.LogInfo("successfully closed connection")
}

// parseFlags reads the options that follow the mode word.
func parseFlags(role config.Role, args []string) (config.Config, error) {
	cfg := config.Default(role)

	fs := flag.NewFlagSet("pongon -"+string(role), flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.StringVar(&cfg.Nick, "nick", "", "Nickname shown to the other player (max 10 characters)")
	fs.StringVar(&cfg.Addr, "addr", "", "Server host (tcp) or URL (ws, webrtc); client only")
	fs.IntVar(&cfg.Port, "port", config.DefaultPort, "Listen port (server) or server port (client)")
	transport := fs.String("transport", string(config.TransportTCP), "Link type: tcp, ws or webrtc")
	fs.DurationVar(&cfg.Timeout, "timeout", config.DefaultTimeout, "Per-frame exchange deadline, 0 disables")
	fs.BoolVar(&cfg.Chat, "chat", false, "Enable chat; both players must set it or the game stops out of step")
	fs.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		err := fmt.Errorf("unexpected argument: %s", fs.Arg(0))
		fmt.Fprintln(os.Stderr, err)
		return cfg, err
	}

	kind, err := config.ParseTransport(*transport)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return cfg, err
	}
	cfg.Transport = kind
	return cfg, nil
}
