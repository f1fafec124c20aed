package util

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
)

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "02 Jan 15:04:05"
	pterm.DefaultLogger.MaxWidth = 1000
	pterm.DefaultLogger.Writer = os.Stderr
}

// Leveled logging functions backed by the pterm default logger.
// All output goes to stderr; stdout belongs to the playfield.

func LogDebug(format string, args ...interface{}) {
	pterm.DefaultLogger.Debug(fmt.Sprintf(format, args...))
}

func LogInfo(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogSuccess(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogWarning(format string, args ...interface{}) {
	pterm.DefaultLogger.Warn(fmt.Sprintf(format, args...))
}

func LogError(format string, args ...interface{}) {
	pterm.DefaultLogger.Error(fmt.Sprintf(format, args...))
}

// Logf is a debug-level log tagged with a session identifier, e.g. "[1a2b3c4d] ...".
func Logf(tag uint32, format string, args ...interface{}) {
	pterm.DefaultLogger.Debug(fmt.Sprintf("[%08x] ", tag) + fmt.Sprintf(format, args...))
}

// EnableDebug configures the logger to show debug messages.
func EnableDebug() {
	pterm.DefaultLogger.Level = pterm.LogLevelDebug
}

// SetLogWriter redirects log output. The terminal renderer uses it to keep
// log lines from tearing the playfield while the game is running.
func SetLogWriter(w io.Writer) {
	pterm.DefaultLogger.Writer = w
}
