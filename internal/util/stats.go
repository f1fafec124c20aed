package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide frame/traffic counter.
var Stats = &stats{}

type stats struct {
	Frames    atomic.Int64 // simulated ticks since process start
	Exchanges atomic.Int64 // completed sync exchanges
	BytesSent atomic.Int64 // cumulative bytes written to the link
	BytesRecv atomic.Int64 // cumulative bytes read from the link
}

func (s *stats) AddFrame()     { s.Frames.Add(1) }
func (s *stats) AddExchange()  { s.Exchanges.Add(1) }
func (s *stats) AddSent(n int) { s.BytesSent.Add(int64(n)) }
func (s *stats) AddRecv(n int) { s.BytesRecv.Add(int64(n)) }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

const statsInterval = 10 * time.Second

// StartStatsReporter launches a goroutine that logs frame rate and link
// throughput every 10 seconds at debug level. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()

		var prevFrames, prevSent, prevRecv int64
		for {
			select {
			case <-ticker.C:
				frames := Stats.Frames.Load()
				sent := Stats.BytesSent.Load()
				recv := Stats.BytesRecv.Load()

				secs := statsInterval.Seconds()
				fps := float64(frames-prevFrames) / secs
				outS := float64(sent-prevSent) / secs
				inS := float64(recv-prevRecv) / secs

				pterm.DefaultLogger.Debug(formatStats(fps, inS, outS))

				prevFrames = frames
				prevSent = sent
				prevRecv = recv

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats returns a formatted string of the current stats for display in the logger.
func formatStats(fps, inS, outS float64) string {
	return fmt.Sprintf("FPS: %5.1f | In: %s/s | Out: %s/s",
		fps,
		formatBytes(inS),
		formatBytes(outS),
	)
}
