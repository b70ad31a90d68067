package util

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Relay snapshot
// ──────────────────────────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of relay activity. Messages and Bytes are
// cumulative since process start.
type Snapshot struct {
	Rooms        int
	Participants int
	Messages     int64
	Bytes        int64
}

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs relay activity every
// interval, skipping quiet intervals. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context, interval time.Duration, read func() Snapshot) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var prev Snapshot
		for {
			select {
			case <-ticker.C:
				cur := read()
				if cur != prev {
					secs := interval.Seconds()
					msgRate := float64(cur.Messages-prev.Messages) / secs
					byteRate := float64(cur.Bytes-prev.Bytes) / secs
					pterm.DefaultLogger.Info(formatStats(cur, msgRate, byteRate))
				}
				prev = cur

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a fixed-width (8 chars) string,
// e.g. "99.0   B", " 1.5 KiB", " 0.1 MiB".
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < len(byteUnits)-1 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats renders a snapshot and its per-second rates for the logger.
func formatStats(s Snapshot, msgRate, byteRate float64) string {
	return fmt.Sprintf("Rooms: %2d | Peers: %2d | Msgs: %5.1f/s | Signal: %s/s",
		s.Rooms,
		s.Participants,
		msgRate,
		formatBytes(byteRate),
	)
}
