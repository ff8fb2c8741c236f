// Package replay provides a bar replayer that reads historical data from
// SQLite and emits it at configurable speed for backtesting.
package replay

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"regime-systemv1/internal/model"
)

// Replayer reads historical bars from a store and replays them at a
// configurable speed multiplier.
type Replayer struct {
	reader model.BarReader
}

// New creates a Replayer, typically backed by the SQLite reader.
func New(reader model.BarReader) *Replayer {
	return &Replayer{reader: reader}
}

// Run replays all bars for the given timeframe, emitting them into outCh.
// speed controls the playback rate: 1.0 = real-time, 10.0 = 10x, 0 = as fast
// as possible. fromTS filters bars to those after this Unix timestamp (0 = all).
func (r *Replayer) Run(ctx context.Context, tf int, fromTS int64, speed float64, outCh chan<- model.Bar) error {
	bars, err := r.reader.ReadAllBars(tf, fromTS)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		slog.Warn("replay found no bars")
		return nil
	}

	// Multiple tokens interleave; replay in strict time order.
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].TS.Before(bars[j].TS) })

	slog.Info("replay loaded", "bars", len(bars), "tf", tf, "speed", speed)

	var prevTS time.Time
	emitted := 0

	for _, b := range bars {
		select {
		case <-ctx.Done():
			slog.Info("replay cancelled", "emitted", emitted)
			return ctx.Err()
		default:
		}

		// Simulate time gaps between bars
		if speed > 0 && !prevTS.IsZero() {
			gap := b.TS.Sub(prevTS)
			if gap > 0 {
				scaledGap := time.Duration(float64(gap) / speed)
				// Cap max sleep to avoid very long waits
				if scaledGap > 5*time.Second {
					scaledGap = 5 * time.Second
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(scaledGap):
				}
			}
		}
		prevTS = b.TS

		select {
		case outCh <- b:
		case <-ctx.Done():
			return ctx.Err()
		}
		emitted++
	}

	slog.Info("replay completed", "emitted", emitted)
	return nil
}
