package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"regime-systemv1/internal/model"
	"regime-systemv1/internal/strategy"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// Stream trimming: roughly one trading week of 1m entries.
	signalStreamMaxLen    = 5000
	indicatorStreamMaxLen = 10000
	defaultLatestTTL      = 30 * time.Minute
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string
	Password string
	DB       int
}

// Writer publishes trade signals and indicator results to Redis Streams
// so downstream consumers (execution bridges, dashboards) can tail them.
type Writer struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// NewWriter creates a new Redis Writer and pings the server.
func NewWriter(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis writer connected", "addr", cfg.Addr)
	return &Writer{client: client}, nil
}

// SignalStreamKey returns the stream key signals are published to.
func SignalStreamKey(exchange, token string) string {
	return "signals:" + exchange + ":" + token
}

// RunSignals drains the signal channel and publishes each signal.
// Blocks until ctx is cancelled or the channel is closed.
func (w *Writer) RunSignals(ctx context.Context, sigCh <-chan strategy.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}
			if err := w.PublishSignal(ctx, sig); err != nil {
				slog.Error("redis signal publish failed", "err", err, "tag", sig.Tag)
			}
		}
	}
}

// PublishSignal writes one signal as XADD + PUBLISH in a single pipeline.
func (w *Writer) PublishSignal(ctx context.Context, sig strategy.Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	stream := SignalStreamKey(sig.Exchange, sig.Token)
	pipe := w.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: stream,
		MaxLen: signalStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": string(data)},
	})
	pipe.Publish(ctx, "pub:"+stream, string(data))
	_, err = pipe.Exec(ctx)
	return err
}

// WriteIndicatorBatch writes multiple indicator results in a single pipeline:
// XADD to the per-indicator stream plus a latest-value SET for dashboards.
func (w *Writer) WriteIndicatorBatch(ctx context.Context, results []model.IndicatorResult) {
	if len(results) == 0 {
		return
	}

	pipe := w.client.Pipeline()
	for i := range results {
		ind := &results[i]
		if !ind.Ready {
			continue
		}

		data := string(ind.JSON())
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: ind.StreamKey(),
			MaxLen: indicatorStreamMaxLen,
			Approx: true,
			Values: map[string]interface{}{"data": data},
		})
		latestKey := "ind:" + ind.Name + ":" + model.Itoa(ind.TF) + "s:latest:" + ind.Exchange + ":" + ind.Token
		pipe.Set(ctx, latestKey, data, defaultLatestTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("redis indicator pipeline failed", "err", err, "count", len(results))
	}
}

// PublishBar writes a bar to its stream. Used by replay tooling to seed a
// local Redis for end-to-end runs.
func (w *Writer) PublishBar(ctx context.Context, bar model.Bar) error {
	return w.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: bar.StreamKey(),
		MaxLen: indicatorStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": string(bar.JSON())},
	}).Err()
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
