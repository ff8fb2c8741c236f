package signalengine

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"regime-systemv1/internal/indicator"
	"regime-systemv1/internal/model"
)

// engineConfig builds the published indicator set: the channel the strategy
// trades plus the trend-quality series, so dashboards see the same values
// the strategy acts on.
func (svc *Service) engineConfig() indicator.EngineConfig {
	cfg := svc.cfg

	var channelCfg indicator.IndicatorConfig
	if cfg.ChannelType == "BOLL" {
		channelCfg = indicator.IndicatorConfig{
			Type:   "BOLL",
			Period: cfg.BollLength,
			Mult:   cfg.BollMult,
		}
	} else {
		channelCfg = indicator.IndicatorConfig{
			Type:     "LINREG",
			Period:   cfg.LinRegCount,
			UpperDev: cfg.UpperDeviation,
			LowerDev: cfg.LowerDeviation,
		}
	}

	return indicator.EngineConfig{
		TF: cfg.TF,
		Indicators: []indicator.IndicatorConfig{
			channelCfg,
			{
				Type:        "TQ",
				Fast:        cfg.FastLength,
				Slow:        cfg.SlowLength,
				TrendLength: cfg.TrendLength,
				NoiseLength: cfg.NoiseLength,
				Correction:  cfg.CorrectionFactor,
				NoiseMode:   cfg.NoiseMode,
			},
		},
	}
}

// restoreEngine restores the indicator engine from the Redis checkpoint,
// falling back to the SQLite snapshot, then to a cold start backfilled from
// stored bars.
func (svc *Service) restoreEngine(ctx context.Context) error {
	snap, err := svc.redisReader.ReadSnapshot(ctx, svc.cfg.SnapshotKey)
	if err != nil {
		slog.Warn("redis snapshot read failed", "err", err)
	}
	if snap == nil {
		snap, err = svc.sqlReader.ReadLatestSnapshot()
		if err != nil {
			slog.Warn("sqlite snapshot read failed", "err", err)
		}
	}

	svc.engine, err = indicator.RestoreEngine(svc.engineConfig(), snap)
	if err != nil {
		return err
	}

	if snap == nil {
		svc.backfillEngine()
	} else {
		slog.Info("indicator engine restored from snapshot", "stream_id", snap.StreamID)
	}
	return nil
}

// backfillEngine replays stored bars through a cold engine so published
// indicators are warm before the first live bar.
func (svc *Service) backfillEngine() {
	bars, err := svc.sqlReader.ReadBars(svc.cfg.Exchange, svc.cfg.Token, svc.cfg.TF, 0)
	if err != nil {
		slog.Warn("engine backfill read failed", "err", err)
		return
	}
	for _, bar := range bars {
		svc.engine.Process(bar)
	}
	if len(bars) > 0 {
		slog.Info("indicator engine backfilled", "bars", len(bars))
	}
}

// warmUpStrategy replays stored bars through the strategy's own indicators
// without trading, so a restart does not re-enter positions on stale state.
func (svc *Service) warmUpStrategy() {
	bars, err := svc.sqlReader.ReadBars(svc.cfg.Exchange, svc.cfg.Token, svc.cfg.TF, 0)
	if err != nil {
		slog.Warn("strategy warm-up read failed", "err", err)
		return
	}
	svc.strat.WarmUp(bars)
	if len(bars) > 0 {
		svc.lastTS = bars[len(bars)-1].TS.Unix()
		slog.Info("strategy warmed up", "bars", len(bars), "last_ts", svc.lastTS)
	}
}

// processLoop is the trading hot path: one goroutine owns indicator state,
// the strategy and the stale-bar cursor.
func (svc *Service) processLoop(ctx context.Context, barCh <-chan model.Bar) {
	for {
		select {
		case <-ctx.Done():
			return
		case bar, ok := <-barCh:
			if !ok {
				return
			}
			svc.processBar(ctx, bar)
		}
	}
}

func (svc *Service) processBar(ctx context.Context, bar model.Bar) {
	if bar.Token != svc.cfg.Token || bar.Exchange != svc.cfg.Exchange || bar.TF != svc.cfg.TF {
		return
	}
	ts := bar.TS.Unix()
	if ts <= svc.lastTS {
		svc.prom.StaleBars.Inc()
		return
	}
	svc.lastTS = ts

	svc.prom.BarsTotal.Inc()
	svc.health.SetLastBarTime(bar.TS)

	svc.broker.UpdatePrice(bar)
	svc.book.UpdatePrice(bar)

	start := time.Now()
	svc.engineMu.Lock()
	results := svc.engine.Process(bar)
	svc.engineMu.Unlock()
	svc.prom.IndicatorComputeDur.Observe(time.Since(start).Seconds())
	svc.prom.IndicatorsTotal.Add(float64(len(results)))

	if len(results) > 0 {
		wstart := time.Now()
		svc.redisWriter.WriteIndicatorBatch(ctx, results)
		svc.prom.RedisWriteDur.Observe(time.Since(wstart).Seconds())
		for _, r := range results {
			if r.Ready {
				svc.hub.BroadcastIndicator(r)
			}
		}
	}

	signals := svc.strat.OnBar(bar)
	for _, sig := range signals {
		svc.prom.SignalsTotal.WithLabelValues(string(sig.Action)).Inc()
		svc.prom.OrdersTotal.WithLabelValues(sig.Tag).Inc()
		select {
		case svc.sigCh <- sig:
		default:
			slog.Warn("signal publish queue full, dropping", "tag", sig.Tag)
		}
		svc.hub.BroadcastSignal(sig)
		slog.Info("signal emitted",
			"action", sig.Action, "qty", sig.Qty, "tag", sig.Tag,
			"price", model.Rupees(sig.Price))
	}

	svc.prom.EquityPaise.Set(float64(svc.broker.Equity()))
	if len(signals) > 0 {
		svc.hub.BroadcastSummary(svc.book.GetSummary())
	}
}

// observeLoop pushes every bar to WebSocket observers.
func (svc *Service) observeLoop(ctx context.Context, barCh <-chan model.Bar) {
	for {
		select {
		case <-ctx.Done():
			return
		case bar, ok := <-barCh:
			if !ok {
				return
			}
			svc.hub.BroadcastBar(bar)
		}
	}
}

// snapshotLoop checkpoints indicator state to Redis and SQLite periodically.
func (svc *Service) snapshotLoop(ctx context.Context) {
	interval := time.Duration(svc.cfg.SnapshotIntervalS) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			svc.engineMu.Lock()
			snap, err := indicator.SnapshotEngine(svc.engine, checkpointStreamID())
			svc.engineMu.Unlock()
			if err != nil {
				slog.Warn("snapshot build failed", "err", err)
				continue
			}
			if err := svc.redisReader.WriteSnapshot(ctx, svc.cfg.SnapshotKey, snap); err != nil {
				slog.Warn("redis snapshot write failed", "err", err)
			}
			if err := svc.sqlWriter.SaveSnapshot(snap); err != nil {
				slog.Warn("sqlite snapshot write failed", "err", err)
			}
			svc.prom.SnapshotDur.Observe(time.Since(start).Seconds())
			svc.prom.SnapshotsTotal.Inc()
		}
	}
}

// checkpointStreamID returns a time-based marker recorded with each snapshot.
func checkpointStreamID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-0"
}
