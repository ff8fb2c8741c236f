// Package signalengine wires the live trading pipeline: Redis bar streams
// feed the indicator engine and regime strategy, fills go to the paper
// broker, journal and portfolio, and observers follow along over WebSocket.
package signalengine

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"regime-systemv1/config"
	"regime-systemv1/internal/execution"
	"regime-systemv1/internal/gateway"
	"regime-systemv1/internal/indicator"
	"regime-systemv1/internal/marketdata/bus"
	"regime-systemv1/internal/metrics"
	"regime-systemv1/internal/model"
	"regime-systemv1/internal/notification"
	"regime-systemv1/internal/portfolio"
	"regime-systemv1/internal/ringbuf"
	redisstore "regime-systemv1/internal/store/redis"
	sqlitestore "regime-systemv1/internal/store/sqlite"
	"regime-systemv1/internal/strategy"
)

// Service is the top-level orchestrator for the signal engine.
// It wires all dependencies, manages lifecycle, and coordinates goroutines.
type Service struct {
	cfg *config.Config

	engine   *indicator.Engine
	strat    *strategy.RegimeStrategy
	broker   *execution.PaperBroker
	book     *portfolio.Portfolio
	journal  *execution.Journal
	notifier notification.Notifier

	redisReader *redisstore.Reader
	redisWriter *redisstore.Writer
	sqlReader   *sqlitestore.Reader
	sqlWriter   *sqlitestore.Writer

	hub        *gateway.Hub
	prom       *metrics.Metrics
	health     *metrics.HealthStatus
	metricsSrv *metrics.Server
	gatewaySrv *http.Server

	ring   *ringbuf.Ring[model.Bar]
	fanout *bus.FanOut
	sigCh  chan strategy.Signal
	stream string
	lastTS int64 // last processed bar timestamp, rejects out-of-order bars

	// engineMu guards engine between the process loop and the snapshot loop.
	engineMu sync.Mutex
}

// New creates a Service from the given Config. Connects to Redis and SQLite;
// indicator state is restored later in Run.
func New(cfg *config.Config) (*Service, error) {
	svc := &Service{
		cfg:    cfg,
		prom:   metrics.NewMetrics(),
		health: metrics.NewHealthStatus(),
		book:   portfolio.New(),
		hub:    gateway.NewHub(),
		ring:   ringbuf.New[model.Bar](4096),
		fanout: bus.New(5000),
		sigCh:  make(chan strategy.Signal, 256),
	}
	svc.stream = "bars:" + model.Itoa(cfg.TF) + "s:" + cfg.Exchange + ":" + cfg.Token

	hostname, _ := os.Hostname()
	var err error
	svc.redisReader, err = redisstore.NewReader(redisstore.ReaderConfig{
		Addr:          cfg.RedisAddr,
		Password:      cfg.RedisPassword,
		ConsumerGroup: "sigengine",
		ConsumerName:  hostname,
	})
	if err != nil {
		return nil, err
	}

	svc.redisWriter, err = redisstore.NewWriter(redisstore.WriterConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		svc.redisReader.Close()
		return nil, err
	}

	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	svc.sqlWriter, err = sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		return nil, err
	}
	svc.sqlReader, err = sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}

	os.MkdirAll(filepath.Dir(cfg.JournalPath), 0o755)
	svc.journal, err = execution.NewJournal(cfg.JournalPath)
	if err != nil {
		return nil, err
	}

	svc.notifier = buildNotifier(cfg)
	svc.broker = execution.NewPaperBroker(cfg.Token, cfg.Exchange, cfg.StartingCash, cfg.SlippageBps)
	svc.broker.OnFill(svc.onFill)

	channel, quality, err := buildStrategyIndicators(cfg)
	if err != nil {
		return nil, err
	}
	svc.strat, err = strategy.NewRegimeStrategy(strategy.RegimeConfig{
		LowThreshold:  cfg.LowThreshold,
		HighThreshold: cfg.HighThreshold,
		BetweenFactor: cfg.BetweenFactor,
		Allocation:    cfg.Allocation,
		MaxOrders:     cfg.MaxOrders,
	}, channel, quality, svc.broker, svc.broker)
	if err != nil {
		return nil, err
	}

	svc.hub.OnClientChange = func(n int) { svc.prom.WSClientsConnected.Set(float64(n)) }
	svc.fanout.OnDrop = func(idx int) {
		svc.prom.FanoutDropsTotal.WithLabelValues(subscriberName(idx)).Inc()
	}
	svc.sqlWriter.OnCommit = func(took time.Duration) {
		svc.prom.SQLiteCommitDur.Observe(took.Seconds())
	}

	return svc, nil
}

// Run starts all subsystems and blocks until ctx is cancelled.
func (svc *Service) Run(ctx context.Context) error {
	cfg := svc.cfg
	slog.Info("starting signal engine",
		"instrument", cfg.Exchange+":"+cfg.Token, "tf", cfg.TF,
		"channel", cfg.ChannelType, "stream", svc.stream)

	if err := svc.restoreEngine(ctx); err != nil {
		return err
	}
	svc.warmUpStrategy()

	if err := svc.redisReader.EnsureConsumerGroup(ctx, []string{svc.stream}); err != nil {
		slog.Warn("consumer group setup failed", "err", err)
	}

	// Wire fan-out subscribers before the first bar flows.
	processCh := svc.fanout.Subscribe()
	persistCh := svc.fanout.Subscribe()
	observeCh := svc.fanout.Subscribe()

	fanoutIn := make(chan model.Bar, 5000)
	go svc.fanout.Run(ctx, fanoutIn)
	go svc.drainRing(ctx, fanoutIn)
	go svc.sqlWriter.Run(ctx, persistCh)
	go svc.processLoop(ctx, processCh)
	go svc.observeLoop(ctx, observeCh)
	go svc.snapshotLoop(ctx)
	go svc.redisWriter.RunSignals(ctx, svc.sigCh)

	// HTTP surfaces
	svc.metricsSrv = metrics.NewServer(cfg.MetricsAddr, svc.health)
	svc.metricsSrv.Start()
	svc.startGateway()
	go svc.health.StartLivenessChecker(ctx, svc.redisReader.Client(), svc.sqlWriter.DB(), 10*time.Second)

	// Recover unACKed bars from a previous crash, then consume live.
	consumeCh := make(chan model.Bar, 5000)
	go svc.consumeLoop(ctx, consumeCh)
	if err := svc.redisReader.RecoverPending(ctx, []string{svc.stream}, consumeCh); err != nil {
		slog.Warn("pending recovery failed", "err", err)
	}
	go func() {
		if err := svc.redisReader.ConsumeBars(ctx, []string{svc.stream}, consumeCh); err != nil && ctx.Err() == nil {
			slog.Error("bar consumer exited", "err", err)
		}
	}()

	slog.Info("signal engine running", "snapshot_interval_s", cfg.SnapshotIntervalS)

	<-ctx.Done()
	svc.shutdown()
	return nil
}

// consumeLoop moves bars from the Redis consumer into the SPSC ring,
// dropping on overflow rather than backpressuring the stream reader.
func (svc *Service) consumeLoop(ctx context.Context, in <-chan model.Bar) {
	for {
		select {
		case <-ctx.Done():
			return
		case bar, ok := <-in:
			if !ok {
				return
			}
			if !svc.ring.Push(bar) {
				svc.prom.RingBufOverflow.Inc()
			}
		}
	}
}

// drainRing pops bars from the ring and feeds the fan-out input.
func (svc *Service) drainRing(ctx context.Context, out chan<- model.Bar) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				bar, ok := svc.ring.Pop()
				if !ok {
					break
				}
				select {
				case out <- bar:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// onFill fans a broker fill out to the portfolio, journal, notifier and gauges.
func (svc *Service) onFill(f execution.Fill) {
	svc.book.ApplyFill(f)
	svc.prom.FillsTotal.Inc()
	svc.prom.EquityPaise.Set(float64(svc.broker.Equity()))

	if err := svc.journal.RecordFill(f); err != nil {
		slog.Warn("journal write failed", "err", err, "order_id", f.OrderID)
	}
	if svc.notifier != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		svc.notifier.Send(ctx, notification.FillAlert(f))
	}
}

// shutdown saves a final snapshot and closes connections.
func (svc *Service) shutdown() {
	slog.Info("shutdown signal received, saving final snapshot")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutCancel()

	svc.engineMu.Lock()
	snap, err := indicator.SnapshotEngine(svc.engine, "shutdown")
	svc.engineMu.Unlock()
	if err == nil {
		if err := svc.redisReader.WriteSnapshot(shutCtx, svc.cfg.SnapshotKey, snap); err != nil {
			slog.Warn("redis final snapshot failed", "err", err)
		}
		if err := svc.sqlWriter.SaveSnapshot(snap); err != nil {
			slog.Warn("sqlite final snapshot failed", "err", err)
		}
	}

	if svc.gatewaySrv != nil {
		svc.gatewaySrv.Shutdown(shutCtx)
	}
	if svc.metricsSrv != nil {
		svc.metricsSrv.Stop(shutCtx)
	}
	svc.journal.Close()
	svc.sqlReader.Close()
	svc.sqlWriter.Close()
	svc.redisWriter.Close()
	svc.redisReader.Close()

	slog.Info("shutdown complete")
}

// startGateway serves the observer WebSocket endpoint.
func (svc *Service) startGateway() {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", svc.hub.HandleWS)

	svc.gatewaySrv = &http.Server{
		Addr:              svc.cfg.GatewayAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("gateway listening", "addr", svc.cfg.GatewayAddr)
		if err := svc.gatewaySrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("gateway server failed", "err", err)
		}
	}()
}

func subscriberName(idx int) string {
	switch idx {
	case 0:
		return "process"
	case 1:
		return "sqlite"
	case 2:
		return "gateway"
	}
	return "sub-" + model.Itoa(idx)
}

func buildNotifier(cfg *config.Config) notification.Notifier {
	var backends []notification.Notifier
	if cfg.WebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		backends = append(backends, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if len(backends) == 0 {
		return notification.NewLogNotifier()
	}
	return notification.NewMultiNotifier(backends...)
}

// buildStrategyIndicators constructs the strategy's own channel and
// trend-quality instances from config.
func buildStrategyIndicators(cfg *config.Config) (indicator.Channel, indicator.Indicator, error) {
	var channel indicator.Channel
	var err error
	switch cfg.ChannelType {
	case "BOLL":
		channel, err = indicator.NewBollinger(cfg.BollLength, cfg.BollMult)
	default:
		channel, err = indicator.NewLinRegChannel(cfg.LinRegCount, cfg.UpperDeviation, cfg.LowerDeviation)
	}
	if err != nil {
		return nil, nil, err
	}

	quality, err := indicator.NewTrendQuality(
		cfg.FastLength, cfg.SlowLength, cfg.TrendLength, cfg.NoiseLength,
		cfg.CorrectionFactor, indicator.NoiseMode(cfg.NoiseMode))
	if err != nil {
		return nil, nil, err
	}
	return channel, quality, nil
}
