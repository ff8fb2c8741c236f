package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	JournalPath   string
	MetricsAddr   string
	GatewayAddr   string

	// Notifications
	WebhookURL       string
	TelegramBotToken string
	TelegramChatID   string

	// Instrument
	Token    string
	Exchange string
	TF       int // bar interval in seconds

	// Channel indicator: LINREG (regression bands) or BOLL (Bollinger bands)
	ChannelType    string
	LinRegCount    int
	UpperDeviation float64
	LowerDeviation float64
	BollLength     int
	BollMult       float64

	// Trend quality
	FastLength       int
	SlowLength       int
	TrendLength      int
	NoiseLength      int
	CorrectionFactor float64
	NoiseMode        string

	// Regime thresholds
	LowThreshold  float64
	HighThreshold float64
	BetweenFactor float64
	Allocation    float64
	MaxOrders     int

	// Paper execution
	StartingCash int64 // paise
	SlippageBps  int64

	// Snapshotting
	SnapshotIntervalS int
	SnapshotKey       string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/bars.db"),
		JournalPath:   getEnv("JOURNAL_PATH", "data/fills.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8080"),

		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		// Default: NIFTY 50 index token on NSE, 1-minute bars
		Token:    getEnv("TOKEN", "99926000"),
		Exchange: getEnv("EXCHANGE", "NSE"),
		TF:       getInt("TF", 60),

		ChannelType:    getEnv("CHANNEL_TYPE", "LINREG"),
		LinRegCount:    getInt("LINREG_COUNT", 100),
		UpperDeviation: getFloat("UPPER_DEVIATION", 2.0),
		LowerDeviation: getFloat("LOWER_DEVIATION", 2.0),
		BollLength:     getInt("BOLL_LENGTH", 20),
		BollMult:       getFloat("BOLL_MULT", 2.0),

		FastLength:       getInt("FAST_LENGTH", 7),
		SlowLength:       getInt("SLOW_LENGTH", 15),
		TrendLength:      getInt("TREND_LENGTH", 4),
		NoiseLength:      getInt("NOISE_LENGTH", 250),
		CorrectionFactor: getFloat("CORRECTION_FACTOR", 2.0),
		NoiseMode:        getEnv("NOISE_MODE", "LINEAR"),

		LowThreshold:  getFloat("LOW_THRESHOLD", -4),
		HighThreshold: getFloat("HIGH_THRESHOLD", 2.5),
		BetweenFactor: getFloat("BETWEEN_FACTOR", 0.0005),
		Allocation:    getFloat("ALLOCATION", 0.5),
		MaxOrders:     getInt("MAX_ORDERS", 3),

		// 10 lakh rupees
		StartingCash: getInt64("STARTING_CASH_PAISE", 1_000_000_00),
		SlippageBps:  getInt64("SLIPPAGE_BPS", 5),

		SnapshotIntervalS: getInt("SNAPSHOT_INTERVAL_S", 60),
		SnapshotKey:       getEnv("SNAPSHOT_KEY", "engine:snapshot"),
	}
}

// Validate rejects configurations the engines would refuse at startup.
func (c *Config) Validate() error {
	if c.TF < 1 {
		return fmt.Errorf("config: TF must be >= 1, got %d", c.TF)
	}
	switch c.ChannelType {
	case "LINREG", "BOLL":
	default:
		return fmt.Errorf("config: CHANNEL_TYPE must be LINREG or BOLL, got %q", c.ChannelType)
	}
	switch c.NoiseMode {
	case "LINEAR", "SQUARED":
	default:
		return fmt.Errorf("config: NOISE_MODE must be LINEAR or SQUARED, got %q", c.NoiseMode)
	}
	if c.LinRegCount < 1 || c.BollLength < 1 || c.NoiseLength < 1 || c.TrendLength < 1 {
		return fmt.Errorf("config: window lengths must be >= 1")
	}
	if c.FastLength < 1 || c.SlowLength < 1 {
		return fmt.Errorf("config: EMA lengths must be >= 1")
	}
	if c.LowThreshold >= c.HighThreshold {
		return fmt.Errorf("config: LOW_THRESHOLD %v must be below HIGH_THRESHOLD %v", c.LowThreshold, c.HighThreshold)
	}
	if c.MaxOrders < 1 {
		return fmt.Errorf("config: MAX_ORDERS must be >= 1, got %d", c.MaxOrders)
	}
	if c.Allocation <= 0 {
		return fmt.Errorf("config: ALLOCATION must be > 0, got %v", c.Allocation)
	}
	if c.StartingCash <= 0 {
		return fmt.Errorf("config: STARTING_CASH_PAISE must be > 0, got %d", c.StartingCash)
	}
	return nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
