// Package config holds all application configuration loaded from
// environment variables (optionally seeded from a .env file).
// Invalid configuration is a startup error, never a silent default.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"apextrader/internal/risk"
	"apextrader/internal/scoring"
	"apextrader/internal/sizing"
)

// Config is the full bot configuration.
type Config struct {
	// Mode
	DryRun          bool    // paper trading, the default
	StartingBalance float64 // paper starting quote balance
	SlippageBps     float64 // simulated slippage in basis points

	// Exchange credentials (required only for live mode)
	BinanceAPIKey    string
	BinanceAPISecret string
	BinanceBaseURL   string

	// Strategy
	Profile         sizing.Profile
	Weights         scoring.Weights
	MinScore        float64
	TopN            int
	TrailingStopPct float64

	// Loop timing
	ScanInterval     time.Duration
	MonitorInterval  time.Duration
	MaxTradeDuration time.Duration
	CallTimeout      time.Duration

	// Risk
	MaxConsecutiveLosses int
	PauseAfterLosses     time.Duration
	Timezone             *time.Location
	Window               risk.Window // zero value disables the trading window

	// Infrastructure
	SQLitePath    string
	RedisAddr     string // empty disables Redis publishing
	RedisPassword string
	RedisDB       int
	APIAddr       string
	TOTPSecret    string // empty disables the control endpoints

	// Notifications
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string

	LogLevel string
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	// Missing .env is fine; explicit environment always wins.
	_ = godotenv.Load()

	var r envReader
	cfg := &Config{
		DryRun:          r.boolean("DRY_RUN", true),
		StartingBalance: r.float("STARTING_BALANCE", 1000),
		SlippageBps:     r.float("SLIPPAGE_BPS", 5),

		BinanceAPIKey:    r.str("BINANCE_API_KEY", ""),
		BinanceAPISecret: r.str("BINANCE_API_SECRET", ""),
		BinanceBaseURL:   r.str("BINANCE_BASE_URL", ""),

		MinScore:        r.float("MIN_SCORE_TO_TRADE", 7.0),
		TopN:            r.integer("TOP_N", 100),
		TrailingStopPct: r.float("TRAILING_STOP_PCT", 0),

		ScanInterval:     r.seconds("SCAN_INTERVAL", 60),
		MonitorInterval:  r.seconds("MONITOR_INTERVAL", 3),
		MaxTradeDuration: r.seconds("MAX_TRADE_DURATION", 1800),
		CallTimeout:      r.seconds("CALL_TIMEOUT", 10),

		MaxConsecutiveLosses: r.integer("MAX_CONSECUTIVE_LOSSES", 3),
		PauseAfterLosses:     r.seconds("PAUSE_AFTER_LOSSES", 3600),

		SQLitePath:    r.str("SQLITE_PATH", "data/trades.db"),
		RedisAddr:     r.str("REDIS_ADDR", ""),
		RedisPassword: r.str("REDIS_PASSWORD", ""),
		RedisDB:       r.integer("REDIS_DB", 0),
		APIAddr:       r.str("API_ADDR", ":8080"),
		TOTPSecret:    r.str("CONTROL_TOTP_SECRET", ""),

		TelegramBotToken: r.str("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   r.str("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       r.str("WEBHOOK_URL", ""),

		LogLevel: r.str("LOG_LEVEL", "info"),
	}

	dw := scoring.DefaultWeights()
	cfg.Weights = scoring.Weights{
		Volatility: r.float("WEIGHT_VOLATILITY", dw.Volatility),
		Volume:     r.float("WEIGHT_VOLUME", dw.Volume),
		Momentum:   r.float("WEIGHT_MOMENTUM", dw.Momentum),
		Technical:  r.float("WEIGHT_TECHNICAL", dw.Technical),
		Risk:       r.float("WEIGHT_RISK", dw.Risk),
	}
	if r.err != nil {
		return nil, fmt.Errorf("config: %w", r.err)
	}

	profile, err := sizing.ProfileByName(r.str("STRATEGY_PROFILE", sizing.ProfileBalanced))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Profile = profile

	if err := cfg.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	tz := r.str("TRADING_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("config: invalid TRADING_TIMEZONE %q: %w", tz, err)
	}
	cfg.Timezone = loc

	if raw := r.str("TRADING_WINDOW", ""); raw != "" {
		win, err := parseWindow(raw)
		if err != nil {
			return nil, fmt.Errorf("config: invalid TRADING_WINDOW %q: %w", raw, err)
		}
		cfg.Window = win
	}

	if !cfg.DryRun && (cfg.BinanceAPIKey == "" || cfg.BinanceAPISecret == "") {
		return nil, fmt.Errorf("config: live mode requires BINANCE_API_KEY and BINANCE_API_SECRET")
	}
	if cfg.MinScore < 0 || cfg.MinScore > 10 {
		return nil, fmt.Errorf("config: MIN_SCORE_TO_TRADE %v out of range [0,10]", cfg.MinScore)
	}
	if cfg.MonitorInterval >= cfg.ScanInterval {
		return nil, fmt.Errorf("config: MONITOR_INTERVAL must be shorter than SCAN_INTERVAL")
	}

	return cfg, nil
}

// View is the credential-free projection served at /api/v1/config.
func (c *Config) View() map[string]any {
	return map[string]any{
		"dry_run":            c.DryRun,
		"profile":            c.Profile,
		"weights":            c.Weights,
		"min_score":          c.MinScore,
		"top_n":              c.TopN,
		"trailing_stop_pct":  c.TrailingStopPct,
		"scan_interval":      c.ScanInterval.String(),
		"monitor_interval":   c.MonitorInterval.String(),
		"max_trade_duration": c.MaxTradeDuration.String(),
		"timezone":           c.Timezone.String(),
	}
}

// parseWindow parses "HH:MM-HH:MM" into a trading window.
func parseWindow(raw string) (risk.Window, error) {
	var w risk.Window
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return w, fmt.Errorf("want HH:MM-HH:MM")
	}
	open, err := time.Parse("15:04", strings.TrimSpace(parts[0]))
	if err != nil {
		return w, err
	}
	end, err := time.Parse("15:04", strings.TrimSpace(parts[1]))
	if err != nil {
		return w, err
	}
	w.OpenHour, w.OpenMinute = open.Hour(), open.Minute()
	w.CloseHour, w.CloseMinute = end.Hour(), end.Minute()
	return w, nil
}

// envReader reads typed environment values. Empty variables take the
// fallback; a set-but-unparsable value records an error so Load fails
// instead of silently defaulting.
type envReader struct {
	err error
}

func (r *envReader) fail(key, value, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("%s=%q is not %s", key, value, want)
	}
}

func (r *envReader) str(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (r *envReader) integer(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, "an integer")
		return fallback
	}
	return n
}

func (r *envReader) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, v, "a number")
		return fallback
	}
	return f
}

func (r *envReader) boolean(key string, fallback bool) bool {
	v := strings.ToLower(os.Getenv(key))
	switch v {
	case "":
		return fallback
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	r.fail(key, v, "a boolean")
	return fallback
}

func (r *envReader) seconds(key string, fallback int) time.Duration {
	return time.Duration(r.integer(key, fallback)) * time.Second
}
