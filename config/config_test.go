package config

import (
	"testing"

	"apextrader/internal/scoring"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.DryRun {
		t.Error("dry run should default to true")
	}
	if cfg.Profile.Name != "balanced" {
		t.Errorf("profile = %q, want balanced", cfg.Profile.Name)
	}
	if cfg.MinScore != 7.0 {
		t.Errorf("min score = %v, want 7.0", cfg.MinScore)
	}
	if cfg.Timezone.String() != "UTC" {
		t.Errorf("timezone = %s, want UTC", cfg.Timezone)
	}
	if err := cfg.Weights.Validate(); err != nil {
		t.Errorf("default weights invalid: %v", err)
	}
	if want := scoring.DefaultWeights(); cfg.Weights != want {
		t.Errorf("weights = %+v, want defaults %+v", cfg.Weights, want)
	}
}

func TestLoadRejectsUnknownProfile(t *testing.T) {
	t.Setenv("STRATEGY_PROFILE", "yolo")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

func TestLoadRejectsBadWeights(t *testing.T) {
	t.Setenv("WEIGHT_VOLATILITY", "0.9")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for weights not summing to 1.0")
	}
}

func TestLoadRejectsBadTimezone(t *testing.T) {
	t.Setenv("TRADING_TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestLiveModeRequiresCredentials(t *testing.T) {
	t.Setenv("DRY_RUN", "false")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for live mode without credentials")
	}

	t.Setenv("BINANCE_API_KEY", "k")
	t.Setenv("BINANCE_API_SECRET", "s")
	if _, err := Load(); err != nil {
		t.Fatalf("load with credentials: %v", err)
	}
}

func TestMonitorIntervalMustBeShorter(t *testing.T) {
	t.Setenv("MONITOR_INTERVAL", "120")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when monitor interval exceeds scan interval")
	}
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	cases := []struct{ key, value string }{
		{"SCAN_INTERVAL", "abc"},
		{"TOP_N", "1.5"},
		{"MIN_SCORE_TO_TRADE", "high"},
		{"DRY_RUN", "maybe"},
	}
	for _, c := range cases {
		t.Run(c.key, func(t *testing.T) {
			t.Setenv(c.key, c.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", c.key, c.value)
			}
		})
	}
}

func TestTradingWindowParsing(t *testing.T) {
	t.Setenv("TRADING_WINDOW", "09:30-16:00")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	w := cfg.Window
	if w.OpenHour != 9 || w.OpenMinute != 30 || w.CloseHour != 16 || w.CloseMinute != 0 {
		t.Errorf("window = %+v, want 09:30-16:00", w)
	}

	t.Setenv("TRADING_WINDOW", "9am to 5pm")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed window")
	}
}

func TestViewOmitsSecrets(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "super-secret")
	t.Setenv("CONTROL_TOTP_SECRET", "JBSWY3DPEHPK3PXP")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	view := cfg.View()
	for k, v := range view {
		if s, ok := v.(string); ok && (s == "super-secret" || s == "JBSWY3DPEHPK3PXP") {
			t.Errorf("secret leaked via view key %q", k)
		}
	}
}
