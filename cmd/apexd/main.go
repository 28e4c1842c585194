// cmd/apexd runs the spot trading bot: a scan/score/trade loop over the
// top volume instruments, with a REST+WebSocket control API, a SQLite
// trade journal, and optional Redis mirroring for dashboards.
//
// Usage:
//
//	apexd run            start the bot
//	apexd scan           run one scan cycle and print the ranking
//	apexd version        print the build version
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"apextrader/config"
	"apextrader/internal/api"
	"apextrader/internal/engine"
	"apextrader/internal/exchange"
	"apextrader/internal/logger"
	"apextrader/internal/metrics"
	"apextrader/internal/model"
	"apextrader/internal/notification"
	"apextrader/internal/risk"
	"apextrader/internal/scanner"
	"apextrader/internal/scoring"
	"apextrader/internal/sizing"
	redispub "apextrader/internal/store/redis"
	sqlitestore "apextrader/internal/store/sqlite"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "apexd",
		Short:         "apexd is a momentum spot trading bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), scanCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the trading loop and the control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
}

func scanCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a single scan cycle and print the ranked candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return scanOnce(cfg, top)
		},
	}
	cmd.Flags().IntVar(&top, "top", 15, "number of ranked candidates to print")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("apexd", version)
		},
	}
}

func run(cfg *config.Config) error {
	log := logger.Init("apexd", logger.ParseLevel(cfg.LogLevel))
	log.Info("starting",
		"version", version,
		"dry_run", cfg.DryRun,
		"profile", cfg.Profile.Name,
		"timezone", cfg.Timezone.String())

	met := metrics.NewMetrics()

	md, exch, err := buildExchange(cfg, log)
	if err != nil {
		return err
	}

	scorer, err := scoring.New(cfg.Weights)
	if err != nil {
		return err
	}
	scan := scanner.New(md, scorer, scanner.Config{
		TopN:     cfg.TopN,
		MinScore: cfg.MinScore,
	}, log)

	sizer := sizing.NewSizer(cfg.Profile)
	gate := risk.NewGate(risk.Limits{
		DailyLossLimitPct:    cfg.Profile.DailyLossLimitPct,
		MaxTradesPerDay:      cfg.Profile.MaxTradesPerDay,
		MaxConsecutiveLosses: cfg.MaxConsecutiveLosses,
		PauseDuration:        cfg.PauseAfterLosses,
		Window:               cfg.Window,
	}, cfg.Timezone, time.Now())

	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	store, err := sqlitestore.Open(cfg.SQLitePath, cfg.Timezone, log)
	if err != nil {
		return err
	}
	defer store.Close()

	notif := buildNotifier(cfg, log)

	hub := api.NewHub(log)
	pubs := engine.PublisherList{hub}
	if cfg.RedisAddr != "" {
		rp, err := redispub.NewPublisher(redispub.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
		if err != nil {
			// Publishing is best-effort; a dead Redis must not stop trading.
			log.Warn("redis unavailable, publishing disabled", "err", err)
		} else {
			pubs = append(pubs, rp)
			defer rp.Close()
		}
	}

	eng := engine.New(engine.Config{
		ScanInterval:     cfg.ScanInterval,
		MonitorInterval:  cfg.MonitorInterval,
		MaxTradeDuration: cfg.MaxTradeDuration,
		CallTimeout:      cfg.CallTimeout,
		TrailingStopPct:  cfg.TrailingStopPct,
	}, exch, scan, sizer, gate, store, notif, met, pubs, nil, log)

	srv := api.NewServer(cfg.APIAddr, eng, store, hub, cfg.TOTPSecret, cfg.View(), cfg.Timezone, log)
	srv.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng.Run(ctx)

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutCtx); err != nil {
		log.Warn("api shutdown", "err", err)
	}
	log.Info("stopped")
	return nil
}

// buildExchange returns the market data source and the order executor.
// Dry run mode fills orders against a paper book fed by live prices.
func buildExchange(cfg *config.Config, log *slog.Logger) (model.MarketData, model.Exchange, error) {
	bn := exchange.NewBinance(exchange.BinanceConfig{
		BaseURL:   cfg.BinanceBaseURL,
		APIKey:    cfg.BinanceAPIKey,
		APISecret: cfg.BinanceAPISecret,
	}, log)

	if cfg.DryRun {
		paper := exchange.NewPaper(bn, cfg.StartingBalance, cfg.SlippageBps, log)
		return bn, paper, nil
	}
	if cfg.BinanceAPIKey == "" || cfg.BinanceAPISecret == "" {
		return nil, nil, fmt.Errorf("live mode requires exchange credentials")
	}
	return bn, bn, nil
}

func buildNotifier(cfg *config.Config, log *slog.Logger) notification.Notifier {
	backends := []notification.Notifier{notification.NewLogNotifier(log)}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		backends = append(backends, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
		log.Info("telegram notifications enabled")
	}
	if cfg.WebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.WebhookURL))
		log.Info("webhook notifications enabled")
	}
	return notification.NewMulti(log, backends...)
}

func scanOnce(cfg *config.Config, top int) error {
	log := logger.Init("apexd", logger.ParseLevel(cfg.LogLevel))

	md, _, err := buildExchange(cfg, log)
	if err != nil {
		return err
	}
	scorer, err := scoring.New(cfg.Weights)
	if err != nil {
		return err
	}
	scan := scanner.New(md, scorer, scanner.Config{
		TopN:     cfg.TopN,
		MinScore: cfg.MinScore,
	}, log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := scan.Scan(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("scanned %d instruments (%d skipped) in %s\n\n",
		res.Scanned, res.Skipped, res.Duration.Round(time.Millisecond))
	fmt.Printf("%-4s %-12s %9s %6s %6s %6s %6s %6s\n",
		"#", "SYMBOL", "SCORE", "VOLA", "VOLUM", "MOMNT", "TECH", "RISK")
	for i, c := range res.Candidates {
		if i >= top {
			break
		}
		s := c.Score
		mark := " "
		if s.Composite >= cfg.MinScore {
			mark = "*"
		}
		fmt.Printf("%-4d %-12s %8.2f%s %6.1f %6.1f %6.1f %6.1f %6.1f\n",
			i+1, s.Symbol, s.Composite, mark,
			s.Volatility, s.Volume, s.Momentum, s.Technical, s.Risk)
	}
	if len(res.Candidates) == 0 {
		fmt.Println("no candidates scored")
	}
	return nil
}
