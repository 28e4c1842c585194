// Package redis publishes engine status and scan results to Redis for
// external dashboards. Publishing is strictly best-effort: failures are
// logged and a circuit breaker keeps a dead Redis from slowing the
// trading loop. The bot trades fine with no Redis at all.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"apextrader/internal/engine"
	"apextrader/internal/scanner"
)

const (
	statusKey     = "apex:status"
	scanKey       = "apex:scan"
	statusChannel = "apex.status"

	keyTTL       = 10 * time.Minute
	writeTimeout = 2 * time.Second
)

// Config configures the publisher connection.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher mirrors engine state into Redis.
type Publisher struct {
	client *goredis.Client
	brk    *breaker
	log    *slog.Logger
}

// NewPublisher connects and pings Redis.
func NewPublisher(cfg Config, log *slog.Logger) (*Publisher, error) {
	if log == nil {
		log = slog.Default()
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info("redis publisher connected", "addr", cfg.Addr)
	return &Publisher{
		client: client,
		brk:    newBreaker(5, 10*time.Second),
		log:    log,
	}, nil
}

// PublishStatus stores the latest status snapshot and notifies
// subscribers on the status channel.
func (p *Publisher) PublishStatus(ctx context.Context, st engine.Status) {
	payload, err := json.Marshal(st)
	if err != nil {
		p.log.Warn("status marshal failed", "err", err)
		return
	}
	p.write(ctx, func(wctx context.Context) error {
		if err := p.client.Set(wctx, statusKey, payload, keyTTL).Err(); err != nil {
			return err
		}
		return p.client.Publish(wctx, statusChannel, payload).Err()
	})
}

// PublishScan stores the latest scan result.
func (p *Publisher) PublishScan(ctx context.Context, res *scanner.Result) {
	if res == nil {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		p.log.Warn("scan marshal failed", "err", err)
		return
	}
	p.write(ctx, func(wctx context.Context) error {
		return p.client.Set(wctx, scanKey, payload, keyTTL).Err()
	})
}

func (p *Publisher) write(ctx context.Context, fn func(context.Context) error) {
	err := p.brk.execute(func() error {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()
		return fn(wctx)
	})
	if err != nil && !errors.Is(err, ErrCircuitOpen) {
		p.log.Warn("redis publish failed", "state", p.brk.currentState(), "err", err)
	}
}

// Close releases the connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
