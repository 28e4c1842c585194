// Package exchange provides the Binance spot REST adapter and a paper
// trading simulator, both implementing the market-data and order ports.
package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"apextrader/internal/model"
)

// BinanceConfig configures the REST adapter.
type BinanceConfig struct {
	BaseURL       string // default https://api.binance.com
	APIKey        string
	APISecret     string
	QuoteAsset    string // default USDT
	KlineInterval string // default 1m
	KlineWindow   int    // bars per snapshot, default 300
}

func (c BinanceConfig) withDefaults() BinanceConfig {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.binance.com"
	}
	if c.QuoteAsset == "" {
		c.QuoteAsset = "USDT"
	}
	if c.KlineInterval == "" {
		c.KlineInterval = "1m"
	}
	if c.KlineWindow <= 0 {
		c.KlineWindow = 300
	}
	return c
}

// Binance is the spot REST client. Leveraged tokens (UP/DOWN/BULL/BEAR)
// are excluded from the instrument universe.
type Binance struct {
	cfg    BinanceConfig
	client *resty.Client
	log    *slog.Logger

	mu    sync.Mutex
	steps map[string]decimal.Decimal // LOT_SIZE step per symbol
}

// NewBinance creates the REST adapter. API credentials are only needed
// for Balance and MarketOrder.
func NewBinance(cfg BinanceConfig, log *slog.Logger) *Binance {
	cfg = cfg.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(15 * time.Second).
		SetHeader("X-MBX-APIKEY", cfg.APIKey)
	return &Binance{
		cfg:    cfg,
		client: client,
		log:    log,
		steps:  make(map[string]decimal.Decimal),
	}
}

type ticker24h struct {
	Symbol         string `json:"symbol"`
	LastPrice      string `json:"lastPrice"`
	PriceChangePct string `json:"priceChangePercent"`
	Volume         string `json:"volume"`
	QuoteVolume    string `json:"quoteVolume"`
	HighPrice      string `json:"highPrice"`
	LowPrice       string `json:"lowPrice"`
	Count          int64  `json:"count"`
}

var leveragedSuffixes = []string{"UPUSDT", "DOWNUSDT", "BULLUSDT", "BEARUSDT"}

func isLeveraged(symbol string) bool {
	for _, s := range leveragedSuffixes {
		if strings.HasSuffix(symbol, s) {
			return true
		}
	}
	return false
}

// TopInstruments returns up to n quote-asset pairs ranked by 24h quote
// volume.
func (b *Binance) TopInstruments(ctx context.Context, n int) ([]string, error) {
	var tickers []ticker24h
	resp, err := b.client.R().
		SetContext(ctx).
		SetResult(&tickers).
		Get("/api/v3/ticker/24hr")
	if err != nil {
		return nil, fmt.Errorf("binance: ticker/24hr: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("binance: ticker/24hr: status %d", resp.StatusCode())
	}

	eligible := tickers[:0]
	for _, t := range tickers {
		if strings.HasSuffix(t.Symbol, b.cfg.QuoteAsset) && !isLeveraged(t.Symbol) {
			eligible = append(eligible, t)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		return parseF(eligible[i].QuoteVolume) > parseF(eligible[j].QuoteVolume)
	})
	if len(eligible) > n {
		eligible = eligible[:n]
	}

	symbols := make([]string, len(eligible))
	for i, t := range eligible {
		symbols[i] = t.Symbol
	}
	return symbols, nil
}

// Snapshot fetches the kline window and 24h stats for one instrument.
func (b *Binance) Snapshot(ctx context.Context, symbol string) (*model.Snapshot, error) {
	bars, err := b.klines(ctx, symbol)
	if err != nil {
		return nil, err
	}

	var t ticker24h
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&t).
		Get("/api/v3/ticker/24hr")
	if err != nil {
		return nil, fmt.Errorf("binance: 24h stats %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("binance: 24h stats %s: status %d", symbol, resp.StatusCode())
	}

	return &model.Snapshot{
		Symbol: symbol,
		Price:  parseF(t.LastPrice),
		Bars:   bars,
		Stats: model.Stats24h{
			PriceChangePct: parseF(t.PriceChangePct),
			Volume:         parseF(t.Volume),
			QuoteVolume:    parseF(t.QuoteVolume),
			High:           parseF(t.HighPrice),
			Low:            parseF(t.LowPrice),
			Trades:         t.Count,
		},
	}, nil
}

func (b *Binance) klines(ctx context.Context, symbol string) ([]model.Bar, error) {
	var raw [][]json.RawMessage
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"interval": b.cfg.KlineInterval,
			"limit":    strconv.Itoa(b.cfg.KlineWindow),
		}).
		SetResult(&raw).
		Get("/api/v3/klines")
	if err != nil {
		return nil, fmt.Errorf("binance: klines %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("binance: klines %s: status %d", symbol, resp.StatusCode())
	}

	bars := make([]model.Bar, 0, len(raw))
	for _, k := range raw {
		// [openTime, open, high, low, close, volume, ...]
		if len(k) < 6 {
			continue
		}
		var openMs int64
		if err := json.Unmarshal(k[0], &openMs); err != nil {
			continue
		}
		bars = append(bars, model.Bar{
			TS:     time.UnixMilli(openMs).UTC(),
			Open:   rawF(k[1]),
			High:   rawF(k[2]),
			Low:    rawF(k[3]),
			Close:  rawF(k[4]),
			Volume: rawF(k[5]),
		})
	}
	return bars, nil
}

// CurrentPrice returns the latest traded price.
func (b *Binance) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	var out struct {
		Price string `json:"price"`
	}
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&out).
		Get("/api/v3/ticker/price")
	if err != nil {
		return 0, fmt.Errorf("binance: ticker/price %s: %w", symbol, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("binance: ticker/price %s: status %d", symbol, resp.StatusCode())
	}
	return parseF(out.Price), nil
}

// Balance returns the free quote-asset balance from the signed account
// endpoint.
func (b *Binance) Balance(ctx context.Context) (float64, error) {
	var out struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := b.signedGet(ctx, "/api/v3/account", url.Values{}, &out); err != nil {
		return 0, err
	}
	for _, bal := range out.Balances {
		if bal.Asset == b.cfg.QuoteAsset {
			return parseF(bal.Free), nil
		}
	}
	return 0, nil
}

type orderResponse struct {
	Symbol      string `json:"symbol"`
	ExecutedQty string `json:"executedQty"`
	CumQuoteQty string `json:"cummulativeQuoteQty"`
	Status      string `json:"status"`
}

// MarketOrder submits a market order. BUY spends the quote notional;
// SELL disposes the base quantity rounded down to the LOT_SIZE step.
func (b *Binance) MarketOrder(ctx context.Context, symbol string, side model.Side, notional, quantity float64) (*model.Fill, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", string(side))
	params.Set("type", "MARKET")

	switch side {
	case model.SideBuy:
		params.Set("quoteOrderQty", strconv.FormatFloat(notional, 'f', 8, 64))
	case model.SideSell:
		qty, err := b.roundToStep(ctx, symbol, quantity)
		if err != nil {
			return nil, err
		}
		params.Set("quantity", qty.String())
	default:
		return nil, fmt.Errorf("binance: unknown side %q", side)
	}

	var out orderResponse
	if err := b.signedPost(ctx, "/api/v3/order", params, &out); err != nil {
		return nil, err
	}
	if out.Status != "FILLED" && out.Status != "PARTIALLY_FILLED" {
		return nil, fmt.Errorf("binance: order %s %s not filled: %s", side, symbol, out.Status)
	}

	qty := parseF(out.ExecutedQty)
	quote := parseF(out.CumQuoteQty)
	if qty <= 0 {
		return nil, fmt.Errorf("binance: order %s %s: zero executed quantity", side, symbol)
	}
	return &model.Fill{
		Symbol:   symbol,
		Side:     side,
		Price:    quote / qty,
		Quantity: qty,
	}, nil
}

// roundToStep rounds a quantity down to the symbol's LOT_SIZE step.
// Steps are fetched once per symbol and cached.
func (b *Binance) roundToStep(ctx context.Context, symbol string, quantity float64) (decimal.Decimal, error) {
	step, err := b.lotStep(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	qty := decimal.NewFromFloat(quantity)
	if step.IsZero() {
		return qty, nil
	}
	return qty.Div(step).Floor().Mul(step), nil
}

func (b *Binance) lotStep(ctx context.Context, symbol string) (decimal.Decimal, error) {
	b.mu.Lock()
	step, ok := b.steps[symbol]
	b.mu.Unlock()
	if ok {
		return step, nil
	}

	var out struct {
		Symbols []struct {
			Symbol  string `json:"symbol"`
			Filters []struct {
				FilterType string `json:"filterType"`
				StepSize   string `json:"stepSize"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&out).
		Get("/api/v3/exchangeInfo")
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance: exchangeInfo %s: %w", symbol, err)
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("binance: exchangeInfo %s: status %d", symbol, resp.StatusCode())
	}

	step = decimal.Zero
	for _, s := range out.Symbols {
		if s.Symbol != symbol {
			continue
		}
		for _, f := range s.Filters {
			if f.FilterType == "LOT_SIZE" {
				step, err = decimal.NewFromString(f.StepSize)
				if err != nil {
					return decimal.Zero, fmt.Errorf("binance: parse step %q: %w", f.StepSize, err)
				}
			}
		}
	}

	b.mu.Lock()
	b.steps[symbol] = step
	b.mu.Unlock()
	return step, nil
}

// sign appends the timestamp and HMAC-SHA256 signature required by
// Binance signed endpoints.
func (b *Binance) sign(params url.Values) string {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", "5000")
	payload := params.Encode()
	mac := hmac.New(sha256.New, []byte(b.cfg.APISecret))
	mac.Write([]byte(payload))
	return payload + "&signature=" + hex.EncodeToString(mac.Sum(nil))
}

func (b *Binance) signedGet(ctx context.Context, path string, params url.Values, out any) error {
	resp, err := b.client.R().
		SetContext(ctx).
		SetResult(out).
		Get(path + "?" + b.sign(params))
	if err != nil {
		return fmt.Errorf("binance: %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("binance: %s: status %d: %s", path, resp.StatusCode(), resp.String())
	}
	return nil
}

func (b *Binance) signedPost(ctx context.Context, path string, params url.Values, out any) error {
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(b.sign(params)).
		SetResult(out).
		Post(path)
	if err != nil {
		return fmt.Errorf("binance: %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("binance: %s: status %d: %s", path, resp.StatusCode(), resp.String())
	}
	return nil
}

func parseF(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func rawF(raw json.RawMessage) float64 {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseF(s)
	}
	var f float64
	_ = json.Unmarshal(raw, &f)
	return f
}
