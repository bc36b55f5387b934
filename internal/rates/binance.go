package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultBinanceBaseURL = "https://api.binance.com"
	DefaultTimeout        = 10 * time.Second

	symbolEURUSDT = "EURUSDT"
	symbolUSDTARS = "USDTARS"

	maxTickerBody = 64 << 10
)

// BinanceConfig configures a BinanceSource. Zero values select defaults.
type BinanceConfig struct {
	BaseURL           string
	Timeout           time.Duration
	CacheTTL          time.Duration // 0 disables the quote cache
	RequestsPerSecond float64       // 0 disables the limiter
	HTTPClient        *http.Client
}

// BinanceSource builds a rate table from the public Binance ticker endpoint.
// USDT is treated as USD-equivalent.
type BinanceSource struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	quotes  *cache.Cache
}

type tickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

func NewBinanceSource(cfg BinanceConfig) *BinanceSource {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBinanceBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	s := &BinanceSource{baseURL: base, client: client}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 2)
	}
	if cfg.CacheTTL > 0 {
		s.quotes = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return s
}

func (s *BinanceSource) Name() string { return "binance" }

// Fetch retrieves EURUSDT and USDTARS concurrently and derives the table.
func (s *BinanceSource) Fetch(ctx context.Context) (Table, error) {
	var eurUSDT, usdtARS decimal.Decimal

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.price(gctx, symbolEURUSDT)
		eurUSDT = p
		return err
	})
	g.Go(func() error {
		p, err := s.price(gctx, symbolUSDTARS)
		usdtARS = p
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return FromQuotes(eurUSDT, eurUSDT, usdtARS), nil
}

func (s *BinanceSource) price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if s.quotes != nil {
		if v, ok := s.quotes.Get(symbol); ok {
			return v.(decimal.Decimal), nil
		}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return decimal.Zero, fmt.Errorf("%w: waiting for limiter: %v", ErrNetwork, err)
		}
	}

	p, err := s.fetchPrice(ctx, symbol)
	if err != nil {
		slog.WarnContext(ctx, "Binance ticker request failed", "symbol", symbol, "error", err)
		return decimal.Zero, err
	}

	if s.quotes != nil {
		s.quotes.SetDefault(symbol, p)
	}
	return p, nil
}

func (s *BinanceSource) fetchPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	endpoint := s.baseURL + "/api/v3/ticker/price?symbol=" + url.QueryEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: build request: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrNetwork, symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxTickerBody))
		return decimal.Zero, fmt.Errorf("%w: %s: unexpected status %d", ErrNetwork, symbol, resp.StatusCode)
	}

	var body tickerPrice
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxTickerBody)).Decode(&body); err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrNetwork, symbol, err)
		}
		return decimal.Zero, fmt.Errorf("%w: %s: decode: %v", ErrParse, symbol, err)
	}
	if body.Symbol != "" && body.Symbol != symbol {
		return decimal.Zero, fmt.Errorf("%w: asked for %s, got %s", ErrParse, symbol, body.Symbol)
	}

	p, err := decimal.NewFromString(strings.TrimSpace(body.Price))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: price %q: %v", ErrParse, symbol, body.Price, err)
	}
	if !p.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s: non-positive price %s", ErrParse, symbol, p)
	}
	return p, nil
}

// StaticSource always returns the same table.
type StaticSource struct {
	table Table
}

func NewStaticSource(t Table) *StaticSource {
	if t == nil {
		t = DefaultTable()
	}
	return &StaticSource{table: t.Clone()}
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) Fetch(ctx context.Context) (Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return s.table.Clone(), nil
}
