package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"entry-signals/internal/market"
	"entry-signals/internal/marketcache"
	"entry-signals/internal/ratelimit"
)

const (
	defaultBaseURL        = "https://api.coingecko.com/api/v3"
	defaultHistoryTimeout = 15 * time.Second
	defaultMetricsTimeout = 5 * time.Second
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 2 * time.Second
	defaultMaxRetryDelay  = 30 * time.Second
	defaultLookbackDays   = 30
	defaultIdentity       = "analysis"

	// reconcileTolerance is how far the provider's final close may drift from
	// the live price before the candle is rewritten.
	reconcileTolerance = 0.10
)

// Options parameterise the CoinGecko client.
type Options struct {
	BaseURL        string
	HistoryTimeout time.Duration
	MetricsTimeout time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
	MaxRetryDelay  time.Duration
	LookbackDays   int
	UserAgent      string
	// Identity is the caller ID presented to the rate gate.
	Identity string
}

// Client fetches OHLC history and market metrics from a CoinGecko-style API,
// degrading to synthetic data whenever the provider cannot serve a usable
// response. FetchHistory never fails: callers always receive a structurally
// valid series and can inspect History.Source for provenance.
type Client struct {
	opts    Options
	gate    *ratelimit.Gate
	cache   *marketcache.Cache
	synth   *SyntheticGenerator
	breaker *gobreaker.CircuitBreaker
	history *http.Client
	light   *http.Client
	logger  zerolog.Logger
}

// NewClient wires the fetcher against the shared gate and cache.
func NewClient(opts Options, gate *ratelimit.Gate, cache *marketcache.Cache, synth *SyntheticGenerator, logger zerolog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.HistoryTimeout <= 0 {
		opts.HistoryTimeout = defaultHistoryTimeout
	}
	if opts.MetricsTimeout <= 0 {
		opts.MetricsTimeout = defaultMetricsTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = defaultRetryBaseDelay
	}
	if opts.MaxRetryDelay <= 0 {
		opts.MaxRetryDelay = defaultMaxRetryDelay
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = defaultLookbackDays
	}
	if opts.Identity == "" {
		opts.Identity = defaultIdentity
	}
	if synth == nil {
		synth = NewSyntheticGenerator(nil)
	}

	settings := gobreaker.Settings{
		Name:    "coingecko",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Client{
		opts:    opts,
		gate:    gate,
		cache:   cache,
		synth:   synth,
		breaker: gobreaker.NewCircuitBreaker(settings),
		history: &http.Client{Timeout: opts.HistoryTimeout},
		light:   &http.Client{Timeout: opts.MetricsTimeout},
		logger:  logger.With().Str("component", "market_fetcher").Logger(),
	}
}

// FetchHistory returns the 30-day OHLC series for the asset. The result is
// served from cache when possible; otherwise the provider is queried through
// the rate gate, and any denial or exhausted retry path yields a synthetic
// series anchored on currentPrice.
func (c *Client) FetchHistory(ctx context.Context, assetID string, currentPrice float64) market.History {
	id := CanonicalID(assetID)

	if v, ok := c.cache.Get(id, marketcache.KindOHLC); ok {
		if h, valid := v.(market.History); valid {
			return h
		}
	}

	if !c.gate.Acquire(ctx, c.opts.Identity, "ohlc:"+id) {
		return c.fallback(id, currentPrice, "rate gate denied")
	}

	candles, err := c.requestOHLC(ctx, id)
	if err != nil {
		return c.fallback(id, currentPrice, err.Error())
	}
	if len(candles) == 0 {
		return c.fallback(id, currentPrice, "empty ohlc payload")
	}

	c.fillVolumes(ctx, id, currentPrice, candles)

	h := market.History{Asset: id, Candles: candles, Source: market.SourceLive}
	h = h.ReconcileLast(currentPrice, reconcileTolerance)
	c.cache.Put(id, marketcache.KindOHLC, h)
	return h
}

// FetchMetrics returns market cap and percent-change figures for the asset.
func (c *Client) FetchMetrics(ctx context.Context, assetID string) (market.Metrics, error) {
	id := CanonicalID(assetID)

	if v, ok := c.cache.Get(id, marketcache.KindMetrics); ok {
		if m, valid := v.(market.Metrics); valid {
			return m, nil
		}
	}

	if !c.gate.Acquire(ctx, c.opts.Identity, "metrics:"+id) {
		return market.Metrics{}, fmt.Errorf("metrics %s: rate gate denied", id)
	}

	payload, err := c.requestCoin(ctx, id)
	if err != nil {
		return market.Metrics{}, err
	}

	m := market.Metrics{
		MarketCapUSD: payload.MarketData.MarketCap["usd"],
		PctChange7d:  payload.MarketData.PriceChangePercentage7d,
		PctChange24h: payload.MarketData.PriceChangePercentage24h,
	}
	c.cache.Put(id, marketcache.KindMetrics, m)
	if vol, ok := payload.MarketData.TotalVolume["usd"]; ok {
		c.cache.Put(id, marketcache.KindVolume, vol)
	}
	return m, nil
}

// FetchVolume returns the asset's 24h trading volume.
func (c *Client) FetchVolume(ctx context.Context, assetID string) (float64, error) {
	id := CanonicalID(assetID)

	if v, ok := c.cache.Get(id, marketcache.KindVolume); ok {
		if vol, valid := v.(float64); valid {
			return vol, nil
		}
	}

	if !c.gate.Acquire(ctx, c.opts.Identity, "volume:"+id) {
		return 0, fmt.Errorf("volume %s: rate gate denied", id)
	}

	payload, err := c.requestCoin(ctx, id)
	if err != nil {
		return 0, err
	}

	vol, ok := payload.MarketData.TotalVolume["usd"]
	if !ok {
		return 0, fmt.Errorf("volume %s: total_volume.usd missing", id)
	}
	c.cache.Put(id, marketcache.KindVolume, vol)
	return vol, nil
}

// FetchPrice returns the spot price in USD via the simple-price endpoint.
func (c *Client) FetchPrice(ctx context.Context, assetID string) (float64, error) {
	id := CanonicalID(assetID)

	if v, ok := c.cache.Get(id, marketcache.KindPrice); ok {
		if price, valid := v.(float64); valid {
			return price, nil
		}
	}

	if !c.gate.Acquire(ctx, c.opts.Identity, "price:"+id) {
		return 0, fmt.Errorf("price %s: rate gate denied", id)
	}

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.opts.BaseURL, id)
	body, status, err := c.do(ctx, c.light, url)
	if err != nil {
		return 0, fmt.Errorf("price %s: %w", id, err)
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("price %s: unexpected status %d", id, status)
	}

	var payload map[string]map[string]float64
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("price %s: decode: %w", id, err)
	}
	price, ok := payload[id]["usd"]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("price %s: missing usd quote", id)
	}
	c.cache.Put(id, marketcache.KindPrice, price)
	return price, nil
}

// requestOHLC drives the retry policy: exponential backoff on 429, linear
// backoff on transport or decode failure, and no retry at all on 404 or other
// status codes.
func (c *Client) requestOHLC(ctx context.Context, id string) ([]market.Candle, error) {
	url := fmt.Sprintf("%s/coins/%s/ohlc?vs_currency=usd&days=%d", c.opts.BaseURL, id, c.opts.LookbackDays)

	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		var delay time.Duration

		body, status, err := c.do(ctx, c.history, url)
		switch {
		case err != nil:
			lastErr = err
			delay = c.linearDelay(attempt)
		case status == http.StatusOK:
			candles, parseErr := parseOHLC(body)
			if parseErr == nil {
				return candles, nil
			}
			lastErr = parseErr
			delay = c.linearDelay(attempt)
		case status == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (429)")
			delay = c.exponentialDelay(attempt)
		default:
			// 404 and everything else non-2xx: permanent, no retry.
			return nil, fmt.Errorf("ohlc %s: status %d", id, status)
		}

		if attempt == c.opts.MaxAttempts {
			break
		}
		if !c.backoff(ctx, delay) {
			return nil, fmt.Errorf("ohlc %s: cancelled: %w", id, lastErr)
		}
	}
	return nil, fmt.Errorf("ohlc %s: retries exhausted: %w", id, lastErr)
}

func (c *Client) requestCoin(ctx context.Context, id string) (*coinPayload, error) {
	url := fmt.Sprintf("%s/coins/%s?localization=false&tickers=false&market_data=true&community_data=false&developer_data=false", c.opts.BaseURL, id)
	body, status, err := c.do(ctx, c.light, url)
	if err != nil {
		return nil, fmt.Errorf("coin %s: %w", id, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("coin %s: unexpected status %d", id, status)
	}

	var payload coinPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("coin %s: decode: %w", id, err)
	}
	return &payload, nil
}

// do issues one GET through the circuit breaker. Only transport-level errors
// feed the breaker; HTTP status handling stays with the caller so 404/429
// semantics survive.
func (c *Client) do(ctx context.Context, client *http.Client, url string) ([]byte, int, error) {
	type response struct {
		body   []byte
		status int
	}

	res, err := c.breaker.Execute(func() (any, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if reqErr != nil {
			return nil, reqErr
		}
		req.Header.Set("Accept", "application/json")
		if c.opts.UserAgent != "" {
			req.Header.Set("User-Agent", c.opts.UserAgent)
		}

		resp, doErr := client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, readErr
		}
		return response{body: body, status: resp.StatusCode}, nil
	})
	if err != nil {
		return nil, 0, err
	}

	r := res.(response)
	return r.body, r.status, nil
}

func (c *Client) fallback(id string, currentPrice float64, reason string) market.History {
	c.logger.Warn().
		Str("asset", id).
		Str("reason", reason).
		Msg("serving synthetic history")
	return c.synth.History(id, currentPrice)
}

// fillVolumes copies the asset's real 24h volume onto each candle; the OHLC
// endpoint itself carries none. When the volume lookup fails the price-tier
// estimate is used instead.
func (c *Client) fillVolumes(ctx context.Context, id string, currentPrice float64, candles []market.Candle) {
	vol, err := c.FetchVolume(ctx, id)
	if err != nil || vol <= 0 {
		vol = c.synth.EstimateVolume(currentPrice)
	}
	for i := range candles {
		candles[i].Volume = vol
	}
}

func (c *Client) linearDelay(attempt int) time.Duration {
	return c.capDelay(time.Duration(attempt) * c.opts.RetryBaseDelay)
}

func (c *Client) exponentialDelay(attempt int) time.Duration {
	return c.capDelay(c.opts.RetryBaseDelay << (attempt - 1))
}

func (c *Client) capDelay(d time.Duration) time.Duration {
	if d > c.opts.MaxRetryDelay {
		return c.opts.MaxRetryDelay
	}
	return d
}

func (c *Client) backoff(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func parseOHLC(body []byte) ([]market.Candle, error) {
	var raw [][]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode ohlc: %w", err)
	}

	candles := make([]market.Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 5 {
			return nil, fmt.Errorf("decode ohlc: tuple has %d fields", len(row))
		}
		candles = append(candles, market.Candle{
			Timestamp: int64(row[0]),
			Open:      row[1],
			High:      row[2],
			Low:       row[3],
			Close:     row[4],
		})
	}
	return candles, nil
}

type coinPayload struct {
	MarketData struct {
		MarketCap                map[string]float64 `json:"market_cap"`
		TotalVolume              map[string]float64 `json:"total_volume"`
		PriceChangePercentage7d  float64            `json:"price_change_percentage_7d"`
		PriceChangePercentage24h float64            `json:"price_change_percentage_24h"`
	} `json:"market_data"`
}
