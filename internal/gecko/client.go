package gecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"cryptick/internal/market"
)

const (
	DefaultBaseURL = "https://api.geckoterminal.com/api/v2"
	DefaultTimeout = 15 * time.Second

	// MaxMultiAddresses is the most addresses tokens/multi accepts per call.
	MaxMultiAddresses = 30

	maxBodyBytes = 4 << 20
)

// ErrUnavailable is returned without touching the network while the
// circuit breaker is open.
var ErrUnavailable = errors.New("price API unavailable")

// StatusError is a non-200 response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// retryable reports whether the request might succeed if repeated.
func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Observer receives request outcomes. *metrics.Collector satisfies it.
type Observer interface {
	ObserveRequest(network string, err error)
	SetBreakerState(state int)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, error) {}
func (nopObserver) SetBreakerState(int)          {}

type Client struct {
	baseURL    string
	http       *http.Client
	retries    uint64
	newBackOff func() backoff.BackOff
	breaker    *gobreaker.CircuitBreaker
	log        *zap.SugaredLogger
	obs        Observer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithRetries(n int) Option {
	return func(c *Client) {
		if n < 0 {
			n = 0
		}
		c.retries = uint64(n)
	}
}

// WithBackOff replaces the exponential retry policy; tests use
// backoff.ZeroBackOff.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = f }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) { c.log = log }
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.obs = o
		}
	}
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: timeout},
		retries:    2,
		newBackOff: newExponentialBackOff,
		log:        zap.NewNop().Sugar(),
		obs:        nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "geckoterminal",
		MaxRequests: 1,
		Interval:    2 * time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.log.Infow("Circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
			c.obs.SetBreakerState(int(to))
		},
	})
	return c
}

func newExponentialBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.1
	return b
}

// isSuccessful keeps client-side mistakes (unknown token, bad network) and
// cancellations from tripping the breaker.
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return !se.retryable()
	}
	return false
}

// Multi fetches up to MaxMultiAddresses tokens on one network. The result is
// keyed by normalized address; tokens the API does not know are absent.
func (c *Client) Multi(ctx context.Context, network string, addrs []string) (map[string]TokenQuote, error) {
	if len(addrs) == 0 {
		return map[string]TokenQuote{}, nil
	}
	if len(addrs) > MaxMultiAddresses {
		return nil, fmt.Errorf("too many addresses [%s]: %d > %d", network, len(addrs), MaxMultiAddresses)
	}

	norm := make([]string, len(addrs))
	for i, a := range addrs {
		norm[i] = market.NormalizeAddress(a)
	}
	path := fmt.Sprintf("/networks/%s/tokens/multi/%s?include=top_pools&include_composition=false",
		url.PathEscape(network), url.PathEscape(strings.Join(norm, ",")))

	body, err := c.get(ctx, network, path)
	if err != nil {
		return nil, err
	}

	var resp multiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("JSON parse error [%s]: %w", network, err)
	}

	pools := make(map[string]poolResource, len(resp.Included))
	for _, inc := range resp.Included {
		if inc.Type == "" || inc.Type == "pool" {
			pools[inc.ID] = inc
		}
	}

	out := make(map[string]TokenQuote, len(resp.Data))
	for _, tok := range resp.Data {
		a := tok.Attributes
		addr := market.NormalizeAddress(a.Address)
		if addr == "" {
			continue
		}
		q := TokenQuote{
			Address:  addr,
			Name:     strings.TrimSpace(a.Name),
			Symbol:   strings.TrimSpace(a.Symbol),
			ImageURL: usableImage(a.ImageURL),
			PriceUSD: a.PriceUSD.NullDecimal,
		}
		if rel := tok.Relationships.TopPools.Data; len(rel) > 0 {
			if pool, ok := pools[rel[0].ID]; ok {
				q.Change5m = pool.Attributes.PriceChange.M5.NullDecimal
				q.Change24h = pool.Attributes.PriceChange.H24.NullDecimal
			}
		}
		out[addr] = q
	}
	return out, nil
}

// TokenInfo looks up a single token's metadata. It is used when a token is
// added so the bar can show a name before the first refresh.
func (c *Client) TokenInfo(ctx context.Context, network, addr string) (TokenQuote, error) {
	addr = market.NormalizeAddress(addr)
	path := fmt.Sprintf("/networks/%s/tokens/%s/info", url.PathEscape(network), url.PathEscape(addr))

	body, err := c.get(ctx, network, path)
	if err != nil {
		return TokenQuote{}, err
	}

	var resp infoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return TokenQuote{}, fmt.Errorf("JSON parse error [%s]: %w", network, err)
	}
	a := resp.Data.Attributes
	if strings.TrimSpace(a.Name) == "" {
		return TokenQuote{}, fmt.Errorf("token not found [%s]: %s", network, addr)
	}
	return TokenQuote{
		Address:  addr,
		Name:     strings.TrimSpace(a.Name),
		Symbol:   strings.TrimSpace(a.Symbol),
		ImageURL: usableImage(a.ImageURL),
	}, nil
}

// Networks lists one page of supported network ids.
func (c *Client) Networks(ctx context.Context, page int) ([]Network, error) {
	if page < 1 {
		page = 1
	}
	body, err := c.get(ctx, "networks", fmt.Sprintf("/networks?page=%d", page))
	if err != nil {
		return nil, err
	}
	var resp networksResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("JSON parse error [networks]: %w", err)
	}
	out := make([]Network, 0, len(resp.Data))
	for _, d := range resp.Data {
		out = append(out, Network{ID: d.ID, Name: d.Attributes.Name})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, network, path string) ([]byte, error) {
	op := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("build request [%s]: %w", network, err))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed [%s]: %w", network, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("body read error [%s]: %w", network, err)
		}

		if resp.StatusCode != http.StatusOK {
			snippet := string(body)
			if len(snippet) > 200 {
				snippet = snippet[:200]
			}
			se := &StatusError{Code: resp.StatusCode, Body: snippet}
			c.log.Warnw("API error", "network", network, "status", resp.StatusCode, "body", snippet)
			if !se.retryable() {
				return nil, backoff.Permanent(fmt.Errorf("API error [%s]: %w", network, se))
			}
			return nil, fmt.Errorf("API error [%s]: %w", network, se)
		}
		return body, nil
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.retries), ctx)
		return backoff.RetryWithData(op, policy)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w [%s]: %w", ErrUnavailable, network, err)
	}
	c.obs.ObserveRequest(network, err)
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}
