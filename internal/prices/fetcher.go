package prices

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cryptick/internal/market"
)

const (
	// StaleIntervals is how many refresh intervals a record may go without a
	// successful update before it is shown as stale.
	StaleIntervals = 3

	maxConcurrentNetworks = 4
)

// FetchObserver records fetch timings. *metrics.Collector satisfies it.
type FetchObserver interface {
	ObserveFetch(strategy string, d time.Duration)
}

type Fetcher struct {
	quoter   Quoter
	strategy Strategy
	now      func() time.Time
	log      *zap.SugaredLogger
	obs      FetchObserver
}

type Option func(*Fetcher)

func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(f *Fetcher) { f.log = log }
}

func WithObserver(o FetchObserver) Option {
	return func(f *Fetcher) { f.obs = o }
}

func NewFetcher(q Quoter, s Strategy, opts ...Option) *Fetcher {
	if s == nil {
		s = BatchStrategy{}
	}
	f := &Fetcher{
		quoter:   q,
		strategy: s,
		now:      time.Now,
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) Strategy() string { return f.strategy.Name() }

// Fetch returns one record per entry, in entry order. It never fails: a
// ticker whose request failed keeps its last known price from previous and
// is marked error, or stale once its last success is older than
// StaleIntervals refresh intervals.
func (f *Fetcher) Fetch(ctx context.Context, entries []market.TickerEntry, previous map[string]market.PriceRecord, interval time.Duration) []market.PriceRecord {
	start := f.now()

	var networks []string
	byNetwork := map[string][]string{}
	seen := map[string]bool{}
	for _, e := range entries {
		k := e.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		net := strings.ToLower(strings.TrimSpace(e.NetworkID))
		if _, ok := byNetwork[net]; !ok {
			networks = append(networks, net)
		}
		byNetwork[net] = append(byNetwork[net], market.NormalizeAddress(e.Address))
	}

	var mu sync.Mutex
	results := make(map[string]Result, len(seen))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentNetworks)
	for _, net := range networks {
		g.Go(func() error {
			res := f.strategy.Fetch(gctx, f.quoter, net, byNetwork[net])
			mu.Lock()
			for addr, r := range res {
				results[market.Key(net, addr)] = r
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	now := f.now()
	records := make(map[string]market.PriceRecord, len(seen))
	failed := 0
	for k := range seen {
		rec := f.record(k, results[k], previous[k], now, interval)
		if rec.Degraded() {
			failed++
			f.log.Debugw("Ticker degraded", "key", k, "status", rec.Status.String(), "error", rec.Err)
		}
		records[k] = rec
	}

	out := make([]market.PriceRecord, len(entries))
	for i, e := range entries {
		out[i] = records[e.Key()]
	}

	elapsed := f.now().Sub(start)
	if f.obs != nil {
		f.obs.ObserveFetch(f.strategy.Name(), elapsed)
	}
	f.log.Infow("Refresh done",
		"strategy", f.strategy.Name(),
		"networks", len(networks),
		"tickers", len(seen),
		"degraded", failed,
		"elapsed", elapsed)
	return out
}

func (f *Fetcher) record(key string, r Result, prev market.PriceRecord, now time.Time, interval time.Duration) market.PriceRecord {
	if r.Err == nil && r.Quote.Address == "" {
		r.Err = ErrNotReported
	}
	if r.Err == nil {
		q := r.Quote
		return market.PriceRecord{
			Key:       key,
			Price:     q.PriceUSD,
			Change5m:  q.Change5m,
			Change24h: q.Change24h,
			Name:      q.Name,
			Symbol:    q.Symbol,
			ImageURL:  q.ImageURL,
			FetchedAt: now,
			Status:    market.StatusOK,
		}
	}

	rec := prev
	rec.Key = key
	rec.Err = r.Err
	rec.Status = market.StatusError
	if !prev.FetchedAt.IsZero() && interval > 0 && now.Sub(prev.FetchedAt) > StaleIntervals*interval {
		rec.Status = market.StatusStale
	}
	return rec
}
