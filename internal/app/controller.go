// Package app ties the profile manager, the refresh scheduler and the logo
// cache together for the overlay. Everything here runs on the UI goroutine
// except the background logo downloads.
package app

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"cryptick/internal/config"
	"cryptick/internal/hotkey"
	"cryptick/internal/market"
	"cryptick/internal/profile"
	"cryptick/internal/scheduler"
	"cryptick/internal/ticker"
)

// Refresher is the scheduler as seen from the UI goroutine.
type Refresher interface {
	Submit(scheduler.Request)
	Refresh()
	Pause(bool)
	Paused() bool
	Results() <-chan scheduler.Result
}

type LogoFetcher interface {
	FetchMissing(ctx context.Context, urls map[string]string) ([]string, error)
}

// RecordObserver receives per-status record counts after each applied
// refresh. *metrics.Collector satisfies it.
type RecordObserver interface {
	SetRecordCounts(map[string]int)
}

type Controller struct {
	ctx   context.Context
	mgr   *profile.Manager
	sched Refresher
	logos LogoFetcher
	log   *zap.SugaredLogger
	obs   RecordObserver

	// refreshOverride replaces the per-profile interval when set.
	refreshOverride time.Duration

	actions <-chan hotkey.Action
	reloads chan *config.AppState
	logoCh  chan []string
	logoRun atomic.Bool

	records   map[string]market.PriceRecord
	bar       ticker.Bar
	version   uint64
	seenGen   uint64
	submitted scheduler.Request
	built     bool

	unlocked bool
	quit     bool
}

type Option func(*Controller)

func WithLogos(l LogoFetcher) Option {
	return func(c *Controller) { c.logos = l }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Controller) { c.log = log }
}

func WithActions(ch <-chan hotkey.Action) Option {
	return func(c *Controller) { c.actions = ch }
}

func WithRefreshOverride(d time.Duration) Option {
	return func(c *Controller) { c.refreshOverride = d }
}

func WithRecordObserver(o RecordObserver) Option {
	return func(c *Controller) { c.obs = o }
}

func NewController(ctx context.Context, mgr *profile.Manager, sched Refresher, opts ...Option) *Controller {
	c := &Controller{
		ctx:     ctx,
		mgr:     mgr,
		sched:   sched,
		log:     zap.NewNop().Sugar(),
		reloads: make(chan *config.AppState, 1),
		logoCh:  make(chan []string, 1),
		records: map[string]market.PriceRecord{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.sync()
	return c
}

// Poll drains everything that arrived since the last frame. It returns true
// when the bar changed.
func (c *Controller) Poll() bool {
	before := c.version

	for {
		select {
		case st := <-c.reloads:
			c.mgr.Replace(st)
			continue
		case a := <-c.actions:
			c.HandleAction(a)
			continue
		case res := <-c.sched.Results():
			c.ApplyResult(res)
			continue
		case <-c.logoCh:
			c.version++
			continue
		default:
		}
		break
	}

	c.sync()
	return c.version != before
}

// Reload hands over a state that changed on disk. Safe to call from any
// goroutine; only the newest pending state is kept.
func (c *Controller) Reload(st *config.AppState) {
	for {
		select {
		case c.reloads <- st:
			return
		default:
			select {
			case <-c.reloads:
			default:
			}
		}
	}
}

// sync rebuilds the bar after profile changes and tells the scheduler about
// a new ticker set or interval.
func (c *Controller) sync() {
	if c.built && c.mgr.Generation() == c.seenGen {
		return
	}
	c.built = true
	c.seenGen = c.mgr.Generation()
	c.rebuild()

	req := c.request()
	if req.Signature != c.submitted.Signature || req.Interval != c.submitted.Interval || len(req.Entries) != len(c.submitted.Entries) {
		c.submitted = req
		c.sched.Submit(req)
	}
}

func (c *Controller) request() scheduler.Request {
	p := c.mgr.Active()
	if p == nil || p.Monitor == nil || len(p.Tokens) == 0 {
		return scheduler.Request{}
	}
	interval := time.Duration(p.Style.RefreshSec) * time.Second
	if c.refreshOverride > 0 {
		interval = c.refreshOverride
	}
	if interval < scheduler.MinInterval {
		interval = scheduler.MinInterval
	}
	entries := make([]market.TickerEntry, len(p.Tokens))
	copy(entries, p.Tokens)
	return scheduler.Request{
		Signature: market.Signature(entries),
		Entries:   entries,
		Interval:  interval,
	}
}

func (c *Controller) rebuild() {
	st := c.mgr.State()
	c.bar = ticker.Build(c.mgr.Active(), st.TokenNames, c.records)
	c.version++
}

// ApplyResult merges a finished refresh. Results requested for a ticker set
// other than the active profile's are dropped.
func (c *Controller) ApplyResult(res scheduler.Result) bool {
	c.sync()
	if res.Signature == "" || res.Signature != c.submitted.Signature {
		c.log.Debugw("Dropping stale refresh result", "signature", res.Signature)
		return false
	}

	counts := map[string]int{}
	for _, r := range res.Records {
		c.records[r.Key] = r
		counts[r.Status.String()]++
	}
	if c.obs != nil {
		c.obs.SetRecordCounts(counts)
	}
	if err := c.mgr.RecordTokenMeta(res.Records); err != nil {
		c.log.Warnw("Failed to save token names", "error", err)
	}
	c.rebuild()
	c.fetchLogos()
	return true
}

func (c *Controller) fetchLogos() {
	p := c.mgr.Active()
	if c.logos == nil || p == nil || !p.Style.ShowLogo {
		return
	}
	urls := map[string]string{}
	for _, t := range p.Tokens {
		k := t.Key()
		if t.LogoURL != "" {
			urls[k] = t.LogoURL
		} else if u := c.mgr.State().TokenLogos[k]; u != "" {
			urls[k] = u
		}
	}
	if len(urls) == 0 || !c.logoRun.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.logoRun.Store(false)
		added, err := c.logos.FetchMissing(c.ctx, urls)
		if err != nil {
			c.log.Debugw("Logo fetch interrupted", "error", err)
		}
		if len(added) == 0 {
			return
		}
		select {
		case c.logoCh <- added:
		default:
		}
	}()
}

// HandleAction runs a hotkey or local key action.
func (c *Controller) HandleAction(a hotkey.Action) {
	switch a {
	case hotkey.ActionCycle:
		changed, err := c.mgr.CycleNext()
		if err != nil {
			c.log.Warnw("Failed to save after profile switch", "error", err)
		}
		if changed {
			c.sync()
		}
	case hotkey.ActionUnlock:
		c.unlocked = !c.unlocked
		c.log.Infow("Bar lock toggled", "unlocked", c.unlocked)
		c.version++
	case hotkey.ActionRefresh:
		c.sched.Refresh()
	case hotkey.ActionPause:
		paused := !c.sched.Paused()
		c.sched.Pause(paused)
		c.log.Infow("Tracking paused", "paused", paused)
	case hotkey.ActionQuit:
		c.quit = true
	}
}

func (c *Controller) Bar() ticker.Bar { return c.bar }

// Version changes whenever the bar needs a new layout.
func (c *Controller) Version() uint64 { return c.version }

func (c *Controller) Unlocked() bool { return c.unlocked }

func (c *Controller) QuitRequested() bool { return c.quit }

func (c *Controller) Paused() bool { return c.sched.Paused() }

func (c *Controller) State() *config.AppState { return c.mgr.State() }

// WindowPos returns the saved bar position for a monitor.
func (c *Controller) WindowPos(monitor int) (config.WindowPos, bool) {
	pos, ok := c.mgr.State().Windows[monitor]
	return pos, ok
}

func (c *Controller) SaveWindowPos(monitor, x, y int) {
	if err := c.mgr.SetWindowPos(monitor, config.WindowPos{X: x, Y: y}); err != nil {
		c.log.Warnw("Failed to save window position", "error", err)
	}
}

// Records returns the latest record per key.
func (c *Controller) Records() map[string]market.PriceRecord { return c.records }
