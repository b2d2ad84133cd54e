package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"cryptick/internal/market"
)

// MinInterval is the shortest allowed refresh interval.
const MinInterval = 10 * time.Second

type State int32

const (
	Idle State = iota
	Fetching
)

func (s State) String() string {
	if s == Fetching {
		return "FETCHING"
	}
	return "IDLE"
}

// FetchFunc refreshes a ticker set. It must not fail; degraded tickers are
// reported through record status.
type FetchFunc func(ctx context.Context, entries []market.TickerEntry, previous map[string]market.PriceRecord, interval time.Duration) []market.PriceRecord

// Request describes the ticker set the UI currently wants refreshed.
type Request struct {
	Signature string
	Entries   []market.TickerEntry
	Interval  time.Duration
}

// Result is posted after every completed fetch. Signature is the one the
// fetch was started with; the UI drops results that no longer match.
type Result struct {
	Signature  string
	Records    []market.PriceRecord
	StartedAt  time.Time
	FinishedAt time.Time
	Manual     bool
}

type fetchDone struct {
	req    Request
	result Result
}

// Scheduler drives refreshes from a single goroutine. The UI talks to it
// only through Submit, Refresh, Pause and Results.
type Scheduler struct {
	fetch FetchFunc
	clock Clock
	log   *zap.SugaredLogger

	requests chan Request
	manual   chan struct{}
	pause    chan bool
	results  chan Result

	state  atomic.Int32
	paused atomic.Bool
}

type Option func(*Scheduler)

func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Scheduler) { s.log = log }
}

func New(fetch FetchFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetch:    fetch,
		clock:    realClock{},
		log:      zap.NewNop().Sugar(),
		requests: make(chan Request, 1),
		manual:   make(chan struct{}, 1),
		pause:    make(chan bool, 1),
		results:  make(chan Result, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit replaces the pending request. A new signature triggers a fetch
// right away; the same signature only updates the interval.
func (s *Scheduler) Submit(r Request) {
	for {
		select {
		case s.requests <- r:
			return
		default:
			select {
			case <-s.requests:
			default:
			}
		}
	}
}

// Refresh asks for a fetch now. Repeated calls before the loop picks the
// first one up collapse into one.
func (s *Scheduler) Refresh() {
	select {
	case s.manual <- struct{}{}:
	default:
	}
}

// Pause stops (true) or resumes (false) periodic refreshes. The last results
// stay on screen while paused.
func (s *Scheduler) Pause(p bool) {
	for {
		select {
		case s.pause <- p:
			return
		default:
			select {
			case <-s.pause:
			default:
			}
		}
	}
}

func (s *Scheduler) Results() <-chan Result { return s.results }

func (s *Scheduler) State() State { return State(s.state.Load()) }

func (s *Scheduler) Paused() bool { return s.paused.Load() }

// Run loops until ctx is done. Only one fetch is in flight at a time; ticks
// that arrive meanwhile are dropped, while a changed ticker set or a manual
// refresh is queued and served when the current fetch completes.
func (s *Scheduler) Run(ctx context.Context) {
	var (
		req      Request
		inFlight bool
		pending  bool
		pendingM bool
		previous = map[string]market.PriceRecord{}
	)
	done := make(chan fetchDone, 1)

	timer := s.clock.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	active := func() bool {
		return len(req.Entries) > 0 && !s.paused.Load()
	}
	resetTimer := func() {
		if active() {
			timer.Reset(interval(req.Interval))
		} else {
			timer.Stop()
		}
	}
	start := func(manual bool) {
		inFlight = true
		s.state.Store(int32(Fetching))

		r := req
		prev := make(map[string]market.PriceRecord, len(r.Entries))
		for _, e := range r.Entries {
			if rec, ok := previous[e.Key()]; ok {
				prev[e.Key()] = rec
			}
		}
		s.log.Debugw("Refresh start", "tickers", len(r.Entries), "manual", manual, "interval", interval(r.Interval))

		go func() {
			started := s.clock.Now()
			recs := s.fetch(ctx, r.Entries, prev, interval(r.Interval))
			done <- fetchDone{req: r, result: Result{
				Signature:  r.Signature,
				Records:    recs,
				StartedAt:  started,
				FinishedAt: s.clock.Now(),
				Manual:     manual,
			}}
		}()
	}
	queue := func(manual bool) {
		if inFlight {
			pending = true
			pendingM = pendingM || manual
			return
		}
		start(manual)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case r := <-s.requests:
			changed := r.Signature != req.Signature
			req = r
			if changed && active() {
				queue(false)
			}
			resetTimer()

		case <-s.manual:
			if len(req.Entries) == 0 {
				continue
			}
			queue(true)
			resetTimer()

		case p := <-s.pause:
			if s.paused.Swap(p) == p {
				continue
			}
			s.log.Infow("Refresh paused", "paused", p)
			if !p && active() {
				queue(false)
			}
			resetTimer()

		case <-timer.C():
			if !active() {
				continue
			}
			if inFlight {
				s.log.Debugw("Refresh tick coalesced")
			} else {
				start(false)
			}
			resetTimer()

		case d := <-done:
			inFlight = false
			s.state.Store(int32(Idle))
			for _, rec := range d.result.Records {
				previous[rec.Key] = rec
			}
			s.publish(d.result)

			if pending {
				pending = false
				manual := pendingM
				pendingM = false
				if active() {
					start(manual)
				}
			}
		}
	}
}

func (s *Scheduler) publish(r Result) {
	select {
	case s.results <- r:
		return
	default:
	}
	// The UI has not drained the previous result; the newer one wins.
	select {
	case <-s.results:
	default:
	}
	select {
	case s.results <- r:
	default:
	}
}

func interval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	return d
}
