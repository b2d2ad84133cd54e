package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptick/internal/config"
	"cryptick/internal/hotkey"
	"cryptick/internal/market"
	"cryptick/internal/profile"
	"cryptick/internal/scheduler"
	"cryptick/internal/ticker"
)

type fakeRefresher struct {
	submitted []scheduler.Request
	refreshes int
	paused    bool
	results   chan scheduler.Result
}

func newFakeRefresher() *fakeRefresher {
	return &fakeRefresher{results: make(chan scheduler.Result, 4)}
}

func (f *fakeRefresher) Submit(r scheduler.Request)       { f.submitted = append(f.submitted, r) }
func (f *fakeRefresher) Refresh()                         { f.refreshes++ }
func (f *fakeRefresher) Pause(p bool)                     { f.paused = p }
func (f *fakeRefresher) Paused() bool                     { return f.paused }
func (f *fakeRefresher) Results() <-chan scheduler.Result { return f.results }

type fakeLogos struct {
	mu    sync.Mutex
	calls []map[string]string
}

func (f *fakeLogos) FetchMissing(_ context.Context, urls map[string]string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, urls)
	keys := make([]string, 0, len(urls))
	for k := range urls {
		keys = append(keys, k)
	}
	return keys, nil
}

func (f *fakeLogos) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

const (
	btcAddr = "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599"
	ethAddr = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
)

// mainState has an active "Main" profile on monitor 0 holding BTC and ETH,
// plus an empty second profile.
func mainState() *config.AppState {
	st := config.Default()
	mon := 0
	p := st.Profiles[0]
	p.Name = "Main"
	p.Monitor = &mon
	p.Style.UseCustomNames = true
	p.Tokens = []market.TickerEntry{
		{NetworkID: "eth", Address: btcAddr, CustomName: "BTC"},
		{NetworkID: "eth", Address: ethAddr, CustomName: "ETH"},
	}
	st.Profiles[1].Monitor = &mon
	st.Profiles[1].Tokens = []market.TickerEntry{{NetworkID: "bsc", Address: ethAddr}}
	st.Profiles = st.Profiles[:2]
	st.ActiveProfile = p.ID
	return st
}

func newController(t *testing.T, opts ...Option) (*Controller, *fakeRefresher, *profile.Manager) {
	t.Helper()
	mgr := profile.NewManager(mainState(), nil, profile.WithDebounce(0))
	ref := newFakeRefresher()
	c := NewController(context.Background(), mgr, ref, opts...)
	return c, ref, mgr
}

func TestNewController_SubmitsActiveTickerSet(t *testing.T) {
	_, ref, mgr := newController(t)

	require.Len(t, ref.submitted, 1)
	req := ref.submitted[0]
	assert.Equal(t, market.Signature(mgr.Active().Tokens), req.Signature)
	assert.Len(t, req.Entries, 2)
	assert.Equal(t, 30*time.Second, req.Interval)
}

func TestApplyResult_ErrorTickerMarkedNotBlank(t *testing.T) {
	c, ref, mgr := newController(t)
	btc := mgr.Active().Tokens[0].Key()
	eth := mgr.Active().Tokens[1].Key()

	ref.results <- scheduler.Result{
		Signature: ref.submitted[0].Signature,
		Records: []market.PriceRecord{
			{Key: btc, Price: decimal.NewNullDecimal(decimal.NewFromInt(60000)), Status: market.StatusOK, Name: "Wrapped BTC"},
			{Key: eth, Status: market.StatusError, Err: errors.New("HTTP request failed [eth]: timeout")},
		},
	}
	assert.True(t, c.Poll())

	bar := c.Bar()
	require.Len(t, bar.Items, 2)
	assert.Equal(t, "BTC", bar.Items[0].Name)
	assert.Equal(t, "$60,000.00", bar.Items[0].Price)
	assert.Empty(t, bar.Items[0].Marker)

	assert.Equal(t, "ETH", bar.Items[1].Name)
	assert.Equal(t, ticker.MarkerError, bar.Items[1].Marker)
	assert.False(t, bar.Items[1].Pending)

	assert.Equal(t, "Wrapped BTC", mgr.State().TokenNames[btc])
}

func TestApplyResult_DropsStaleSignature(t *testing.T) {
	c, ref, mgr := newController(t)
	oldSig := ref.submitted[0].Signature
	btc := mgr.Active().Tokens[0].Key()

	c.HandleAction(hotkey.ActionCycle)
	require.Len(t, ref.submitted, 2)
	assert.NotEqual(t, oldSig, ref.submitted[1].Signature)

	applied := c.ApplyResult(scheduler.Result{
		Signature: oldSig,
		Records:   []market.PriceRecord{{Key: btc, Price: decimal.NewNullDecimal(decimal.NewFromInt(1)), Status: market.StatusOK}},
	})
	assert.False(t, applied)
	assert.NotContains(t, c.Records(), btc)
}

func TestHandleAction_CycleRebuildsBar(t *testing.T) {
	c, _, mgr := newController(t)
	first := c.Bar().ProfileID

	c.HandleAction(hotkey.ActionCycle)
	assert.NotEqual(t, first, c.Bar().ProfileID)
	assert.Equal(t, mgr.Active().ID, c.Bar().ProfileID)

	c.HandleAction(hotkey.ActionCycle)
	assert.Equal(t, first, c.Bar().ProfileID)
}

func TestHandleAction_UnlockRefreshPauseQuit(t *testing.T) {
	c, ref, _ := newController(t)

	v := c.Version()
	c.HandleAction(hotkey.ActionUnlock)
	assert.True(t, c.Unlocked())
	assert.Greater(t, c.Version(), v)
	c.HandleAction(hotkey.ActionUnlock)
	assert.False(t, c.Unlocked())

	c.HandleAction(hotkey.ActionRefresh)
	assert.Equal(t, 1, ref.refreshes)

	c.HandleAction(hotkey.ActionPause)
	assert.True(t, c.Paused())
	c.HandleAction(hotkey.ActionPause)
	assert.False(t, c.Paused())

	assert.False(t, c.QuitRequested())
	c.HandleAction(hotkey.ActionQuit)
	assert.True(t, c.QuitRequested())
}

func TestPoll_DrainsActions(t *testing.T) {
	actions := make(chan hotkey.Action, 2)
	c, _, mgr := newController(t, WithActions(actions))
	first := mgr.Active().ID

	actions <- hotkey.ActionCycle
	assert.True(t, c.Poll())
	assert.NotEqual(t, first, mgr.Active().ID)
}

func TestHiddenProfileSubmitsEmptyRequest(t *testing.T) {
	c, ref, mgr := newController(t)

	require.NoError(t, mgr.SetMonitor(mgr.Active().ID, nil))
	c.Poll()

	last := ref.submitted[len(ref.submitted)-1]
	assert.Empty(t, last.Entries)
	assert.False(t, c.Bar().Visible())
}

func TestRefreshOverrideAndFloor(t *testing.T) {
	_, ref, _ := newController(t, WithRefreshOverride(time.Second))
	assert.Equal(t, scheduler.MinInterval, ref.submitted[0].Interval)

	_, ref, _ = newController(t, WithRefreshOverride(45*time.Second))
	assert.Equal(t, 45*time.Second, ref.submitted[0].Interval)
}

func TestReload_ReplacesState(t *testing.T) {
	c, _, mgr := newController(t)

	st := mainState()
	st.Profiles[0].Name = "Renamed"
	c.Reload(st)
	c.Poll()

	assert.Same(t, st, mgr.State())
	assert.Equal(t, "Renamed", c.Bar().ProfileName)
}

func TestApplyResult_FetchesLogosInBackground(t *testing.T) {
	logos := &fakeLogos{}
	c, ref, mgr := newController(t, WithLogos(logos))
	btc := mgr.Active().Tokens[0].Key()

	c.ApplyResult(scheduler.Result{
		Signature: ref.submitted[0].Signature,
		Records: []market.PriceRecord{
			{Key: btc, ImageURL: "https://img/btc.png", Status: market.StatusOK},
		},
	})

	require.Eventually(t, func() bool { return logos.callCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "https://img/btc.png", logos.calls[0][btc])

	v := c.Version()
	require.Eventually(t, func() bool { c.Poll(); return c.Version() > v }, time.Second, 5*time.Millisecond)
}

func TestSaveWindowPos(t *testing.T) {
	c, _, _ := newController(t)
	c.SaveWindowPos(1, 100, 0)

	pos, ok := c.WindowPos(1)
	require.True(t, ok)
	assert.Equal(t, config.WindowPos{X: 100, Y: 0}, pos)
}
