package profile

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptick/internal/config"
	"cryptick/internal/market"
)

type countingSaver struct {
	saves int
	err   error
}

func (s *countingSaver) Save(*config.AppState) error {
	s.saves++
	return s.err
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type switchCounter struct{ n int }

func (s *switchCounter) ProfileSwitched() { s.n++ }

func newManager(t *testing.T) (*Manager, *countingSaver, *fakeClock) {
	t.Helper()
	saver := &countingSaver{}
	clock := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	m := NewManager(config.Default(), saver, WithClock(clock.Now))
	return m, saver, clock
}

func TestCycleNext_WrapsAround(t *testing.T) {
	m, saver, clock := newManager(t)
	start := m.Active().ID
	n := len(m.State().Profiles)

	seen := []string{}
	for i := 0; i < n; i++ {
		changed, err := m.CycleNext()
		require.NoError(t, err)
		require.True(t, changed)
		seen = append(seen, m.Active().Name)
		clock.Advance(time.Second)
	}

	assert.Equal(t, start, m.Active().ID)
	assert.Equal(t, []string{"Medium Risk Assets", "Low Risk Assets", "High Risk Assets"}, seen)
	assert.Equal(t, n, saver.saves)
}

func TestCycleNext_Debounced(t *testing.T) {
	m, _, clock := newManager(t)
	obs := &switchCounter{}
	m.obs = obs
	gen := m.Generation()

	changed, err := m.CycleNext()
	require.NoError(t, err)
	assert.True(t, changed)

	clock.Advance(100 * time.Millisecond)
	changed, err = m.CycleNext()
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Equal(t, "Medium Risk Assets", m.Active().Name)
	assert.Equal(t, 1, obs.n)
	assert.Equal(t, gen+1, m.Generation())

	clock.Advance(DefaultDebounce)
	changed, err = m.CycleNext()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "Low Risk Assets", m.Active().Name)
}

func TestCycleNext_SingleProfileIsNoop(t *testing.T) {
	st := config.Default()
	st.Profiles = st.Profiles[:1]
	m := NewManager(st, nil)

	changed, err := m.CycleNext()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSwitchTo(t *testing.T) {
	m, _, _ := newManager(t)
	target := m.State().Profiles[2]

	require.NoError(t, m.SwitchTo(target.ID))
	assert.Equal(t, target.ID, m.Active().ID)

	err := m.SwitchTo("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, target.ID, m.Active().ID)
}

func TestFind(t *testing.T) {
	m, _, _ := newManager(t)
	second := m.State().Profiles[1]

	for _, ref := range []string{second.ID, "medium risk assets", " Medium Risk Assets ", "2"} {
		p, err := m.Find(ref)
		require.NoError(t, err, ref)
		assert.Equal(t, second.ID, p.ID, ref)
	}
	_, err := m.Find("4")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRenameDelete(t *testing.T) {
	m, saver, _ := newManager(t)

	p, err := m.Create("  Degen  ")
	require.NoError(t, err)
	assert.Equal(t, "Degen", p.Name)
	assert.Equal(t, m.State().Defaults, p.Style)
	assert.Len(t, m.State().Profiles, 4)

	_, err = m.Create("degen")
	assert.ErrorIs(t, err, ErrDuplicateName)
	_, err = m.Create(" ")
	assert.ErrorIs(t, err, ErrEmptyName)

	require.NoError(t, m.Rename(p.ID, "Moonshots"))
	assert.Equal(t, "Moonshots", p.Name)
	assert.ErrorIs(t, m.Rename(p.ID, "Low Risk Assets"), ErrDuplicateName)
	require.NoError(t, m.Rename(p.ID, "moonshots"))

	require.NoError(t, m.Delete(p.ID))
	assert.Len(t, m.State().Profiles, 3)
	assert.ErrorIs(t, m.Delete(p.ID), ErrNotFound)
	assert.Equal(t, 4, saver.saves)
}

func TestDelete_ActiveMovesToFirst(t *testing.T) {
	m, _, _ := newManager(t)
	first := m.State().Profiles[0]
	last := m.State().Profiles[2]
	require.NoError(t, m.SwitchTo(last.ID))

	require.NoError(t, m.Delete(last.ID))
	assert.Equal(t, first.ID, m.Active().ID)
}

func TestDelete_LastProfileLeavesFreshOne(t *testing.T) {
	st := config.Default()
	st.Profiles = st.Profiles[:1]
	m := NewManager(st, nil)

	require.NoError(t, m.Delete(st.Profiles[0].ID))
	require.Len(t, m.State().Profiles, 1)
	assert.Equal(t, NewProfileName, m.Active().Name)
}

func TestTokens(t *testing.T) {
	m, _, _ := newManager(t)
	id := m.Active().ID
	gen := m.Generation()

	a := market.TickerEntry{NetworkID: "ETH", Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", CustomName: " WETH "}
	b := market.TickerEntry{NetworkID: "solana", Address: "So11111111111111111111111111111111111111112"}
	c := market.TickerEntry{NetworkID: "bsc", Address: "0x0e09fabb73bd3ade0a17ecc321fd13a19e81ce82"}
	require.NoError(t, m.AddToken(id, a))
	require.NoError(t, m.AddToken(id, b))
	require.NoError(t, m.AddToken(id, c))
	assert.Greater(t, m.Generation(), gen)

	toks := m.Active().Tokens
	require.Len(t, toks, 3)
	assert.Equal(t, "eth:0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", toks[0].Key())
	assert.Equal(t, "WETH", toks[0].CustomName)

	assert.ErrorIs(t, m.AddToken(id, a), ErrDuplicateToken)
	assert.Error(t, m.AddToken(id, market.TickerEntry{NetworkID: "eth", Address: "0x123"}))
	assert.Error(t, m.AddToken(id, market.TickerEntry{NetworkID: "", Address: "abc"}))

	require.NoError(t, m.MoveToken(id, c.Key(), -1))
	assert.Equal(t, c.Key(), m.Active().Tokens[1].Key())
	require.NoError(t, m.MoveToken(id, c.Key(), -5))
	assert.Equal(t, c.Key(), m.Active().Tokens[0].Key())
	require.NoError(t, m.MoveToken(id, c.Key(), +10))
	assert.Equal(t, c.Key(), m.Active().Tokens[2].Key())

	require.NoError(t, m.UpdateToken(id, b.Key(), func(e *market.TickerEntry) {
		e.CustomName = "SOL"
		e.Address = "changed"
		e.Bold = true
	}))
	sol := m.Active().Tokens[1]
	assert.Equal(t, "SOL", sol.CustomName)
	assert.True(t, sol.Bold)
	assert.Equal(t, b.Key(), sol.Key())

	require.NoError(t, m.RemoveToken(id, a.Key()))
	assert.Len(t, m.Active().Tokens, 2)
	assert.ErrorIs(t, m.RemoveToken(id, a.Key()), ErrTokenNotFound)
}

func TestUpdateStyle_Clamps(t *testing.T) {
	m, _, _ := newManager(t)
	id := m.Active().ID

	require.NoError(t, m.UpdateStyle(id, func(s *config.Style) {
		s.Opacity = 0.1
		s.FontPx = 100
		s.FontColor = "blue"
		s.Separator = "•"
	}))
	st := m.Active().Style
	assert.Equal(t, 0.3, st.Opacity)
	assert.Equal(t, 48, st.FontPx)
	assert.Equal(t, "#FFFFFF", st.FontColor)
	assert.Equal(t, "•", st.Separator)
}

func TestSetMonitor(t *testing.T) {
	m, _, _ := newManager(t)
	id := m.Active().ID

	one := 1
	require.NoError(t, m.SetMonitor(id, &one))
	require.NotNil(t, m.Active().Monitor)
	assert.Equal(t, 1, *m.Active().Monitor)

	neg := -1
	require.NoError(t, m.SetMonitor(id, &neg))
	assert.Nil(t, m.Active().Monitor)
}

func TestRecordTokenMeta_SavesOnlyOnChange(t *testing.T) {
	m, saver, _ := newManager(t)
	recs := []market.PriceRecord{
		{Key: "eth:0xa", Name: "Alpha", ImageURL: "https://img/a.png", Status: market.StatusOK},
		{Key: "eth:0xb", Name: "Ignored", Status: market.StatusError},
	}

	require.NoError(t, m.RecordTokenMeta(recs))
	assert.Equal(t, 1, saver.saves)
	assert.Equal(t, "Alpha", m.State().TokenNames["eth:0xa"])
	assert.Equal(t, "https://img/a.png", m.State().TokenLogos["eth:0xa"])
	assert.NotContains(t, m.State().TokenNames, "eth:0xb")

	require.NoError(t, m.RecordTokenMeta(recs))
	assert.Equal(t, 1, saver.saves)
}

func TestSaveErrorIsReturned(t *testing.T) {
	m, saver, _ := newManager(t)
	saver.err = errors.New("disk full")

	_, err := m.Create("X")
	assert.EqualError(t, err, "disk full")
	assert.NotNil(t, m.State().ProfileByName("X"))
}

func TestReplace_AdoptsReloadedState(t *testing.T) {
	m, _, _ := newManager(t)
	st := config.Default()
	st.ActiveProfile = st.Profiles[2].ID
	gen := m.Generation()

	m.Replace(st)
	assert.Same(t, st, m.State())
	assert.Equal(t, "Low Risk Assets", m.Active().Name)
	assert.Greater(t, m.Generation(), gen)
}

func TestSetWindowPos(t *testing.T) {
	m, saver, _ := newManager(t)
	require.NoError(t, m.SetWindowPos(0, config.WindowPos{X: 5, Y: 6}))
	require.NoError(t, m.SetWindowPos(0, config.WindowPos{X: 5, Y: 6}))
	assert.Equal(t, 1, saver.saves)
	assert.Equal(t, config.WindowPos{X: 5, Y: 6}, m.State().Windows[0])
}

func TestUpdateHotkeys(t *testing.T) {
	m, saver, _ := newManager(t)

	require.NoError(t, m.UpdateHotkeys(func(h *config.Hotkeys) {
		h.Pause = " Ctrl+Alt+P "
		h.Cycle = ""
	}))
	hk := m.State().Hotkeys
	assert.Equal(t, "ctrl+alt+p", hk.Pause)
	assert.Equal(t, config.DefaultCycleHotkey, hk.Cycle)
	assert.Empty(t, hk.Refresh)
	assert.Equal(t, 1, saver.saves)
}
