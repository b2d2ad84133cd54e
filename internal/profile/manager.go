package profile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"cryptick/internal/config"
	"cryptick/internal/market"
)

const (
	DefaultDebounce = 300 * time.Millisecond
	NewProfileName  = "New Profile"
)

var (
	ErrNotFound       = errors.New("profile not found")
	ErrEmptyName      = errors.New("profile name is empty")
	ErrDuplicateName  = errors.New("profile name already in use")
	ErrTokenNotFound  = errors.New("token not found in profile")
	ErrDuplicateToken = errors.New("token already in profile")
)

// Saver persists the state after a mutation. *config.Store satisfies it.
type Saver interface {
	Save(*config.AppState) error
}

// SwitchObserver is told about active profile changes.
type SwitchObserver interface {
	ProfileSwitched()
}

// Manager owns the AppState on behalf of the UI goroutine. It is not safe for
// concurrent use.
type Manager struct {
	state    *config.AppState
	saver    Saver
	debounce time.Duration
	now      func() time.Time
	log      *zap.SugaredLogger
	obs      SwitchObserver

	lastCycle  time.Time
	generation uint64
}

type Option func(*Manager)

func WithDebounce(d time.Duration) Option {
	return func(m *Manager) { m.debounce = d }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(m *Manager) { m.log = log }
}

func WithObserver(o SwitchObserver) Option {
	return func(m *Manager) { m.obs = o }
}

func NewManager(state *config.AppState, saver Saver, opts ...Option) *Manager {
	if state == nil {
		state = config.Default()
	}
	m := &Manager{
		state:    state,
		saver:    saver,
		debounce: DefaultDebounce,
		now:      time.Now,
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) State() *config.AppState { return m.state }

// Generation changes every time the active profile or its ticker set may
// have changed. Renderers compare it to decide when to rebuild.
func (m *Manager) Generation() uint64 { return m.generation }

func (m *Manager) Active() *config.Profile { return m.state.Active() }

// Replace swaps in a state reloaded from disk after an external edit. The
// file's active profile wins.
func (m *Manager) Replace(st *config.AppState) {
	if st == nil {
		return
	}
	m.state = st
	m.touch()
}

// CycleNext activates the next profile in order, wrapping around. Presses
// within the debounce window of the last accepted one are ignored and
// reported as false.
func (m *Manager) CycleNext() (bool, error) {
	now := m.now()
	if !m.lastCycle.IsZero() && now.Sub(m.lastCycle) < m.debounce {
		m.log.Debugw("Profile cycle debounced")
		return false, nil
	}
	m.lastCycle = now

	profiles := m.state.Profiles
	if len(profiles) < 2 {
		return false, nil
	}
	next := profiles[0]
	for i, p := range profiles {
		if p.ID == m.state.ActiveProfile {
			next = profiles[(i+1)%len(profiles)]
			break
		}
	}
	return true, m.activate(next)
}

func (m *Manager) SwitchTo(id string) error {
	p := m.state.Profile(id)
	if p == nil {
		return fmt.Errorf("%w [%s]", ErrNotFound, id)
	}
	if p.ID == m.state.ActiveProfile {
		return nil
	}
	return m.activate(p)
}

func (m *Manager) activate(p *config.Profile) error {
	m.state.ActiveProfile = p.ID
	m.touch()
	if m.obs != nil {
		m.obs.ProfileSwitched()
	}
	m.log.Infow("Active profile changed", "profile", p.Name, "tokens", len(p.Tokens))
	return m.save()
}

// Find resolves a profile by id, by case-insensitive name, or by 1-based
// position.
func (m *Manager) Find(ref string) (*config.Profile, error) {
	ref = strings.TrimSpace(ref)
	if p := m.state.Profile(ref); p != nil {
		return p, nil
	}
	if p := m.state.ProfileByName(ref); p != nil {
		return p, nil
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(m.state.Profiles) {
		return m.state.Profiles[n-1], nil
	}
	return nil, fmt.Errorf("%w [%s]", ErrNotFound, ref)
}

func (m *Manager) Create(name string) (*config.Profile, error) {
	name, err := m.checkName(name, "")
	if err != nil {
		return nil, err
	}
	p := config.NewProfile(name, m.state.Defaults)
	m.state.Profiles = append(m.state.Profiles, p)
	return p, m.save()
}

// Delete removes a profile. When the active one goes the first remaining
// profile becomes active; deleting the last profile leaves a fresh empty one.
func (m *Manager) Delete(id string) error {
	idx := m.index(id)
	if idx < 0 {
		return fmt.Errorf("%w [%s]", ErrNotFound, id)
	}
	removed := m.state.Profiles[idx]
	m.state.Profiles = append(m.state.Profiles[:idx], m.state.Profiles[idx+1:]...)
	if len(m.state.Profiles) == 0 {
		m.state.Profiles = []*config.Profile{config.NewProfile(NewProfileName, m.state.Defaults)}
	}
	if m.state.ActiveProfile == removed.ID {
		m.state.ActiveProfile = m.state.Profiles[0].ID
		m.touch()
	}
	m.log.Infow("Profile deleted", "profile", removed.Name)
	return m.save()
}

func (m *Manager) Rename(id, name string) error {
	p := m.state.Profile(id)
	if p == nil {
		return fmt.Errorf("%w [%s]", ErrNotFound, id)
	}
	name, err := m.checkName(name, id)
	if err != nil {
		return err
	}
	p.Name = name
	return m.save()
}

func (m *Manager) checkName(name, selfID string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if other := m.state.ProfileByName(name); other != nil && other.ID != selfID {
		return "", fmt.Errorf("%w [%s]", ErrDuplicateName, name)
	}
	return name, nil
}

func (m *Manager) AddToken(id string, e market.TickerEntry) error {
	p := m.state.Profile(id)
	if p == nil {
		return fmt.Errorf("%w [%s]", ErrNotFound, id)
	}
	if err := market.ValidateAddress(e.NetworkID, e.Address); err != nil {
		return err
	}
	e.NetworkID = strings.ToLower(strings.TrimSpace(e.NetworkID))
	e.Address = market.NormalizeAddress(e.Address)
	e.CustomName = strings.TrimSpace(e.CustomName)
	for _, t := range p.Tokens {
		if t.Key() == e.Key() {
			return fmt.Errorf("%w [%s]", ErrDuplicateToken, e.Key())
		}
	}
	p.Tokens = append(p.Tokens, e)
	m.touchIfActive(p)
	return m.save()
}

func (m *Manager) RemoveToken(id, key string) error {
	p, idx, err := m.token(id, key)
	if err != nil {
		return err
	}
	p.Tokens = append(p.Tokens[:idx], p.Tokens[idx+1:]...)
	m.touchIfActive(p)
	return m.save()
}

// MoveToken shifts a token by delta positions, clamped to the list bounds.
func (m *Manager) MoveToken(id, key string, delta int) error {
	p, idx, err := m.token(id, key)
	if err != nil {
		return err
	}
	to := max(0, min(len(p.Tokens)-1, idx+delta))
	if to == idx {
		return nil
	}
	t := p.Tokens[idx]
	p.Tokens = append(p.Tokens[:idx], p.Tokens[idx+1:]...)
	p.Tokens = append(p.Tokens[:to], append([]market.TickerEntry{t}, p.Tokens[to:]...)...)
	m.touchIfActive(p)
	return m.save()
}

// UpdateToken edits a token's display fields. The key cannot change.
func (m *Manager) UpdateToken(id, key string, edit func(*market.TickerEntry)) error {
	p, idx, err := m.token(id, key)
	if err != nil {
		return err
	}
	t := p.Tokens[idx]
	edit(&t)
	t.NetworkID, t.Address = p.Tokens[idx].NetworkID, p.Tokens[idx].Address
	t.CustomName = strings.TrimSpace(t.CustomName)
	p.Tokens[idx] = t
	m.touchIfActive(p)
	return m.save()
}

func (m *Manager) token(id, key string) (*config.Profile, int, error) {
	p := m.state.Profile(id)
	if p == nil {
		return nil, -1, fmt.Errorf("%w [%s]", ErrNotFound, id)
	}
	for i, t := range p.Tokens {
		if t.Key() == key {
			return p, i, nil
		}
	}
	return p, -1, fmt.Errorf("%w [%s]", ErrTokenNotFound, key)
}

func (m *Manager) UpdateStyle(id string, edit func(*config.Style)) error {
	p := m.state.Profile(id)
	if p == nil {
		return fmt.Errorf("%w [%s]", ErrNotFound, id)
	}
	edit(&p.Style)
	p.Style.Normalize()
	m.touchIfActive(p)
	return m.save()
}

// SetMonitor assigns the profile to a monitor; nil hides it.
func (m *Manager) SetMonitor(id string, monitor *int) error {
	p := m.state.Profile(id)
	if p == nil {
		return fmt.Errorf("%w [%s]", ErrNotFound, id)
	}
	if monitor != nil && *monitor < 0 {
		monitor = nil
	}
	p.Monitor = monitor
	m.touchIfActive(p)
	return m.save()
}

// UpdateHotkeys applies edit to the hotkey bindings. Cleared required
// bindings fall back to their defaults.
func (m *Manager) UpdateHotkeys(edit func(*config.Hotkeys)) error {
	edit(&m.state.Hotkeys)
	m.state.Hotkeys.Normalize()
	return m.save()
}

func (m *Manager) SetWindowPos(monitor int, pos config.WindowPos) error {
	if cur, ok := m.state.Windows[monitor]; ok && cur == pos {
		return nil
	}
	m.state.Windows[monitor] = pos
	return m.save()
}

// RecordTokenMeta caches names and logo URLs reported by a refresh. It saves
// only when something changed.
func (m *Manager) RecordTokenMeta(records []market.PriceRecord) error {
	changed := false
	for _, r := range records {
		if r.Status != market.StatusOK {
			continue
		}
		if r.Name != "" && m.state.TokenNames[r.Key] != r.Name {
			m.state.TokenNames[r.Key] = r.Name
			changed = true
		}
		if r.ImageURL != "" && m.state.TokenLogos[r.Key] != r.ImageURL {
			m.state.TokenLogos[r.Key] = r.ImageURL
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return m.save()
}

func (m *Manager) SetTokenName(key, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || m.state.TokenNames[key] == name {
		return nil
	}
	m.state.TokenNames[key] = name
	return m.save()
}

func (m *Manager) index(id string) int {
	for i, p := range m.state.Profiles {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) touch() { m.generation++ }

func (m *Manager) touchIfActive(p *config.Profile) {
	if p.ID == m.state.ActiveProfile {
		m.touch()
	}
}

func (m *Manager) save() error {
	if m.saver == nil {
		return nil
	}
	if err := m.saver.Save(m.state); err != nil {
		m.log.Warnw("Failed to save state", "error", err)
		return err
	}
	return nil
}
