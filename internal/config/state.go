package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"cryptick/internal/hotkey"
	"cryptick/internal/market"
)

const SchemaVersion = 2

const (
	DefaultCycleHotkey  = "f8"
	DefaultUnlockHotkey = "ctrl+shift+f8"
	MinRefreshSec       = 10
)

var defaultProfileNames = []string{"High Risk Assets", "Medium Risk Assets", "Low Risk Assets"}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Style is the per-profile look of the bar segment.
type Style struct {
	Opacity        float64 `json:"opacity"`
	FontFamily     string  `json:"font_family"`
	FontPx         int     `json:"font_px"`
	FontColor      string  `json:"font_color"`
	ClickThrough   bool    `json:"click_through"`
	ShowLogo       bool    `json:"show_logo"`
	RefreshSec     int     `json:"refresh_sec"`
	UseCustomNames bool    `json:"use_custom_names"`
	Separator      string  `json:"separator_text"`
	BoldName       bool    `json:"bold_name"`
	BoldPrice      bool    `json:"bold_price"`
	BoldChanges    bool    `json:"bold_changes"`
}

func DefaultStyle() Style {
	return Style{
		Opacity:      0.5,
		FontFamily:   "Open Sans",
		FontPx:       15,
		FontColor:    "#FFFFFF",
		ClickThrough: true,
		ShowLogo:     true,
		RefreshSec:   30,
		Separator:    "|",
		BoldName:     true,
	}
}

// UnmarshalJSON starts from DefaultStyle so keys missing from older files
// keep their defaults instead of Go zero values. Values of the wrong type
// keep their defaults too.
func (s *Style) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	st, ok := decodeStyle(&drift{}, "", b, DefaultStyle())
	if !ok {
		return fmt.Errorf("style: %w", errNotObject)
	}
	*s = st
	return nil
}

// Normalize clamps every field into its valid range.
func (s *Style) Normalize() {
	def := DefaultStyle()
	s.Opacity = clampFloat(s.Opacity, 0.3, 1.0)
	s.FontPx = clampInt(s.FontPx, 8, 48)
	if s.RefreshSec < MinRefreshSec {
		s.RefreshSec = MinRefreshSec
	}
	s.FontColor = strings.TrimSpace(s.FontColor)
	if !hexColor.MatchString(s.FontColor) {
		s.FontColor = def.FontColor
	}
	if strings.TrimSpace(s.FontFamily) == "" {
		s.FontFamily = def.FontFamily
	}
}

type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Monitor is nil when the profile is neither shown nor refreshed.
	Monitor *int                 `json:"monitor_index"`
	Tokens  []market.TickerEntry `json:"tokens"`
	Style   Style                `json:"style"`
}

func (p *Profile) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	q, ok := decodeProfile(&drift{}, "", b)
	if !ok {
		return fmt.Errorf("profile: %w", errNotObject)
	}
	*p = *q
	return nil
}

func NewProfile(name string, style Style) *Profile {
	return &Profile{
		ID:     uuid.NewString(),
		Name:   name,
		Tokens: []market.TickerEntry{},
		Style:  style,
	}
}

type WindowPos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Hotkeys are global key combos. Pause and Refresh are unbound when empty.
type Hotkeys struct {
	Cycle   string `json:"cycle"`
	Unlock  string `json:"unlock"`
	Pause   string `json:"pause,omitempty"`
	Refresh string `json:"refresh,omitempty"`
}

// Combos maps each bindable action to its configured combo.
func (h Hotkeys) Combos() map[hotkey.Action]string {
	return map[hotkey.Action]string{
		hotkey.ActionCycle:   h.Cycle,
		hotkey.ActionUnlock:  h.Unlock,
		hotkey.ActionPause:   h.Pause,
		hotkey.ActionRefresh: h.Refresh,
	}
}

// Normalize lower-cases every combo and restores the required ones.
func (h *Hotkeys) Normalize() {
	for _, c := range []*string{&h.Cycle, &h.Unlock, &h.Pause, &h.Refresh} {
		*c = strings.ToLower(strings.TrimSpace(*c))
	}
	if h.Cycle == "" {
		h.Cycle = DefaultCycleHotkey
	}
	if h.Unlock == "" {
		h.Unlock = DefaultUnlockHotkey
	}
}

// AppState is everything CrypTick persists. A single instance is owned by the
// UI goroutine and handed to the store and the profile manager.
type AppState struct {
	Schema        int               `json:"schema"`
	ActiveProfile string            `json:"active_profile"`
	Profiles      []*Profile        `json:"profiles"`
	TokenNames    map[string]string `json:"token_names"`
	TokenLogos    map[string]string `json:"token_logos"`
	Windows       map[int]WindowPos `json:"windows"`
	Hotkeys       Hotkeys           `json:"hotkeys"`
	Defaults      Style             `json:"defaults"`
}

func (s *AppState) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	q, err := decodeState(&drift{}, b)
	if err != nil {
		return err
	}
	*s = *q
	return nil
}

// Default is the state used on first launch and whenever the file cannot be
// read.
func Default() *AppState {
	s := &AppState{
		Schema:     SchemaVersion,
		TokenNames: map[string]string{},
		TokenLogos: map[string]string{},
		Windows:    map[int]WindowPos{},
		Hotkeys:    Hotkeys{Cycle: DefaultCycleHotkey, Unlock: DefaultUnlockHotkey},
		Defaults:   DefaultStyle(),
	}
	for _, name := range defaultProfileNames {
		s.Profiles = append(s.Profiles, NewProfile(name, s.Defaults))
	}
	// The first profile is visible on the primary monitor so a fresh install
	// shows a bar.
	primary := 0
	s.Profiles[0].Monitor = &primary
	s.ActiveProfile = s.Profiles[0].ID
	return s
}

// Normalize fills missing values and clamps out-of-range ones. It is applied
// after every load so the rest of the program can rely on a complete state.
func (s *AppState) Normalize() {
	s.Schema = SchemaVersion
	if s.TokenNames == nil {
		s.TokenNames = map[string]string{}
	}
	if s.TokenLogos == nil {
		s.TokenLogos = map[string]string{}
	}
	if s.Windows == nil {
		s.Windows = map[int]WindowPos{}
	}
	s.Hotkeys.Normalize()
	s.Defaults.Normalize()

	profiles := make([]*Profile, 0, len(s.Profiles))
	ids := map[string]bool{}
	for i, p := range s.Profiles {
		if p == nil {
			continue
		}
		if p.ID == "" || ids[p.ID] {
			p.ID = uuid.NewString()
		}
		ids[p.ID] = true
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			p.Name = fmt.Sprintf("Profile %d", i+1)
		}
		if p.Monitor != nil && *p.Monitor < 0 {
			p.Monitor = nil
		}
		p.Style.Normalize()

		tokens := make([]market.TickerEntry, 0, len(p.Tokens))
		for _, t := range p.Tokens {
			t.NetworkID = strings.ToLower(strings.TrimSpace(t.NetworkID))
			t.Address = market.NormalizeAddress(t.Address)
			t.CustomName = strings.TrimSpace(t.CustomName)
			if t.NetworkID == "" || t.Address == "" {
				continue
			}
			tokens = append(tokens, t)
		}
		p.Tokens = tokens
		profiles = append(profiles, p)
	}
	s.Profiles = profiles

	if len(s.Profiles) == 0 {
		def := Default()
		s.Profiles = def.Profiles
	}
	if s.Profile(s.ActiveProfile) == nil {
		// Older files stored the active profile by name.
		if p := s.ProfileByName(s.ActiveProfile); p != nil {
			s.ActiveProfile = p.ID
		} else {
			s.ActiveProfile = s.Profiles[0].ID
		}
	}
}

func (s *AppState) Profile(id string) *Profile {
	for _, p := range s.Profiles {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *AppState) ProfileByName(name string) *Profile {
	name = strings.TrimSpace(name)
	for _, p := range s.Profiles {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

func (s *AppState) Active() *Profile {
	return s.Profile(s.ActiveProfile)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
