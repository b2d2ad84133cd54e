package hotkey

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrEmpty       = errors.New("empty hotkey")
	ErrUnsupported = errors.New("unsupported hotkey")
)

// Action is what a hotkey press asks the overlay to do.
type Action int

const (
	ActionCycle Action = iota
	ActionUnlock
	ActionRefresh
	ActionPause
	ActionQuit
)

func (a Action) String() string {
	switch a {
	case ActionCycle:
		return "cycle"
	case ActionUnlock:
		return "unlock"
	case ActionRefresh:
		return "refresh"
	case ActionPause:
		return "pause"
	case ActionQuit:
		return "quit"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Modifier names in canonical order.
const (
	ModCtrl  = "ctrl"
	ModAlt   = "alt"
	ModShift = "shift"
	ModWin   = "win"
)

var modOrder = []string{ModCtrl, ModAlt, ModShift, ModWin}

var modAliases = map[string]string{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"shift":   ModShift,
	"win":     ModWin,
	"super":   ModWin,
	"meta":    ModWin,
	"cmd":     ModWin,
}

var keyAliases = map[string]string{
	"esc":    "escape",
	"enter":  "return",
	"del":    "delete",
	"spc":    "space",
	"pgup":   "pageup",
	"pgdown": "pagedown",
}

// Keys lists every key name a Combo may use.
var Keys = func() map[string]bool {
	m := map[string]bool{}
	for c := 'a'; c <= 'z'; c++ {
		m[string(c)] = true
	}
	for c := '0'; c <= '9'; c++ {
		m[string(c)] = true
	}
	for i := 1; i <= 20; i++ {
		m[fmt.Sprintf("f%d", i)] = true
	}
	for _, k := range []string{"space", "return", "escape", "delete", "tab", "left", "right", "up", "down"} {
		m[k] = true
	}
	return m
}()

// Combo is a parsed key combination such as ctrl+shift+f8.
type Combo struct {
	Mods []string
	Key  string
}

func (c Combo) String() string {
	return strings.Join(append(slices.Clone(c.Mods), c.Key), "+")
}

// Parse reads combos like "F8", "ctrl+h" or "Ctrl + Shift + F9". Mouse
// buttons are not supported.
func Parse(s string) (Combo, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Combo{}, ErrEmpty
	}

	var c Combo
	mods := map[string]bool{}
	for _, part := range strings.Split(s, "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Combo{}, fmt.Errorf("%w [%s]: empty part", ErrUnsupported, s)
		}
		if m, ok := modAliases[part]; ok {
			mods[m] = true
			continue
		}
		if strings.HasPrefix(part, "mouse") || strings.HasPrefix(part, "button") {
			return Combo{}, fmt.Errorf("%w [%s]: mouse buttons cannot be bound", ErrUnsupported, s)
		}
		if alias, ok := keyAliases[part]; ok {
			part = alias
		}
		if !Keys[part] {
			return Combo{}, fmt.Errorf("%w [%s]: unknown key %q", ErrUnsupported, s, part)
		}
		if c.Key != "" {
			return Combo{}, fmt.Errorf("%w [%s]: more than one key", ErrUnsupported, s)
		}
		c.Key = part
	}
	if c.Key == "" {
		return Combo{}, fmt.Errorf("%w [%s]: no key", ErrUnsupported, s)
	}
	for _, m := range modOrder {
		if mods[m] {
			c.Mods = append(c.Mods, m)
		}
	}
	return c, nil
}

// Binding ties a combo to an action.
type Binding struct {
	Action Action
	Combo  Combo
}

// Bindable lists the actions that can have a global hotkey, in binding
// order. Cycle and unlock are always bound; the rest only when configured.
var Bindable = []Action{ActionCycle, ActionUnlock, ActionPause, ActionRefresh}

func required(a Action) bool { return a == ActionCycle || a == ActionUnlock }

// Bindings parses the configured combo of every bindable action. Invalid or
// duplicate ones are reported and skipped so one bad entry does not disable
// the others.
func Bindings(combos map[Action]string) ([]Binding, []error) {
	var (
		out   []Binding
		errs  []error
		taken = map[string]Action{}
	)
	for _, action := range Bindable {
		raw := combos[action]
		if strings.TrimSpace(raw) == "" && !required(action) {
			continue
		}
		c, err := Parse(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s hotkey: %w", action, err))
			continue
		}
		if other, ok := taken[c.String()]; ok {
			errs = append(errs, fmt.Errorf("%s hotkey: %w [%s]: already bound to %s", action, ErrUnsupported, c, other))
			continue
		}
		taken[c.String()] = action
		out = append(out, Binding{Action: action, Combo: c})
	}
	return out, errs
}
