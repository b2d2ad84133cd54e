// Package global registers system-wide hotkeys. It needs a display
// connection (and cgo on Linux and macOS), so parsing lives in the parent
// package.
package global

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	xhotkey "golang.design/x/hotkey"

	"cryptick/internal/hotkey"
)

// Listener forwards key-down events of the bound combos as actions.
type Listener struct {
	log    *zap.SugaredLogger
	events chan hotkey.Action

	mu     sync.Mutex
	active []*xhotkey.Hotkey
	stop   context.CancelFunc
	wg     sync.WaitGroup
}

func NewListener(log *zap.SugaredLogger) *Listener {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Listener{
		log:    log,
		events: make(chan hotkey.Action, 8),
	}
}

func (l *Listener) Events() <-chan hotkey.Action { return l.events }

// Bind replaces the current registrations. A combo that cannot be
// registered (already taken by another program, unknown to the platform) is
// logged and skipped; the number of combos registered is returned.
func (l *Listener) Bind(ctx context.Context, bindings []hotkey.Binding) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unbindLocked()

	ctx, cancel := context.WithCancel(ctx)
	l.stop = cancel

	for _, b := range bindings {
		hk, err := newHotkey(b.Combo)
		if err != nil {
			l.log.Warnw("Hotkey not supported on this platform", "action", b.Action.String(), "combo", b.Combo.String(), "error", err)
			continue
		}
		if err := hk.Register(); err != nil {
			l.log.Warnw("Hotkey registration failed", "action", b.Action.String(), "combo", b.Combo.String(), "error", err)
			continue
		}
		l.log.Infow("Hotkey registered", "action", b.Action.String(), "combo", b.Combo.String())
		l.active = append(l.active, hk)

		l.wg.Add(1)
		go l.forward(ctx, hk, b.Action)
	}
	return len(l.active)
}

func (l *Listener) forward(ctx context.Context, hk *xhotkey.Hotkey, action hotkey.Action) {
	defer l.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-hk.Keydown():
			if !ok {
				return
			}
			select {
			case l.events <- action:
			default:
				l.log.Debugw("Hotkey event dropped", "action", action.String())
			}
		}
	}
}

// Close unregisters everything.
func (l *Listener) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unbindLocked()
}

func (l *Listener) unbindLocked() {
	if l.stop != nil {
		l.stop()
		l.stop = nil
	}
	l.wg.Wait()
	for _, hk := range l.active {
		if err := hk.Unregister(); err != nil {
			l.log.Debugw("Hotkey unregister failed", "error", err)
		}
	}
	l.active = nil
}

func newHotkey(c hotkey.Combo) (*xhotkey.Hotkey, error) {
	key, ok := keyCodes[c.Key]
	if !ok {
		return nil, fmt.Errorf("no key code for %q", c.Key)
	}
	mods := make([]xhotkey.Modifier, 0, len(c.Mods))
	for _, m := range c.Mods {
		code, ok := modCodes[m]
		if !ok {
			return nil, fmt.Errorf("no modifier code for %q", m)
		}
		mods = append(mods, code)
	}
	return xhotkey.New(mods, key), nil
}
