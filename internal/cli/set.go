package cli

import (
	"context"
	"fmt"
	"strings"

	"cryptick/internal/config"
	"cryptick/internal/hotkey"
)

func cmdSet(_ context.Context, ses *session, args []string) error {
	fs := ses.subFlags("set")
	prof := fs.StringP("profile", "p", "", "profile name, id or position (default: active)")
	all := fs.Bool("all", false, "apply style changes to every profile")
	if err := fs.Parse(args); err != nil {
		return err
	}
	args = fs.Args()
	if len(args) == 0 {
		return fmt.Errorf("usage: cryptick set [--profile REF|--all] key=value ...\nstyle keys: %s\nhotkeys: hotkey.cycle, hotkey.unlock, hotkey.pause, hotkey.refresh (none to unbind the last two)",
			strings.Join(config.StyleKeys, ", "))
	}

	hk := ses.mgr.State().Hotkeys
	var (
		hkSet  bool
		styles [][2]string
	)
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("expected key=value, got %q", arg)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		field, ok := hotkeyField(&hk, key)
		if !ok {
			styles = append(styles, [2]string{key, value})
			continue
		}
		hkSet = true
		if (key == "hotkey.pause" || key == "hotkey.refresh") && isUnbind(value) {
			*field = ""
			continue
		}
		combo, err := hotkey.Parse(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*field = combo.String()
	}

	if hkSet {
		if _, errs := hotkey.Bindings(hk.Combos()); len(errs) > 0 {
			return errs[0]
		}
		if err := ses.mgr.UpdateHotkeys(func(h *config.Hotkeys) { *h = hk }); err != nil {
			return err
		}
		fmt.Fprintf(ses.out, "Hotkeys: %s\n", hotkeyLabel(ses.mgr.State().Hotkeys))
	}
	if len(styles) == 0 {
		return nil
	}

	targets := ses.mgr.State().Profiles
	if !*all {
		p, err := ses.target(*prof)
		if err != nil {
			return err
		}
		targets = []*config.Profile{p}
	}

	for _, p := range targets {
		edited := p.Style
		for _, kv := range styles {
			if err := edited.Set(kv[0], kv[1]); err != nil {
				return err
			}
		}
		if err := ses.mgr.UpdateStyle(p.ID, func(s *config.Style) { *s = edited }); err != nil {
			return err
		}
		fmt.Fprintf(ses.out, "Updated style of %q\n", p.Name)
	}
	return nil
}

func hotkeyField(hk *config.Hotkeys, key string) (*string, bool) {
	switch key {
	case "hotkey.cycle":
		return &hk.Cycle, true
	case "hotkey.unlock":
		return &hk.Unlock, true
	case "hotkey.pause":
		return &hk.Pause, true
	case "hotkey.refresh":
		return &hk.Refresh, true
	}
	return nil, false
}

func isUnbind(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none", "off", "-":
		return true
	}
	return false
}

func hotkeyLabel(hk config.Hotkeys) string {
	opt := func(s string) string {
		if s == "" {
			return "none"
		}
		return s
	}
	return fmt.Sprintf("cycle=%s unlock=%s pause=%s refresh=%s", hk.Cycle, hk.Unlock, opt(hk.Pause), opt(hk.Refresh))
}
