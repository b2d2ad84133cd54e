package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"cryptick/internal/market"
)

type legacyProfile struct {
	Name   string
	Tokens []market.TickerEntry
}

// decodeLegacyProfiles decodes {"name": [tokens...], ...} keeping key order,
// which is the order the profiles are cycled in.
func decodeLegacyProfiles(d *drift, b []byte) ([]legacyProfile, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("profiles: expected object, got %v", tok)
	}
	var out []legacyProfile
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		path := fmt.Sprintf("profiles[%q]", name)
		tokens, err := decodeTokens(d, path, raw)
		if err != nil {
			d.add(path)
		}
		out = append(out, legacyProfile{Name: name, Tokens: tokens})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeLegacy(d *drift, top map[string]json.RawMessage) (*AppState, error) {
	st := &AppState{
		Hotkeys:    Hotkeys{Cycle: DefaultCycleHotkey, Unlock: DefaultUnlockHotkey},
		Defaults:   DefaultStyle(),
		TokenNames: map[string]string{},
		TokenLogos: map[string]string{},
	}

	if raw, ok := top["settings"]; ok {
		defaults, ok := decodeStyle(d, "settings", raw, DefaultStyle())
		if !ok {
			d.add("settings")
		}
		st.Defaults = defaults

		var combo string
		d.object("settings", raw, map[string]fieldFunc{"hotkey": into(&combo)})
		if combo = strings.TrimSpace(combo); combo != "" {
			st.Hotkeys.Cycle = strings.ToLower(combo)
		}
	}

	var profiles []legacyProfile
	if raw, ok := top["profiles"]; ok {
		var err error
		if profiles, err = decodeLegacyProfiles(d, raw); err != nil {
			return nil, err
		}
	}

	settings := map[string]json.RawMessage{}
	if raw, ok := top["profile_settings"]; ok {
		if err := json.Unmarshal(raw, &settings); err != nil {
			d.add("profile_settings")
		}
	}

	for _, lp := range profiles {
		p := NewProfile(lp.Name, st.Defaults)
		if lp.Tokens != nil {
			p.Tokens = lp.Tokens
		}
		if raw, ok := settings[lp.Name]; ok {
			path := fmt.Sprintf("profile_settings[%q]", lp.Name)
			style, ok := decodeStyle(d, path, raw, st.Defaults)
			if !ok {
				d.add(path)
			}
			p.Style = style
			d.object(path, raw, map[string]fieldFunc{"monitor_index": into(&p.Monitor)})
		}
		st.Profiles = append(st.Profiles, p)
	}

	for key, dst := range map[string]*map[string]string{"token_names": &st.TokenNames, "token_logos": &st.TokenLogos} {
		if raw, ok := top[key]; ok {
			if err := into(dst)(raw); err != nil {
				d.add(key)
			}
		}
	}

	if raw, ok := top["active_profile"]; ok {
		// Resolved from name to id by Normalize.
		if err := into(&st.ActiveProfile)(raw); err != nil {
			d.add("active_profile")
		}
	}
	return st, nil
}
