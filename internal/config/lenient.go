package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"cryptick/internal/market"
)

var errNotObject = errors.New("not a JSON object")

// drift collects the paths of fields that were present but unusable. Each
// one keeps its default so a single bad value never costs the whole file.
type drift struct {
	fields []string
}

func (d *drift) add(path string) { d.fields = append(d.fields, path) }

func (d *drift) sorted() []string {
	out := append([]string(nil), d.fields...)
	sort.Strings(out)
	return out
}

type fieldFunc func(raw json.RawMessage) error

// into decodes a field into dst. dst is left untouched on error or null.
func into[T any](dst *T) fieldFunc {
	return func(raw json.RawMessage) error {
		if isNull(raw) {
			return nil
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

// object hands every known member of the JSON object b to its decoder and
// records the members that fail under path. It reports false when b is not
// an object. Null counts as an empty object.
func (d *drift) object(path string, b []byte, fields map[string]fieldFunc) bool {
	if isNull(b) {
		return true
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(b, &members); err != nil {
		return false
	}
	for name, raw := range members {
		fn, ok := fields[name]
		if !ok {
			continue
		}
		if err := fn(raw); err != nil {
			d.add(join(path, name))
		}
	}
	return true
}

func (d *drift) style(path string, dst *Style) fieldFunc {
	return func(raw json.RawMessage) error {
		st, ok := decodeStyle(d, path, raw, *dst)
		if !ok {
			return errNotObject
		}
		*dst = st
		return nil
	}
}

func decodeStyle(d *drift, path string, b []byte, base Style) (Style, bool) {
	s := base
	ok := d.object(path, b, map[string]fieldFunc{
		"opacity":          into(&s.Opacity),
		"font_family":      into(&s.FontFamily),
		"font_px":          into(&s.FontPx),
		"font_color":       into(&s.FontColor),
		"click_through":    into(&s.ClickThrough),
		"show_logo":        into(&s.ShowLogo),
		"refresh_sec":      into(&s.RefreshSec),
		"use_custom_names": into(&s.UseCustomNames),
		"separator_text":   into(&s.Separator),
		"bold_name":        into(&s.BoldName),
		"bold_price":       into(&s.BoldPrice),
		"bold_changes":     into(&s.BoldChanges),
	})
	if !ok {
		return base, false
	}
	return s, true
}

func decodeToken(d *drift, path string, b []byte) (market.TickerEntry, bool) {
	var t market.TickerEntry
	ok := d.object(path, b, map[string]fieldFunc{
		"network_id":     into(&t.NetworkID),
		"address":        into(&t.Address),
		"custom_name":    into(&t.CustomName),
		"logo_url":       into(&t.LogoURL),
		"hide_separator": into(&t.HideSeparator),
		"bold":           into(&t.Bold),
	})
	return t, ok
}

// decodeTokens keeps the usable entries of a token array. A token whose
// network or address is unusable is dropped later by Normalize.
func decodeTokens(d *drift, path string, b []byte) ([]market.TickerEntry, error) {
	if isNull(b) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, err
	}
	tokens := make([]market.TickerEntry, 0, len(items))
	for i, item := range items {
		at := fmt.Sprintf("%s[%d]", path, i)
		t, ok := decodeToken(d, at, item)
		if !ok {
			d.add(at)
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

func (d *drift) tokens(path string, dst *[]market.TickerEntry) fieldFunc {
	return func(raw json.RawMessage) error {
		tokens, err := decodeTokens(d, path, raw)
		if err != nil {
			return err
		}
		*dst = tokens
		return nil
	}
}

func decodeProfile(d *drift, path string, b []byte) (*Profile, bool) {
	p := &Profile{Style: DefaultStyle()}
	ok := d.object(path, b, map[string]fieldFunc{
		"id":            into(&p.ID),
		"name":          into(&p.Name),
		"monitor_index": into(&p.Monitor),
		"tokens":        d.tokens(join(path, "tokens"), &p.Tokens),
		"style":         d.style(join(path, "style"), &p.Style),
	})
	if !ok || isNull(b) {
		return nil, false
	}
	return p, true
}

func decodeHotkeys(d *drift, path string, b []byte, base Hotkeys) (Hotkeys, bool) {
	h := base
	ok := d.object(path, b, map[string]fieldFunc{
		"cycle":   into(&h.Cycle),
		"unlock":  into(&h.Unlock),
		"pause":   into(&h.Pause),
		"refresh": into(&h.Refresh),
	})
	return h, ok
}

// decodeState decodes the current layout field by field. Only a document
// that is not an object, or whose profile list is not an array, is an
// error; everything else falls back per field.
func decodeState(d *drift, b []byte) (*AppState, error) {
	st := &AppState{
		Hotkeys:  Hotkeys{Cycle: DefaultCycleHotkey, Unlock: DefaultUnlockHotkey},
		Defaults: DefaultStyle(),
	}
	var profilesErr error
	ok := d.object("", b, map[string]fieldFunc{
		"schema":         into(&st.Schema),
		"active_profile": into(&st.ActiveProfile),
		"profiles": func(raw json.RawMessage) error {
			profiles, err := decodeProfiles(d, raw)
			if err != nil {
				profilesErr = fmt.Errorf("profiles: %w", err)
				return err
			}
			st.Profiles = profiles
			return nil
		},
		"token_names": into(&st.TokenNames),
		"token_logos": into(&st.TokenLogos),
		"windows":     into(&st.Windows),
		"hotkeys": func(raw json.RawMessage) error {
			h, ok := decodeHotkeys(d, "hotkeys", raw, st.Hotkeys)
			if !ok {
				return errNotObject
			}
			st.Hotkeys = h
			return nil
		},
		"defaults": d.style("defaults", &st.Defaults),
	})
	if !ok || isNull(b) {
		return nil, errNotObject
	}
	if profilesErr != nil {
		return nil, profilesErr
	}
	return st, nil
}

func decodeProfiles(d *drift, b []byte) ([]*Profile, error) {
	if isNull(b) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, err
	}
	profiles := make([]*Profile, 0, len(items))
	for i, item := range items {
		at := fmt.Sprintf("profiles[%d]", i)
		p, ok := decodeProfile(d, at, item)
		if !ok {
			d.add(at)
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func isNull(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}
