package config

import (
	"fmt"
	"strconv"
	"strings"
)

// StyleKeys lists the keys accepted by Style.Set, named as in the state file.
var StyleKeys = []string{
	"opacity", "font_family", "font_px", "font_color", "click_through", "show_logo",
	"refresh_sec", "use_custom_names", "separator_text", "bold_name", "bold_price", "bold_changes",
}

// ValidColor reports whether s is a #RRGGBB colour.
func ValidColor(s string) bool {
	return hexColor.MatchString(strings.TrimSpace(s))
}

// Set assigns one field from its textual form. Out of range numbers are
// clamped later by Normalize; values that do not parse are rejected.
func (s *Style) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	switch key {
	case "opacity":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s [%s]: %w", key, value, err)
		}
		s.Opacity = f
	case "font_family", "font":
		if value == "" {
			return fmt.Errorf("font_family must not be empty")
		}
		s.FontFamily = value
	case "font_px", "font_size":
		return setInt(&s.FontPx, key, value)
	case "refresh_sec", "refresh":
		return setInt(&s.RefreshSec, key, value)
	case "font_color", "color":
		if !ValidColor(value) {
			return fmt.Errorf("invalid %s [%s]: want #RRGGBB", key, value)
		}
		s.FontColor = value
	case "separator_text", "separator":
		s.Separator = value
	case "click_through":
		return setBool(&s.ClickThrough, key, value)
	case "show_logo":
		return setBool(&s.ShowLogo, key, value)
	case "use_custom_names":
		return setBool(&s.UseCustomNames, key, value)
	case "bold_name":
		return setBool(&s.BoldName, key, value)
	case "bold_price":
		return setBool(&s.BoldPrice, key, value)
	case "bold_changes":
		return setBool(&s.BoldChanges, key, value)
	default:
		return fmt.Errorf("unknown style key %q (allowed: %s)", key, strings.Join(StyleKeys, ", "))
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s [%s]: %w", key, value, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, value string) error {
	switch strings.ToLower(value) {
	case "on", "yes":
		*dst = true
		return nil
	case "off", "no":
		*dst = false
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid %s [%s]: %w", key, value, err)
	}
	*dst = b
	return nil
}
