package ticker

import (
	"image/color"
	"strconv"
	"strings"

	"cryptick/internal/market"
)

var (
	White      = color.RGBA{255, 255, 255, 255}
	StaleColor = color.RGBA{255, 191, 0, 255}
	ErrorColor = color.RGBA{255, 80, 80, 255}
)

// ParseColor reads #RRGGBB. Anything else yields white.
func ParseColor(hex string) color.RGBA {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return White
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return White
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

// Dim scales a colour's alpha, keeping it premultiplied.
func Dim(c color.RGBA, f float64) color.RGBA {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return color.RGBA{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
		A: uint8(float64(c.A) * f),
	}
}

// TextColor is the colour of an item's text: degraded items are dimmed.
func TextColor(base color.RGBA, it Item) color.RGBA {
	if it.Pending || it.Status != market.StatusOK {
		return Dim(base, 0.55)
	}
	return base
}

func MarkerColor(marker string) color.RGBA {
	if marker == MarkerStale {
		return StaleColor
	}
	return ErrorColor
}

// Background is the bar fill for the given opacity.
func Background(opacity float64) color.RGBA {
	return Dim(color.RGBA{0, 0, 0, 255}, opacity)
}
