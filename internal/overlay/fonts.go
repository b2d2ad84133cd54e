package overlay

import (
	"fmt"
	"math"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/temidaradev/esset/v2"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
)

const glyphsToPreload = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789$.,:/+-%|•…— "

type faceKey struct {
	mono bool
	bold bool
	px   int
}

// fontCache hands out faces for the bundled Go fonts. Families are matched
// loosely: anything naming a monospace font gets Go Mono, the rest Go
// Regular.
type fontCache struct {
	faces map[faceKey]text.Face
}

func newFontCache() *fontCache {
	return &fontCache{faces: map[faceKey]text.Face{}}
}

func isMono(family string) bool {
	f := strings.ToLower(family)
	for _, hint := range []string{"mono", "courier", "consol", "code"} {
		if strings.Contains(f, hint) {
			return true
		}
	}
	return false
}

func (c *fontCache) face(family string, px float64, bold bool) (text.Face, error) {
	k := faceKey{mono: isMono(family), bold: bold, px: int(math.Round(px))}
	if f, ok := c.faces[k]; ok {
		return f, nil
	}

	var src []byte
	switch {
	case k.mono && k.bold:
		src = gomonobold.TTF
	case k.mono:
		src = gomono.TTF
	case k.bold:
		src = gobold.TTF
	default:
		src = goregular.TTF
	}

	f, err := esset.GetFont(src, k.px)
	if err != nil {
		return nil, fmt.Errorf("font could not be loaded [%s %dpx]: %w", family, k.px, err)
	}

	tmp := ebiten.NewImage(1, 1)
	text.Draw(tmp, glyphsToPreload, f, &text.DrawOptions{})
	tmp.Deallocate()

	c.faces[k] = f
	return f, nil
}
