package ticker

import "time"

const (
	BarHeight            = 44
	LogoSize             = 22
	MarqueeItemThreshold = 10

	// Horizontal metrics in logical pixels.
	EdgePadding = 10
	ItemSpacing = 28
	LogoGap     = 8
	PartGap     = 6

	// ScrollSpeed is the marquee speed in pixels per second.
	ScrollSpeed = 62.5
)

// Measurer reports the advance width of text in the bar font.
type Measurer interface {
	Width(text string, bold bool) float64
}

type Part int

const (
	PartName Part = iota
	PartPrice
	PartChanges
	PartMarker
	PartDot
	PartSeparator
)

type Segment struct {
	Part Part
	Text string
	X    float64
	Bold bool
}

// Placed is an item with positions relative to the start of the content.
type Placed struct {
	Item
	X        float64
	Width    float64
	HasLogo  bool
	Segments []Segment
}

type Layout struct {
	Items []Placed
	Width float64
}

// Arrange lays items out left to right. Separators are drawn midway into the
// spacing that follows their item.
func Arrange(items []Item, m Measurer, showLogo bool) Layout {
	var l Layout
	x := 0.0
	space := m.Width(" ", false)

	for i, it := range items {
		p := Placed{Item: it, X: x, HasLogo: showLogo}
		cx := 0.0
		if showLogo {
			cx += LogoSize + LogoGap
		}
		add := func(part Part, text string, bold bool) {
			p.Segments = append(p.Segments, Segment{Part: part, Text: text, X: cx, Bold: bold})
			cx += m.Width(text, bold)
		}

		add(PartName, it.Name, it.BoldName)
		cx += space
		add(PartDot, Dot, false)
		cx += space
		add(PartPrice, it.Price, it.BoldPrice)
		cx += space
		add(PartDot, Dot, false)
		cx += space
		add(PartChanges, it.Changes, it.BoldChanges)
		if it.Marker != "" {
			cx += PartGap
			add(PartMarker, it.Marker, false)
		}
		p.Width = cx

		if it.Separator != "" && i < len(items)-1 {
			sw := m.Width(it.Separator, false)
			p.Segments = append(p.Segments, Segment{
				Part: PartSeparator,
				Text: it.Separator,
				X:    cx + (ItemSpacing-sw)/2,
			})
		}

		l.Items = append(l.Items, p)
		x += p.Width
		if i < len(items)-1 {
			x += ItemSpacing
		}
	}
	l.Width = x
	return l
}

// Scrolls reports whether the content must scroll on a bar of width barW.
func (l Layout) Scrolls(barW float64) bool {
	return len(l.Items) > MarqueeItemThreshold || l.Width > barW-2*EdgePadding
}

// Marquee is the scroll state of the bar. It lives outside the layout so
// refreshes that rebuild items keep the current position.
type Marquee struct {
	offset float64
}

func (m *Marquee) Offset() float64 { return m.offset }

func (m *Marquee) Reset() { m.offset = 0 }

// Step advances the scroll by dt for content of the given width.
func (m *Marquee) Step(dt time.Duration, contentW float64) {
	period := contentW + ItemSpacing
	if period <= ItemSpacing {
		m.offset = 0
		return
	}
	m.offset += ScrollSpeed * dt.Seconds()
	for m.offset >= period {
		m.offset -= period
	}
}

// Origins returns the x positions at which the content must be drawn on a
// bar of width barW. A scrolling bar repeats the content to fill the gap
// behind it; a static one is centered.
func (l Layout) Origins(barW float64, m *Marquee) []float64 {
	if !l.Scrolls(barW) {
		return []float64{(barW - l.Width) / 2}
	}
	period := l.Width + ItemSpacing
	var out []float64
	for x := EdgePadding - m.Offset(); x < barW; x += period {
		out = append(out, x)
	}
	return out
}
