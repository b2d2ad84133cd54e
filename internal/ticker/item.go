package ticker

import (
	"strings"
	"unicode"

	"cryptick/internal/config"
	"cryptick/internal/market"
)

const (
	Placeholder = "No tokens in this profile"
	Dot         = "•"
)

// Marker texts drawn after a degraded item.
const (
	MarkerStale = "stale"
	MarkerError = "err"
)

// Item is one token as shown on the bar.
type Item struct {
	Key       string
	Name      string
	Price     string
	Changes   string
	Separator string
	Marker    string
	Status    market.Status
	// Pending is set until the first refresh reports on the token.
	Pending bool

	BoldName    bool
	BoldPrice   bool
	BoldChanges bool
}

// Initial is the letter drawn on the fallback logo glyph.
func (it Item) Initial() string {
	for _, r := range it.Name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return strings.ToUpper(string(r))
		}
	}
	return "?"
}

// Bar is everything the renderer needs for one frame of the active profile.
type Bar struct {
	ProfileID   string
	ProfileName string
	Signature   string
	// Monitor is nil when the profile is hidden.
	Monitor     *int
	Items       []Item
	Placeholder string
	Style       config.Style
}

func (b Bar) Visible() bool { return b.Monitor != nil }

// Build turns the active profile and the latest records into display items,
// in profile order. Tokens without a record yet are shown as pending rather
// than dropped.
func Build(p *config.Profile, names map[string]string, records map[string]market.PriceRecord) Bar {
	if p == nil {
		return Bar{Placeholder: Placeholder, Style: config.DefaultStyle()}
	}
	bar := Bar{
		ProfileID:   p.ID,
		ProfileName: p.Name,
		Signature:   market.Signature(p.Tokens),
		Monitor:     p.Monitor,
		Style:       p.Style,
	}
	if len(p.Tokens) == 0 {
		bar.Placeholder = Placeholder
		return bar
	}

	bar.Items = make([]Item, 0, len(p.Tokens))
	for _, t := range p.Tokens {
		key := t.Key()
		rec, ok := records[key]

		it := Item{
			Key:         key,
			Name:        displayName(t, p.Style.UseCustomNames, names[key], rec.Name),
			Price:       market.FormatPrice(rec.Price),
			Changes:     market.FormatChanges(rec.Change5m, rec.Change24h),
			Status:      rec.Status,
			Pending:     !ok,
			BoldName:    p.Style.BoldName || t.Bold,
			BoldPrice:   p.Style.BoldPrice,
			BoldChanges: p.Style.BoldChanges,
		}
		if !t.HideSeparator {
			it.Separator = p.Style.Separator
		}
		if ok {
			switch rec.Status {
			case market.StatusStale:
				it.Marker = MarkerStale
			case market.StatusError:
				it.Marker = MarkerError
			}
		}
		bar.Items = append(bar.Items, it)
	}
	// The last item never trails a separator.
	bar.Items[len(bar.Items)-1].Separator = ""
	return bar
}

func displayName(t market.TickerEntry, useCustom bool, cached, reported string) string {
	if useCustom && t.CustomName != "" {
		return t.CustomName
	}
	if cached != "" {
		return cached
	}
	if reported != "" {
		return reported
	}
	return market.ShortAddress(t.Address)
}
