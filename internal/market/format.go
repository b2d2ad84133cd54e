package market

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const Missing = "—"

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
	tenth   = decimal.New(1, -1)
)

// FormatPrice renders a USD price with precision that depends on magnitude:
// $1,234.56, $1.234, $0.1234, $0.00001234.
func FormatPrice(p decimal.NullDecimal) string {
	if !p.Valid {
		return Missing
	}
	v := p.Decimal
	switch {
	case v.GreaterThanOrEqual(hundred):
		return "$" + groupThousands(v.StringFixed(2))
	case v.GreaterThanOrEqual(one):
		return "$" + groupThousands(v.StringFixed(3))
	case v.GreaterThanOrEqual(tenth):
		return "$" + v.StringFixed(4)
	}
	s := v.StringFixed(8)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return "$" + s
}

// FormatPercent renders a signed percentage with two decimals.
func FormatPercent(x decimal.NullDecimal) string {
	if !x.Valid {
		return Missing
	}
	return signed(x.Decimal, 2) + "%"
}

// FormatChanges renders "+1% last 5m / -3% last 24h".
func FormatChanges(m5, h24 decimal.NullDecimal) string {
	m5s, h24s := Missing, Missing
	if m5.Valid {
		m5s = signed(m5.Decimal, 0) + "%"
	}
	if h24.Valid {
		h24s = signed(h24.Decimal, 0) + "%"
	}
	return fmt.Sprintf("%s last 5m / %s last 24h", m5s, h24s)
}

func signed(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	if strings.HasPrefix(s, "-") {
		return s
	}
	if d.Sign() < 0 {
		return "-" + s
	}
	return "+" + s
}

func groupThousands(s string) string {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if neg {
		out = "-" + out
	}
	if hasFrac {
		out += "." + frac
	}
	return out
}
