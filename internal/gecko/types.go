package gecko

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TokenQuote is the price data reported for one token.
type TokenQuote struct {
	Address   string
	Name      string
	Symbol    string
	ImageURL  string
	PriceUSD  decimal.NullDecimal
	Change5m  decimal.NullDecimal
	Change24h decimal.NullDecimal
}

type Network struct {
	ID   string
	Name string
}

// number decodes the API's numeric fields, which arrive as strings, numbers
// or null. Anything unparsable decodes as absent instead of failing the
// whole response.
type number struct {
	decimal.NullDecimal
}

func (n *number) UnmarshalJSON(b []byte) error {
	n.NullDecimal = decimal.NullDecimal{}
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	n.NullDecimal = decimal.NewNullDecimal(d)
	return nil
}

type multiResponse struct {
	Data     []tokenResource `json:"data"`
	Included []poolResource  `json:"included"`
}

type tokenResource struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Address  string `json:"address"`
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		ImageURL string `json:"image_url"`
		PriceUSD number `json:"price_usd"`
	} `json:"attributes"`
	Relationships struct {
		TopPools struct {
			Data []struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"top_pools"`
	} `json:"relationships"`
}

type poolResource struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		PriceChange struct {
			M5  number `json:"m5"`
			H24 number `json:"h24"`
		} `json:"price_change_percentage"`
	} `json:"attributes"`
}

type infoResponse struct {
	Data struct {
		Attributes struct {
			Address  string `json:"address"`
			Name     string `json:"name"`
			Symbol   string `json:"symbol"`
			ImageURL string `json:"image_url"`
		} `json:"attributes"`
	} `json:"data"`
}

type networksResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Name string `json:"name"`
		} `json:"attributes"`
	} `json:"data"`
}

// usableImage filters the placeholder GeckoTerminal returns for tokens
// without artwork.
func usableImage(u string) string {
	u = strings.TrimSpace(u)
	if u == "" || strings.HasSuffix(u, "missing.png") || !strings.HasPrefix(u, "http") {
		return ""
	}
	return u
}
