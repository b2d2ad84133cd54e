package market

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status int

const (
	StatusOK Status = iota
	StatusStale
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusStale:
		return "stale"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// PriceRecord is the transient result of fetching one ticker. It is never
// persisted; each refresh replaces the previous record for the same key.
type PriceRecord struct {
	Key       string
	Price     decimal.NullDecimal
	Change5m  decimal.NullDecimal
	Change24h decimal.NullDecimal
	Name      string
	Symbol    string
	ImageURL  string
	// FetchedAt is the time of the last successful update of Price.
	FetchedAt time.Time
	Status    Status
	Err       error
}

func (r PriceRecord) Degraded() bool {
	return r.Status != StatusOK
}
