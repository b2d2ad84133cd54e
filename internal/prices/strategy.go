package prices

import (
	"context"
	"errors"
	"fmt"

	"cryptick/internal/gecko"
)

// ErrNotReported is set on addresses the API answered for without data.
var ErrNotReported = errors.New("token not reported by API")

// Quoter is the part of the GeckoTerminal client the fetcher needs.
type Quoter interface {
	Multi(ctx context.Context, network string, addrs []string) (map[string]gecko.TokenQuote, error)
}

// Result is the outcome for one address.
type Result struct {
	Quote gecko.TokenQuote
	Err   error
}

// Strategy decides how the addresses of one network are turned into API
// calls. Every input address must appear in the returned map.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, q Quoter, network string, addrs []string) map[string]Result
}

// BatchStrategy asks for up to Size addresses per request.
type BatchStrategy struct {
	Size int
}

func (BatchStrategy) Name() string { return "batch" }

func (s BatchStrategy) Fetch(ctx context.Context, q Quoter, network string, addrs []string) map[string]Result {
	size := s.Size
	if size <= 0 || size > gecko.MaxMultiAddresses {
		size = gecko.MaxMultiAddresses
	}

	out := make(map[string]Result, len(addrs))
	for start := 0; start < len(addrs); start += size {
		end := min(start+size, len(addrs))
		chunk := addrs[start:end]

		quotes, err := q.Multi(ctx, network, chunk)
		for _, a := range chunk {
			out[a] = pick(quotes, err, network, a)
		}
	}
	return out
}

// SingleStrategy issues one request per address so one bad token cannot
// fail its neighbours.
type SingleStrategy struct{}

func (SingleStrategy) Name() string { return "single" }

func (SingleStrategy) Fetch(ctx context.Context, q Quoter, network string, addrs []string) map[string]Result {
	out := make(map[string]Result, len(addrs))
	for _, a := range addrs {
		quotes, err := q.Multi(ctx, network, []string{a})
		out[a] = pick(quotes, err, network, a)
	}
	return out
}

func pick(quotes map[string]gecko.TokenQuote, err error, network, addr string) Result {
	if err != nil {
		return Result{Err: err}
	}
	quote, ok := quotes[addr]
	if !ok {
		return Result{Err: fmt.Errorf("%w [%s]: %s", ErrNotReported, network, addr)}
	}
	return Result{Quote: quote}
}

// StrategyByName maps the api.strategy setting to a Strategy.
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case "", "batch":
		return BatchStrategy{Size: gecko.MaxMultiAddresses}, nil
	case "single":
		return SingleStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown fetch strategy %q", name)
	}
}
