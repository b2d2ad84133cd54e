package market

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TickerEntry is one token tracked by a profile.
type TickerEntry struct {
	NetworkID     string `json:"network_id"`
	Address       string `json:"address"`
	CustomName    string `json:"custom_name"`
	LogoURL       string `json:"logo_url,omitempty"`
	HideSeparator bool   `json:"hide_separator,omitempty"`
	Bold          bool   `json:"bold,omitempty"`
}

func (e TickerEntry) Key() string {
	return Key(e.NetworkID, e.Address)
}

// NormalizeAddress lower-cases EVM style addresses. Other chains (Solana,
// Tron, ...) use case-sensitive encodings and are left alone.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X") {
		return "0x" + strings.ToLower(addr[2:])
	}
	return addr
}

func Key(network, addr string) string {
	return strings.ToLower(strings.TrimSpace(network)) + ":" + NormalizeAddress(addr)
}

// ValidateAddress rejects empty addresses and malformed hex addresses.
func ValidateAddress(network, addr string) error {
	addr = strings.TrimSpace(addr)
	if strings.TrimSpace(network) == "" {
		return fmt.Errorf("network is required")
	}
	if addr == "" {
		return fmt.Errorf("address is required [%s]", network)
	}
	if strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X") {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid hex address [%s]: %s", network, addr)
		}
	}
	return nil
}

// ShortAddress abbreviates long addresses as 0x1234…abcd.
func ShortAddress(addr string) string {
	r := []rune(addr)
	if len(r) <= 10 {
		return addr
	}
	return string(r[:6]) + "…" + string(r[len(r)-4:])
}

// Signature identifies a ticker set independent of order and duplicates.
// Fetch results are applied only while the active profile's signature
// matches the one they were requested with.
func Signature(entries []TickerEntry) string {
	seen := make(map[string]struct{}, len(entries))
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		k := e.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}
