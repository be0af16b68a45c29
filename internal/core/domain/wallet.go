package domain

// TrackedWallet is one subscriber's tracking configuration and last-known
// state for one wallet. The composite key (WalletAddress, SubscriberID) is
// unique; the same wallet tracked by two subscribers carries fully
// independent diff state.
type TrackedWallet struct {
	WalletAddress      string            `json:"wallet_address"`
	SubscriberID       int64             `json:"subscriber_id"`
	MinValueUSD        float64           `json:"min_value_usd"`
	LastCheckedAt      int64             `json:"last_checked_at"` // unix seconds
	LastTotalValue     *float64          `json:"last_total_value,omitempty"`
	LastTokenList      []string          `json:"last_token_list,omitempty"`
	LastBalances       map[string]string `json:"last_balances,omitempty"`
	LastKnownSignature string            `json:"last_known_signature,omitempty"`
	ErrorCount         int               `json:"error_count"`
	LastErrorAt        int64             `json:"last_error_at,omitempty"`

	// Derived each cycle, never authoritative.
	Category   string   `json:"category,omitempty"`
	PnLPercent *float64 `json:"pnl_percent,omitempty"`
}

// Clone returns a deep copy. The engine hands out and persists clones so
// records mutated under its lock are never read concurrently.
func (w *TrackedWallet) Clone() *TrackedWallet {
	c := *w
	if w.LastTotalValue != nil {
		v := *w.LastTotalValue
		c.LastTotalValue = &v
	}
	c.LastTokenList = append([]string(nil), w.LastTokenList...)
	if w.LastBalances != nil {
		c.LastBalances = make(map[string]string, len(w.LastBalances))
		for k, v := range w.LastBalances {
			c.LastBalances[k] = v
		}
	}
	if w.PnLPercent != nil {
		v := *w.PnLPercent
		c.PnLPercent = &v
	}
	return &c
}

// HistoricalValueSnapshot is the per-wallet daily value checkpoint used for
// 24h-style deltas. It is refreshed only when at least 24h have elapsed
// since Timestamp.
type HistoricalValueSnapshot struct {
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp"`
}

// Wallet value bands for the derived category label.
const (
	CategoryWhale   = "whale"
	CategoryDolphin = "dolphin"
	CategoryFish    = "fish"
	CategoryShrimp  = "shrimp"
)

// Categorize maps a total USD value onto a size band.
func Categorize(totalValueUSD float64) string {
	switch {
	case totalValueUSD >= 1_000_000:
		return CategoryWhale
	case totalValueUSD >= 100_000:
		return CategoryDolphin
	case totalValueUSD >= 10_000:
		return CategoryFish
	default:
		return CategoryShrimp
	}
}
