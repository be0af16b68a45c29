package analytics

import "context"

// TokenBalance is one held token inside a balance response.
type TokenBalance struct {
	Symbol        string  `json:"symbol"`
	MintID        string  `json:"mintId"`
	ValueUSD      float64 `json:"valueUsd"`
	PriceChange1d float64 `json:"priceChange1d"`
}

// Balance is the current portfolio of a wallet address.
type Balance struct {
	TotalValueUSD float64        `json:"totalValueUsd"`
	Tokens        []TokenBalance `json:"tokens"`
}

// Transfer is a single on-chain transfer record.
type Transfer struct {
	Signature string  `json:"signature"`
	Sender    string  `json:"senderAddress"`
	Receiver  string  `json:"receiverAddress"`
	MintID    string  `json:"mintId"`
	Amount    float64 `json:"amount"`
	ValueUSD  float64 `json:"valueUsd"`
	BlockTime int64   `json:"blockTime"`
}

// Holder is one entry of a top-holders response.
type Holder struct {
	Address string  `json:"address"`
	Symbol  string  `json:"symbol"`
	Amount  float64 `json:"amount"`
}

// TransfersQuery selects recent transfers for a wallet. Exactly one of
// Sender or Receiver should be set.
type TransfersQuery struct {
	Sender   string
	Receiver string
	Limit    int
}

// TokenTransfersQuery selects transfers of one token inside a time window,
// filtered upstream at MinAmount.
type TokenTransfersQuery struct {
	TokenID   string
	MinAmount float64
	TimeStart int64
	TimeEnd   int64
	Limit     int
}

// Client is the read-only analytics upstream consumed by the engines. All
// calls are fallible with a transient upstream error; callers must not
// assume any latency bound beyond the client's own timeout.
type Client interface {
	GetBalance(ctx context.Context, address string) (*Balance, error)
	GetRecentTransfers(ctx context.Context, q TransfersQuery) ([]Transfer, error)
	GetTransfersForToken(ctx context.Context, q TokenTransfersQuery) ([]Transfer, error)
	GetTopHolders(ctx context.Context, tokenID string) ([]Holder, error)
}
