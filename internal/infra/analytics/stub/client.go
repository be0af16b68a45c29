package stub

import (
	"context"
	"sync"

	"github.com/vietddude/tracker/internal/infra/analytics"
)

// Client is a configurable in-memory analytics client for tests. Unset
// functions return empty results.
type Client struct {
	mu sync.Mutex

	BalanceFn       func(ctx context.Context, address string) (*analytics.Balance, error)
	RecentTransfers func(ctx context.Context, q analytics.TransfersQuery) ([]analytics.Transfer, error)
	TokenTransfers  func(ctx context.Context, q analytics.TokenTransfersQuery) ([]analytics.Transfer, error)
	TopHolders      func(ctx context.Context, tokenID string) ([]analytics.Holder, error)

	BalanceCalls       []string
	TokenTransferCalls []analytics.TokenTransfersQuery
}

func (c *Client) GetBalance(ctx context.Context, address string) (*analytics.Balance, error) {
	c.mu.Lock()
	c.BalanceCalls = append(c.BalanceCalls, address)
	c.mu.Unlock()
	if c.BalanceFn != nil {
		return c.BalanceFn(ctx, address)
	}
	return &analytics.Balance{}, nil
}

func (c *Client) GetRecentTransfers(ctx context.Context, q analytics.TransfersQuery) ([]analytics.Transfer, error) {
	if c.RecentTransfers != nil {
		return c.RecentTransfers(ctx, q)
	}
	return nil, nil
}

func (c *Client) GetTransfersForToken(ctx context.Context, q analytics.TokenTransfersQuery) ([]analytics.Transfer, error) {
	c.mu.Lock()
	c.TokenTransferCalls = append(c.TokenTransferCalls, q)
	c.mu.Unlock()
	if c.TokenTransfers != nil {
		return c.TokenTransfers(ctx, q)
	}
	return nil, nil
}

func (c *Client) GetTopHolders(ctx context.Context, tokenID string) ([]analytics.Holder, error) {
	if c.TopHolders != nil {
		return c.TopHolders(ctx, tokenID)
	}
	return nil, nil
}
