package wallet

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vietddude/tracker/internal/core/domain"
	"github.com/vietddude/tracker/internal/infra/store"
)

// repo serializes tracked-wallet state into the hash store. Keys follow the
// trackedWallets:{subscriberId} / historicalValues:{subscriberId} layout with
// the wallet address as hash field.
type repo struct {
	store store.Store
}

func newRepo(s store.Store) *repo {
	return &repo{store: s}
}

func (r *repo) SaveWallet(ctx context.Context, tw *domain.TrackedWallet) error {
	data, err := json.Marshal(tw)
	if err != nil {
		return fmt.Errorf("failed to marshal tracked wallet: %w", err)
	}
	key := store.TrackedWalletsKey(tw.SubscriberID)
	if err := r.store.HSet(ctx, key, tw.WalletAddress, string(data)); err != nil {
		return fmt.Errorf("failed to save tracked wallet: %w", err)
	}
	return nil
}

func (r *repo) DeleteWallet(ctx context.Context, subscriberID int64, address string) error {
	key := store.TrackedWalletsKey(subscriberID)
	if err := r.store.HDel(ctx, key, address); err != nil {
		return fmt.Errorf("failed to delete tracked wallet: %w", err)
	}
	return nil
}

// LoadSubscriber returns all tracked wallets stored for one subscriber.
func (r *repo) LoadSubscriber(ctx context.Context, subscriberID int64) ([]*domain.TrackedWallet, error) {
	key := store.TrackedWalletsKey(subscriberID)
	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracked wallets: %w", err)
	}
	wallets := make([]*domain.TrackedWallet, 0, len(fields))
	for address, raw := range fields {
		var tw domain.TrackedWallet
		if err := json.Unmarshal([]byte(raw), &tw); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tracked wallet %s: %w", address, err)
		}
		wallets = append(wallets, &tw)
	}
	return wallets, nil
}

// LoadAll enumerates every subscriber with tracked wallets and returns all
// records, used for startup rehydration.
func (r *repo) LoadAll(ctx context.Context) ([]*domain.TrackedWallet, error) {
	keys, err := r.store.Keys(ctx, store.TrackedWalletsPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked wallet keys: %w", err)
	}
	var wallets []*domain.TrackedWallet
	for _, key := range keys {
		subscriberID, err := store.SubscriberFromKey(key, store.TrackedWalletsPrefix)
		if err != nil {
			return nil, err
		}
		subWallets, err := r.LoadSubscriber(ctx, subscriberID)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, subWallets...)
	}
	return wallets, nil
}

// LoadSnapshot returns the daily value checkpoint for one (subscriber,
// wallet) pair, or nil when none is stored.
func (r *repo) LoadSnapshot(ctx context.Context, subscriberID int64, address string) (*domain.HistoricalValueSnapshot, error) {
	key := store.HistoricalValuesKey(subscriberID)
	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load value snapshots: %w", err)
	}
	raw, ok := fields[address]
	if !ok {
		return nil, nil
	}
	var snap domain.HistoricalValueSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal value snapshot: %w", err)
	}
	return &snap, nil
}

func (r *repo) SaveSnapshot(ctx context.Context, subscriberID int64, address string, snap *domain.HistoricalValueSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal value snapshot: %w", err)
	}
	key := store.HistoricalValuesKey(subscriberID)
	if err := r.store.HSet(ctx, key, address, string(data)); err != nil {
		return fmt.Errorf("failed to save value snapshot: %w", err)
	}
	return nil
}
