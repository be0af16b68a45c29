package whale

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vietddude/tracker/internal/core/domain"
	"github.com/vietddude/tracker/internal/infra/store"
)

// repo serializes whale alert subscriptions into the hash store, keyed
// whaleAlerts:{subscriberId} with the token id as hash field.
type repo struct {
	store store.Store
}

func newRepo(s store.Store) *repo {
	return &repo{store: s}
}

func (r *repo) Save(ctx context.Context, tokenID string, sub *domain.WhaleAlertSubscription) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal whale subscription: %w", err)
	}
	key := store.WhaleAlertsKey(sub.SubscriberID)
	if err := r.store.HSet(ctx, key, tokenID, string(data)); err != nil {
		return fmt.Errorf("failed to save whale subscription: %w", err)
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, subscriberID int64, tokenID string) error {
	key := store.WhaleAlertsKey(subscriberID)
	if err := r.store.HDel(ctx, key, tokenID); err != nil {
		return fmt.Errorf("failed to delete whale subscription: %w", err)
	}
	return nil
}

// LoadAll returns every stored subscription keyed by subscriber then token.
func (r *repo) LoadAll(ctx context.Context) (map[int64]map[string]*domain.WhaleAlertSubscription, error) {
	keys, err := r.store.Keys(ctx, store.WhaleAlertsPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list whale subscription keys: %w", err)
	}
	out := make(map[int64]map[string]*domain.WhaleAlertSubscription)
	for _, key := range keys {
		subscriberID, err := store.SubscriberFromKey(key, store.WhaleAlertsPrefix)
		if err != nil {
			return nil, err
		}
		fields, err := r.store.HGetAll(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to load whale subscriptions: %w", err)
		}
		byToken := make(map[string]*domain.WhaleAlertSubscription, len(fields))
		for tokenID, raw := range fields {
			var sub domain.WhaleAlertSubscription
			if err := json.Unmarshal([]byte(raw), &sub); err != nil {
				return nil, fmt.Errorf("failed to unmarshal whale subscription %s: %w", tokenID, err)
			}
			byToken[tokenID] = &sub
		}
		out[subscriberID] = byToken
	}
	return out, nil
}
