package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Store is a keyed hash store: each key holds a field→value map. It backs
// durability and startup recovery; in-memory engine state stays the source
// of truth between flushes.
type Store interface {
	// HGetAll returns the full hash stored at key. A missing key yields an
	// empty map, not an error.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// HSet upserts a single field of the hash at key.
	HSet(ctx context.Context, key, field, value string) error

	// HDel removes a single field of the hash at key.
	HDel(ctx context.Context, key, field string) error

	// Keys returns all keys matching the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	Close() error
}

// Key prefixes shared by all implementations.
const (
	TrackedWalletsPrefix   = "trackedWallets:"
	WhaleAlertsPrefix      = "whaleAlerts:"
	HistoricalValuesPrefix = "historicalValues:"
)

// TrackedWalletsKey builds the per-subscriber tracked-wallet hash key.
func TrackedWalletsKey(subscriberID int64) string {
	return TrackedWalletsPrefix + strconv.FormatInt(subscriberID, 10)
}

// WhaleAlertsKey builds the per-subscriber whale-alert hash key.
func WhaleAlertsKey(subscriberID int64) string {
	return WhaleAlertsPrefix + strconv.FormatInt(subscriberID, 10)
}

// HistoricalValuesKey builds the per-subscriber value-snapshot hash key.
func HistoricalValuesKey(subscriberID int64) string {
	return HistoricalValuesPrefix + strconv.FormatInt(subscriberID, 10)
}

// SubscriberFromKey extracts the subscriber id from a prefixed key.
func SubscriberFromKey(key, prefix string) (int64, error) {
	raw, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return 0, fmt.Errorf("key %q does not carry prefix %q", key, prefix)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subscriber id in key %q: %w", key, err)
	}
	return id, nil
}
