package wallet

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/tracker/internal/core/domain"
	"github.com/vietddude/tracker/internal/infra/analytics"
	"github.com/vietddude/tracker/internal/infra/analytics/stub"
	"github.com/vietddude/tracker/internal/infra/store"
	"github.com/vietddude/tracker/internal/infra/store/memory"
)

// testAddr builds a valid base58 address from a repeated byte.
func testAddr(b byte) string {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = b
	}
	return base58.Encode(raw)
}

type captured struct {
	subscriberID int64
	alert        domain.Alert
}

// captureDispatcher records dispatched alerts and can fail per subscriber.
type captureDispatcher struct {
	mu      sync.Mutex
	alerts  []captured
	failFor map[int64]error
}

func (d *captureDispatcher) Dispatch(ctx context.Context, subscriberID int64, alert domain.Alert) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failFor[subscriberID]; err != nil {
		return err
	}
	d.alerts = append(d.alerts, captured{subscriberID: subscriberID, alert: alert})
	return nil
}

func (d *captureDispatcher) byKind(kind domain.AlertKind) []captured {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []captured
	for _, c := range d.alerts {
		if c.alert.Kind() == kind {
			out = append(out, c)
		}
	}
	return out
}

func (d *captureDispatcher) clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alerts = nil
}

func (d *captureDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.alerts)
}

type testEnv struct {
	engine     *Engine
	client     *stub.Client
	dispatcher *captureDispatcher
	store      *memory.Store
	clock      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		client:     &stub.Client{},
		dispatcher: &captureDispatcher{},
		store:      memory.New(),
		clock:      time.Unix(1_700_000_000, 0),
	}
	env.engine = New(Config{
		Store:      env.store,
		Client:     env.client,
		Dispatcher: env.dispatcher,
	})
	env.engine.now = func() time.Time { return env.clock }
	return env
}

func solBalance(total float64) *analytics.Balance {
	return &analytics.Balance{
		TotalValueUSD: total,
		Tokens: []analytics.TokenBalance{
			{Symbol: "SOL", MintID: "mintSOL", ValueUSD: total},
		},
	}
}

func TestStartTrackingInvalidAddress(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.StartTracking(context.Background(), 1, "not-an-address", 100)
	require.ErrorIs(t, err, domain.ErrInvalidAddress)
}

func TestStartTrackingInvalidThreshold(t *testing.T) {
	env := newTestEnv(t)
	addr := testAddr(1)
	for _, bad := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		_, err := env.engine.StartTracking(context.Background(), 1, addr, bad)
		require.ErrorIs(t, err, domain.ErrInvalidThreshold)
	}
}

func TestStartTrackingCreatesAndSeeds(t *testing.T) {
	env := newTestEnv(t)
	addr := testAddr(1)
	env.client.BalanceFn = func(ctx context.Context, address string) (*analytics.Balance, error) {
		return solBalance(800), nil
	}
	env.client.RecentTransfers = func(ctx context.Context, q analytics.TransfersQuery) ([]analytics.Transfer, error) {
		if q.Sender != "" {
			return []analytics.Transfer{{Signature: "sig-seed", BlockTime: 50}}, nil
		}
		return nil, nil
	}

	res, err := env.engine.StartTracking(context.Background(), 7, addr, 900)
	require.NoError(t, err)
	require.False(t, res.Updated)

	tw := res.Wallet
	assert.Equal(t, addr, tw.WalletAddress)
	assert.Equal(t, int64(7), tw.SubscriberID)
	assert.Equal(t, []string{"SOL"}, tw.LastTokenList)
	assert.Equal(t, map[string]string{"mintSOL": "800"}, tw.LastBalances)
	assert.Equal(t, "sig-seed", tw.LastKnownSignature)
	assert.Nil(t, tw.LastTotalValue, "total value must stay unset until the first cycle")

	// Baseline summary dispatched once
	summaries := env.dispatcher.byKind(domain.AlertKindPeriodicSummary)
	require.Len(t, summaries, 1)
	require.True(t, summaries[0].alert.(domain.PeriodicSummary).Baseline)

	// Persisted immediately
	fields, err := env.store.HGetAll(context.Background(), store.TrackedWalletsKey(7))
	require.NoError(t, err)
	require.Contains(t, fields, addr)
}

func TestStartTrackingSeedSignatureBestEffort(t *testing.T) {
	env := newTestEnv(t)
	env.client.BalanceFn = func(ctx context.Context, address string) (*analytics.Balance, error) {
		return solBalance(100), nil
	}
	env.client.RecentTransfers = func(ctx context.Context, q analytics.TransfersQuery) ([]analytics.Transfer, error) {
		return nil, errors.New("upstream down")
	}

	res, err := env.engine.StartTracking(context.Background(), 1, testAddr(2), 50)
	require.NoError(t, err, "seed failure must not fail tracking")
	assert.Empty(t, res.Wallet.LastKnownSignature)
}

func TestStartTrackingTwiceUpdates(t *testing.T) {
	env := newTestEnv(t)
	addr := testAddr(3)
	env.client.BalanceFn = func(ctx context.Context, address string) (*analytics.Balance, error) {
		return solBalance(100), nil
	}

	first, err := env.engine.StartTracking(context.Background(), 1, addr, 100)
	require.NoError(t, err)
	require.False(t, first.Updated)

	second, err := env.engine.StartTracking(context.Background(), 1, addr, 250)
	require.NoError(t, err)
	require.True(t, second.Updated)
	assert.Equal(t, 250.0, second.Wallet.MinValueUSD)
	assert.Equal(t, 1, env.engine.index.size(), "update must not create a second record")

	// Only the first call emits a baseline
	assert.Len(t, env.dispatcher.byKind(domain.AlertKindPeriodicSummary), 1)
}

func TestStartTrackingNoTokens(t *testing.T) {
	env := newTestEnv(t)
	env.client.BalanceFn = func(ctx context.Context, address string) (*analytics.Balance, error) {
		return &analytics.Balance{TotalValueUSD: 0}, nil
	}
	_, err := env.engine.StartTracking(context.Background(), 1, testAddr(4), 100)
	require.ErrorIs(t, err, domain.ErrNoTokensFound)
	assert.Equal(t, 0, env.engine.index.size())
}

func TestSubscriberLimit(t *testing.T) {
	env := newTestEnv(t)
	env.client.BalanceFn = func(ctx context.Context, address string) (*analytics.Balance, error) {
		return solBalance(100), nil
	}

	for i := byte(1); i <= 5; i++ {
		_, err := env.engine.StartTracking(context.Background(), 1, testAddr(i), 100)
		require.NoError(t, err)
	}
	_, err := env.engine.StartTracking(context.Background(), 1, testAddr(6), 100)
	require.ErrorIs(t, err, domain.ErrSubscriberLimit)
	assert.Equal(t, 5, env.engine.index.countFor(1))

	// A sixth wallet for the same subscriber is rejected, but the same pair
	// can still be updated.
	res, err := env.engine.StartTracking(context.Background(), 1, testAddr(5), 200)
	require.NoError(t, err)
	require.True(t, res.Updated)
}

func TestStopTracking(t *testing.T) {
	env := newTestEnv(t)
	addr := testAddr(1)
	env.client.BalanceFn = func(ctx context.Context, address string) (*analytics.Balance, error) {
		return solBalance(100), nil
	}
	_, err := env.engine.StartTracking(context.Background(), 1, addr, 100)
	require.NoError(t, err)

	require.NoError(t, env.engine.StopTracking(context.Background(), 1, addr))
	require.ErrorIs(t, env.engine.StopTracking(context.Background(), 1, addr), domain.ErrNotFound)

	fields, err := env.store.HGetAll(context.Background(), store.TrackedWalletsKey(1))
	require.NoError(t, err)
	assert.NotContains(t, fields, addr)
}

func TestListTrackedSortsByValue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	high, low := 500.0, 100.0

	for _, tw := range []*domain.TrackedWallet{
		{WalletAddress: testAddr(1), SubscriberID: 1, LastTotalValue: &low},
		{WalletAddress: testAddr(2), SubscriberID: 1, LastTotalValue: &high},
		{WalletAddress: testAddr(3), SubscriberID: 1}, // never scanned
	} {
		require.NoError(t, env.engine.repo.SaveWallet(ctx, tw))
	}

	wallets, err := env.engine.ListTracked(ctx, 1)
	require.NoError(t, err)
	require.Len(t, wallets, 3)
	assert.Equal(t, testAddr(2), wallets[0].WalletAddress)
	assert.Equal(t, testAddr(1), wallets[1].WalletAddress)
	assert.Equal(t, testAddr(3), wallets[2].WalletAddress, "unset total sorts as zero")
}

// failingStore errors on reads to exercise the in-memory fallback.
type failingStore struct {
	*memory.Store
}

func (f *failingStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return nil, errors.New("store unavailable")
}

func TestListTrackedFallsBackToMemory(t *testing.T) {
	failing := &failingStore{Store: memory.New()}
	dispatcher := &captureDispatcher{}
	client := &stub.Client{
		BalanceFn: func(ctx context.Context, address string) (*analytics.Balance, error) {
			return solBalance(100), nil
		},
	}
	engine := New(Config{Store: failing, Client: client, Dispatcher: dispatcher})

	_, err := engine.StartTracking(context.Background(), 1, testAddr(1), 100)
	require.NoError(t, err)

	wallets, err := engine.ListTracked(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
}

func TestRehydrateRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	total := 1234.5
	original := &domain.TrackedWallet{
		WalletAddress:      testAddr(9),
		SubscriberID:       42,
		MinValueUSD:        900,
		LastCheckedAt:      1_700_000_000,
		LastTotalValue:     &total,
		LastTokenList:      []string{"SOL", "USDC"},
		LastBalances:       map[string]string{"mintSOL": "1000.25", "mintUSDC": "234.25"},
		LastKnownSignature: "sig-last",
		ErrorCount:         2,
		LastErrorAt:        1_699_999_000,
	}
	require.NoError(t, env.engine.repo.SaveWallet(ctx, original))

	// Fresh engine over the same store simulates a restart.
	restarted := New(Config{Store: env.store, Client: env.client, Dispatcher: env.dispatcher})
	restarted.Rehydrate(ctx)

	got := restarted.index.get(original.WalletAddress, 42)
	require.NotNil(t, got)
	require.Equal(t, original, got)
}

func TestRehydrateStoreFailureStartsEmpty(t *testing.T) {
	failing := &failingStore{Store: memory.New()}
	engine := New(Config{Store: failing, Client: &stub.Client{}, Dispatcher: &captureDispatcher{}})
	engine.Rehydrate(context.Background())
	assert.Equal(t, 0, engine.index.size())
}

// TestConcurrentCommandsAndFlush hammers the command path against the
// flush and list paths; run with the race detector to verify that records
// are only serialized from snapshots taken under the engine lock.
func TestConcurrentCommandsAndFlush(t *testing.T) {
	failing := &failingStore{Store: memory.New()}
	client := &stub.Client{
		BalanceFn: func(ctx context.Context, address string) (*analytics.Balance, error) {
			return solBalance(100), nil
		},
	}
	engine := New(Config{Store: failing, Client: client, Dispatcher: &captureDispatcher{}})
	addr := testAddr(1)
	ctx := context.Background()

	_, err := engine.StartTracking(ctx, 1, addr, 100)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_, _ = engine.StartTracking(ctx, 1, addr, float64(100+i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			engine.FlushAll(ctx)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_, _ = engine.ListTracked(ctx, 1)
		}
	}()
	wg.Wait()

	res, err := engine.StartTracking(ctx, 1, addr, 42)
	require.NoError(t, err)
	require.True(t, res.Updated)
	assert.Equal(t, 42.0, res.Wallet.MinValueUSD)
}

func TestStartTrackingReturnsDetachedRecord(t *testing.T) {
	env := newTestEnv(t)
	addr := testAddr(1)
	env.client.BalanceFn = func(ctx context.Context, address string) (*analytics.Balance, error) {
		return solBalance(100), nil
	}

	res, err := env.engine.StartTracking(context.Background(), 1, addr, 100)
	require.NoError(t, err)

	// Mutating the returned record must not touch engine state.
	res.Wallet.MinValueUSD = 999
	res.Wallet.LastTokenList[0] = "FAKE"
	live := env.engine.index.get(addr, 1)
	assert.Equal(t, 100.0, live.MinValueUSD)
	assert.Equal(t, []string{"SOL"}, live.LastTokenList)
}

func TestListTrackedFallbackReturnsDetachedRecords(t *testing.T) {
	failing := &failingStore{Store: memory.New()}
	client := &stub.Client{
		BalanceFn: func(ctx context.Context, address string) (*analytics.Balance, error) {
			return solBalance(100), nil
		},
	}
	engine := New(Config{Store: failing, Client: client, Dispatcher: &captureDispatcher{}})
	addr := testAddr(1)

	_, err := engine.StartTracking(context.Background(), 1, addr, 100)
	require.NoError(t, err)

	wallets, err := engine.ListTracked(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	wallets[0].MinValueUSD = 999
	assert.Equal(t, 100.0, engine.index.get(addr, 1).MinValueUSD)
}

func TestValidAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		valid   bool
	}{
		{name: "well-formed", address: testAddr(1), valid: true},
		{name: "empty", address: "", valid: false},
		{name: "too short", address: "abc", valid: false},
		{name: "bad characters", address: "0OIl+/==0OIl+/==0OIl+/==0OIl+/==0OIl", valid: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidAddress(tt.address); got != tt.valid {
				t.Errorf("ValidAddress(%q) = %v, want %v", tt.address, got, tt.valid)
			}
		})
	}
}
