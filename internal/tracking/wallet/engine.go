package wallet

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/tracker/internal/core/domain"
	"github.com/vietddude/tracker/internal/infra/analytics"
	"github.com/vietddude/tracker/internal/infra/store"
	"github.com/vietddude/tracker/internal/notify"
	"github.com/vietddude/tracker/internal/tracking/backoff"
	"github.com/vietddude/tracker/internal/tracking/metrics"
)

const (
	// DefaultMaxWalletsPerSubscriber caps concurrent tracked wallets per
	// subscriber.
	DefaultMaxWalletsPerSubscriber = 5

	fetchConcurrency = 8
)

// Config holds the wallet engine's dependencies.
type Config struct {
	Store                   store.Store
	Client                  analytics.Client
	Dispatcher              notify.Dispatcher
	MaxWalletsPerSubscriber int
}

// Engine owns the tracked (wallet, subscriber) table and runs the periodic
// reconciliation cycle. All mutation of tracked state is confined to one
// writer at a time; network fetches fan out before the mutation phase.
type Engine struct {
	mu         sync.Mutex
	index      *index
	repo       *repo
	client     analytics.Client
	dispatcher notify.Dispatcher
	maxPerSub  int
	now        func() time.Time
	log        *slog.Logger

	lastCycleAt time.Time
}

// New creates a wallet tracking engine.
func New(cfg Config) *Engine {
	maxPerSub := cfg.MaxWalletsPerSubscriber
	if maxPerSub <= 0 {
		maxPerSub = DefaultMaxWalletsPerSubscriber
	}
	return &Engine{
		index:      newIndex(),
		repo:       newRepo(cfg.Store),
		client:     cfg.Client,
		dispatcher: cfg.Dispatcher,
		maxPerSub:  maxPerSub,
		now:        time.Now,
		log:        slog.Default().With("engine", "wallet"),
	}
}

// TrackResult is the confirmation returned by StartTracking.
type TrackResult struct {
	// Updated is true when an existing (wallet, subscriber) record had its
	// threshold updated instead of a new record being created.
	Updated bool
	Wallet  *domain.TrackedWallet
}

// StartTracking registers a wallet for a subscriber, seeding its diff state
// from the current balance and emitting one baseline summary.
func (e *Engine) StartTracking(ctx context.Context, subscriberID int64, address string, minValueUSD float64) (*TrackResult, error) {
	if !ValidAddress(address) {
		return nil, domain.ErrInvalidAddress
	}
	if minValueUSD <= 0 || math.IsNaN(minValueUSD) || math.IsInf(minValueUSD, 0) {
		return nil, domain.ErrInvalidThreshold
	}

	// Idempotent update path: same pair again just moves the threshold.
	// Persistence and the result use a clone taken under the lock; the live
	// record is only ever touched while e.mu is held.
	if existing := e.index.get(address, subscriberID); existing != nil {
		e.mu.Lock()
		existing.MinValueUSD = minValueUSD
		existing.LastCheckedAt = e.now().Unix()
		snapshot := existing.Clone()
		e.mu.Unlock()
		if err := e.repo.SaveWallet(ctx, snapshot); err != nil {
			e.log.Warn("failed to persist threshold update", "wallet", address, "error", err)
			metrics.PersistenceErrors.WithLabelValues("save_wallet").Inc()
		}
		return &TrackResult{Updated: true, Wallet: snapshot}, nil
	}

	if e.index.countFor(subscriberID) >= e.maxPerSub {
		return nil, domain.ErrSubscriberLimit
	}

	bal, err := e.client.GetBalance(ctx, address)
	if err != nil {
		return nil, err
	}
	if len(bal.Tokens) == 0 {
		return nil, domain.ErrNoTokensFound
	}

	now := e.now()
	// LastTotalValue stays unset until the first scan cycle observes a
	// total, so the first cycle never reports a crossing against the seed.
	tw := &domain.TrackedWallet{
		WalletAddress: address,
		SubscriberID:  subscriberID,
		MinValueUSD:   minValueUSD,
		LastCheckedAt: now.Unix(),
		LastTokenList: tokenSymbols(bal),
		LastBalances:  tokenBalances(bal),
		Category:      domain.Categorize(bal.TotalValueUSD),
	}

	// Seeding the transfer marker is best effort; tracking proceeds without
	// it and the first cycle treats any transfer as new.
	if sig, ok := e.latestSignature(ctx, address); ok {
		tw.LastKnownSignature = sig
	} else {
		e.log.Info("could not seed transfer marker", "wallet", address)
	}

	// Build the baseline before the record becomes visible to the scan
	// cycle; afterwards only clones leave the lock.
	summary := e.buildSummary(ctx, tw, bal)
	summary.Baseline = true

	e.mu.Lock()
	e.index.put(tw)
	snapshot := tw.Clone()
	e.mu.Unlock()
	metrics.TrackedWallets.Set(float64(e.index.size()))

	if err := e.repo.SaveWallet(ctx, snapshot); err != nil {
		e.log.Warn("failed to persist tracked wallet", "wallet", address, "error", err)
		metrics.PersistenceErrors.WithLabelValues("save_wallet").Inc()
	}

	if err := e.dispatcher.Dispatch(ctx, subscriberID, summary); err != nil {
		e.log.Warn("failed to dispatch baseline summary", "wallet", address, "error", err)
	}

	return &TrackResult{Wallet: snapshot}, nil
}

// StopTracking removes a (wallet, subscriber) record.
func (e *Engine) StopTracking(ctx context.Context, subscriberID int64, address string) error {
	e.mu.Lock()
	removed := e.index.remove(address, subscriberID)
	e.mu.Unlock()
	if !removed {
		return domain.ErrNotFound
	}
	metrics.TrackedWallets.Set(float64(e.index.size()))
	if err := e.repo.DeleteWallet(ctx, subscriberID, address); err != nil {
		e.log.Warn("failed to delete tracked wallet from store", "wallet", address, "error", err)
		metrics.PersistenceErrors.WithLabelValues("delete_wallet").Inc()
	}
	return nil
}

// ListTracked returns a subscriber's tracked wallets, store-backed when the
// store is reachable, in descending order of last total value.
func (e *Engine) ListTracked(ctx context.Context, subscriberID int64) ([]*domain.TrackedWallet, error) {
	wallets, err := e.repo.LoadSubscriber(ctx, subscriberID)
	if err != nil {
		e.log.Warn("store unavailable for list, using in-memory state", "error", err)
		metrics.PersistenceErrors.WithLabelValues("load_subscriber").Inc()
		e.mu.Lock()
		live := e.index.forSubscriber(subscriberID)
		wallets = make([]*domain.TrackedWallet, 0, len(live))
		for _, tw := range live {
			wallets = append(wallets, tw.Clone())
		}
		e.mu.Unlock()
	}
	sort.SliceStable(wallets, func(i, j int) bool {
		return totalOrZero(wallets[i]) > totalOrZero(wallets[j])
	})
	return wallets, nil
}

// Rehydrate loads all tracked wallets from the store. A load failure leaves
// the engine running with empty state rather than failing startup.
func (e *Engine) Rehydrate(ctx context.Context) {
	wallets, err := e.repo.LoadAll(ctx)
	if err != nil {
		e.log.Warn("rehydration failed, starting with empty state", "error", err)
		metrics.PersistenceErrors.WithLabelValues("load_all").Inc()
		return
	}
	e.mu.Lock()
	for _, tw := range wallets {
		e.index.put(tw)
	}
	e.mu.Unlock()
	metrics.TrackedWallets.Set(float64(e.index.size()))
	e.log.Info("rehydrated tracked wallets", "count", len(wallets))
}

// FlushAll persists every tracked wallet, used at cycle end and on
// shutdown. Records are snapshotted under the lock so serialization never
// reads a record the command path is mutating.
func (e *Engine) FlushAll(ctx context.Context) {
	e.mu.Lock()
	live := e.index.all()
	snapshot := make([]*domain.TrackedWallet, 0, len(live))
	for _, tw := range live {
		snapshot = append(snapshot, tw.Clone())
	}
	e.mu.Unlock()

	for _, tw := range snapshot {
		if err := e.repo.SaveWallet(ctx, tw); err != nil {
			e.log.Warn("failed to persist tracked wallet",
				"wallet", tw.WalletAddress, "subscriber", tw.SubscriberID, "error", err)
			metrics.PersistenceErrors.WithLabelValues("save_wallet").Inc()
		}
	}
}

// RunScanCycle fetches each tracked wallet's balance once, then runs the
// diff passes for every subscriber of that wallet. One wallet's fetch
// failure, or one subscriber's processing failure, never aborts the others.
func (e *Engine) RunScanCycle(ctx context.Context) error {
	start := e.now()
	groups := e.index.walletGroups()
	if len(groups) == 0 {
		return nil
	}

	// Read-only fan-out against the analytics API; results gathered before
	// any state is touched.
	balances := make(map[string]*analytics.Balance, len(groups))
	var bmu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for address := range groups {
		g.Go(func() error {
			bal, err := e.client.GetBalance(gctx, address)
			if err != nil {
				e.log.Warn("balance fetch failed, skipping wallet this cycle",
					"wallet", address, "error", err)
				return nil
			}
			bmu.Lock()
			balances[address] = bal
			bmu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	e.mu.Lock()
	now := e.now()
	for address, subs := range groups {
		bal, ok := balances[address]
		if !ok {
			continue
		}
		for _, tw := range subs {
			if !backoff.Ready(tw.LastErrorAt, tw.ErrorCount, now) {
				metrics.BackoffSkips.Inc()
				continue
			}
			if err := e.processSubscriber(ctx, tw, bal); err != nil {
				tw.ErrorCount++
				tw.LastErrorAt = now.Unix()
				e.log.Warn("subscriber processing failed",
					"wallet", address, "subscriber", tw.SubscriberID,
					"errors", tw.ErrorCount, "error", err)
				continue
			}
			tw.ErrorCount = 0
			tw.LastErrorAt = 0
			tw.LastCheckedAt = now.Unix()
		}
	}
	e.lastCycleAt = now
	e.mu.Unlock()

	e.FlushAll(ctx)

	metrics.ScanCycles.WithLabelValues("wallet").Inc()
	metrics.ScanDuration.WithLabelValues("wallet").Observe(e.now().Sub(start).Seconds())
	return nil
}

// Status describes the engine for the health endpoint.
type Status struct {
	TrackedPairs int       `json:"tracked_pairs"`
	ErroredPairs int       `json:"errored_pairs"`
	LastCycleAt  time.Time `json:"last_cycle_at"`
}

// Status returns a snapshot for health reporting.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	errored := 0
	for _, tw := range e.index.all() {
		if tw.ErrorCount > 0 {
			errored++
		}
	}
	return Status{
		TrackedPairs: e.index.size(),
		ErroredPairs: errored,
		LastCycleAt:  e.lastCycleAt,
	}
}

// ValidAddress reports whether the string is a well-formed base58 wallet
// address (32-byte payload).
func ValidAddress(address string) bool {
	if len(address) < 32 || len(address) > 44 {
		return false
	}
	raw, err := base58.Decode(address)
	if err != nil {
		return false
	}
	return len(raw) == 32
}

// latestSignature returns the most recent transfer signature for a wallet.
// The boolean result makes the best-effort contract explicit: a fetch
// failure or an empty history yields ok=false and is not an error.
func (e *Engine) latestSignature(ctx context.Context, address string) (string, bool) {
	transfers, err := e.latestTransfers(ctx, address, 1)
	if err != nil || len(transfers) == 0 {
		return "", false
	}
	return transfers[0].Signature, true
}

func totalOrZero(tw *domain.TrackedWallet) float64 {
	if tw.LastTotalValue == nil {
		return 0
	}
	return *tw.LastTotalValue
}

func tokenSymbols(bal *analytics.Balance) []string {
	out := make([]string, 0, len(bal.Tokens))
	for _, t := range bal.Tokens {
		out = append(out, t.Symbol)
	}
	return out
}

func tokenBalances(bal *analytics.Balance) map[string]string {
	out := make(map[string]string, len(bal.Tokens))
	for _, t := range bal.Tokens {
		out[tokenKey(t)] = formatValue(t.ValueUSD)
	}
	return out
}
