package whale

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/tracker/internal/core/domain"
	"github.com/vietddude/tracker/internal/infra/analytics"
	"github.com/vietddude/tracker/internal/infra/store"
	"github.com/vietddude/tracker/internal/notify"
	"github.com/vietddude/tracker/internal/tracking/metrics"
)

// DefaultPageLimit caps the per-token transfer page fetched each cycle.
const DefaultPageLimit = 5

// Config holds the whale engine's dependencies.
type Config struct {
	Store      store.Store
	Client     analytics.Client
	Dispatcher notify.Dispatcher
	PageLimit  int
}

// Engine detects transfers on watched tokens exceeding subscriber-specific
// thresholds. Each cycle queries upstream once per token at the loosest
// threshold any subscriber holds, then re-filters per subscription.
type Engine struct {
	mu         sync.Mutex
	subs       map[int64]map[string]*domain.WhaleAlertSubscription
	repo       *repo
	client     analytics.Client
	dispatcher notify.Dispatcher
	pageLimit  int
	now        func() time.Time
	log        *slog.Logger

	// Single scan window shared across all tokens; advanced once per cycle.
	lastCheckedAt int64
	lastCycleAt   time.Time
}

// New creates a whale tracking engine. The scan window starts at creation
// time so the first cycle only covers transfers after startup.
func New(cfg Config) *Engine {
	limit := cfg.PageLimit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	e := &Engine{
		subs:       make(map[int64]map[string]*domain.WhaleAlertSubscription),
		repo:       newRepo(cfg.Store),
		client:     cfg.Client,
		dispatcher: cfg.Dispatcher,
		pageLimit:  limit,
		now:        time.Now,
		log:        slog.Default().With("engine", "whale"),
	}
	e.lastCheckedAt = e.now().Unix()
	return e
}

// SetAlert upserts a (subscriber, token) threshold. The returned flag is
// true when a new subscription was created rather than updated.
func (e *Engine) SetAlert(ctx context.Context, subscriberID int64, tokenID string, minAmount float64) (created bool, err error) {
	if minAmount <= 0 || math.IsNaN(minAmount) || math.IsInf(minAmount, 0) {
		return false, domain.ErrInvalidThreshold
	}

	e.mu.Lock()
	byToken, ok := e.subs[subscriberID]
	if !ok {
		byToken = make(map[string]*domain.WhaleAlertSubscription)
		e.subs[subscriberID] = byToken
	}
	sub, exists := byToken[tokenID]
	if exists {
		sub.MinAmount = minAmount
	} else {
		sub = &domain.WhaleAlertSubscription{
			SubscriberID: subscriberID,
			MinAmount:    minAmount,
			Tokens:       []string{tokenID},
		}
		byToken[tokenID] = sub
	}
	snapshot := sub.Clone()
	e.mu.Unlock()
	metrics.WhaleSubscriptions.Set(float64(e.subCount()))

	if err := e.repo.Save(ctx, tokenID, snapshot); err != nil {
		e.log.Warn("failed to persist whale subscription", "token", tokenID, "error", err)
		metrics.PersistenceErrors.WithLabelValues("save_whale").Inc()
	}
	return !exists, nil
}

// RemoveAlert deletes a (subscriber, token) threshold.
func (e *Engine) RemoveAlert(ctx context.Context, subscriberID int64, tokenID string) error {
	e.mu.Lock()
	byToken, ok := e.subs[subscriberID]
	if ok {
		_, ok = byToken[tokenID]
	}
	if !ok {
		e.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(byToken, tokenID)
	if len(byToken) == 0 {
		delete(e.subs, subscriberID)
	}
	e.mu.Unlock()
	metrics.WhaleSubscriptions.Set(float64(e.subCount()))

	if err := e.repo.Delete(ctx, subscriberID, tokenID); err != nil {
		e.log.Warn("failed to delete whale subscription", "token", tokenID, "error", err)
		metrics.PersistenceErrors.WithLabelValues("delete_whale").Inc()
	}
	return nil
}

// ListAlerts returns a subscriber's subscriptions ordered by token id.
func (e *Engine) ListAlerts(subscriberID int64) []*domain.WhaleAlertSubscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	byToken := e.subs[subscriberID]
	tokens := make([]string, 0, len(byToken))
	for t := range byToken {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	out := make([]*domain.WhaleAlertSubscription, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, byToken[t].Clone())
	}
	return out
}

// Rehydrate loads subscriptions from the store; a load failure starts the
// engine empty instead of failing startup.
func (e *Engine) Rehydrate(ctx context.Context) {
	loaded, err := e.repo.LoadAll(ctx)
	if err != nil {
		e.log.Warn("rehydration failed, starting with empty state", "error", err)
		metrics.PersistenceErrors.WithLabelValues("load_whale").Inc()
		return
	}
	e.mu.Lock()
	e.subs = loaded
	e.mu.Unlock()
	metrics.WhaleSubscriptions.Set(float64(e.subCount()))
	e.log.Info("rehydrated whale subscriptions", "subscribers", len(loaded))
}

// FlushAll persists every subscription, used on shutdown. Subscriptions are
// snapshotted under the lock so serialization never reads a record SetAlert
// is mutating.
func (e *Engine) FlushAll(ctx context.Context) {
	type record struct {
		tokenID string
		sub     *domain.WhaleAlertSubscription
	}
	e.mu.Lock()
	var snapshot []record
	for _, byToken := range e.subs {
		for tokenID, sub := range byToken {
			snapshot = append(snapshot, record{tokenID: tokenID, sub: sub.Clone()})
		}
	}
	e.mu.Unlock()
	for _, r := range snapshot {
		if err := e.repo.Save(ctx, r.tokenID, r.sub); err != nil {
			e.log.Warn("failed to persist whale subscription", "token", r.tokenID, "error", err)
			metrics.PersistenceErrors.WithLabelValues("save_whale").Inc()
		}
	}
}

// RunScanCycle queries each watched token once at the minimum threshold any
// subscriber holds, re-filters against each subscription's own threshold,
// and advances the shared scan window once at the end.
func (e *Engine) RunScanCycle(ctx context.Context) error {
	start := e.now()

	// Floors and watcher lists are cloned under the lock; the rest of the
	// cycle works on the snapshot while SetAlert stays free to mutate.
	e.mu.Lock()
	windowStart := e.lastCheckedAt
	floors := make(map[string]float64)
	watchers := make(map[string][]*domain.WhaleAlertSubscription)
	for _, byToken := range e.subs {
		for tokenID, sub := range byToken {
			if cur, ok := floors[tokenID]; !ok || sub.MinAmount < cur {
				floors[tokenID] = sub.MinAmount
			}
			watchers[tokenID] = append(watchers[tokenID], sub.Clone())
		}
	}
	e.mu.Unlock()

	now := e.now()
	for tokenID, floor := range floors {
		transfers, err := e.client.GetTransfersForToken(ctx, analytics.TokenTransfersQuery{
			TokenID:   tokenID,
			MinAmount: floor,
			TimeStart: windowStart,
			TimeEnd:   now.Unix(),
			Limit:     e.pageLimit,
		})
		if err != nil {
			e.log.Warn("token transfer fetch failed, skipping token this cycle",
				"token", tokenID, "error", err)
			continue
		}
		if len(transfers) == 0 {
			continue
		}
		sort.SliceStable(transfers, func(i, j int) bool {
			return transfers[i].BlockTime > transfers[j].BlockTime
		})

		symbol := e.resolveSymbol(ctx, tokenID)
		for _, tr := range transfers {
			for _, sub := range watchers[tokenID] {
				if !sub.Watches(tokenID) || tr.Amount < sub.MinAmount {
					continue
				}
				alert := domain.WhaleAlert{
					ID:        uuid.NewString(),
					TokenID:   tokenID,
					Symbol:    symbol,
					Signature: tr.Signature,
					Sender:    tr.Sender,
					Receiver:  tr.Receiver,
					Amount:    tr.Amount,
					ValueUSD:  tr.ValueUSD,
					BlockTime: tr.BlockTime,
				}
				if err := e.dispatcher.Dispatch(ctx, sub.SubscriberID, alert); err != nil {
					e.log.Warn("failed to dispatch whale alert",
						"subscriber", sub.SubscriberID, "token", tokenID, "error", err)
				}
			}
		}
	}

	e.mu.Lock()
	e.lastCheckedAt = now.Unix()
	e.lastCycleAt = now
	e.mu.Unlock()

	metrics.ScanCycles.WithLabelValues("whale").Inc()
	metrics.ScanDuration.WithLabelValues("whale").Observe(e.now().Sub(start).Seconds())
	return nil
}

// resolveSymbol looks up the token's display symbol through the holders
// query. Lookup failure degrades to an empty symbol.
func (e *Engine) resolveSymbol(ctx context.Context, tokenID string) string {
	holders, err := e.client.GetTopHolders(ctx, tokenID)
	if err != nil || len(holders) == 0 {
		e.log.Debug("symbol lookup failed", "token", tokenID, "error", err)
		return ""
	}
	return holders[0].Symbol
}

// Status describes the engine for the health endpoint.
type Status struct {
	Subscriptions int       `json:"subscriptions"`
	LastCycleAt   time.Time `json:"last_cycle_at"`
}

// Status returns a snapshot for health reporting.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, byToken := range e.subs {
		n += len(byToken)
	}
	return Status{Subscriptions: n, LastCycleAt: e.lastCycleAt}
}

func (e *Engine) subCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, byToken := range e.subs {
		n += len(byToken)
	}
	return n
}
