package wallet

import (
	"context"
	"math"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/vietddude/tracker/internal/core/domain"
	"github.com/vietddude/tracker/internal/infra/analytics"
)

const (
	// Transfer burst probe depth after a new signature is seen.
	transferProbeLimit = 2

	// Total-value swing that triggers a percent-change alert.
	percentAlertThreshold = 5.0

	// Per-token move that qualifies for the consolidated token alert, and
	// the dust floor below which moves are ignored.
	tokenChangePercent  = 20.0
	tokenChangeFloorUSD = 10.0
	tokenChangeTopN     = 5

	snapshotRefreshSeconds = 24 * 60 * 60
)

// processSubscriber runs the four diff passes for one (wallet, subscriber)
// pair against a freshly fetched balance. The first failing pass aborts the
// remainder for this subscriber; the caller records the error for backoff.
func (e *Engine) processSubscriber(ctx context.Context, tw *domain.TrackedWallet, bal *analytics.Balance) error {
	if err := e.diffTransfers(ctx, tw); err != nil {
		return err
	}
	if err := e.diffTokenList(ctx, tw, bal); err != nil {
		return err
	}
	if err := e.diffTotalValue(ctx, tw, bal); err != nil {
		return err
	}
	return e.diffTokenValues(ctx, tw, bal)
}

// diffTransfers emits a notification when the newest transfer signature
// moved, then probes slightly deeper to catch transfers missed in a burst,
// stopping at the first previously seen signature.
func (e *Engine) diffTransfers(ctx context.Context, tw *domain.TrackedWallet) error {
	latest, err := e.latestTransfers(ctx, tw.WalletAddress, 1)
	if err != nil {
		return err
	}
	if len(latest) == 0 {
		return nil
	}
	newest := latest[0]
	if newest.Signature == tw.LastKnownSignature {
		return nil
	}

	previousSig := tw.LastKnownSignature
	if err := e.dispatcher.Dispatch(ctx, tw.SubscriberID, transferAlert(tw.WalletAddress, newest)); err != nil {
		return err
	}
	tw.LastKnownSignature = newest.Signature

	deeper, err := e.latestTransfers(ctx, tw.WalletAddress, transferProbeLimit)
	if err != nil {
		return err
	}
	for _, tr := range deeper {
		if tr.Signature == newest.Signature {
			continue
		}
		if tr.Signature == previousSig {
			break
		}
		if err := e.dispatcher.Dispatch(ctx, tw.SubscriberID, transferAlert(tw.WalletAddress, tr)); err != nil {
			return err
		}
	}
	return nil
}

// latestTransfers merges the wallet's sent and received streams, newest
// first, truncated to limit.
func (e *Engine) latestTransfers(ctx context.Context, address string, limit int) ([]analytics.Transfer, error) {
	sent, err := e.client.GetRecentTransfers(ctx, analytics.TransfersQuery{Sender: address, Limit: limit})
	if err != nil {
		return nil, err
	}
	received, err := e.client.GetRecentTransfers(ctx, analytics.TransfersQuery{Receiver: address, Limit: limit})
	if err != nil {
		return nil, err
	}
	merged := append(sent, received...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].BlockTime > merged[j].BlockTime
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func transferAlert(address string, tr analytics.Transfer) domain.TransferNotification {
	return domain.TransferNotification{
		ID:            uuid.NewString(),
		WalletAddress: address,
		Signature:     tr.Signature,
		Sender:        tr.Sender,
		Receiver:      tr.Receiver,
		MintID:        tr.MintID,
		Amount:        tr.Amount,
		ValueUSD:      tr.ValueUSD,
		BlockTime:     tr.BlockTime,
	}
}

// diffTokenList compares held symbols against the last cycle and emits a
// change alert. The stored list is refreshed whether or not an alert fired.
func (e *Engine) diffTokenList(ctx context.Context, tw *domain.TrackedWallet, bal *analytics.Balance) error {
	current := tokenSymbols(bal)

	previous := make(map[string]bool, len(tw.LastTokenList))
	for _, s := range tw.LastTokenList {
		previous[s] = true
	}
	seen := make(map[string]bool, len(current))
	var added []domain.TokenHolding
	for _, t := range bal.Tokens {
		seen[t.Symbol] = true
		if !previous[t.Symbol] {
			added = append(added, domain.TokenHolding{
				Symbol:         t.Symbol,
				ValueUSD:       t.ValueUSD,
				PriceChange1dP: t.PriceChange1d,
			})
		}
	}
	var removed []string
	for _, s := range tw.LastTokenList {
		if !seen[s] {
			removed = append(removed, s)
		}
	}

	tw.LastTokenList = current
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}
	return e.dispatcher.Dispatch(ctx, tw.SubscriberID, domain.TokenListChanged{
		ID:            uuid.NewString(),
		WalletAddress: tw.WalletAddress,
		Added:         added,
		Removed:       removed,
	})
}

// diffTotalValue detects threshold crossings and percent swings of the
// wallet total, and emits the periodic summary whenever the total meets the
// subscriber's floor. The three crossing/swing conditions are independent
// and may co-fire.
func (e *Engine) diffTotalValue(ctx context.Context, tw *domain.TrackedWallet, bal *analytics.Balance) error {
	current := bal.TotalValueUSD

	if tw.LastTotalValue != nil {
		previous := *tw.LastTotalValue

		if previous < tw.MinValueUSD && current >= tw.MinValueUSD {
			err := e.dispatcher.Dispatch(ctx, tw.SubscriberID, domain.ThresholdCrossed{
				ID:            uuid.NewString(),
				WalletAddress: tw.WalletAddress,
				Direction:     domain.DirectionUp,
				Threshold:     tw.MinValueUSD,
				PreviousValue: previous,
				CurrentValue:  current,
			})
			if err != nil {
				return err
			}
		}
		if previous >= tw.MinValueUSD && current < tw.MinValueUSD {
			err := e.dispatcher.Dispatch(ctx, tw.SubscriberID, domain.ThresholdCrossed{
				ID:            uuid.NewString(),
				WalletAddress: tw.WalletAddress,
				Direction:     domain.DirectionDown,
				Threshold:     tw.MinValueUSD,
				PreviousValue: previous,
				CurrentValue:  current,
			})
			if err != nil {
				return err
			}
		}

		if previous != 0 {
			pct := (current - previous) / previous * 100
			if math.Abs(pct) >= percentAlertThreshold {
				direction := domain.DirectionUp
				if pct < 0 {
					direction = domain.DirectionDown
				}
				err := e.dispatcher.Dispatch(ctx, tw.SubscriberID, domain.PercentChangeAlert{
					ID:            uuid.NewString(),
					WalletAddress: tw.WalletAddress,
					Direction:     direction,
					Percent:       math.Abs(pct),
					PreviousValue: previous,
					CurrentValue:  current,
				})
				if err != nil {
					return err
				}
			}
		}
	}

	if current >= tw.MinValueUSD {
		if err := e.dispatcher.Dispatch(ctx, tw.SubscriberID, e.buildSummary(ctx, tw, bal)); err != nil {
			return err
		}
	}

	tw.LastTotalValue = &current
	return nil
}

// buildSummary assembles the full holdings summary, refreshing the derived
// category and the PnL against the daily value checkpoint.
func (e *Engine) buildSummary(ctx context.Context, tw *domain.TrackedWallet, bal *analytics.Balance) domain.PeriodicSummary {
	total := bal.TotalValueUSD
	tw.Category = domain.Categorize(total)
	tw.PnLPercent = e.refreshPnL(ctx, tw, total)

	holdings := make([]domain.TokenHolding, 0, len(bal.Tokens))
	for _, t := range bal.Tokens {
		holdings = append(holdings, domain.TokenHolding{
			Symbol:         t.Symbol,
			ValueUSD:       t.ValueUSD,
			PriceChange1dP: t.PriceChange1d,
		})
	}

	return domain.PeriodicSummary{
		ID:            uuid.NewString(),
		WalletAddress: tw.WalletAddress,
		TotalValueUSD: total,
		Category:      tw.Category,
		PnLPercent:    tw.PnLPercent,
		Holdings:      holdings,
	}
}

// refreshPnL computes the change against the stored daily checkpoint and
// rolls the checkpoint forward once 24h have elapsed. Snapshot store
// failures degrade to no PnL rather than failing the pass.
func (e *Engine) refreshPnL(ctx context.Context, tw *domain.TrackedWallet, total float64) *float64 {
	snap, err := e.repo.LoadSnapshot(ctx, tw.SubscriberID, tw.WalletAddress)
	if err != nil {
		e.log.Debug("value snapshot unavailable", "wallet", tw.WalletAddress, "error", err)
		return nil
	}

	now := e.now().Unix()
	var pnl *float64
	if snap != nil {
		if previous, perr := strconv.ParseFloat(snap.Value, 64); perr == nil && previous > 0 {
			v := (total - previous) / previous * 100
			pnl = &v
		}
	}

	if snap == nil || now-snap.Timestamp >= snapshotRefreshSeconds {
		fresh := &domain.HistoricalValueSnapshot{Value: formatValue(total), Timestamp: now}
		if err := e.repo.SaveSnapshot(ctx, tw.SubscriberID, tw.WalletAddress, fresh); err != nil {
			e.log.Debug("failed to save value snapshot", "wallet", tw.WalletAddress, "error", err)
		}
	}
	return pnl
}

// diffTokenValues flags tokens whose USD value moved at least 20% since the
// last cycle and sits above the dust floor, consolidating the top movers
// into one alert. Stored per-token values are overwritten regardless.
func (e *Engine) diffTokenValues(ctx context.Context, tw *domain.TrackedWallet, bal *analytics.Balance) error {
	next := make(map[string]string, len(bal.Tokens))
	var changes []domain.TokenValueChange

	for _, t := range bal.Tokens {
		key := tokenKey(t)
		if prevRaw, ok := tw.LastBalances[key]; ok {
			if previous, err := strconv.ParseFloat(prevRaw, 64); err == nil && previous > 0 {
				pct := (t.ValueUSD - previous) / previous * 100
				if math.Abs(pct) >= tokenChangePercent && t.ValueUSD >= tokenChangeFloorUSD {
					changes = append(changes, domain.TokenValueChange{
						Symbol:        t.Symbol,
						PreviousValue: previous,
						CurrentValue:  t.ValueUSD,
						Percent:       pct,
					})
				}
			}
		}
		next[key] = formatValue(t.ValueUSD)
	}
	tw.LastBalances = next

	if len(changes) == 0 {
		return nil
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return math.Abs(changes[i].Percent) > math.Abs(changes[j].Percent)
	})
	if len(changes) > tokenChangeTopN {
		changes = changes[:tokenChangeTopN]
	}
	return e.dispatcher.Dispatch(ctx, tw.SubscriberID, domain.TokenValueChangeAlert{
		ID:            uuid.NewString(),
		WalletAddress: tw.WalletAddress,
		Changes:       changes,
	})
}

func tokenKey(t analytics.TokenBalance) string {
	if t.MintID != "" {
		return t.MintID
	}
	return t.Symbol
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
