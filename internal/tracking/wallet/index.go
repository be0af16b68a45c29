package wallet

import (
	"sync"

	"github.com/vietddude/tracker/internal/core/domain"
)

// index is the two-level tracked-wallet table keyed by wallet address then
// subscriber. It is owned exclusively by the engine; callers never see the
// raw maps, which keeps per-subscriber diff state from leaking across
// subscribers.
type index struct {
	mu       sync.RWMutex
	byWallet map[string]map[int64]*domain.TrackedWallet
}

func newIndex() *index {
	return &index{byWallet: make(map[string]map[int64]*domain.TrackedWallet)}
}

func (ix *index) get(address string, subscriberID int64) *domain.TrackedWallet {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.byWallet[address][subscriberID]
}

func (ix *index) put(tw *domain.TrackedWallet) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	subs, ok := ix.byWallet[tw.WalletAddress]
	if !ok {
		subs = make(map[int64]*domain.TrackedWallet)
		ix.byWallet[tw.WalletAddress] = subs
	}
	subs[tw.SubscriberID] = tw
}

func (ix *index) remove(address string, subscriberID int64) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	subs, ok := ix.byWallet[address]
	if !ok {
		return false
	}
	if _, ok := subs[subscriberID]; !ok {
		return false
	}
	delete(subs, subscriberID)
	if len(subs) == 0 {
		delete(ix.byWallet, address)
	}
	return true
}

// countFor returns the number of distinct wallets a subscriber tracks.
func (ix *index) countFor(subscriberID int64) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := 0
	for _, subs := range ix.byWallet {
		if _, ok := subs[subscriberID]; ok {
			n++
		}
	}
	return n
}

func (ix *index) forSubscriber(subscriberID int64) []*domain.TrackedWallet {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []*domain.TrackedWallet
	for _, subs := range ix.byWallet {
		if tw, ok := subs[subscriberID]; ok {
			out = append(out, tw)
		}
	}
	return out
}

// walletGroups snapshots the table grouped by wallet address, so one cycle
// fetches each wallet's balance once no matter how many subscribers share it.
func (ix *index) walletGroups() map[string][]*domain.TrackedWallet {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[string][]*domain.TrackedWallet, len(ix.byWallet))
	for addr, subs := range ix.byWallet {
		group := make([]*domain.TrackedWallet, 0, len(subs))
		for _, tw := range subs {
			group = append(group, tw)
		}
		out[addr] = group
	}
	return out
}

func (ix *index) all() []*domain.TrackedWallet {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []*domain.TrackedWallet
	for _, subs := range ix.byWallet {
		for _, tw := range subs {
			out = append(out, tw)
		}
	}
	return out
}

func (ix *index) size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := 0
	for _, subs := range ix.byWallet {
		n += len(subs)
	}
	return n
}
