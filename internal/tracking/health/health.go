package health

import (
	"time"

	"github.com/vietddude/tracker/internal/tracking/wallet"
	"github.com/vietddude/tracker/internal/tracking/whale"
)

// Status levels reported by the health endpoint.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Report is the detailed health snapshot.
type Report struct {
	Status string        `json:"status"`
	Wallet wallet.Status `json:"wallet"`
	Whale  whale.Status  `json:"whale"`
}

// Monitor derives health from the two engines' cycle timestamps.
type Monitor struct {
	wallet         *wallet.Engine
	whale          *whale.Engine
	walletInterval time.Duration
	whaleInterval  time.Duration
}

// NewMonitor creates a health monitor. The intervals are the engines'
// configured scan periods; a cycle overdue by 3x its period marks the
// process degraded.
func NewMonitor(walletEng *wallet.Engine, whaleEng *whale.Engine, walletInterval, whaleInterval time.Duration) *Monitor {
	return &Monitor{
		wallet:         walletEng,
		whale:          whaleEng,
		walletInterval: walletInterval,
		whaleInterval:  whaleInterval,
	}
}

// Check builds the current health report.
func (m *Monitor) Check() Report {
	ws := m.wallet.Status()
	hs := m.whale.Status()

	status := StatusHealthy
	now := time.Now()
	if stale(ws.LastCycleAt, m.walletInterval, now) || stale(hs.LastCycleAt, m.whaleInterval, now) {
		status = StatusDegraded
	}
	return Report{Status: status, Wallet: ws, Whale: hs}
}

// stale reports whether a cycle timestamp is overdue. A zero timestamp
// means no cycle has run yet, which is normal right after startup.
func stale(last time.Time, interval time.Duration, now time.Time) bool {
	if last.IsZero() {
		return false
	}
	return now.Sub(last) > 3*interval
}
