package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/vietddude/tracker/internal/control"
	"github.com/vietddude/tracker/internal/core/config"
	"github.com/vietddude/tracker/internal/infra/analytics"
)

// Binance hot wallet, a busy address that always holds tokens.
const defaultLiveWallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"

// TestLiveTracking exercises the full path against a real analytics API.
// It only runs when TRACKER_E2E_ANALYTICS_URL is set.
func TestLiveTracking(t *testing.T) {
	baseURL := os.Getenv("TRACKER_E2E_ANALYTICS_URL")
	if baseURL == "" {
		t.Skip("TRACKER_E2E_ANALYTICS_URL not set, skipping live test")
	}
	walletAddr := os.Getenv("TRACKER_E2E_WALLET")
	if walletAddr == "" {
		walletAddr = defaultLiveWallet
	}

	cfg := control.Config{
		Port: 18098,
		Analytics: analytics.Config{
			BaseURL: baseURL,
			APIKey:  os.Getenv("TRACKER_E2E_API_KEY"),
			Timeout: 15 * time.Second,
		},
		Tracking: config.TrackingConfig{
			WalletScanInterval: 1 * time.Minute,
			WhaleScanInterval:  1 * time.Minute,
		},
	}

	tracker, err := control.NewTracker(cfg)
	if err != nil {
		t.Fatalf("Failed to create tracker: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := tracker.Start(ctx); err != nil {
		t.Fatalf("Failed to start tracker: %v", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		_ = tracker.Stop(stopCtx)
	}()

	engine := tracker.WalletEngine()

	res, err := engine.StartTracking(ctx, 1, walletAddr, 1)
	if err != nil {
		t.Fatalf("Failed to start tracking %s: %v", walletAddr, err)
	}
	if len(res.Wallet.LastTokenList) == 0 {
		t.Errorf("Expected token holdings for %s, got none", walletAddr)
	}

	if err := engine.RunScanCycle(ctx); err != nil {
		t.Fatalf("Scan cycle failed: %v", err)
	}

	wallets, err := engine.ListTracked(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to list tracked wallets: %v", err)
	}
	if len(wallets) != 1 {
		t.Fatalf("Expected 1 tracked wallet, got %d", len(wallets))
	}
	if wallets[0].LastTotalValue == nil {
		t.Error("Expected a total value after one scan cycle")
	}
}
