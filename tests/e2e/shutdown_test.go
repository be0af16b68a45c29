package e2e

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/vietddude/tracker/internal/control"
	"github.com/vietddude/tracker/internal/core/config"
	"github.com/vietddude/tracker/internal/infra/analytics"
)

func TestGracefulShutdown(t *testing.T) {
	// No redis or database configured: in-memory persistence, log-only
	// dispatch. The analytics endpoint is never reached because nothing is
	// tracked.
	port := 18099
	cfg := control.Config{
		Port: port,
		Analytics: analytics.Config{
			BaseURL: "http://127.0.0.1:1",
			Timeout: 1 * time.Second,
		},
		Tracking: config.TrackingConfig{
			WalletScanInterval: 1 * time.Second,
			WhaleScanInterval:  1 * time.Second,
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

	// The health endpoint should come up and report healthy.
	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("Health endpoint never came up: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Health endpoint returned %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// Let a couple of scan cycles run against empty state.
	time.Sleep(2 * time.Second)

	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	if err := tracker.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}

	// After shutdown the health endpoint must be gone.
	if _, err := http.Get(url); err == nil {
		t.Error("Health endpoint still reachable after Stop")
	}
}
