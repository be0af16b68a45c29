package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/tracker/internal/core/config"
	"github.com/vietddude/tracker/internal/core/domain"
	"github.com/vietddude/tracker/internal/infra/store"
	redisstore "github.com/vietddude/tracker/internal/infra/store/redis"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show all tracked wallets and whale subscriptions",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	st, err := redisstore.New(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = st.Close()
	}()

	ctx := context.Background()

	keys, err := st.Keys(ctx, store.TrackedWalletsPrefix)
	if err != nil {
		slog.Error("Failed to list tracked wallets", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "SUBSCRIBER\tWALLET\tMIN USD\tLAST VALUE\tERRORS")
	for _, key := range keys {
		fields, err := st.HGetAll(ctx, key)
		if err != nil {
			continue
		}
		for addr, raw := range fields {
			var tw domain.TrackedWallet
			if err := json.Unmarshal([]byte(raw), &tw); err != nil {
				continue
			}
			last := "-"
			if tw.LastTotalValue != nil {
				last = fmt.Sprintf("%.2f", *tw.LastTotalValue)
			}
			_, _ = fmt.Fprintf(w, "%d\t%s\t%.2f\t%s\t%d\n",
				tw.SubscriberID, addr, tw.MinValueUSD, last, tw.ErrorCount)
		}
	}
	_ = w.Flush()

	keys, err = st.Keys(ctx, store.WhaleAlertsPrefix)
	if err != nil {
		slog.Error("Failed to list whale subscriptions", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "SUBSCRIBER\tTOKEN\tMIN AMOUNT")
	for _, key := range keys {
		fields, err := st.HGetAll(ctx, key)
		if err != nil {
			continue
		}
		for tokenID, raw := range fields {
			var sub domain.WhaleAlertSubscription
			if err := json.Unmarshal([]byte(raw), &sub); err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "%d\t%s\t%.2f\n", sub.SubscriberID, tokenID, sub.MinAmount)
		}
	}
	_ = w.Flush()
}
