package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vietddude/tracker/internal/core/config"
	"github.com/vietddude/tracker/internal/infra/store"
	redisstore "github.com/vietddude/tracker/internal/infra/store/redis"
)

var purgeCmd = &cobra.Command{
	Use:   "purge [subscriber_id]",
	Short: "Remove all persisted tracking state for a subscriber",
	Args:  cobra.ExactArgs(1),
	Run:   runPurge,
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) {
	subscriberID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Printf("Invalid subscriber id: %v\n", err)
		os.Exit(1)
	}

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
	keys := []string{
		store.TrackedWalletsKey(subscriberID),
		store.WhaleAlertsKey(subscriberID),
		store.HistoricalValuesKey(subscriberID),
	}
	removed := 0
	for _, key := range keys {
		fields, err := st.HGetAll(ctx, key)
		if err != nil {
			slog.Error("Failed to read state", "key", key, "error", err)
			os.Exit(1)
		}
		for field := range fields {
			if err := st.HDel(ctx, key, field); err != nil {
				slog.Error("Failed to delete state", "key", key, "field", field, "error", err)
				os.Exit(1)
			}
			removed++
		}
	}

	fmt.Printf("Successfully purged %d records for subscriber %d\n", removed, subscriberID)
}
