package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/tracker/internal/core/config"
	"github.com/vietddude/tracker/internal/infra/alertlog"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [subscriber_id]",
	Short: "Show the most recent alerts delivered to a subscriber",
	Args:  cobra.ExactArgs(1),
	Run:   runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of entries to show")
}

func runHistory(cmd *cobra.Command, args []string) {
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
	if cfg.Database.URL == "" {
		fmt.Println("Alert history requires a database url in the config")
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := alertlog.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	entries, err := alertlog.NewRepo(db).Recent(ctx, subscriberID, historyLimit)
	if err != nil {
		slog.Error("Failed to query alert history", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TIME\tKIND\tENTITY\tID")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.CreatedAt.Format(time.RFC3339), e.Kind, e.Entity, e.ID)
	}
	_ = w.Flush()
}
