package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/partscatalog/backend/internal/app"
	projectionapp "github.com/partscatalog/backend/internal/application/projection"
	"github.com/partscatalog/backend/internal/infrastructure/config"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	gidsFileFlag    string
	retryLimitFlag  int
	failOnErrorFlag bool
)

var rootCmd = &cobra.Command{
	Use:           "backfill",
	Short:         "Recompute and push product projections to the catalog",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// backfill all
var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Rebuild every product that has a category link or a fitment",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), func(ctx context.Context, a *app.App) (projectionapp.BackfillReport, error) {
			return a.Synchronizer.BackfillAll(ctx)
		})
	},
}

// backfill gids <gid>...
var gidsCmd = &cobra.Command{
	Use:   "gids [gid...]",
	Short: "Rebuild the given products; bare numeric ids are accepted",
	RunE: func(cmd *cobra.Command, args []string) error {
		gids := append([]string(nil), args...)
		if gidsFileFlag != "" {
			fromFile, err := readLines(gidsFileFlag)
			if err != nil {
				return err
			}
			gids = append(gids, fromFile...)
		}
		if len(gids) == 0 {
			return fmt.Errorf("no product ids given")
		}
		return run(cmd.Context(), func(ctx context.Context, a *app.App) (projectionapp.BackfillReport, error) {
			return a.Synchronizer.Backfill(ctx, gids), nil
		})
	},
}

// backfill retry-failed
var retryFailedCmd = &cobra.Command{
	Use:   "retry-failed",
	Short: "Rebuild products whose last push failed",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), func(ctx context.Context, a *app.App) (projectionapp.BackfillReport, error) {
			return a.Synchronizer.RetryFailed(ctx, retryLimitFlag)
		})
	},
}

// backfill drain
var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Rebuild every product waiting in the rebuild queue, then exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), func(ctx context.Context, a *app.App) (projectionapp.BackfillReport, error) {
			if a.Worker == nil {
				return projectionapp.BackfillReport{}, fmt.Errorf("drain needs projection.mode=%s", config.ProjectionModeQueued)
			}
			return a.Worker.Drain(ctx)
		})
	},
}

func init() {
	gidsCmd.Flags().StringVarP(&gidsFileFlag, "file", "f", "", "Read product ids from a file, one per line")
	retryFailedCmd.Flags().IntVarP(&retryLimitFlag, "limit", "n", 100, "Maximum number of products to retry")
	rootCmd.PersistentFlags().BoolVar(&failOnErrorFlag, "fail-on-error", false, "Exit non-zero when any product failed")

	rootCmd.AddCommand(allCmd, gidsCmd, retryFailedCmd, drainCmd)
}

// run builds the application, executes fn until done or interrupted and
// prints the report as JSON.
func run(parent context.Context, fn func(context.Context, *app.App) (projectionapp.BackfillReport, error)) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	a, err := app.New(ctx, cfg, "backfill")
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	report, err := fn(ctx, a)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if failOnErrorFlag && len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d products failed", len(report.Failed), report.Total)
	}
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
