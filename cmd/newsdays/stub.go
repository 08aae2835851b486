package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"newsdays/internal/stub"
)

var stubAddr string

func init() {
	stubCmd.Flags().StringVar(&stubAddr, "addr", "", "listen address (default stub.addr from config)")
	rootCmd.AddCommand(stubCmd)
}

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Run a local backend that serves the days API from sqlite",
	Long: `Run a stand-in for the digest backend. Newsletters posted to /api/v1/inbox are
filed under their day on the next refresh, and summaries are a plain digest of
the day's subjects.

Examples:
  # Serve on the configured address
  newsdays stub

  # Queue a newsletter
  curl -X POST localhost:8000/api/v1/inbox \
    -d '[{"subject":"Hello","author":"a@b.com","received_at":"2024-01-01T08:00:00Z"}]'`,
	Args: cobra.NoArgs,
	RunE: runStub,
}

func runStub(cmd *cobra.Command, args []string) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.closeLog()

	addr := stubAddr
	if addr == "" {
		addr = rt.cfg.Stub.Addr
	}

	db, err := stub.NewSQLiteStore(rt.cfg.Stub.DBPath)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if n, err := db.CountDays(ctx); err == nil {
		rt.log.Info("stub database opened", zap.String("path", rt.cfg.Stub.DBPath), zap.Int("days", n))
	}

	srv := stub.NewServer(db, stub.Options{SummaryField: rt.cfg.Stub.SummaryField, Logger: rt.log})
	errc := make(chan error, 1)
	go func() { errc <- srv.Start(addr) }()
	fmt.Fprintf(cmd.OutOrStdout(), "stub listening on http://%s\n", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errc
}
