package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/ironhabit/internal/logger"
	"github.com/existflow/ironhabit/internal/relay"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the background sync relay",
	Long: `Run the background relay until interrupted. It caches the web assets
for offline use, serves them on --addr, and pushes deferred syncs as soon
as the server is reachable again.

Examples:
  ironhabit relay
  ironhabit relay --addr 127.0.0.1:7071`,
	Args: cobra.NoArgs,
	RunE: runRelay,
}

var (
	relayAddr      string
	relaySkipCache bool
)

func init() {
	relayCmd.Flags().StringVar(&relayAddr, "addr", "127.0.0.1:7071", "Address to serve cached assets on (empty disables)")
	relayCmd.Flags().BoolVar(&relaySkipCache, "no-install", false, "Do not refresh the asset cache on start")
}

func runRelay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	if !relaySkipCache {
		n, err := s.relay.Install(ctx)
		if err != nil {
			return fmt.Errorf("failed to install relay cache: %w", err)
		}
		if err := s.relay.Activate(ctx); err != nil {
			return fmt.Errorf("failed to activate relay cache: %w", err)
		}
		fmt.Printf("📦 Cached %d/%d assets (%s)\n", n, len(s.relay.Manifest().Assets), s.relay.Manifest().Version)
	}

	s.runBackground(ctx)

	var srv *http.Server
	if relayAddr != "" {
		e := relay.NewEcho(s.relay)
		srv = &http.Server{Addr: relayAddr, Handler: e, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Relay listener failed", logger.F("error", err))
				stop()
			}
		}()
		fmt.Printf("🛰️  Relay serving on http://%s\n", relayAddr)
	}

	logger.Info("Relay running", logger.F("addr", relayAddr))
	fmt.Println("Press Ctrl+C to stop.")
	<-ctx.Done()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Relay shutdown failed", logger.F("error", err))
		}
	}

	logger.Info("Relay stopped")
	fmt.Println("\nRelay stopped.")
	return nil
}
