package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openalpha/stake-ledger/api"
	"github.com/openalpha/stake-ledger/api/websocket"
	"github.com/openalpha/stake-ledger/app"
	"github.com/openalpha/stake-ledger/metrics"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd runs the ledger with its HTTP and websocket API
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ledger and serve the API",
		Long: `Open the ledger store, load genesis on first start and serve the HTTP API,
the /ws event stream and /metrics until interrupted.

Every flag can also be set in the config file or as an environment variable,
e.g. STAKELEDGER_API_PORT=9090.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	addConfigFlags(cmd)
	def := app.DefaultConfig().API
	f := cmd.Flags()
	f.String("api.host", def.Host, "API listen host")
	f.Int("api.port", def.Port, "API listen port")
	f.Duration("api.read-timeout", def.ReadTimeout, "HTTP read timeout")
	f.Duration("api.write-timeout", def.WriteTimeout, "HTTP write timeout")
	f.Bool("api.disable-rate-limit", false, "disable per-IP and per-caller rate limiting")
	f.Int("api.requests-per-second", def.RequestsPerSecond, "per-IP request rate")
	f.Int("api.burst", def.Burst, "per-IP burst")
	return cmd
}

func serve(ctx context.Context, cfg app.Config) error {
	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	db, err := cfg.OpenDB()
	if err != nil {
		return err
	}

	ledger, err := app.NewLedgerApp(logger, db, cfg)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			logger.Error("Failed to close ledger", "err", err)
		}
	}()

	collector := metrics.GetCollector()
	hub := websocket.NewHub(websocket.DefaultHubConfig(), logger, collector)
	service := api.NewLedgerService(ledger,
		api.WithHub(hub),
		api.WithMetrics(collector),
		api.WithInvariantChecks(cfg.CheckInvariants),
		api.WithLogger(logger),
	)
	server := api.NewServer(cfg.API, service, hub, collector, metrics.Handler(), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("Shutting down", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Shutting down", "reason", ctx.Err())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "err", err)
		return err
	}
	logger.Info("Server exited", "height", ledger.Height())
	return nil
}
