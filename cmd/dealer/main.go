package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kappalabs/hedging-dealer/internal/alerts"
	"github.com/kappalabs/hedging-dealer/internal/config"
	"github.com/kappalabs/hedging-dealer/internal/dealer"
	"github.com/kappalabs/hedging-dealer/internal/httpapi"
	"github.com/kappalabs/hedging-dealer/internal/ledger"
	"github.com/kappalabs/hedging-dealer/internal/observ"
	"github.com/kappalabs/hedging-dealer/internal/strategy"
	"github.com/kappalabs/hedging-dealer/internal/walletclient"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config/config.yaml", "config path")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v (did you copy config.example.yaml?)", err)
	}

	observ.Log("startup", map[string]any{
		"wallet_adapter":   cfg.Wallet.Adapter,
		"strategy_adapter": cfg.Strategy.Adapter,
		"database_driver":  cfg.Database.Driver,
		"tick_interval_s":  cfg.TickIntervalSeconds,
	})

	wallet, err := buildWallet(cfg.Wallet)
	if err != nil {
		log.Fatalf("build wallet client: %v", err)
	}
	strat, err := buildStrategy(cfg.Strategy)
	if err != nil {
		log.Fatalf("build strategy: %v", err)
	}
	txLedger, err := buildLedger(cfg.Database)
	if err != nil {
		log.Fatalf("build ledger: %v", err)
	}

	d, err := dealer.New(wallet, strat, txLedger, cfg.Hedging.MinimumPositiveLiabilityUSD)
	if err != nil {
		log.Fatalf("construct dealer: %v", err)
	}

	var alerter *alerts.SlackClient
	if cfg.Alerting.Enabled {
		alerter = alerts.NewSlackClient(cfg.Alerting)
		defer alerter.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		observ.Log("shutdown_signal_received", nil)
		cancel()
	}()

	router := httpapi.NewRouter(d)
	server := &http.Server{Addr: cfg.Server.Addr, Handler: router}
	go func() {
		observ.Log("http_server_listening", map[string]any{"addr": cfg.Server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observ.LogError("http_server_failed", map[string]any{"error": err.Error()})
		}
	}()

	runLoop(ctx, d, alerter, time.Duration(cfg.TickIntervalSeconds)*time.Second)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}

func runLoop(ctx context.Context, d *dealer.Dealer, alerter *alerts.SlackClient, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			observ.Log("run_loop_stopped", nil)
			return
		case <-ticker.C:
			runTick(ctx, d, alerter)
		}
	}
}

func runTick(ctx context.Context, d *dealer.Dealer, alerter *alerts.SlackClient) {
	outcome, err := d.Tick(ctx)
	if err != nil {
		observ.LogError("tick_failed", map[string]any{"error": err.Error()})
		if alerter != nil {
			alerter.SendAlert(alerts.AlertRequest{
				Kind:      alerts.KindTickFailure,
				Detail:    err.Error(),
				Timestamp: time.Now(),
			})
		}
		return
	}
	observ.Log("tick_succeeded", map[string]any{
		"position_skipped": outcome.PositionSkipped,
		"leverage_skipped": outcome.LeverageSkipped,
		"pending_transfers": outcome.PendingTransferCount,
	})
}

func buildWallet(cfg config.Wallet) (dealer.WalletClient, error) {
	switch cfg.Adapter {
	case "mock":
		return walletclient.NewMockWalletClient(), nil
	case "http":
		return walletclient.NewHTTPWalletClient(walletclient.HTTPConfig{
			BaseURL:         cfg.BaseURL,
			TimeoutSeconds:  cfg.TimeoutSeconds,
			RateLimitPerSec: cfg.RateLimitPerSec,
			RateLimitBurst:  cfg.RateLimitBurst,
		}), nil
	default:
		return nil, &config.ErrMissingSelector{Field: "wallet.adapter (unknown value " + cfg.Adapter + ")"}
	}
}

func buildStrategy(cfg config.Strategy) (dealer.HedgingStrategy, error) {
	switch cfg.Adapter {
	case "mock":
		name := cfg.Name
		if name == "" {
			name = "mock"
		}
		return strategy.NewMockStrategy(name), nil
	default:
		return nil, &config.ErrMissingSelector{Field: "strategy.adapter (unknown value " + cfg.Adapter + ")"}
	}
}

func buildLedger(cfg config.Database) (dealer.TransferLedger, error) {
	switch cfg.Driver {
	case "memory":
		return ledger.NewInMemoryLedger(), nil
	case "postgres":
		db, err := ledger.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return ledger.NewPostgresLedger(db), nil
	default:
		return nil, &config.ErrMissingSelector{Field: "database.driver (unknown value " + cfg.Driver + ")"}
	}
}
