package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/juju/loggo"
	"github.com/mattn/go-isatty"

	"github.com/SigNoz/ecommerce-go-storefront/internal/api"
	"github.com/SigNoz/ecommerce-go-storefront/internal/metrics"
	"github.com/SigNoz/ecommerce-go-storefront/internal/payment"
	"github.com/SigNoz/ecommerce-go-storefront/internal/shell"
	"github.com/SigNoz/ecommerce-go-storefront/internal/state"
	"github.com/SigNoz/ecommerce-go-storefront/internal/views"
	"github.com/SigNoz/ecommerce-go-storefront/pkg/config"
)

var logger = loggo.GetLogger("storefront")

func main() {
	// Load configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := loggo.ConfigureLoggers(cfg.LogConfig); err != nil {
		log.Fatalf("Invalid STOREFRONT_LOG: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry metrics
	appMetrics, meterProvider, err := metrics.InitMetrics(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down meter provider: %v", err)
		}
	}()

	client, err := api.New(api.Config{
		BaseURL: cfg.APIBaseURL,
		Tokens:  api.NewFileTokenStore(cfg.CredentialsFile),
		Metrics: appMetrics,
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create API client: %v", err)
	}

	deps := views.Deps{
		Auth:     state.NewAuthStore(client.Auth, client.Tokens(), appMetrics),
		Cart:     state.NewCartStore(client.Cart, appMetrics),
		Products: state.NewProductStore(client.Products, appMetrics),
		Orders:   state.NewOrderStore(client.Orders, appMetrics),
	}

	var confirmer payment.Confirmer = payment.SandboxConfirmer{}
	if cfg.PaymentProvider == config.ProviderStripe {
		confirmer = payment.NewStripeConfirmer(cfg.StripePublishableKey, nil)
	}
	logger.Infof("card payments via %s", cfg.PaymentProvider)

	historyDir := filepath.Dir(cfg.CredentialsFile)
	if err := os.MkdirAll(historyDir, 0700); err != nil {
		logger.Warningf("command history disabled: %v", err)
	}
	sh := shell.New(shell.Config{
		Deps:        deps,
		Payments:    payment.NewAuthorizer(client.Payments, confirmer, appMetrics),
		Currency:    cfg.Currency,
		DownloadDir: cfg.DownloadDir,
		Clock:       clock.WallClock,
		SearchDelay: cfg.SearchDebounce,
		Metrics:     appMetrics,
		Out:         os.Stdout,
		Color:       isatty.IsTerminal(os.Stdout.Fd()),
		HistoryFile: filepath.Join(historyDir, "history"),
	})
	client.SetOnUnauthorized(sh.SessionExpired)

	// A stored credential resumes the previous session.
	if deps.Auth.IsAuthenticated() {
		if _, err := deps.Auth.LoadUser(ctx); err != nil {
			logger.Warningf("resuming session: %v", err)
		} else if _, err := deps.Cart.Fetch(ctx); err != nil {
			logger.Warningf("loading cart: %v", err)
		}
	}

	if err := sh.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
