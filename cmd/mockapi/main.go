package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/loggo"

	"github.com/SigNoz/ecommerce-go-storefront/internal/metrics"
	"github.com/SigNoz/ecommerce-go-storefront/internal/mockapi"
	"github.com/SigNoz/ecommerce-go-storefront/internal/services"
	"github.com/SigNoz/ecommerce-go-storefront/pkg/config"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()
	if err := loggo.ConfigureLoggers("<root>=INFO;" + cfg.LogConfig); err != nil {
		log.Fatalf("Invalid STOREFRONT_LOG: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry metrics
	cfg.OTELServiceName += "-mockapi"
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

	store := services.NewStore(nil, appMetrics)
	if err := store.Seed(); err != nil {
		log.Fatalf("Failed to seed data: %v", err)
	}
	log.Printf("Demo accounts: %s / %s (admin), %s / %s", services.AdminEmail, services.AdminPassword, services.CustomerEmail, services.CustomerPassword)

	app := mockapi.NewApp(store, appMetrics)
	if err := mockapi.Serve(ctx, fmt.Sprintf(":%d", cfg.GetMockAPIPortInt()), app.Handler()); err != nil {
		log.Fatalf("%v", err)
	}
	log.Println("Server exited")
}
