// Package app wires configuration, storage, domain services, and the HTTP
// server into a running application.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/cartloop/checkout/internal/domain/geo"
	"github.com/cartloop/checkout/internal/domain/order"
	"github.com/cartloop/checkout/internal/domain/points"
	"github.com/cartloop/checkout/internal/domain/promo"
	"github.com/cartloop/checkout/internal/domain/shipping"
	"github.com/cartloop/checkout/internal/handler"
	"github.com/cartloop/checkout/internal/storage/postgres"
	"github.com/cartloop/checkout/pkg/health"
	"github.com/cartloop/checkout/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	zoneRepo := postgres.NewZoneRepository(pool)
	promoRepo := postgres.NewPromoRepository(pool)
	pointsRepo := postgres.NewPointsRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	txManager := postgres.NewTxManager(pool)

	// Domain services.
	shippingSvc := shipping.NewService(shipping.Config{
		Warehouse:           geo.Point{Lat: cfg.Shipping.WarehouseLat, Lng: cfg.Shipping.WarehouseLng},
		MaxDeliveryRadiusKm: cfg.Shipping.MaxRadiusKm,
		BaseCost:            decimal.NewFromFloat(cfg.Shipping.BaseCost),
		CostPerKm:           decimal.NewFromFloat(cfg.Shipping.CostPerKm),
		MaxCost:             decimal.NewFromFloat(cfg.Shipping.MaxCost),
		DefaultCost:         decimal.NewFromFloat(cfg.Shipping.DefaultCost),
	}, zoneRepo, shipping.WithMeter(m.MeterProvider().Meter("checkout")))

	promoValidator := promo.NewRepoValidator(promoRepo)
	ledger := points.NewLedger(pointsRepo, txManager)
	calculator := order.NewCalculator(order.PricingConfig{
		PointValue: decimal.NewFromFloat(cfg.Points.PointValue),
		EarnRate:   decimal.NewFromFloat(cfg.Points.EarnRate),
	}, productRepo, shippingSvc, promoValidator, ledger)
	orderSvc := order.NewService(calculator, productRepo, promoRepo, ledger, orderRepo, txManager)

	// HTTP handlers.
	h := handler.New(orderSvc, shippingSvc, promoValidator, ledger)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	instrumented := otelhttp.NewHandler(mux, "checkout-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(instrumented,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "X-User-ID"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
