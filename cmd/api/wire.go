package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"tubepost/internal/api/handlers"
	"tubepost/internal/auth"
	"tubepost/internal/billing"
	"tubepost/internal/config"
	"tubepost/internal/connect"
	"tubepost/internal/core"
	"tubepost/internal/db"
	"tubepost/internal/dispatch"
	"tubepost/internal/external"
	"tubepost/internal/ledger"
	"tubepost/internal/lookup"
	"tubepost/internal/security"
	"tubepost/internal/telemetry"
)

// memoryFlowCapacity bounds the in-process flow store used without Redis.
const memoryFlowCapacity = 4096

// services are the collaborators behind the HTTP handlers.
type services struct {
	connector handlers.ConnectService
	cookie    handlers.FlowCookie
	accounts  handlers.AccountStore
	calendar  handlers.UsageCalendar
	sender    handlers.Sender
	strategy  lookup.Strategy
	recent    handlers.RecentLister
	checkout  *billing.Checkout
	upgrader  handlers.ProUpgrader
	users     handlers.UserLister
	verifier  external.WebhookVerifier
}

// buildServer connects every backing store and client and returns a server
// whose routes are registered but not yet mounted. Resources opened before a
// failure are released.
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (srv *core.Server, err error) {
	var closers []func() error
	defer func() {
		if err != nil {
			for _, c := range closers {
				_ = c()
			}
		}
	}()

	srv, err = core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}

	// Credential store.
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting database: %w", err)
	}
	closers = append(closers, func() error { pool.Close(); return nil })
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, pool, logger); err != nil {
			return nil, err
		}
	}
	users := db.NewUserRepository(pool)
	settings := db.NewSettingsRepository(pool)
	probes := []core.HealthProbe{db.PoolProbe{Pool: pool}}

	// Connect flow store.
	var flows connect.FlowStore
	if cfg.Redis.URL.IsEmpty() {
		logger.Info("REDIS_URL not set; connect flows are kept in process")
		flows = connect.NewMemoryFlowStore(memoryFlowCapacity, cfg.Connect.FlowTTL)
	} else {
		opts, err := redis.ParseURL(cfg.Redis.URL.Unmask())
		if err != nil {
			return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		closers = append(closers, rdb.Close)
		flows = connect.NewRedisFlowStore(rdb)
		probes = append(probes, connect.RedisProbe{Client: rdb})
	}

	backend, err := telemetry.New(ctx, cfg.Observability, logger)
	if err != nil {
		return nil, fmt.Errorf("creating metrics backend: %w", err)
	}
	closers = append(closers, backend.Close)

	verifier, err := auth.NewVerifier(ctx, cfg.Identity.ProjectID, cfg.Identity.JWKSURL)
	if err != nil {
		return nil, fmt.Errorf("creating token verifier: %w", err)
	}

	reg := external.NewClientRegistry(cfg, logger)
	sealer := security.NewSealer(cfg.CredentialKey)

	clientPool, err := connect.NewClientPool(cfg.OAuthClients)
	if err != nil {
		return nil, err
	}
	connector := connect.NewConnector(connect.Deps{
		Pool:     clientPool,
		Flows:    flows,
		OAuth:    reg.OAuth,
		Channels: reg.YouTube,
		Sealer:   sealer,
		Store:    users,
		TTL:      cfg.Connect.FlowTTL,
		Logger:   logger.With("component", "connect"),
		Metrics:  backend.Collector,
	})

	loc, err := time.LoadLocation(cfg.Ledger.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading USAGE_TIMEZONE: %w", err)
	}
	quota := ledger.New(users, billing.NewStaticPlanRegistry(), loc, logger.With("component", "ledger"))

	dispatcher := dispatch.New(dispatch.Deps{
		Ledger:      quota,
		Platform:    dispatch.YouTubePlatform{Client: reg.YouTube},
		Sealer:      sealer,
		Credentials: users,
		OAuth:       reg.OAuth,
		Logger:      logger.With("component", "dispatch"),
		Metrics:     backend.Collector,
	})

	strategy, err := lookup.NewStrategy(cfg.YouTube, reg, logger.With("component", "lookup"), backend.Collector)
	if err != nil {
		return nil, err
	}
	recent := &lookup.RecentVideos{
		Users:       users,
		Sessions:    reg.YouTube,
		Sealer:      sealer,
		Credentials: users,
		OAuth:       reg.OAuth,
		Region:      cfg.YouTube.SearchRegion,
		Logger:      logger.With("component", "lookup"),
	}

	upgrader := billing.NewUpgrader(users, cfg.Billing.ProCredits, logger.With("component", "billing"), backend.Collector)
	checkout := billing.NewCheckout(settings, reg.Checkout, checkoutConfig(cfg), logger.With("component", "billing"))

	srv.Authenticator = verifier
	srv.Metrics = backend.Collector
	srv.MetricsHandler = backend.Handler
	srv.HealthProbes = probes
	srv.Closers = closers

	registerRoutes(srv, cfg, services{
		connector: connector,
		cookie:    connect.NewFlowCookie([]byte(cfg.Connect.SessionSecret.Unmask()), cfg.Connect.FlowTTL, cfg.Environment != "local"),
		accounts:  users,
		calendar:  quota,
		sender:    dispatcher,
		strategy:  strategy,
		recent:    recent,
		checkout:  checkout,
		upgrader:  upgrader,
		users:     users,
		verifier:  reg.StripeVerifier,
	})
	return srv, nil
}

// registerRoutes appends every handler group to the server.
func registerRoutes(srv *core.Server, cfg *config.Config, s services) {
	logger := srv.Logger

	groups := []interface{ RegisterRoutes(chi.Router) }{
		handlers.NewConnectHandler(s.connector, s.cookie, cfg.Server.DashboardURL, logger),
		handlers.NewAccountHandler(s.accounts, s.calendar, nil, srv.Validator, logger),
		handlers.NewSendHandler(s.sender),
		handlers.NewLookupHandler(s.strategy, s.recent),
		handlers.NewCheckoutHandler(s.checkout),
		handlers.NewWebhookHandler(s.upgrader, s.verifier,
			cfg.Billing.PaymentWebhookSecret, cfg.Billing.StripeWebhookSecret, logger.With("component", "webhook")),
		handlers.NewAdminHandler(s.users, s.checkout, srv.RequireAdmin(cfg.Security.AdminUID), logger),
	}
	for _, g := range groups {
		srv.RouteRegistrars = append(srv.RouteRegistrars, g.RegisterRoutes)
	}
}

// checkoutConfig points the hosted checkout back at the dashboard.
func checkoutConfig(cfg *config.Config) billing.CheckoutConfig {
	dashboard := cfg.Server.DashboardURL
	return billing.CheckoutConfig{
		Currency:          cfg.Billing.Currency,
		DefaultPriceMinor: cfg.Billing.DefaultPriceMinor,
		SuccessURL:        dashboard + "?payment=success",
		CancelURL:         dashboard + "?payment=cancelled",
	}
}
