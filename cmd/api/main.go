package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pressly/goose/v3"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/letsrendez/rendez-api/internal/adapters/amadeus"
	"github.com/letsrendez/rendez-api/internal/adapters/httpapi"
	"github.com/letsrendez/rendez-api/internal/adapters/kayak"
	memaccommodationrepo "github.com/letsrendez/rendez-api/internal/adapters/memory/accommodationrepo"
	memidempotency "github.com/letsrendez/rendez-api/internal/adapters/memory/idempotency"
	memtriprepo "github.com/letsrendez/rendez-api/internal/adapters/memory/triprepo"
	"github.com/letsrendez/rendez-api/internal/adapters/openai"
	postgres "github.com/letsrendez/rendez-api/internal/adapters/postgres"
	pgaccommodationrepo "github.com/letsrendez/rendez-api/internal/adapters/postgres/accommodationrepo"
	pgidempotency "github.com/letsrendez/rendez-api/internal/adapters/postgres/idempotency"
	pgtriprepo "github.com/letsrendez/rendez-api/internal/adapters/postgres/triprepo"
	"github.com/letsrendez/rendez-api/internal/app/accommodations"
	"github.com/letsrendez/rendez-api/internal/app/flights"
	"github.com/letsrendez/rendez-api/internal/app/suggestions"
	"github.com/letsrendez/rendez-api/internal/app/trips"
	"github.com/letsrendez/rendez-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/letsrendez/rendez-api/internal/platform/clock"
	"github.com/letsrendez/rendez-api/internal/platform/config"
	accommodationrepoport "github.com/letsrendez/rendez-api/internal/ports/out/accommodationrepo"
	idempotencyport "github.com/letsrendez/rendez-api/internal/ports/out/idempotency"
	triprepoport "github.com/letsrendez/rendez-api/internal/ports/out/triprepo"
	"github.com/letsrendez/rendez-api/migrations"
)

func main() {
	cfg, err := config.LoadAppConfigFromEnv()
	if err != nil {
		slog.Error("invalid app config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	// Auth configuration:
	// - Production: require JWT_* env vars and enforce bearer auth
	// - Local dev: set AUTH_MODE=dev to bypass JWT verification and use X-Debug-Subject
	authMode := getenv("AUTH_MODE", "jwt")
	var authMW func(http.Handler) http.Handler
	authIssuer := ""
	switch authMode {
	case "dev":
		authMW = httpapi.NewDevAuthMiddleware(getenv("DEV_SUBJECT", "dev|local"))
		authIssuer = getenv("DEV_ISSUER", "dev")
	default:
		jwtCfg, err := config.LoadJWTConfigFromEnv()
		if err != nil {
			log.Error("invalid auth config", "error", err)
			os.Exit(1)
		}
		verifier := jwtverifier.New(jwtCfg)
		authMW = httpapi.NewAuthMiddleware(verifier)
		authIssuer = jwtCfg.Issuer
	}

	clk := platformclock.NewSystemClock()

	storageBackend := getenv("STORAGE_BACKEND", "memory")
	var (
		tripRepo triprepoport.Repository
		accRepo  accommodationrepoport.Repository
		idem     idempotencyport.Store
		cleanup  func()
	)

	switch storageBackend {
	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		if err := migrate(dsn); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		pool, err := postgres.NewPool(context.Background(), dsn, postgres.PoolOptions{})
		if err != nil {
			log.Error("invalid postgres config", "error", err)
			os.Exit(1)
		}
		cleanup = pool.Close

		tripRepo = pgtriprepo.NewRepo(pool)
		accRepo = pgaccommodationrepo.NewRepo(pool)
		idem = pgidempotency.NewStore(pool, authIssuer)
	default:
		tripRepo = memtriprepo.NewRepo()
		accRepo = memaccommodationrepo.NewRepo()
		idem = memidempotency.NewStore()
	}

	if cleanup != nil {
		defer cleanup()
	}

	providerHTTP := &http.Client{Timeout: cfg.ProviderTimeout}
	amadeusHost := amadeus.HostTest
	if cfg.AmadeusHost == "production" {
		amadeusHost = amadeus.HostProduction
	}
	amadeusClient := amadeus.NewClient(amadeusHost, cfg.AmadeusClientID, cfg.AmadeusClientSecret, providerHTTP)
	kayakClient := kayak.NewClient(cfg.KayakBaseURL, cfg.KayakFlightsPath, cfg.KayakAPIKey, providerHTTP)
	openaiClient := openai.NewClient("", cfg.OpenAIAPIKey, cfg.OpenAIModel, providerHTTP)

	tripSvc := trips.NewService(tripRepo, clk, cfg.PublicBaseURL)
	accSvc := accommodations.NewService(tripRepo, accRepo, clk)
	flightSvc := flights.NewService(amadeusClient, kayakClient, amadeusClient, cfg.KayakAffiliateID, log)
	suggestSvc := suggestions.NewService(tripRepo, openaiClient, log)

	api := httpapi.NewServer(tripSvc, accSvc, flightSvc, suggestSvc, idem)
	handler := httpapi.NewRouter(api, authMW, log, cfg.CORSOrigins)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("api listening", "port", cfg.Port, "storage", storageBackend, "auth", authMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// migrate applies the embedded goose migrations before the pool opens.
func migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, ".")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
