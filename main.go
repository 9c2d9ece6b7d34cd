package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/Amund211/blitzstats/internal/adapters/cache"
	"github.com/Amund211/blitzstats/internal/adapters/snapshotrepository"
	"github.com/Amund211/blitzstats/internal/adapters/statsprovider"
	"github.com/Amund211/blitzstats/internal/adapters/tankcatalog"
	"github.com/Amund211/blitzstats/internal/app"
	"github.com/Amund211/blitzstats/internal/config"
	"github.com/Amund211/blitzstats/internal/domain"
	"github.com/Amund211/blitzstats/internal/logging"
	"github.com/Amund211/blitzstats/internal/ports"
	"github.com/Amund211/blitzstats/internal/reporting"
	"github.com/Amund211/blitzstats/internal/telemetry"
)

const serviceName = "blitzstats"

func main() {
	os.Exit(run())
}

func run() int {
	instanceID := uuid.New().String()
	baseLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("instanceID", instanceID)

	config, err := config.ConfigFromEnv()
	if err != nil {
		baseLogger.Error("Failed to load config", "error", err.Error())
		return 1
	}

	var logHandler slog.Handler = slog.NewJSONHandler(os.Stdout, nil)
	if config.GCPProject() != "" {
		logHandler = logging.NewGoogleCloudTracingLogHandler(logHandler, config.GCPProject())
	}
	logger := slog.New(logHandler).With("instanceID", instanceID)
	logger.Info("Loaded config", "config", config.NonSensitiveString())

	fail := func(msg string, args ...any) int {
		logger.Error(msg, args...)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := telemetry.SetupOTelSDK(ctx, serviceName)
	if err != nil {
		return fail("Failed to set up OpenTelemetry", "error", err.Error())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(shutdownCtx); err != nil {
			logger.Error("Failed to shut down OpenTelemetry", "error", err.Error())
		}
	}()
	logger.Info("Initialized OpenTelemetry")

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	requestLimiter := statsprovider.NewDefaultRequestLimiter(time.Now, time.After)
	wargamingAPI, err := statsprovider.NewWargamingAPIOrMock(config, httpClient, requestLimiter)
	if err != nil {
		return fail("Failed to initialize Wargaming API", "error", err.Error())
	}
	logger.Info("Initialized Wargaming API")

	statsProvider, stopStatsProvider, err := statsprovider.NewWargamingStatsProvider(wargamingAPI, config.StatsRetryBackoff(), time.Now)
	if err != nil {
		return fail("Failed to initialize stats provider", "error", err.Error())
	}
	defer stopStatsProvider()

	sentryMiddleware, flush, err := reporting.NewSentryMiddlewareOrMock(config)
	if err != nil {
		return fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry middleware")

	snapshotRepo, closeSnapshotRepo, err := snapshotrepository.NewSnapshotRepositoryOrStub(ctx, config, logger)
	if err != nil {
		return fail("Failed to initialize SnapshotRepository", "error", err.Error())
	}
	defer closeSnapshotRepo()
	logger.Info("Initialized SnapshotRepository")

	catalog := tankcatalog.NewTankCatalog(statsProvider.GetTankCatalog, time.Now)

	snapshotCache := cache.NewTTLCache[*domain.PlayerSnapshot](1 * time.Minute)
	sessionCache := cache.NewSnapshotCache[*domain.SessionDiffResult](
		cache.DefaultSnapshotCacheTTL,
		cache.DefaultSnapshotCacheCapacity,
		time.Now,
	)

	getSnapshot := app.BuildGetNormalizedSnapshotWithCache(statsProvider, snapshotCache)
	startSession := app.BuildStartSession(getSnapshot, snapshotRepo, sessionCache)
	getSession := app.BuildGetSession(getSnapshot, snapshotRepo, catalog, sessionCache)

	mux := http.NewServeMux()

	mux.HandleFunc(
		"GET /v1/snapshot/{region}/{player}",
		ports.MakeGetSnapshotHandler(
			getSnapshot,
			logger.With("port", "snapshot"),
			sentryMiddleware,
		),
	)

	mux.HandleFunc(
		"POST /v1/session/{region}/{player}",
		ports.MakeStartSessionHandler(
			startSession,
			logger.With("port", "start-session"),
			sentryMiddleware,
		),
	)

	mux.HandleFunc(
		"GET /v1/session/{region}/{player}",
		ports.MakeGetSessionHandler(
			getSession,
			logger.With("port", "get-session"),
			sentryMiddleware,
		),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", config.Port()),
		Handler:           otelhttp.NewHandler(mux, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()
	logger.Info("Init complete")

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fail("Server error", "error", err.Error())
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fail("Server shutdown error", "error", err.Error())
		}
	}

	logger.Info("Server shutdown")
	return 0
}
