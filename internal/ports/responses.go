package ports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Amund211/blitzstats/internal/domain"
	"github.com/Amund211/blitzstats/internal/logging"
	"github.com/Amund211/blitzstats/internal/ratelimiting"
	"github.com/Amund211/blitzstats/internal/reporting"
)

type errorMapping struct {
	err        error
	statusCode int
	cause      string
}

// First match wins
var errorMappings = []errorMapping{
	{domain.ErrInvalidRegion, http.StatusBadRequest, "Invalid region"},
	{domain.ErrInvalidName, http.StatusBadRequest, "Invalid player name"},
	{domain.ErrAmbiguousName, http.StatusBadRequest, "Player name is ambiguous"},
	{domain.ErrNoPlayersFound, http.StatusNotFound, "Player not found"},
	{domain.ErrInsufficientBattles, http.StatusUnprocessableEntity, "Player has too few battles"},
	{domain.ErrSessionNotStarted, http.StatusUnprocessableEntity, "No session started for player"},
	{domain.ErrNoDiffData, http.StatusUnprocessableEntity, "No battles played since the session started"},
	{domain.ErrRateLimitExceeded, http.StatusTooManyRequests, "Upstream rate limit exceeded"},
	{domain.ErrSourceUnavailable, http.StatusServiceUnavailable, "Service temporarily unavailable"},
}

func statusForError(err error) (int, string) {
	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.err) {
			return mapping.statusCode, mapping.cause
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

func writeResponse(w http.ResponseWriter, statusCode int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(data)
}

func writeErrorCause(ctx context.Context, w http.ResponseWriter, statusCode int, cause string) {
	errorData, err := ErrorResponseData(cause)
	if err != nil {
		logging.FromContext(ctx).ErrorContext(ctx, "Failed to marshal error response", "error", err)
		reporting.Report(ctx, err, map[string]string{"cause": cause})
		writeResponse(w, http.StatusInternalServerError, []byte(`{"success":false,"cause":"Internal server error"}`))
		return
	}
	writeResponse(w, statusCode, errorData)
}

func writeErrorResponse(ctx context.Context, w http.ResponseWriter, responseError error) int {
	statusCode, cause := statusForError(responseError)
	writeErrorCause(ctx, w, statusCode, cause)
	return statusCode
}

func parsePlayerPath(r *http.Request) (domain.Region, domain.PlayerRef, error) {
	region, err := domain.ParseRegion(r.PathValue("region"))
	if err != nil {
		return "", domain.PlayerRef{}, err
	}

	ref, err := domain.ParsePlayerRef(r.PathValue("player"))
	if err != nil {
		return "", domain.PlayerRef{}, err
	}

	return region, ref, nil
}

type playerRateLimits struct {
	ipRefill     ratelimiting.RefillPerSecond
	ipBurst      ratelimiting.BurstSize
	playerRefill ratelimiting.RefillPerSecond
	playerBurst  ratelimiting.BurstSize
}

// buildPlayerMiddleware is the middleware chain shared by every /{region}/{player} endpoint
func buildPlayerMiddleware(
	port string,
	limits playerRateLimits,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) func(http.HandlerFunc) http.HandlerFunc {
	ipLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(limits.ipRefill, limits.ipBurst, time.Now)
	ipRateLimiter := ratelimiting.NewRequestBasedRateLimiter(
		ipLimiter,
		ratelimiting.IPKeyFunc,
	)
	playerLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(limits.playerRefill, limits.playerBurst, time.Now)
	playerRateLimiter := ratelimiting.NewRequestBasedRateLimiter(
		// NOTE: Rate limiting based on user controlled value
		playerLimiter,
		ratelimiting.PlayerKeyFunc,
	)

	onLimitExceeded := func(w http.ResponseWriter, r *http.Request, key string) {
		ctx := r.Context()

		statusCode := http.StatusTooManyRequests
		writeErrorCause(ctx, w, statusCode, "Rate limit exceeded")

		logging.FromContext(ctx).InfoContext(ctx, "Returning response", "statusCode", statusCode, "reason", "ratelimit exceeded", "key", key)
	}

	return ComposeMiddlewares(
		buildMetricsMiddleware(),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware(port),
		NewRateLimitMiddleware(ipRateLimiter, onLimitExceeded),
		NewRateLimitMiddleware(playerRateLimiter, onLimitExceeded),
	)
}

func unexpectedConversionError(ctx context.Context, w http.ResponseWriter, err error) {
	err = fmt.Errorf("failed to convert response: %w", err)
	logging.FromContext(ctx).ErrorContext(ctx, "Failed to convert response", "error", err)
	reporting.Report(ctx, err)

	statusCode := writeErrorResponse(ctx, w, err)
	logging.FromContext(ctx).InfoContext(ctx, "Returning response", "statusCode", statusCode, "reason", "error")
}
