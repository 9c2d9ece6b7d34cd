package ports

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Amund211/blitzstats/internal/app"
	"github.com/Amund211/blitzstats/internal/logging"
)

var sessionRateLimits = playerRateLimits{ipRefill: 1, ipBurst: 30, playerRefill: 0.2, playerBurst: 5}

func MakeStartSessionHandler(
	startSession app.StartSession,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildPlayerMiddleware("start-session", sessionRateLimits, rootLogger, sentryMiddleware)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		region, ref, err := parsePlayerPath(r)
		if err != nil {
			statusCode := writeErrorResponse(ctx, w, err)
			logger.InfoContext(ctx, "Returning response", "statusCode", statusCode, "reason", "invalid path", "error", err.Error())
			return
		}

		snapshot, err := startSession(ctx, region, ref)
		if err != nil {
			// NOTE: StartSession implementations handle their own error reporting
			statusCode := writeErrorResponse(ctx, w, err)
			logger.InfoContext(ctx, "Returning response", "statusCode", statusCode, "reason", "error", "error", err.Error())
			return
		}

		data, err := SnapshotToResponseData(snapshot)
		if err != nil {
			unexpectedConversionError(ctx, w, err)
			return
		}

		statusCode := http.StatusCreated
		logger.InfoContext(ctx, "Returning response", "statusCode", statusCode, "reason", "session started", "accountID", snapshot.AccountID)
		writeResponse(w, statusCode, data)
	}

	return middleware(handler)
}

func MakeGetSessionHandler(
	getSession app.GetSession,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildPlayerMiddleware("get-session", sessionRateLimits, rootLogger, sentryMiddleware)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		region, ref, err := parsePlayerPath(r)
		if err != nil {
			statusCode := writeErrorResponse(ctx, w, err)
			logger.InfoContext(ctx, "Returning response", "statusCode", statusCode, "reason", "invalid path", "error", err.Error())
			return
		}

		preview := false
		if rawPreview := r.URL.Query().Get("preview"); rawPreview != "" {
			preview, err = strconv.ParseBool(rawPreview)
			if err != nil {
				statusCode := http.StatusBadRequest
				writeErrorCause(ctx, w, statusCode, "Invalid preview flag")
				logger.InfoContext(ctx, "Returning response", "statusCode", statusCode, "reason", "invalid preview flag")
				return
			}
		}

		result, err := getSession(ctx, region, ref, preview)
		if err != nil {
			// NOTE: GetSession implementations handle their own error reporting
			statusCode := writeErrorResponse(ctx, w, err)
			logger.InfoContext(ctx, "Returning response", "statusCode", statusCode, "reason", "error", "error", err.Error())
			return
		}

		data, err := SessionToResponseData(result)
		if err != nil {
			unexpectedConversionError(ctx, w, err)
			return
		}

		statusCode := http.StatusOK
		logger.InfoContext(ctx, "Returning response", "statusCode", statusCode, "reason", "success", "tanks", len(result.Tanks))
		writeResponse(w, statusCode, data)
	}

	return middleware(handler)
}
