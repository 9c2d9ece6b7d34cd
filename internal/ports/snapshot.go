package ports

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Amund211/blitzstats/internal/app"
	"github.com/Amund211/blitzstats/internal/logging"
	"github.com/Amund211/blitzstats/internal/reporting"
)

func MakeGetSnapshotHandler(
	getSnapshot app.GetNormalizedSnapshot,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildPlayerMiddleware(
		"snapshot",
		playerRateLimits{ipRefill: 2, ipBurst: 60, playerRefill: 0.5, playerBurst: 10},
		rootLogger,
		sentryMiddleware,
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		region, ref, err := parsePlayerPath(r)
		if err != nil {
			statusCode := writeErrorResponse(ctx, w, err)
			logger.InfoContext(ctx, "Returning response", "statusCode", statusCode, "reason", "invalid path", "error", err.Error())
			return
		}

		snapshot, err := getSnapshot(ctx, region, ref)
		if err != nil {
			// NOTE: GetNormalizedSnapshot implementations handle their own error reporting
			statusCode := writeErrorResponse(ctx, w, err)
			logger.InfoContext(ctx, "Returning response", "statusCode", statusCode, "reason", "error", "error", err.Error())
			return
		}

		ctx = reporting.AddExtrasToContext(ctx, map[string]string{
			"accountID": strconv.Itoa(snapshot.AccountID),
		})

		data, err := SnapshotToResponseData(snapshot)
		if err != nil {
			unexpectedConversionError(ctx, w, err)
			return
		}

		statusCode := http.StatusOK
		logger.InfoContext(ctx, "Returning response", "statusCode", statusCode, "reason", "success", "contentLength", len(data))
		writeResponse(w, statusCode, data)
	}

	return middleware(handler)
}
