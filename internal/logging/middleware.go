package logging

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

func pathValueOrMissing(r *http.Request, name string) string {
	value := r.PathValue(name)
	if value == "" {
		return "<missing>"
	}
	return value
}

func NewRequestLoggerMiddleware(logger *slog.Logger) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			userAgent := r.UserAgent()
			if userAgent == "" {
				userAgent = "<missing>"
			}

			correlationID := uuid.New().String()

			requestLogger := logger.With(
				slog.String("correlationID", correlationID),
				slog.String("region", pathValueOrMissing(r, "region")),
				slog.String("player", pathValueOrMissing(r, "player")),
				slog.String("userAgent", userAgent),
				slog.String("methodPath", fmt.Sprintf("%s %s", r.Method, r.URL.Path)),
			)

			next(w, r.WithContext(AddToContext(r.Context(), requestLogger)))
		}
	}
}
