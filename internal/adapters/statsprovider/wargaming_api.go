package statsprovider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Amund211/blitzstats/internal/config"
	"github.com/Amund211/blitzstats/internal/constants"
	"github.com/Amund211/blitzstats/internal/domain"
	"github.com/Amund211/blitzstats/internal/logging"
	"github.com/Amund211/blitzstats/internal/ratelimiting"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Upper bound for a single request, used to give up early when the limiter wait
// would run past the context deadline
const requestMaxOperationTime = 2 * time.Second

// The upstream allows 10 requests per second per application. Stay a little below.
const (
	requestLimit  = 49
	requestWindow = 5 * time.Second
)

var errRequestNotSent = errors.New("request not sent")

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type RequestLimiter interface {
	Limit(ctx context.Context, maxOperationTime time.Duration, operation func(ctx context.Context)) bool
}

// WargamingAPI performs a single rate limited GET against the Blitz API.
// Returns the body and status code. Transport failures are ErrSourceUnavailable.
type WargamingAPI interface {
	Get(ctx context.Context, region domain.Region, endpoint string, params url.Values) ([]byte, int, error)
}

type wargamingAPIImpl struct {
	httpClient    HttpClient
	applicationID string
	limiter       RequestLimiter

	tracer trace.Tracer
}

func APIHost(region domain.Region) string {
	return fmt.Sprintf("api.wotblitz.%s", region)
}

func (api *wargamingAPIImpl) Get(ctx context.Context, region domain.Region, endpoint string, params url.Values) ([]byte, int, error) {
	ctx, span := api.tracer.Start(ctx, "Wargaming.Get", trace.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("region", string(region)),
	))
	defer span.End()

	logger := logging.FromContext(ctx)

	query := url.Values{}
	for key, values := range params {
		query[key] = values
	}
	query.Set("application_id", api.applicationID)

	requestURL := url.URL{
		Scheme:   "https",
		Host:     APIHost(region),
		Path:     fmt.Sprintf("/wotb/%s/", endpoint),
		RawQuery: query.Encode(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL.String(), nil)
	if err != nil {
		return nil, -1, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", constants.USER_AGENT)

	var data []byte
	var statusCode int
	ran := api.limiter.Limit(ctx, requestMaxOperationTime, func(ctx context.Context) {
		start := time.Now()

		resp, requestErr := api.httpClient.Do(req)
		if requestErr != nil {
			err = fmt.Errorf("%w: failed to send request: %w", domain.ErrSourceUnavailable, requestErr)
			return
		}
		defer resp.Body.Close()

		statusCode = resp.StatusCode
		data, requestErr = io.ReadAll(resp.Body)
		if requestErr != nil {
			err = fmt.Errorf("%w: failed to read response body: %w", domain.ErrSourceUnavailable, requestErr)
			return
		}

		logger.InfoContext(ctx, "wargaming request completed",
			"endpoint", endpoint,
			"region", string(region),
			"status", statusCode,
			"duration", time.Since(start).String(),
		)
	})
	if !ran {
		if ctx.Err() != nil {
			return nil, -1, fmt.Errorf("request not sent: %w", ctx.Err())
		}
		logger.WarnContext(ctx, "Did not run wargaming request due to rate limiting", "endpoint", endpoint)
		return nil, -1, fmt.Errorf("%w: %w: local request limit would exceed deadline", domain.ErrRateLimitExceeded, errRequestNotSent)
	}

	if err != nil {
		if ctx.Err() != nil {
			// Canceled by the caller, don't retry
			return nil, -1, fmt.Errorf("request canceled: %w", ctx.Err())
		}
		return nil, -1, err
	}

	return data, statusCode, nil
}

func NewWargamingAPI(httpClient HttpClient, applicationID string, limiter RequestLimiter) WargamingAPI {
	return &wargamingAPIImpl{
		httpClient:    httpClient,
		applicationID: applicationID,
		limiter:       limiter,

		tracer: otel.Tracer("blitzstats/statsprovider/wargaming_api"),
	}
}

// NewDefaultRequestLimiter is the process wide limiter every request to the Blitz API must share
func NewDefaultRequestLimiter(nowFunc func() time.Time, afterFunc func(time.Duration) <-chan time.Time) RequestLimiter {
	return ratelimiting.NewWindowLimitRequestLimiter(requestLimit, requestWindow, nowFunc, afterFunc)
}

func NewWargamingAPIOrMock(conf config.Config, httpClient HttpClient, limiter RequestLimiter) (WargamingAPI, error) {
	if conf.WargamingApplicationID() != "" {
		return NewWargamingAPI(httpClient, conf.WargamingApplicationID(), limiter), nil
	}
	if conf.IsDevelopment() {
		return NewMockedWargamingAPI(), nil
	}
	return nil, fmt.Errorf("Missing Wargaming application id in non-development environment")
}
