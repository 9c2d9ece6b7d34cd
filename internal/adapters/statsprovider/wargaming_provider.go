package statsprovider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Amund211/blitzstats/internal/domain"
	"github.com/Amund211/blitzstats/internal/logging"
	"github.com/Amund211/blitzstats/internal/reporting"
	"github.com/jellydator/ttlcache/v3"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const maxAttempts = 3

const accountIDCacheTTL = 24 * time.Hour

const (
	endpointAccountList  = "account/list"
	endpointAccountInfo  = "account/info"
	endpointClanInfo     = "clans/accountinfo"
	endpointAchievements = "account/achievements"
	endpointTankStats    = "tanks/stats"
	endpointEncyclopedia = "encyclopedia/vehicles"
)

type wargamingStatsProvider struct {
	api          WargamingAPI
	retryBackoff time.Duration
	nowFunc      func() time.Time

	accountIDCache *ttlcache.Cache[string, int]

	metrics wargamingStatsProviderMetricsCollection
	tracer  trace.Tracer
}

// NewWargamingStatsProvider returns the provider and a function stopping its account id cache
func NewWargamingStatsProvider(api WargamingAPI, retryBackoff time.Duration, nowFunc func() time.Time) (StatsProvider, func(), error) {
	if retryBackoff <= 0 {
		return nil, nil, fmt.Errorf("retry backoff must be positive, got %s", retryBackoff)
	}

	meter := otel.Meter("statsprovider/wargaming_provider")
	metrics, err := setupWargamingStatsProviderMetrics(meter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	accountIDCache := ttlcache.New[string, int](
		ttlcache.WithTTL[string, int](accountIDCacheTTL),
	)
	go accountIDCache.Start()

	return &wargamingStatsProvider{
		api:          api,
		retryBackoff: retryBackoff,
		nowFunc:      nowFunc,

		accountIDCache: accountIDCache,

		metrics: metrics,
		tracer:  otel.Tracer("blitzstats/statsprovider/wargaming_provider"),
	}, accountIDCache.Stop, nil
}

// fetch runs a request through the retry loop, parsing the response on every attempt.
// Only transient upstream errors are retried.
func fetch[T any](
	ctx context.Context,
	p *wargamingStatsProvider,
	region domain.Region,
	endpoint string,
	params url.Values,
	parse func(statusCode int, data []byte) (T, error),
) (T, error) {
	var result T
	var lastStatusCode int
	var lastData []byte

	backoff := retry.WithMaxRetries(maxAttempts-1, retry.NewConstant(p.retryBackoff))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			p.metrics.retryCount.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", endpoint)))
			logging.FromContext(ctx).InfoContext(ctx, "Retrying wargaming request", "endpoint", endpoint, "attempt", attempt)
		}

		data, statusCode, err := p.api.Get(ctx, region, endpoint, params)
		if err != nil {
			return classifyForRetry(err)
		}
		lastStatusCode = statusCode
		lastData = data

		parsed, err := parse(statusCode, data)
		if err != nil {
			return classifyForRetry(err)
		}

		result = parsed
		return nil
	})

	outcome := "success"
	if err != nil {
		outcome = outcomeFor(err)
	}
	p.metrics.requestCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("outcome", outcome),
	))

	if err != nil {
		if errors.Is(err, domain.ErrUpstream) {
			reporting.Report(ctx, err, map[string]string{
				"endpoint":   endpoint,
				"region":     string(region),
				"statusCode": strconv.Itoa(lastStatusCode),
				"data":       string(lastData),
			})
		}
		var zero T
		return zero, fmt.Errorf("%s: %w", endpoint, err)
	}

	return result, nil
}

func classifyForRetry(err error) error {
	if errors.Is(err, errRequestNotSent) {
		// Waiting for the local limiter would exceed the deadline, so a retry can't help
		return err
	}
	if domain.IsTransient(err) {
		return retry.RetryableError(err)
	}
	return err
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimitExceeded):
		return "rate_limited"
	case errors.Is(err, domain.ErrSourceUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrUpstream):
		return "upstream_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "client_error"
}

func accountIDCacheKey(region domain.Region, nickname string) string {
	return fmt.Sprintf("%s/%s", region, strings.ToLower(nickname))
}

func (p *wargamingStatsProvider) ResolveAccount(ctx context.Context, rawRegion string, nickname string) (int, error) {
	region, err := domain.ParseRegion(rawRegion)
	if err != nil {
		return 0, err
	}

	return p.resolveAccount(ctx, region, nickname)
}

func (p *wargamingStatsProvider) resolveAccount(ctx context.Context, region domain.Region, nickname string) (int, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return 0, fmt.Errorf("%w: empty nickname", domain.ErrInvalidName)
	}

	cacheKey := accountIDCacheKey(region, nickname)
	if item := p.accountIDCache.Get(cacheKey); item != nil {
		return item.Value(), nil
	}

	accounts, err := fetch(ctx, p, region, endpointAccountList, url.Values{
		"search": []string{nickname},
		"type":   []string{"exact"},
	}, parseAccountList)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve account: %w", err)
	}

	switch len(accounts) {
	case 0:
		return 0, fmt.Errorf("%w: %s", domain.ErrNoPlayersFound, nickname)
	case 1:
	default:
		return 0, fmt.Errorf("%w: %d players match %s", domain.ErrAmbiguousName, len(accounts), nickname)
	}

	accountID := accounts[0].AccountID
	p.accountIDCache.Set(cacheKey, accountID, ttlcache.DefaultTTL)

	return accountID, nil
}

func (p *wargamingStatsProvider) GetSnapshot(ctx context.Context, rawRegion string, ref domain.PlayerRef) (*domain.PlayerSnapshot, error) {
	region, err := domain.ParseRegion(rawRegion)
	if err != nil {
		return nil, err
	}

	ctx, span := p.tracer.Start(ctx, "WargamingStatsProvider.GetSnapshot", trace.WithAttributes(
		attribute.String("region", string(region)),
	))
	defer span.End()

	snapshot, err := p.getSnapshot(ctx, region, ref)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return snapshot, nil
}

func (p *wargamingStatsProvider) getSnapshot(ctx context.Context, region domain.Region, ref domain.PlayerRef) (*domain.PlayerSnapshot, error) {
	accountID := ref.AccountID
	if !ref.HasAccountID() {
		var err error
		accountID, err = p.resolveAccount(ctx, region, ref.Nickname)
		if err != nil {
			return nil, err
		}
	}

	accountParams := func() url.Values {
		return url.Values{"account_id": []string{strconv.Itoa(accountID)}}
	}

	var info *wargamingAccountInfo
	var clan *wargamingClanMembership
	var achievements *wargamingAchievements
	var tanks []wargamingTankStats

	// Any failing sub-fetch cancels the others, no partial snapshot is ever assembled
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		params := accountParams()
		params.Set("extra", "statistics.rating")
		result, err := fetch(gctx, p, region, endpointAccountInfo, params, func(statusCode int, data []byte) (*wargamingAccountInfo, error) {
			return parseAccountInfo(statusCode, data, accountID)
		})
		if err != nil {
			return fmt.Errorf("failed to get core stats: %w", err)
		}
		if result == nil {
			return fmt.Errorf("%w: account %d", domain.ErrNoPlayersFound, accountID)
		}
		if result.Statistics.All.Battles < domain.MinimumBattles {
			return fmt.Errorf("%w: %d battles, need at least %d", domain.ErrInsufficientBattles, result.Statistics.All.Battles, domain.MinimumBattles)
		}
		info = result
		return nil
	})
	g.Go(func() error {
		params := accountParams()
		params.Set("extra", "clan")
		result, err := fetch(gctx, p, region, endpointClanInfo, params, func(statusCode int, data []byte) (*wargamingClanMembership, error) {
			return parseClanMembership(statusCode, data, accountID)
		})
		if err != nil {
			return fmt.Errorf("failed to get clan info: %w", err)
		}
		clan = result
		return nil
	})
	g.Go(func() error {
		result, err := fetch(gctx, p, region, endpointAchievements, accountParams(), func(statusCode int, data []byte) (*wargamingAchievements, error) {
			return parseAchievements(statusCode, data, accountID)
		})
		if err != nil {
			return fmt.Errorf("failed to get achievements: %w", err)
		}
		achievements = result
		return nil
	})
	g.Go(func() error {
		result, err := fetch(gctx, p, region, endpointTankStats, accountParams(), func(statusCode int, data []byte) ([]wargamingTankStats, error) {
			return parseTankStats(statusCode, data, accountID)
		})
		if err != nil {
			return fmt.Errorf("failed to get tank stats: %w", err)
		}
		tanks = result
		return nil
	})

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	return assembleSnapshot(p.nowFunc(), region, info, clan, achievements, tanks), nil
}

func assembleSnapshot(
	timestamp time.Time,
	region domain.Region,
	info *wargamingAccountInfo,
	clan *wargamingClanMembership,
	achievements *wargamingAchievements,
	tanks []wargamingTankStats,
) *domain.PlayerSnapshot {
	snapshot := &domain.PlayerSnapshot{
		Timestamp: timestamp,

		AccountID: info.AccountID,
		Nickname:  info.Nickname,
		Region:    region,

		All: domain.CategoryStats{
			BattleCounters: info.Statistics.All.toDomain(),
		},

		Tanks:        make(map[string]domain.TankStats, len(tanks)),
		Achievements: make(map[string]int),
	}

	if rating := info.Statistics.Rating; rating != nil {
		snapshot.Rating = &domain.CategoryStats{
			BattleCounters:         rating.toDomain(),
			MMRating:               rating.MMRating,
			CalibrationBattlesLeft: rating.CalibrationBattlesLeft,
		}
	}

	if clan != nil && clan.Clan != nil {
		tag := clan.Clan.Tag
		snapshot.ClanTag = &tag
	}

	if achievements != nil {
		for name, count := range achievements.Achievements {
			snapshot.Achievements[name] = count
		}
	}

	for _, tank := range tanks {
		snapshot.Tanks[strconv.Itoa(tank.TankID)] = domain.TankStats{
			TankID:         tank.TankID,
			BattleCounters: tank.All.toDomain(),
		}
	}

	return snapshot
}

func (p *wargamingStatsProvider) GetTankCatalog(ctx context.Context, rawRegion string) (map[int]domain.TankInfo, error) {
	region, err := domain.ParseRegion(rawRegion)
	if err != nil {
		return nil, err
	}

	catalog, err := fetch(ctx, p, region, endpointEncyclopedia, url.Values{
		"fields": []string{"tank_id,name,tier,type,nation"},
	}, parseVehicles)
	if err != nil {
		return nil, fmt.Errorf("failed to get tank catalog: %w", err)
	}

	return catalog, nil
}

type wargamingStatsProviderMetricsCollection struct {
	requestCount metric.Int64Counter
	retryCount   metric.Int64Counter
}

func setupWargamingStatsProviderMetrics(meter metric.Meter) (wargamingStatsProviderMetricsCollection, error) {
	requestCount, err := meter.Int64Counter(
		"statsprovider/wargaming_provider/request_count",
		metric.WithDescription("Completed requests by endpoint and outcome, retries included"),
	)
	if err != nil {
		return wargamingStatsProviderMetricsCollection{}, fmt.Errorf("failed to create metric: %w", err)
	}

	retryCount, err := meter.Int64Counter("statsprovider/wargaming_provider/retry_count")
	if err != nil {
		return wargamingStatsProviderMetricsCollection{}, fmt.Errorf("failed to create metric: %w", err)
	}

	return wargamingStatsProviderMetricsCollection{
		requestCount: requestCount,
		retryCount:   retryCount,
	}, nil
}
