package statsprovider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/Amund211/blitzstats/internal/domain"
	"github.com/stretchr/testify/require"
)

type scriptedResponse struct {
	statusCode int
	body       string
	err        error
}

type apiCall struct {
	region   domain.Region
	endpoint string
	params   url.Values
}

// Serves queued responses per endpoint, repeating the last one when the queue runs dry
type scriptedWargamingAPI struct {
	t *testing.T

	mu        sync.Mutex
	responses map[string][]scriptedResponse
	calls     []apiCall
}

func newScriptedWargamingAPI(t *testing.T) *scriptedWargamingAPI {
	return &scriptedWargamingAPI{
		t:         t,
		responses: make(map[string][]scriptedResponse),
	}
}

func (api *scriptedWargamingAPI) on(endpoint string, responses ...scriptedResponse) *scriptedWargamingAPI {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.responses[endpoint] = append(api.responses[endpoint], responses...)
	return api
}

func (api *scriptedWargamingAPI) Get(ctx context.Context, region domain.Region, endpoint string, params url.Values) ([]byte, int, error) {
	api.mu.Lock()
	defer api.mu.Unlock()

	api.calls = append(api.calls, apiCall{region: region, endpoint: endpoint, params: params})

	queue, ok := api.responses[endpoint]
	require.True(api.t, ok, "unexpected request to %s", endpoint)
	require.NotEmpty(api.t, queue)

	response := queue[0]
	if len(queue) > 1 {
		api.responses[endpoint] = queue[1:]
	}

	return []byte(response.body), response.statusCode, response.err
}

func (api *scriptedWargamingAPI) callsTo(endpoint string) int {
	api.mu.Lock()
	defer api.mu.Unlock()

	count := 0
	for _, call := range api.calls {
		if call.endpoint == endpoint {
			count++
		}
	}
	return count
}

func (api *scriptedWargamingAPI) totalCalls() int {
	api.mu.Lock()
	defer api.mu.Unlock()
	return len(api.calls)
}

func okResponse(body string) scriptedResponse {
	return scriptedResponse{statusCode: 200, body: body}
}

func apiError(message string) scriptedResponse {
	return scriptedResponse{
		statusCode: 200,
		body:       fmt.Sprintf(`{"status":"error","error":{"field":"search","message":%q,"code":407,"value":"x"}}`, message),
	}
}

func accountInfoBody(accountID int, battles int) string {
	return fmt.Sprintf(`{"status":"ok","meta":{"count":1},"data":{"%d":{"account_id":%d,"nickname":"tanker","statistics":{"all":{"battles":%d,"wins":%d,"losses":%d,"damage_dealt":%d,"frags":50,"xp":70000},"rating":{"battles":20,"wins":12,"mm_rating":55.5,"calibration_battles_left":0}}}}}`,
		accountID, accountID, battles, battles/2, battles/2, battles*1000)
}

func clanBody(accountID int) string {
	return fmt.Sprintf(`{"status":"ok","data":{"%d":{"clan_id":5,"clan":{"tag":"RDDT","name":"Reddit"}}}}`, accountID)
}

func noClanBody(accountID int) string {
	return fmt.Sprintf(`{"status":"ok","data":{"%d":null}}`, accountID)
}

func achievementsBody(accountID int) string {
	return fmt.Sprintf(`{"status":"ok","data":{"%d":{"achievements":{"warrior":3,"markOfMastery":1},"max_series":{}}}}`, accountID)
}

func tankStatsBody(accountID int) string {
	return fmt.Sprintf(`{"status":"ok","data":{"%d":[{"tank_id":1,"all":{"battles":80,"wins":50}},{"tank_id":17,"all":{"battles":40,"wins":10}}]}}`, accountID)
}

func accountListBody(ids ...int) string {
	entries := ""
	for i, id := range ids {
		if i > 0 {
			entries += ","
		}
		entries += fmt.Sprintf(`{"nickname":"tanker","account_id":%d}`, id)
	}
	return fmt.Sprintf(`{"status":"ok","meta":{"count":%d},"data":[%s]}`, len(ids), entries)
}

func newHealthyAPI(t *testing.T, accountID int) *scriptedWargamingAPI {
	return newScriptedWargamingAPI(t).
		on(endpointAccountInfo, okResponse(accountInfoBody(accountID, 1000))).
		on(endpointClanInfo, okResponse(clanBody(accountID))).
		on(endpointAchievements, okResponse(achievementsBody(accountID))).
		on(endpointTankStats, okResponse(tankStatsBody(accountID)))
}

func newTestProvider(t *testing.T, api WargamingAPI, now time.Time) StatsProvider {
	t.Helper()

	provider, stop, err := NewWargamingStatsProvider(api, time.Millisecond, func() time.Time { return now })
	require.NoError(t, err)
	t.Cleanup(stop)
	return provider
}

func TestNewWargamingStatsProvider(t *testing.T) {
	t.Parallel()

	_, _, err := NewWargamingStatsProvider(newScriptedWargamingAPI(t), 0, time.Now)
	require.Error(t, err)
}

func TestGetSnapshot(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	const accountID = 594859325

	t.Run("assembles the raw snapshot", func(t *testing.T) {
		t.Parallel()

		api := newHealthyAPI(t, accountID)
		provider := newTestProvider(t, api, now)

		snapshot, err := provider.GetSnapshot(t.Context(), "eu", domain.PlayerRef{AccountID: accountID})
		require.NoError(t, err)

		require.Equal(t, now, snapshot.Timestamp)
		require.Equal(t, accountID, snapshot.AccountID)
		require.Equal(t, "tanker", snapshot.Nickname)
		require.Equal(t, domain.RegionEU, snapshot.Region)
		require.NotNil(t, snapshot.ClanTag)
		require.Equal(t, "RDDT", *snapshot.ClanTag)
		require.False(t, snapshot.Normalized)

		require.Equal(t, 1000, snapshot.All.Battles)
		require.Equal(t, 500, snapshot.All.Wins)
		require.Equal(t, 1000000, snapshot.All.DamageDealt)
		require.Zero(t, snapshot.All.Winrate)

		require.NotNil(t, snapshot.Rating)
		require.Equal(t, 20, snapshot.Rating.Battles)
		require.Equal(t, 55.5, snapshot.Rating.MMRating)
		require.Zero(t, snapshot.Rating.CalibrationBattlesLeft)

		require.Equal(t, map[string]int{"warrior": 3, "markOfMastery": 1}, snapshot.Achievements)

		require.Len(t, snapshot.Tanks, 2)
		require.Equal(t, 1, snapshot.Tanks["1"].TankID)
		require.Equal(t, 80, snapshot.Tanks["1"].Battles)
		require.Equal(t, 17, snapshot.Tanks["17"].TankID)
		require.Zero(t, snapshot.Tanks["17"].Losses)

		require.Equal(t, 4, api.totalCalls())
	})

	t.Run("the result can be normalized", func(t *testing.T) {
		t.Parallel()

		provider := newTestProvider(t, newHealthyAPI(t, accountID), now)

		snapshot, err := provider.GetSnapshot(t.Context(), "eu", domain.PlayerRef{AccountID: accountID})
		require.NoError(t, err)

		require.NoError(t, domain.Normalize(snapshot))
		require.Equal(t, 30, snapshot.Tanks["17"].Losses)
		require.Equal(t, 3555, snapshot.Rating.Rating)
	})

	t.Run("player without clan", func(t *testing.T) {
		t.Parallel()

		api := newScriptedWargamingAPI(t).
			on(endpointAccountInfo, okResponse(accountInfoBody(accountID, 1000))).
			on(endpointClanInfo, okResponse(noClanBody(accountID))).
			on(endpointAchievements, okResponse(achievementsBody(accountID))).
			on(endpointTankStats, okResponse(tankStatsBody(accountID)))
		provider := newTestProvider(t, api, now)

		snapshot, err := provider.GetSnapshot(t.Context(), "eu", domain.PlayerRef{AccountID: accountID})
		require.NoError(t, err)
		require.Nil(t, snapshot.ClanTag)
	})

	t.Run("two rate limits then success", func(t *testing.T) {
		t.Parallel()

		api := newHealthyAPI(t, accountID)
		api.responses[endpointAccountInfo] = []scriptedResponse{
			apiError("REQUEST_LIMIT_EXCEEDED"),
			{statusCode: 429, body: ""},
			okResponse(accountInfoBody(accountID, 1000)),
		}
		provider := newTestProvider(t, api, now)

		snapshot, err := provider.GetSnapshot(t.Context(), "eu", domain.PlayerRef{AccountID: accountID})
		require.NoError(t, err)
		require.Equal(t, accountID, snapshot.AccountID)
		require.Equal(t, 3, api.callsTo(endpointAccountInfo))
	})

	t.Run("three rate limits in a row", func(t *testing.T) {
		t.Parallel()

		api := newHealthyAPI(t, accountID)
		api.responses[endpointAccountInfo] = []scriptedResponse{apiError("REQUEST_LIMIT_EXCEEDED")}
		provider := newTestProvider(t, api, now)

		snapshot, err := provider.GetSnapshot(t.Context(), "eu", domain.PlayerRef{AccountID: accountID})
		require.ErrorIs(t, err, domain.ErrRateLimitExceeded)
		require.Nil(t, snapshot)
		require.Equal(t, 3, api.callsTo(endpointAccountInfo))
	})

	t.Run("source unavailable is retried", func(t *testing.T) {
		t.Parallel()

		api := newHealthyAPI(t, accountID)
		api.responses[endpointTankStats] = []scriptedResponse{
			{statusCode: 503, body: "<html>unavailable</html>"},
			apiError("SOURCE_NOT_AVAILABLE"),
			okResponse(tankStatsBody(accountID)),
		}
		provider := newTestProvider(t, api, now)

		snapshot, err := provider.GetSnapshot(t.Context(), "eu", domain.PlayerRef{AccountID: accountID})
		require.NoError(t, err)
		require.Len(t, snapshot.Tanks, 2)
		require.Equal(t, 3, api.callsTo(endpointTankStats))
	})

	t.Run("source unavailable after retries", func(t *testing.T) {
		t.Parallel()

		api := newHealthyAPI(t, accountID)
		api.responses[endpointAchievements] = []scriptedResponse{{statusCode: 200, body: "<html>maintenance</html>"}}
		provider := newTestProvider(t, api, now)

		_, err := provider.GetSnapshot(t.Context(), "eu", domain.PlayerRef{AccountID: accountID})
		require.ErrorIs(t, err, domain.ErrSourceUnavailable)
		require.Equal(t, 3, api.callsTo(endpointAchievements))
	})

	t.Run("a failing sub-fetch aborts the snapshot", func(t *testing.T) {
		t.Parallel()

		api := newHealthyAPI(t, accountID)
		api.responses[endpointClanInfo] = []scriptedResponse{{statusCode: 500, body: `{"error":"internal"}`}}
		provider := newTestProvider(t, api, now)

		snapshot, err := provider.GetSnapshot(t.Context(), "eu", domain.PlayerRef{AccountID: accountID})
		require.ErrorIs(t, err, domain.ErrUpstream)
		require.Nil(t, snapshot)
		// Upstream errors are not retried
		require.Equal(t, 1, api.callsTo(endpointClanInfo))
	})

	t.Run("upstream error carries the payload", func(t *testing.T) {
		t.Parallel()

		payload := `{"status":"error","error":{"field":null,"message":"INVALID_APPLICATION_ID","code":407,"value":null}}`
		api := newHealthyAPI(t, accountID)
		api.responses[endpointAccountInfo] = []scriptedResponse{okResponse(payload)}
		provider := newTestProvider(t, api, now)

		_, err := provider.GetSnapshot(t.Context(), "eu", domain.PlayerRef{AccountID: accountID})
		require.ErrorIs(t, err, domain.ErrUpstream)

		var upstreamErr *domain.UpstreamError
		require.True(t, errors.As(err, &upstreamErr))
		require.Equal(t, 200, upstreamErr.StatusCode)
		require.Equal(t, payload, string(upstreamErr.Payload))
		require.Equal(t, "INVALID_APPLICATION_ID", upstreamErr.Message)
	})

	t.Run("insufficient battles", func(t *testing.T) {
		t.Parallel()

		api := newHealthyAPI(t, accountID)
		api.responses[endpointAccountInfo] = []scriptedResponse{okResponse(accountInfoBody(accountID, 99))}
		provider := newTestProvider(t, api, now)

		_, err := provider.GetSnapshot(t.Context(), "eu", domain.PlayerRef{AccountID: accountID})
		require.ErrorIs(t, err, domain.ErrInsufficientBattles)
	})

	t.Run("exactly the minimum battles", func(t *testing.T) {
		t.Parallel()

		api := newHealthyAPI(t, accountID)
		api.responses[endpointAccountInfo] = []scriptedResponse{okResponse(accountInfoBody(accountID, 100))}
		provider := newTestProvider(t, api, now)

		snapshot, err := provider.GetSnapshot(t.Context(), "eu", domain.PlayerRef{AccountID: accountID})
		require.NoError(t, err)
		require.Equal(t, 100, snapshot.All.Battles)
	})

	t.Run("unknown account id", func(t *testing.T) {
		t.Parallel()

		api := newHealthyAPI(t, accountID)
		api.responses[endpointAccountInfo] = []scriptedResponse{okResponse(fmt.Sprintf(`{"status":"ok","data":{"%d":null}}`, accountID))}
		provider := newTestProvider(t, api, now)

		_, err := provider.GetSnapshot(t.Context(), "eu", domain.PlayerRef{AccountID: accountID})
		require.ErrorIs(t, err, domain.ErrNoPlayersFound)
	})

	t.Run("invalid region makes no requests", func(t *testing.T) {
		t.Parallel()

		api := newScriptedWargamingAPI(t)
		provider := newTestProvider(t, api, now)

		_, err := provider.GetSnapshot(t.Context(), "xx", domain.PlayerRef{AccountID: accountID})
		require.ErrorIs(t, err, domain.ErrInvalidRegion)
		require.Zero(t, api.totalCalls())
	})

	t.Run("na and com both use the com region", func(t *testing.T) {
		t.Parallel()

		for _, region := range []string{"na", "com", "NA"} {
			t.Run(region, func(t *testing.T) {
				t.Parallel()

				api := newHealthyAPI(t, accountID)
				provider := newTestProvider(t, api, now)

				snapshot, err := provider.GetSnapshot(t.Context(), region, domain.PlayerRef{AccountID: accountID})
				require.NoError(t, err)
				require.Equal(t, domain.RegionCOM, snapshot.Region)
				for _, call := range api.calls {
					require.Equal(t, domain.RegionCOM, call.region)
					require.Equal(t, "api.wotblitz.com", APIHost(call.region))
				}
			})
		}
	})

	t.Run("nickname is resolved first", func(t *testing.T) {
		t.Parallel()

		api := newHealthyAPI(t, accountID).on(endpointAccountList, okResponse(accountListBody(accountID)))
		provider := newTestProvider(t, api, now)

		snapshot, err := provider.GetSnapshot(t.Context(), "eu", domain.PlayerRef{Nickname: "tanker"})
		require.NoError(t, err)
		require.Equal(t, accountID, snapshot.AccountID)
		require.Equal(t, 1, api.callsTo(endpointAccountList))
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()

		api := newHealthyAPI(t, accountID)
		provider := newTestProvider(t, api, now)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := provider.GetSnapshot(ctx, "eu", domain.PlayerRef{AccountID: accountID})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestResolveAccount(t *testing.T) {
	t.Parallel()

	now := time.Now()

	t.Run("single match", func(t *testing.T) {
		t.Parallel()

		api := newScriptedWargamingAPI(t).on(endpointAccountList, okResponse(accountListBody(42)))
		provider := newTestProvider(t, api, now)

		accountID, err := provider.ResolveAccount(t.Context(), "eu", "tanker")
		require.NoError(t, err)
		require.Equal(t, 42, accountID)

		require.Len(t, api.calls, 1)
		require.Equal(t, "tanker", api.calls[0].params.Get("search"))
		require.Equal(t, "exact", api.calls[0].params.Get("type"))
	})

	t.Run("resolutions are cached", func(t *testing.T) {
		t.Parallel()

		api := newScriptedWargamingAPI(t).on(endpointAccountList, okResponse(accountListBody(42)))
		provider := newTestProvider(t, api, now)

		for _, nickname := range []string{"tanker", "Tanker", "TANKER"} {
			accountID, err := provider.ResolveAccount(t.Context(), "eu", nickname)
			require.NoError(t, err)
			require.Equal(t, 42, accountID)
		}
		require.Equal(t, 1, api.totalCalls())

		// Other regions are separate
		_, err := provider.ResolveAccount(t.Context(), "asia", "tanker")
		require.NoError(t, err)
		require.Equal(t, 2, api.totalCalls())
	})

	t.Run("no players found", func(t *testing.T) {
		t.Parallel()

		api := newScriptedWargamingAPI(t).on(endpointAccountList, okResponse(accountListBody()))
		provider := newTestProvider(t, api, now)

		_, err := provider.ResolveAccount(t.Context(), "eu", "nobody")
		require.ErrorIs(t, err, domain.ErrNoPlayersFound)
	})

	t.Run("ambiguous name", func(t *testing.T) {
		t.Parallel()

		api := newScriptedWargamingAPI(t).on(endpointAccountList, okResponse(accountListBody(1, 2)))
		provider := newTestProvider(t, api, now)

		_, err := provider.ResolveAccount(t.Context(), "eu", "tanker")
		require.ErrorIs(t, err, domain.ErrAmbiguousName)
	})

	t.Run("invalid search is not retried", func(t *testing.T) {
		t.Parallel()

		for _, message := range []string{"INVALID_SEARCH", "NOT_ENOUGH_SEARCH_LENGTH", "SEARCH_NOT_SPECIFIED"} {
			t.Run(message, func(t *testing.T) {
				t.Parallel()

				api := newScriptedWargamingAPI(t).on(endpointAccountList, apiError(message))
				provider := newTestProvider(t, api, now)

				_, err := provider.ResolveAccount(t.Context(), "eu", "a")
				require.ErrorIs(t, err, domain.ErrInvalidName)
				require.Equal(t, 1, api.totalCalls())
			})
		}
	})

	t.Run("empty nickname", func(t *testing.T) {
		t.Parallel()

		api := newScriptedWargamingAPI(t)
		provider := newTestProvider(t, api, now)

		_, err := provider.ResolveAccount(t.Context(), "eu", "  ")
		require.ErrorIs(t, err, domain.ErrInvalidName)
		require.Zero(t, api.totalCalls())
	})

	t.Run("invalid region", func(t *testing.T) {
		t.Parallel()

		api := newScriptedWargamingAPI(t)
		provider := newTestProvider(t, api, now)

		_, err := provider.ResolveAccount(t.Context(), "mars", "tanker")
		require.ErrorIs(t, err, domain.ErrInvalidRegion)
		require.Zero(t, api.totalCalls())
	})

	t.Run("local limiter refusal is not retried", func(t *testing.T) {
		t.Parallel()

		api := newScriptedWargamingAPI(t).on(endpointAccountList, scriptedResponse{
			err: fmt.Errorf("%w: %w", domain.ErrRateLimitExceeded, errRequestNotSent),
		})
		provider := newTestProvider(t, api, now)

		_, err := provider.ResolveAccount(t.Context(), "eu", "tanker")
		require.ErrorIs(t, err, domain.ErrRateLimitExceeded)
		require.Equal(t, 1, api.totalCalls())
	})
}

func TestGetTankCatalog(t *testing.T) {
	t.Parallel()

	api := newScriptedWargamingAPI(t).on(endpointEncyclopedia, okResponse(
		`{"status":"ok","meta":{"count":3},"data":{"1":{"tank_id":1,"name":"T-34","tier":5,"type":"mediumTank","nation":"ussr"},"2":{"tank_id":2,"name":"Odd","tier":3,"type":"spaceship","nation":"other"},"3":null}}`,
	))
	provider := newTestProvider(t, api, time.Now())

	catalog, err := provider.GetTankCatalog(t.Context(), "ru")
	require.NoError(t, err)
	require.Equal(t, map[int]domain.TankInfo{
		1: {TankID: 1, Name: "T-34", Tier: 5, Type: domain.TankTypeMedium, Nation: "ussr", Known: true},
		2: {TankID: 2, Name: "Odd", Tier: 3, Type: domain.TankTypeUnknown, Nation: "other", Known: true},
	}, catalog)
	require.Equal(t, domain.RegionRU, api.calls[0].region)
}
