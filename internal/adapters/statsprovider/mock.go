package statsprovider

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/url"

	"github.com/Amund211/blitzstats/internal/domain"
)

type mockedWargamingAPI struct{}

// NewMockedWargamingAPI serves fixed responses for local development without an application id
func NewMockedWargamingAPI() WargamingAPI {
	return &mockedWargamingAPI{}
}

func mockedAccountID(nickname string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(nickname))
	return 100000 + int(h.Sum32()%900000)
}

func (api *mockedWargamingAPI) Get(ctx context.Context, region domain.Region, endpoint string, params url.Values) ([]byte, int, error) {
	accountID := params.Get("account_id")

	switch endpoint {
	case endpointAccountList:
		search := params.Get("search")
		return fmt.Appendf(nil, `{"status":"ok","meta":{"count":1},"data":[{"nickname":%q,"account_id":%d}]}`, search, mockedAccountID(search)), http.StatusOK, nil
	case endpointAccountInfo:
		return fmt.Appendf(nil, `{"status":"ok","meta":{"count":1},"data":{%q:{"account_id":%s,"nickname":"mocked_%s","statistics":{"all":{"battles":1000,"wins":550,"losses":440,"hits":6000,"shots":8000,"frags":900,"spotted":1200,"damage_dealt":1500000,"damage_received":1300000,"xp":800000,"survived_battles":350,"dropped_capture_points":300,"capture_points":250},"rating":{"battles":120,"wins":70,"losses":50,"hits":800,"shots":1000,"frags":110,"spotted":150,"damage_dealt":200000,"damage_received":180000,"xp":100000,"survived_battles":40,"dropped_capture_points":30,"capture_points":20,"mm_rating":45.5,"calibration_battles_left":0}}}}}`, accountID, accountID, accountID), http.StatusOK, nil
	case endpointClanInfo:
		return fmt.Appendf(nil, `{"status":"ok","meta":{"count":1},"data":{%q:{"clan_id":1,"clan":{"tag":"MOCK","name":"Mocked clan"}}}}`, accountID), http.StatusOK, nil
	case endpointAchievements:
		return fmt.Appendf(nil, `{"status":"ok","meta":{"count":1},"data":{%q:{"achievements":{"markOfMastery":12,"warrior":30},"max_series":{}}}}`, accountID), http.StatusOK, nil
	case endpointTankStats:
		return fmt.Appendf(nil, `{"status":"ok","meta":{"count":1},"data":{%q:[{"tank_id":1,"all":{"battles":600,"wins":330,"losses":260,"damage_dealt":900000,"frags":540,"xp":480000,"survived_battles":210}},{"tank_id":17,"all":{"battles":400,"wins":220,"losses":180,"damage_dealt":600000,"frags":360,"xp":320000,"survived_battles":140}}]}}`, accountID), http.StatusOK, nil
	case endpointEncyclopedia:
		return []byte(`{"status":"ok","meta":{"count":2},"data":{"1":{"tank_id":1,"name":"T-34","tier":5,"type":"mediumTank","nation":"ussr"},"17":{"tank_id":17,"name":"Tiger I","tier":7,"type":"heavyTank","nation":"germany"}}}`), http.StatusOK, nil
	}

	return []byte(`{"status":"error","error":{"code":404,"message":"METHOD_NOT_FOUND","field":null,"value":null}}`), http.StatusOK, nil
}
