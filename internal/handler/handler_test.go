package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawpunks/punk-watcher/internal/model"
	"github.com/lawpunks/punk-watcher/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePoller struct {
	status    service.Status
	staking   *model.StakingSnapshot
	market    *model.MarketSet
	metaverse *model.MetaverseSet
}

func (f *fakePoller) Status() service.Status          { return f.status }
func (f *fakePoller) Staking() *model.StakingSnapshot { return f.staking }
func (f *fakePoller) Market() *model.MarketSet        { return f.market }
func (f *fakePoller) Metaverse() *model.MetaverseSet  { return f.metaverse }

type fakeChain struct {
	err error
}

func (f *fakeChain) HealthCheck(ctx context.Context) error { return f.err }

func newTestPoller(t *testing.T) *fakePoller {
	set := model.NewMetaverseSet(10)
	require.NoError(t, set.Apply([]model.MetaverseEntry{
		{TokenID: 7, Record: model.MetaverseRecord{Level: 2, TotalScore: 400000000, Owner: "0xabc", PunkSlogan: "gm"}},
	}))
	market := model.NewMarketSet()
	market.Put(model.NewMarketRecord(&model.MarketListing{TokenID: 9, MinValue: big.NewInt(50), MinLawValue: big.NewInt(200)}))

	finished := time.Unix(1700000000, 0)
	return &fakePoller{
		status: service.Status{
			State:  service.StateIdle,
			Cycles: 3,
			LastCycle: &service.CycleResult{
				CycleID:    "c-1",
				FinishedAt: finished,
				Success:    true,
			},
		},
		staking: &model.StakingSnapshot{
			BchFloor:                  decimal.NewFromInt(50),
			LawFloor:                  decimal.NewFromInt(200),
			TotalHashRate:             decimal.NewFromInt(43500000000),
			TotalHashRateStaked:       decimal.NewFromInt(1000000000000),
			TotalPunkValueLockedInBch: decimal.NewFromInt(11494252),
		},
		market:    market,
		metaverse: set,
	}
}

func serve(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthHandler_Live(t *testing.T) {
	r := NewRouter(NewHealthHandler(nil), NewSnapshotHandler(newTestPoller(t)))
	w := serve(r, "/health/live")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

func TestHealthHandler_Ready(t *testing.T) {
	chain := &fakeChain{}
	health := NewHealthHandler(&HealthDeps{Chain: chain})
	r := NewRouter(health, NewSnapshotHandler(newTestPoller(t)))

	w := serve(r, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not ready")

	health.SetReady(true)
	w = serve(r, "/health/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	chain.err = errors.New("no healthy RPC endpoint available")
	w = serve(r, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "no healthy RPC endpoint available")
}

func TestSnapshotHandler_GetStaking(t *testing.T) {
	poller := newTestPoller(t)
	r := NewRouter(NewHealthHandler(nil), NewSnapshotHandler(poller))

	w := serve(r, "/v1/staking")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code string            `json:"code"`
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "OK", resp.Code)
	assert.Equal(t, "50", resp.Data["bchFloor"])
	assert.Equal(t, "11494252", resp.Data["totalPunkValueLockedInBch"])

	poller.staking = nil
	w = serve(r, "/v1/staking")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestSnapshotHandler_GetMetaverse(t *testing.T) {
	r := NewRouter(NewHealthHandler(nil), NewSnapshotHandler(newTestPoller(t)))

	w := serve(r, "/v1/metaverse/7")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data MetaverseRecordView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(7), resp.Data.TokenID)
	assert.Equal(t, uint64(400000000), resp.Data.TotalScore)
	assert.Equal(t, "gm", resp.Data.PunkSlogan)

	assert.Equal(t, http.StatusNotFound, serve(r, "/v1/metaverse/11").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, "/v1/metaverse/0").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, "/v1/metaverse/abc").Code)
}

func TestSnapshotHandler_GetMarketAndStatus(t *testing.T) {
	poller := newTestPoller(t)
	r := NewRouter(NewHealthHandler(nil), NewSnapshotHandler(poller))

	w := serve(r, "/v1/market")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tokenId":9`)
	assert.Contains(t, w.Body.String(), `"bch":"50"`)

	poller.market = nil
	w = serve(r, "/v1/market")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"OK"`)
	assert.NotContains(t, w.Body.String(), "tokenId")

	w = serve(r, "/v1/status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"IDLE"`)
	assert.Contains(t, w.Body.String(), `"cycle_id":"c-1"`)
}

func TestRouter_Metrics(t *testing.T) {
	r := NewRouter(NewHealthHandler(nil), NewSnapshotHandler(newTestPoller(t)))
	w := serve(r, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
