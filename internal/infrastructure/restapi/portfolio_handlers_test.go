package restapi

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"starknet_portfolio/internal/app/service"
	"starknet_portfolio/internal/domain/entity"
	"starknet_portfolio/internal/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	wallet = "0xabc123"
	usdc   = "0x53c91253bc9682c04929ca02ed00b3e423f6710d2ee7e0d5ebb06f3ecf368a8"
	eth    = "0x49d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7"
)

type mockPortfolios struct{ mock.Mock }

func (m *mockPortfolios) FetchPortfolio(ctx context.Context, w string) (entity.PortfolioSnapshot, error) {
	args := m.Called(ctx, w)
	return args.Get(0).(entity.PortfolioSnapshot), args.Error(1)
}

type mockPolicies struct{ mock.Mock }

func (m *mockPolicies) ListPolicies(ctx context.Context) ([]entity.AllocationPolicy, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.AllocationPolicy), args.Error(1)
}

func (m *mockPolicies) GetPolicy(ctx context.Context, w string) (entity.AllocationPolicy, error) {
	args := m.Called(ctx, w)
	return args.Get(0).(entity.AllocationPolicy), args.Error(1)
}

type staticCatalog struct {
	assets []entity.SupportedAsset
	err    error
}

func (c staticCatalog) ListSupportedAssets(context.Context) ([]entity.SupportedAsset, error) {
	return c.assets, c.err
}

type mockLedger struct{ mock.Mock }

func (m *mockLedger) RecordAction(ctx context.Context, a entity.RebalanceAction) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockLedger) ListActions(ctx context.Context, w string, limit int) ([]entity.RebalanceAction, error) {
	args := m.Called(ctx, w, limit)
	return args.Get(0).([]entity.RebalanceAction), args.Error(1)
}

func ptr(v float64) *float64 { return &v }

func snapshot() entity.PortfolioSnapshot {
	takenAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return entity.NewPortfolioSnapshot(wallet, []entity.AssetHolding{
		{
			Asset:    entity.SupportedAsset{Address: usdc, Symbol: "USDC", Decimals: 6, Kind: entity.KindPlain},
			Quantity: decimal.NewFromInt(300),
			PriceUSD: ptr(1),
			ValueUSD: ptr(300),
		},
		{
			Asset:    entity.SupportedAsset{Address: eth, Symbol: "ETH", Decimals: 18, Kind: entity.KindPlain},
			Quantity: decimal.RequireFromString("0.35"),
			PriceUSD: ptr(2000),
			ValueUSD: ptr(700),
		},
		{
			Asset:    entity.SupportedAsset{Address: "0x99", Symbol: "DUST", Decimals: 18, Kind: entity.KindPlain},
			Quantity: decimal.Zero,
			Error:    &entity.AssetError{AssetAddress: "0x99", Stage: entity.StagePrice, Message: "price unavailable"},
		},
	}, takenAt)
}

type fixture struct {
	portfolios *mockPortfolios
	policies   *mockPolicies
	ledger     *mockLedger
	deposits   *mockDeposits
	router     *gin.Engine
}

func newFixture(t *testing.T, catalog staticCatalog) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{portfolios: &mockPortfolios{}, policies: &mockPolicies{}, ledger: &mockLedger{}, deposits: &mockDeposits{}}
	planner := service.NewRebalancePlanner(map[string]entity.AssetCategory{
		usdc: entity.CategoryStable,
		eth:  entity.CategoryNative,
	}, 5)
	h := NewPortfolioHandler(f.portfolios, planner, f.policies, catalog, f.ledger, logger.NewNop())
	f.router = SetupRouter(h, NewDepositHandler(f.deposits, logger.NewNop()), zap.NewNop(), prometheus.NewRegistry())
	return f
}

func (f *fixture) do(method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestGetPortfolio(t *testing.T) {
	f := newFixture(t, staticCatalog{})
	f.portfolios.On("FetchPortfolio", mock.Anything, wallet).Return(snapshot(), nil)

	w := f.do(http.MethodGet, "/api/v1/portfolios/"+wallet, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp APIPortfolioResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1000.0, resp.Data.TotalValueUSD)
	assert.Equal(t, "$1,000.00", resp.Data.TotalValueDisplay)
	assert.Len(t, resp.Data.Holdings, 3)
	require.Len(t, resp.AssetErrors, 1)
	assert.Equal(t, entity.StagePrice, resp.AssetErrors[0].Stage)
	assert.Contains(t, w.Body.String(), `"valueUSD":null`)
}

func TestGetPortfolio_NonZeroFilter(t *testing.T) {
	f := newFixture(t, staticCatalog{})
	snap := snapshot()
	// Held but unpriced.
	snap.Holdings = append(snap.Holdings, entity.AssetHolding{
		Asset:    entity.SupportedAsset{Address: "0x98", Symbol: "ODD", Decimals: 18, Kind: entity.KindPlain},
		Quantity: decimal.NewFromInt(4),
		Error:    &entity.AssetError{AssetAddress: "0x98", Stage: entity.StagePrice, Message: "price unavailable"},
	})
	f.portfolios.On("FetchPortfolio", mock.Anything, wallet).Return(snap, nil)

	w := f.do(http.MethodGet, "/api/v1/portfolios/"+wallet+"?nonZero=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp APIPortfolioResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Holdings, 2)
	assert.Equal(t, "USDC", resp.Data.Holdings[0].Asset.Symbol)
	assert.Equal(t, 1000.0, resp.Data.TotalValueUSD)
}

func TestGetPortfolio_Errors(t *testing.T) {
	f := newFixture(t, staticCatalog{})
	f.portfolios.On("FetchPortfolio", mock.Anything, wallet).
		Return(entity.PortfolioSnapshot{}, fmt.Errorf("%w: db down", entity.ErrCatalogLoadFailure))

	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodGet, "/api/v1/portfolios/"+wallet, nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/portfolios/not-a-wallet", nil).Code)
}

func TestGetRebalancePlan(t *testing.T) {
	f := newFixture(t, staticCatalog{})
	f.portfolios.On("FetchPortfolio", mock.Anything, wallet).Return(snapshot(), nil)
	f.policies.On("GetPolicy", mock.Anything, wallet).Return(entity.AllocationPolicy{
		WalletAddress: wallet, StablePercent: 50, NativePercent: 50, ToleranceBand: 5,
	}, nil)

	w := f.do(http.MethodGet, "/api/v1/portfolios/"+wallet+"/rebalance", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp APIRebalanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Actions, 2)
	assert.Equal(t, entity.DirectionSell, resp.Data.Actions[0].Direction)
	assert.Equal(t, entity.CategoryNative, resp.Data.Actions[0].AssetCategory)
	assert.InDelta(t, 200, resp.Data.Actions[0].DeltaUSD, 1e-9)
	assert.Equal(t, entity.DirectionBuy, resp.Data.Actions[1].Direction)
	assert.Equal(t, "Rebalance required.", resp.StatusMessage)
}

func TestGetRebalancePlan_PolicyNotFound(t *testing.T) {
	f := newFixture(t, staticCatalog{})
	f.policies.On("GetPolicy", mock.Anything, wallet).
		Return(entity.AllocationPolicy{}, fmt.Errorf("%w: %s", entity.ErrPolicyNotFound, wallet))

	w := f.do(http.MethodGet, "/api/v1/portfolios/"+wallet+"/rebalance", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	f.portfolios.AssertNotCalled(t, "FetchPortfolio", mock.Anything, mock.Anything)
}

func TestPostRebalancePlan(t *testing.T) {
	f := newFixture(t, staticCatalog{})
	f.portfolios.On("FetchPortfolio", mock.Anything, wallet).Return(snapshot(), nil)

	body := []byte(`{"walletAddress":"` + wallet + `","stablePercent":30,"nativePercent":70,"otherPercent":0,"toleranceBand":5}`)
	w := f.do(http.MethodPost, "/api/v1/rebalance/plan", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp APIRebalanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Data.Actions)
	assert.Equal(t, "Portfolio is within tolerance.", resp.StatusMessage)
}

func TestPostRebalancePlan_BadInput(t *testing.T) {
	f := newFixture(t, staticCatalog{})

	cases := map[string]string{
		"malformed":  `{`,
		"bad wallet": `{"walletAddress":"abc","stablePercent":100,"toleranceBand":5}`,
		"bad sum":    `{"walletAddress":"` + wallet + `","stablePercent":60,"nativePercent":60,"toleranceBand":5}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/api/v1/rebalance/plan", []byte(body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	f.portfolios.AssertNotCalled(t, "FetchPortfolio", mock.Anything, mock.Anything)
}

func TestListAssets(t *testing.T) {
	ether := entity.SupportedAsset{Address: eth, Name: "Ether", Symbol: "ETH", Decimals: 18, Kind: entity.KindPlain}
	staked := entity.SupportedAsset{Address: "0x77", Name: "Staked ETH", Decimals: 18, Kind: entity.KindStakedPosition, Underlying: &ether}
	f := newFixture(t, staticCatalog{assets: []entity.SupportedAsset{ether, staked}})

	w := f.do(http.MethodGet, "/api/v1/assets", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []entity.AssetRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, eth, resp.Data[1].Underlying)

	failing := newFixture(t, staticCatalog{err: fmt.Errorf("%w: boom", entity.ErrCatalogLoadFailure)})
	assert.Equal(t, http.StatusServiceUnavailable, failing.do(http.MethodGet, "/api/v1/assets", nil).Code)
}

func TestListActions(t *testing.T) {
	f := newFixture(t, staticCatalog{})
	actions := []entity.RebalanceAction{{ID: "a1", WalletAddress: wallet, Direction: entity.DirectionSell}}
	f.ledger.On("ListActions", mock.Anything, wallet, 5).Return(actions, nil)

	w := f.do(http.MethodGet, "/api/v1/actions?wallet="+wallet+"&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"a1"`)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/actions?limit=-1", nil).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, staticCatalog{})

	w := f.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
}
