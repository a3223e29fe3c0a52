package service

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/mock"

	"starknet_portfolio/internal/domain/entity"
	"starknet_portfolio/internal/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fakeChain answers calls from a table keyed by "<address>|<entrypoint>".
type fakeChain struct {
	mu      sync.Mutex
	results map[string][]*big.Int
	fail    map[string]error
	calls   []string
}

func newFakeChain() *fakeChain {
	return &fakeChain{results: map[string][]*big.Int{}, fail: map[string]error{}}
}

func chainKey(address, entrypoint string) string {
	return entity.NormalizeAddress(address) + "|" + entrypoint
}

func (f *fakeChain) set(address, entrypoint string, felts ...*big.Int) *fakeChain {
	f.results[chainKey(address, entrypoint)] = felts
	return f
}

func (f *fakeChain) setUint256(address, entrypoint string, v *big.Int) *fakeChain {
	low, high := utils.SplitUint256(v)
	return f.set(address, entrypoint, low, high)
}

func (f *fakeChain) failOn(address, entrypoint string) *fakeChain {
	f.fail[chainKey(address, entrypoint)] = fmt.Errorf("%w: reverted", entity.ErrChainReadFailure)
	return f
}

func (f *fakeChain) Call(_ context.Context, contractAddress, entrypoint string, _ ...*big.Int) ([]*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := chainKey(contractAddress, entrypoint)
	f.calls = append(f.calls, key)
	if err, ok := f.fail[key]; ok {
		return nil, err
	}
	felts, ok := f.results[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s not found", entity.ErrChainReadFailure, key)
	}
	return felts, nil
}

func (f *fakeChain) CallBatch(ctx context.Context, requests []entity.CallRequest) ([]entity.CallResult, error) {
	out := make([]entity.CallResult, len(requests))
	for i, req := range requests {
		felts, err := f.Call(ctx, req.ContractAddress, req.Entrypoint, req.Calldata...)
		out[i] = entity.CallResult{Request: req, Felts: felts, Error: err}
	}
	return out, nil
}

func (f *fakeChain) Definition() entity.NetworkDefinition {
	return entity.NetworkDefinition{Name: "fake", ChainID: "SN_MAIN"}
}

// fakeFeed serves fixed prices; addresses without a price are unavailable.
type fakeFeed struct {
	mu     sync.Mutex
	prices map[string]float64
	asOf   time.Time
	calls  int
}

func newFakeFeed(prices map[string]float64) *fakeFeed {
	normalized := make(map[string]float64, len(prices))
	for k, v := range prices {
		normalized[entity.NormalizeAddress(k)] = v
	}
	return &fakeFeed{prices: normalized, asOf: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeFeed) LatestPoint(_ context.Context, assetAddress string) (float64, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	p, ok := f.prices[entity.NormalizeAddress(assetAddress)]
	if !ok {
		return 0, time.Time{}, fmt.Errorf("%w: no series for %s", entity.ErrPriceUnavailable, assetAddress)
	}
	return p, f.asOf, nil
}

// mockPriceOracle is a testify mock of port.PriceOracle.
type mockPriceOracle struct {
	mock.Mock
}

func (m *mockPriceOracle) GetUnitPrice(ctx context.Context, assetAddress string) entity.PriceResult {
	args := m.Called(ctx, assetAddress)
	return args.Get(0).(entity.PriceResult)
}

type staticCatalog struct {
	assets []entity.SupportedAsset
	err    error
}

func (c staticCatalog) ListSupportedAssets(context.Context) ([]entity.SupportedAsset, error) {
	return c.assets, c.err
}

func units(whole int64, decimals uint8) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

const (
	usdcAddr = "0x053c91253bc9682c04929ca02ed00b3e423f6710d2ee7e0d5ebb06f3ecf368a8"
	strkAddr = "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d"
	ethAddr  = "0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7"
	usdtAddr = "0x068f5c6a61780768455de69077e07e89787839bf8166decfbf92b645209c0fb8"
	pairAddr = "0x0a01"
	stakAddr = "0x0b01"
	wallet   = "0x0123abc"
)

var (
	usdc = entity.SupportedAsset{Address: usdcAddr, Name: "USD Coin", Symbol: "USDC", Decimals: 6, Kind: entity.KindPlain}
	strk = entity.SupportedAsset{Address: strkAddr, Name: "Starknet Token", Symbol: "STRK", Decimals: 18, Kind: entity.KindPlain}
	eth  = entity.SupportedAsset{Address: ethAddr, Name: "Ether", Symbol: "ETH", Decimals: 18, Kind: entity.KindPlain}
	usdt = entity.SupportedAsset{Address: usdtAddr, Name: "Tether USD", Symbol: "USDT", Decimals: 6, Kind: entity.KindPlain}
)
