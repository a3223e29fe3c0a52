package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"

	"starknet_portfolio/internal/app/port"
	"starknet_portfolio/internal/domain/entity"
	"starknet_portfolio/internal/pkg/metrics"
	"starknet_portfolio/internal/pkg/utils"
)

const blockTagLatest = "latest"

// Options tunes a StarknetClient.
type Options struct {
	ConnectTimeout time.Duration
	CallTimeout    time.Duration
	RateLimit      float64 // requests per second, <=0 disables limiting
	Burst          int
	MaxBatchSize   int // calls per JSON-RPC batch, <=0 means defaultMaxBatchSize
}

const defaultMaxBatchSize = 50

// StarknetClient implements port.ChainClient over Starknet JSON-RPC.
type StarknetClient struct {
	rpcClient   *rpc.Client
	netDef      entity.NetworkDefinition
	callTimeout time.Duration
	limiter     *rate.Limiter
	maxBatch    int
	logger      port.Logger
	metrics     *metrics.Metrics
}

type functionCall struct {
	ContractAddress    string   `json:"contract_address"`
	EntryPointSelector string   `json:"entry_point_selector"`
	Calldata           []string `json:"calldata"`
}

// NewStarknetClient dials the primary RPC URL and then each fallback until one
// answers starknet_chainId with the expected chain.
func NewStarknetClient(netDef entity.NetworkDefinition, opts Options, log port.Logger, m *metrics.Metrics) (*StarknetClient, error) {
	rpcURLs := append([]string{netDef.PrimaryRPCURL}, netDef.FallbackRPCURLs...)
	var lastErr error

	for _, rpcURL := range rpcURLs {
		if rpcURL == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
		rc, err := rpc.DialContext(ctx, rpcURL)
		if err == nil {
			err = verifyChain(ctx, rc, netDef.ChainID)
			if err != nil {
				rc.Close()
			}
		}
		cancel()

		if err == nil {
			log.Info("Connected to Starknet RPC", "network", netDef.Name, "rpc", rpcURL)
			return newStarknetClient(rc, netDef, opts, log, m), nil
		}
		log.Warn("Starknet RPC unavailable, trying next", "rpc", rpcURL, "error", err)
		lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
	}
	if lastErr == nil {
		lastErr = errors.New("no RPC URLs configured")
	}
	return nil, fmt.Errorf("all RPC connection attempts failed for network %s: %w", netDef.Name, lastErr)
}

func newStarknetClient(rc *rpc.Client, netDef entity.NetworkDefinition, opts Options, log port.Logger, m *metrics.Metrics) *StarknetClient {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	callTimeout := opts.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	maxBatch := opts.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = defaultMaxBatchSize
	}
	return &StarknetClient{
		rpcClient:   rc,
		netDef:      netDef,
		callTimeout: callTimeout,
		limiter:     limiter,
		maxBatch:    maxBatch,
		logger:      log,
		metrics:     m,
	}
}

func verifyChain(ctx context.Context, rc *rpc.Client, want string) error {
	var raw string
	if err := rc.CallContext(ctx, &raw, "starknet_chainId"); err != nil {
		return err
	}
	if want == "" {
		return nil
	}
	got, err := decodeShortString(raw)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("chain id mismatch: want %s, got %s", want, got)
	}
	return nil
}

// decodeShortString turns a felt-encoded ASCII string such as 0x534e5f4d41494e into "SN_MAIN".
func decodeShortString(felt string) (string, error) {
	v, err := utils.ParseFelt(felt)
	if err != nil {
		return "", err
	}
	return string(v.Bytes()), nil
}

func encodeCall(contractAddress, entrypoint string, calldata []*big.Int) functionCall {
	data := make([]string, len(calldata))
	for i, d := range calldata {
		data[i] = hexutil.EncodeBig(d)
	}
	return functionCall{
		ContractAddress:    entity.NormalizeAddress(contractAddress),
		EntryPointSelector: hexutil.EncodeBig(Selector(entrypoint)),
		Calldata:           data,
	}
}

func decodeFelts(raw []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(raw))
	for i, s := range raw {
		v, err := utils.ParseFelt(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Call invokes one view entrypoint at the latest block.
func (c *StarknetClient) Call(ctx context.Context, contractAddress, entrypoint string, calldata ...*big.Int) ([]*big.Int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", entity.ErrChainReadFailure, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	var raw []string
	err := c.rpcClient.CallContext(callCtx, &raw, "starknet_call", encodeCall(contractAddress, entrypoint, calldata), blockTagLatest)
	var felts []*big.Int
	if err == nil {
		felts, err = decodeFelts(raw)
	}
	c.metrics.ObserveChainCall(entrypoint, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %v", entity.ErrChainReadFailure, contractAddress, entrypoint, err)
	}
	return felts, nil
}

// CallBatch sends the requests as JSON-RPC batches of at most MaxBatchSize
// calls. Results keep request order. A transport failure of any batch fails
// the whole call.
func (c *StarknetClient) CallBatch(ctx context.Context, requests []entity.CallRequest) ([]entity.CallResult, error) {
	results := make([]entity.CallResult, 0, len(requests))
	for _, chunk := range utils.Chunk(requests, c.maxBatch) {
		part, err := c.callBatch(ctx, chunk)
		if err != nil {
			return nil, err
		}
		results = append(results, part...)
	}
	return results, nil
}

func (c *StarknetClient) callBatch(ctx context.Context, requests []entity.CallRequest) ([]entity.CallResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", entity.ErrChainReadFailure, err)
	}

	results := make([]entity.CallResult, len(requests))
	batchElems := make([]rpc.BatchElem, len(requests))
	for i, req := range requests {
		results[i].Request = req
		batchElems[i] = rpc.BatchElem{
			Method: "starknet_call",
			Args:   []interface{}{encodeCall(req.ContractAddress, req.Entrypoint, req.Calldata), blockTagLatest},
			Result: new([]string),
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	if err := c.rpcClient.BatchCallContext(callCtx, batchElems); err != nil {
		for _, req := range requests {
			c.metrics.ObserveChainCall(req.Entrypoint, err)
		}
		return nil, fmt.Errorf("%w: batch of %d calls: %v", entity.ErrChainReadFailure, len(requests), err)
	}

	for i, elem := range batchElems {
		req := requests[i]
		err := elem.Error
		if err == nil {
			raw, ok := elem.Result.(*[]string)
			if !ok || raw == nil {
				err = errors.New("unexpected result type")
			} else {
				results[i].Felts, err = decodeFelts(*raw)
			}
		}
		c.metrics.ObserveChainCall(req.Entrypoint, err)
		if err != nil {
			results[i].Felts = nil
			results[i].Error = fmt.Errorf("%w: %s.%s: %v", entity.ErrChainReadFailure, req.ContractAddress, req.Entrypoint, err)
		}
	}
	return results, nil
}

// Definition returns the network definition for this client.
func (c *StarknetClient) Definition() entity.NetworkDefinition {
	return c.netDef
}

// Close releases the underlying RPC connection.
func (c *StarknetClient) Close() {
	c.rpcClient.Close()
}
