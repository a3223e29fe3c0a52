package restapi

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"starknet_portfolio/internal/app/port"
	"starknet_portfolio/internal/domain/entity"
	"starknet_portfolio/internal/pkg/utils"
)

const defaultActionsLimit = 100

var walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)

// holdingView is an AssetHolding with display strings for the USD amounts.
type holdingView struct {
	entity.AssetHolding
	ValueDisplay string `json:"valueDisplay"`
}

type portfolioView struct {
	WalletAddress     string        `json:"walletAddress"`
	TotalValueUSD     float64       `json:"totalValueUSD"`
	TotalValueDisplay string        `json:"totalValueDisplay"`
	TakenAt           time.Time     `json:"takenAt"`
	Holdings          []holdingView `json:"holdings"`
}

// APIPortfolioResponse is the body of the portfolio endpoint.
type APIPortfolioResponse struct {
	Data          portfolioView       `json:"data"`
	AssetErrors   []entity.AssetError `json:"asset_errors,omitempty"`
	StatusMessage string              `json:"status_message"`
}

// APIRebalanceResponse is the body of both planning endpoints.
type APIRebalanceResponse struct {
	Data struct {
		WalletAddress string                   `json:"walletAddress"`
		TotalValueUSD float64                  `json:"totalValueUSD"`
		TakenAt       time.Time                `json:"takenAt"`
		Policy        entity.AllocationPolicy  `json:"policy"`
		Actions       []entity.RebalanceAction `json:"actions"`
	} `json:"data"`
	AssetErrors   []entity.AssetError `json:"asset_errors,omitempty"`
	StatusMessage string              `json:"status_message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// PortfolioHandler serves valuation and planning requests.
type PortfolioHandler struct {
	portfolios port.PortfolioService
	planner    port.RebalancePlanner
	policies   port.PolicyStore
	catalog    port.AssetCatalog
	ledger     port.ActionLedger
	logger     port.Logger
}

// NewPortfolioHandler creates a handler. ledger may be nil, in which case the
// actions endpoint answers 503.
func NewPortfolioHandler(
	portfolios port.PortfolioService,
	planner port.RebalancePlanner,
	policies port.PolicyStore,
	catalog port.AssetCatalog,
	ledger port.ActionLedger,
	l port.Logger,
) *PortfolioHandler {
	return &PortfolioHandler{
		portfolios: portfolios,
		planner:    planner,
		policies:   policies,
		catalog:    catalog,
		ledger:     ledger,
		logger:     l,
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrCatalogLoadFailure):
		return http.StatusServiceUnavailable
	case errors.Is(err, entity.ErrInvalidPolicy), errors.Is(err, entity.ErrInvalidDeposit):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrPriceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, entity.ErrPolicyNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, l port.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		l.Error("Request failed", "path", c.FullPath(), "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}

func (h *PortfolioHandler) fail(c *gin.Context, err error) {
	abortWithError(c, h.logger, err)
}

func walletParam(c *gin.Context) (string, bool) {
	wallet := c.Param("walletAddress")
	if !walletPattern.MatchString(wallet) {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid wallet address"})
		return "", false
	}
	return wallet, true
}

// GetPortfolio handles GET /portfolios/:walletAddress[?nonZero=true].
func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	wallet, ok := walletParam(c)
	if !ok {
		return
	}
	nonZero, _ := strconv.ParseBool(c.Query("nonZero"))

	snapshot, err := h.portfolios.FetchPortfolio(c.Request.Context(), wallet)
	if err != nil {
		h.fail(c, err)
		return
	}

	holdings := snapshot.Holdings
	if nonZero {
		holdings = snapshot.NonZero()
	}
	view := portfolioView{
		WalletAddress:     snapshot.WalletAddress,
		TotalValueUSD:     snapshot.TotalValueUSD,
		TotalValueDisplay: utils.FormatUSD(snapshot.TotalValueUSD),
		TakenAt:           snapshot.TakenAt,
		Holdings:          make([]holdingView, 0, len(holdings)),
	}
	for _, holding := range holdings {
		view.Holdings = append(view.Holdings, holdingView{
			AssetHolding: holding,
			ValueDisplay: utils.FormatOptionalUSD(holding.ValueUSD),
		})
	}

	resp := APIPortfolioResponse{Data: view, AssetErrors: snapshot.Errors()}
	switch {
	case len(resp.AssetErrors) > 0:
		resp.StatusMessage = "Portfolio retrieved. Some assets could not be valued."
	case len(view.Holdings) == 0:
		resp.StatusMessage = "No holdings found for wallet."
	default:
		resp.StatusMessage = "Portfolio retrieved successfully."
	}
	c.JSON(http.StatusOK, resp)
}

// GetRebalancePlan handles GET /portfolios/:walletAddress/rebalance against
// the stored policy.
func (h *PortfolioHandler) GetRebalancePlan(c *gin.Context) {
	wallet, ok := walletParam(c)
	if !ok {
		return
	}
	policy, err := h.policies.GetPolicy(c.Request.Context(), wallet)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.plan(c, policy)
}

// PostRebalancePlan handles POST /rebalance/plan with a policy in the body.
func (h *PortfolioHandler) PostRebalancePlan(c *gin.Context) {
	var policy entity.AllocationPolicy
	if err := c.ShouldBindJSON(&policy); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if !walletPattern.MatchString(policy.WalletAddress) {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid wallet address"})
		return
	}
	// Reject bad allocations before paying for a valuation.
	if err := policy.ValidateAllocation(); err != nil {
		h.fail(c, err)
		return
	}
	h.plan(c, policy)
}

func (h *PortfolioHandler) plan(c *gin.Context, policy entity.AllocationPolicy) {
	snapshot, err := h.portfolios.FetchPortfolio(c.Request.Context(), policy.WalletAddress)
	if err != nil {
		h.fail(c, err)
		return
	}
	actions, err := h.planner.PlanRebalance(policy, snapshot)
	if err != nil {
		h.fail(c, err)
		return
	}

	var resp APIRebalanceResponse
	resp.Data.WalletAddress = snapshot.WalletAddress
	resp.Data.TotalValueUSD = snapshot.TotalValueUSD
	resp.Data.TakenAt = snapshot.TakenAt
	resp.Data.Policy = policy
	resp.Data.Actions = actions
	resp.AssetErrors = snapshot.Errors()
	if len(actions) == 0 {
		resp.StatusMessage = "Portfolio is within tolerance."
	} else {
		resp.StatusMessage = "Rebalance required."
	}
	c.JSON(http.StatusOK, resp)
}

// ListAssets handles GET /assets.
func (h *PortfolioHandler) ListAssets(c *gin.Context) {
	assets, err := h.catalog.ListSupportedAssets(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	records := make([]entity.AssetRecord, 0, len(assets))
	for _, a := range assets {
		records = append(records, entity.RecordOf(a))
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}

// ListActions handles GET /actions?wallet=&limit=.
func (h *PortfolioHandler) ListActions(c *gin.Context) {
	if h.ledger == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse{Error: "action ledger is not configured"})
		return
	}
	wallet := c.Query("wallet")
	if wallet != "" && !walletPattern.MatchString(wallet) {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid wallet address"})
		return
	}
	limit := defaultActionsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	actions, err := h.ledger.ListActions(c.Request.Context(), wallet, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": actions})
}
