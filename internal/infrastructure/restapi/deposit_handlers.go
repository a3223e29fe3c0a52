package restapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"starknet_portfolio/internal/app/port"
	"starknet_portfolio/internal/domain/entity"
)

// DepositHandler serves the agent wallet deposit ledger.
type DepositHandler struct {
	deposits port.DepositService
	logger   port.Logger
}

func NewDepositHandler(deposits port.DepositService, l port.Logger) *DepositHandler {
	return &DepositHandler{deposits: deposits, logger: l}
}

// PostDeposit handles POST /deposits.
func (h *DepositHandler) PostDeposit(c *gin.Context) {
	var req entity.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	for _, addr := range []string{req.AgentWallet, req.UserWallet, req.AssetAddress} {
		if !walletPattern.MatchString(addr) {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid address " + addr})
			return
		}
	}

	deposit, err := h.deposits.RecordDeposit(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": deposit})
}

// GetAgentTotal handles GET /portfolios/:walletAddress/total.
func (h *DepositHandler) GetAgentTotal(c *gin.Context) {
	wallet, ok := walletParam(c)
	if !ok {
		return
	}
	total, err := h.deposits.AgentTotal(c.Request.Context(), wallet)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": total})
}
