package restapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"starknet_portfolio/internal/pkg/logger"
)

// SetupRouter builds the gin engine with every route. gatherer backs /metrics.
// The deposit routes are left out when d is nil.
func SetupRouter(h *PortfolioHandler, d *DepositHandler, z *zap.Logger, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))
	router.Use(logger.GinMiddleware(z))
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/portfolios/:walletAddress", h.GetPortfolio)
		v1.GET("/portfolios/:walletAddress/rebalance", h.GetRebalancePlan)
		v1.POST("/rebalance/plan", h.PostRebalancePlan)
		v1.GET("/assets", h.ListAssets)
		v1.GET("/actions", h.ListActions)
		if d != nil {
			v1.GET("/portfolios/:walletAddress/total", d.GetAgentTotal)
			v1.POST("/deposits", d.PostDeposit)
		}
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return router
}
