package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/CharlotteMargare/savewater/internal/auth"
	"github.com/CharlotteMargare/savewater/internal/config"
	"github.com/CharlotteMargare/savewater/internal/contracts"
	"github.com/CharlotteMargare/savewater/internal/store"
)

func NewRouter(cfg config.Config, netctx contracts.NetworkContext, authSvc *auth.Service, svc ledgerService, repo *store.Repository, hub *EventHub) *gin.Engine {
	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	authH := newAuthHandler(authSvc)
	r.GET("/auth/nonce", authH.Nonce)
	r.POST("/auth/login", authH.Login)

	addrH := newAddressHandler(cfg.Chain, netctx)
	ledger := newLedgerHandler(svc, repo, hub, netctx.ChainID)
	api := r.Group("/api/v1")
	api.GET("/addresses", addrH.LookupAddress)
	api.GET("/stats", ledger.GetStats)
	api.GET("/records", ledger.GetRecords)
	api.GET("/leaderboard", ledger.GetLeaderboard)
	api.GET("/badges", ledger.GetBadges)
	api.GET("/submissions", ledger.ListSubmissions)

	if hub != nil {
		r.GET("/ws", hub.ServeWS)
	}

	guard := auth.JWTMiddleware(authSvc)
	priv := api.Group("", guard)
	{
		priv.POST("/checkins", ledger.SubmitCheckIn)
		priv.POST("/records/:index/decrypt", ledger.DecryptRecord)
		priv.POST("/total/decrypt", ledger.DecryptTotal)
		priv.POST("/badges/:level/mint", ledger.MintBadge)
	}

	return r
}
