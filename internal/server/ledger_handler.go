package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/CharlotteMargare/savewater/internal/savewater"
	"github.com/CharlotteMargare/savewater/internal/store"
)

// ledgerService is the slice of the savewater service the handlers use;
// narrowed for tests.
type ledgerService interface {
	Owner() common.Address
	Stats(ctx context.Context, owner common.Address) (*savewater.Stats, error)
	Records(ctx context.Context, owner common.Address) ([]savewater.CheckInRecord, error)
	Leaderboard(ctx context.Context) ([]savewater.LeaderboardEntry, error)
	Badges(ctx context.Context, owner common.Address) ([]savewater.BadgeStatus, error)
	SubmitCheckIn(ctx context.Context, descriptionID uint32, liters float64) (*savewater.SubmitResult, error)
	DecryptRecord(ctx context.Context, originalIndex uint64) (string, error)
	DecryptTotal(ctx context.Context) (string, error)
	MintBadge(ctx context.Context, level uint8) (common.Hash, error)
}

type ledgerHandler struct {
	svc     ledgerService
	repo    *store.Repository
	hub     *EventHub
	chainID uint64
}

func newLedgerHandler(svc ledgerService, repo *store.Repository, hub *EventHub, chainID uint64) *ledgerHandler {
	return &ledgerHandler{svc: svc, repo: repo, hub: hub, chainID: chainID}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeAPIError(c *gin.Context, status int, msg string) {
	c.JSON(status, ErrorResponse{Error: msg})
}

func (h *ledgerHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	owner := h.svc.Owner()
	stats, err := h.svc.Stats(ctx, owner)
	if err != nil {
		// Serve the last known snapshot when the chain read fails outright.
		if h.repo != nil {
			if snap, serr := h.repo.GetStats(ctx, h.chainID, owner.Hex()); serr == nil {
				c.JSON(http.StatusOK, gin.H{
					"totalSaves": snap.TotalSaves,
					"userCount":  snap.UserCount,
					"userStreak": snap.UserStreak,
					"cached":     true,
					"asOf":       snap.UpdatedAt,
				})
				return
			}
		}
		writeAPIError(c, http.StatusBadGateway, err.Error())
		return
	}
	if h.repo != nil {
		_ = h.repo.SaveStats(ctx, &store.StatsSnapshot{
			ChainID:    h.chainID,
			Owner:      owner.Hex(),
			TotalSaves: stats.TotalSaves,
			UserCount:  stats.UserCount,
			UserStreak: stats.UserStreak,
		})
	}
	c.JSON(http.StatusOK, stats)
}

func (h *ledgerHandler) GetRecords(c *gin.Context) {
	records, err := h.svc.Records(c.Request.Context(), h.svc.Owner())
	if err != nil {
		writeAPIError(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (h *ledgerHandler) GetLeaderboard(c *gin.Context) {
	ctx := c.Request.Context()
	entries, err := h.svc.Leaderboard(ctx)
	if err != nil {
		if h.repo != nil {
			if rows, serr := h.repo.GetLeaderboard(ctx, h.chainID); serr == nil && len(rows) > 0 {
				cached := make([]savewater.LeaderboardEntry, 0, len(rows))
				for _, row := range rows {
					cached = append(cached, savewater.LeaderboardEntry{
						Address:      row.Address,
						CheckInCount: row.CheckInCount,
						BadgeCount:   row.BadgeCount,
					})
				}
				c.JSON(http.StatusOK, gin.H{"entries": cached, "cached": true})
				return
			}
		}
		writeAPIError(c, http.StatusBadGateway, err.Error())
		return
	}
	if h.repo != nil && len(entries) > 0 {
		rows := make([]store.LeaderboardRow, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, store.LeaderboardRow{
				Address:      e.Address,
				CheckInCount: e.CheckInCount,
				BadgeCount:   e.BadgeCount,
			})
		}
		_ = h.repo.ReplaceLeaderboard(ctx, h.chainID, rows)
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *ledgerHandler) GetBadges(c *gin.Context) {
	statuses, err := h.svc.Badges(c.Request.Context(), h.svc.Owner())
	if err != nil {
		writeAPIError(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"badges": statuses})
}

func (h *ledgerHandler) ListSubmissions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	subs, err := h.repo.ListSubmissions(c.Request.Context(), h.chainID, c.Query("sender"), limit)
	if err != nil {
		writeAPIError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs})
}

type CheckInRequest struct {
	DescriptionID uint32  `json:"descriptionId" binding:"required"`
	Liters        float64 `json:"liters" binding:"required"`
}

func (h *ledgerHandler) SubmitCheckIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAPIError(c, http.StatusBadRequest, err.Error())
		return
	}
	ctx := c.Request.Context()
	result, err := h.svc.SubmitCheckIn(ctx, req.DescriptionID, req.Liters)
	if err != nil {
		writeAPIError(c, http.StatusBadGateway, err.Error())
		return
	}
	sub := &store.CheckInSubmission{
		SubmissionID:  result.ID,
		ChainID:       h.chainID,
		Sender:        h.svc.Owner().Hex(),
		DescriptionID: req.DescriptionID,
		TxHash:        result.TxHash.Hex(),
		BlockNumber:   result.BlockNumber,
	}
	if h.repo != nil {
		_ = h.repo.UpsertSubmission(ctx, sub)
	}
	if h.hub != nil {
		h.hub.PublishCheckIn(sub)
	}
	c.JSON(http.StatusOK, result)
}

func (h *ledgerHandler) DecryptRecord(c *gin.Context) {
	index, err := strconv.ParseUint(c.Param("index"), 10, 64)
	if err != nil {
		writeAPIError(c, http.StatusBadRequest, "invalid record index")
		return
	}
	amount, err := h.svc.DecryptRecord(c.Request.Context(), index)
	if err != nil {
		writeAPIError(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"amount": amount})
}

func (h *ledgerHandler) DecryptTotal(c *gin.Context) {
	amount, err := h.svc.DecryptTotal(c.Request.Context())
	if err != nil {
		writeAPIError(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"amount": amount})
}

func (h *ledgerHandler) MintBadge(c *gin.Context) {
	level, err := strconv.ParseUint(c.Param("level"), 10, 8)
	if err != nil || level == 0 || level > uint64(len(savewater.BadgeLevels)) {
		writeAPIError(c, http.StatusBadRequest, "invalid badge level")
		return
	}
	txHash, err := h.svc.MintBadge(c.Request.Context(), uint8(level))
	if err != nil {
		writeAPIError(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"txHash": txHash.Hex()})
}
