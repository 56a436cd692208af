package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/CharlotteMargare/savewater/internal/config"
	"github.com/CharlotteMargare/savewater/internal/contracts"
)

type addressHandler struct {
	cfg    config.ChainConfig
	netctx contracts.NetworkContext
}

type AddressLookupResponse struct {
	Address string `json:"address"`
	ChainID uint64 `json:"chainId"`
}

func newAddressHandler(cfg config.ChainConfig, netctx contracts.NetworkContext) *addressHandler {
	return &addressHandler{cfg: cfg, netctx: netctx}
}

func (h *addressHandler) LookupAddress(c *gin.Context) {
	contract := strings.ToLower(strings.TrimSpace(c.Query("contract")))
	switch contract {
	case "savewater", "save_water", "ledger":
		addr, err := contracts.Resolve(contracts.NameSaveWater, h.netctx, h.cfg.SaveWaterAddress)
		if err != nil {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "savewater address not configured"})
			return
		}
		c.JSON(http.StatusOK, AddressLookupResponse{Address: addr.Hex(), ChainID: h.netctx.ChainID})
	case "badge", "savewater_badge", "nft":
		addr, err := contracts.Resolve(contracts.NameBadge, h.netctx, h.cfg.BadgeAddress)
		if err != nil {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "badge address not configured"})
			return
		}
		c.JSON(http.StatusOK, AddressLookupResponse{Address: addr.Hex(), ChainID: h.netctx.ChainID})
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unsupported contract query"})
	}
}
