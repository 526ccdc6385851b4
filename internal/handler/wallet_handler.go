package handler

import (
	"net/http"

	"ambassador-ledger/internal/middleware"
	"ambassador-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WalletHandler struct {
	wallets *service.WalletService
	log     *zap.Logger
}

func NewWalletHandler(wallets *service.WalletService, log *zap.Logger) *WalletHandler {
	return &WalletHandler{wallets: wallets, log: log}
}

// Get handles GET /ambassador/wallet.
func (h *WalletHandler) Get(c *gin.Context) {
	snap, err := h.wallets.GetWallet(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// AcceptTerms handles POST /ambassador/wallet/terms.
func (h *WalletHandler) AcceptTerms(c *gin.Context) {
	w, err := h.wallets.AcceptTerms(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"terms_accepted_at": w.TermsAcceptedAt})
}

// Floors handles GET /ambassador/floors.
func (h *WalletHandler) Floors(c *gin.Context) {
	a, err := h.wallets.Floors(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"floors":                  a,
		"floors_to_next_building": a.FloorsToNextBuilding(),
	})
}
