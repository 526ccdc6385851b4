package handler

import (
	"net/http"

	"ambassador-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SettingsHandler struct {
	settings *service.SettingsService
	log      *zap.Logger
}

func NewSettingsHandler(settings *service.SettingsService, log *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, log: log}
}

// Get handles GET /admin/ambassador/settings.
func (h *SettingsHandler) Get(c *gin.Context) {
	ps, err := h.settings.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ps)
}

// Update handles PUT /admin/ambassador/settings. Omitted fields are left as is.
func (h *SettingsHandler) Update(c *gin.Context) {
	var req struct {
		BuildingsPerDollar      *decimal.Decimal `json:"buildings_per_dollar"`
		MinWithdrawalCents      *int64           `json:"min_withdrawal_cents"`
		FinancialRewardsEnabled *bool            `json:"financial_rewards_enabled"`
		RequireTermsAcceptance  *bool            `json:"require_terms_acceptance"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ps, err := h.settings.Update(c.Request.Context(), actorFrom(c), service.SettingsUpdate{
		BuildingsPerDollar:      req.BuildingsPerDollar,
		MinWithdrawalCents:      req.MinWithdrawalCents,
		FinancialRewardsEnabled: req.FinancialRewardsEnabled,
		RequireTermsAcceptance:  req.RequireTermsAcceptance,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ps)
}
