package handler

import (
	"net/http"
	"strconv"

	"ambassador-ledger/internal/middleware"
	"ambassador-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ConsumptionHandler struct {
	consumptions *service.ConsumptionService
	log          *zap.Logger
}

func NewConsumptionHandler(consumptions *service.ConsumptionService, log *zap.Logger) *ConsumptionHandler {
	return &ConsumptionHandler{consumptions: consumptions, log: log}
}

// ListMine handles GET /ambassador/consumptions.
func (h *ConsumptionHandler) ListMine(c *gin.Context) {
	h.list(c, middleware.GetUserID(c))
}

// AdminList handles GET /admin/ambassador/consumptions?user_id=.
func (h *ConsumptionHandler) AdminList(c *gin.Context) {
	id, err := strconv.ParseUint(c.Query("user_id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	h.list(c, uint(id))
}

func (h *ConsumptionHandler) list(c *gin.Context, uid uint) {
	page, limit := parsePagination(c)
	list, total, err := h.consumptions.ListByUser(c.Request.Context(), uid, page, limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "page": page, "limit": limit})
}

// Redeem handles POST /admin/ambassador/consumptions.
func (h *ConsumptionHandler) Redeem(c *gin.Context) {
	var req struct {
		UserID     uint   `json:"user_id" binding:"required"`
		RewardType string `json:"reward_type" binding:"required,max=50"`
		Floors     int64  `json:"floors"`
		Notes      string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := h.consumptions.Redeem(c.Request.Context(), actorFrom(c), service.RedeemInput{
		UserID:     req.UserID,
		RewardType: req.RewardType,
		Floors:     req.Floors,
		Notes:      req.Notes,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}
