package handler

import (
	"net/http"

	"ambassador-ledger/internal/middleware"
	"ambassador-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WithdrawalHandler struct {
	withdrawals *service.WithdrawalService
	log         *zap.Logger
}

func NewWithdrawalHandler(withdrawals *service.WithdrawalService, log *zap.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals, log: log}
}

// Create handles POST /ambassador/withdraw.
func (h *WithdrawalHandler) Create(c *gin.Context) {
	var req struct {
		AmountCents    int64  `json:"amount_cents"`
		PaymentMethod  string `json:"payment_method" binding:"required"`
		PaymentDetails string `json:"payment_details" binding:"max=255"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	w, err := h.withdrawals.Create(c.Request.Context(), service.CreateWithdrawalInput{
		UserID:         middleware.GetUserID(c),
		AmountCents:    req.AmountCents,
		PaymentMethod:  req.PaymentMethod,
		PaymentDetails: req.PaymentDetails,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"request": w,
		"message": "Withdrawal request submitted for review",
	})
}

// ListMine handles GET /ambassador/withdrawals.
func (h *WithdrawalHandler) ListMine(c *gin.Context) {
	page, limit := parsePagination(c)
	list, total, err := h.withdrawals.ListMine(c.Request.Context(), middleware.GetUserID(c), page, limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "page": page, "limit": limit})
}

// AdminList handles GET /admin/ambassador/withdrawals.
func (h *WithdrawalHandler) AdminList(c *gin.Context) {
	page, limit := parsePagination(c)
	list, total, err := h.withdrawals.AdminList(c.Request.Context(), c.Query("status"), page, limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "page": page, "limit": limit})
}

// AdminGet handles GET /admin/ambassador/withdrawals/:id.
func (h *WithdrawalHandler) AdminGet(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	v, err := h.withdrawals.AdminGet(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Review handles POST /admin/ambassador/withdrawals/:id/review.
func (h *WithdrawalHandler) Review(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Action string `json:"action" binding:"required"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	w, err := h.withdrawals.Review(c.Request.Context(), actorFrom(c), id, req.Action, req.Notes)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// Complete handles POST /admin/ambassador/withdrawals/:id/complete.
func (h *WithdrawalHandler) Complete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		PaymentReference string `json:"payment_reference"`
		Notes            string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	w, err := h.withdrawals.Complete(c.Request.Context(), actorFrom(c), id, req.PaymentReference, req.Notes)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, w)
}
