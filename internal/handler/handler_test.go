package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ambassador-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", service.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
		{"business rule", service.ErrInsufficientBalance, http.StatusUnprocessableEntity, "insufficient_balance"},
		{"state conflict", service.ErrInvalidStateForAction, http.StatusConflict, "invalid_state_for_action"},
		{"not found", service.ErrRequestNotFound, http.StatusNotFound, "request_not_found"},
		{"forbidden", service.ErrSameReviewer, http.StatusForbidden, "same_reviewer"},
		{"wrapped", fmt.Errorf("create: %w", service.ErrDuplicatePendingRequest), http.StatusUnprocessableEntity, "duplicate_pending_request"},
	}
	for _, tc := range cases {
		t.Run("should map "+tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			writeError(c, zap.NewNop(), tc.err)
			assert.Equal(t, tc.status, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body["code"])
		})
	}

	t.Run("should hide infrastructure errors", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		writeError(c, zap.NewNop(), errors.New("dial tcp 10.0.0.5:3306: connection refused"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "10.0.0.5")
	})
}

func TestParsePagination(t *testing.T) {
	cases := []struct {
		query       string
		page, limit int
	}{
		{"", 1, 20},
		{"?page=3&limit=50", 3, 50},
		{"?page=0&limit=0", 1, 20},
		{"?page=-2&limit=101", 1, 20},
		{"?page=abc&limit=100", 1, 100},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/"+tc.query, nil)
		page, limit := parsePagination(c)
		assert.Equal(t, tc.page, page, tc.query)
		assert.Equal(t, tc.limit, limit, tc.query)
	}
}
