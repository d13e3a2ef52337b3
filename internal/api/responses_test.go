package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"becard/internal/apperr"
	"becard/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.NotFound("SESSION_NOT_FOUND", "session not found"), http.StatusNotFound},
		{apperr.Conflict("ALREADY_ASSIGNED", "card already assigned"), http.StatusConflict},
		{apperr.InvalidState("ALREADY_COMPLETED", "done"), http.StatusConflict},
		{apperr.InsufficientFunds("balance too low"), http.StatusPaymentRequired},
		{apperr.Validation("INVALID_AMOUNT", "amount must be positive"), http.StatusBadRequest},
		{apperr.UserRequired("no payer"), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", apperr.NotFound("X", "x")), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("typed error carries code", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/cards/bind", nil)

		RespondError(c, fmt.Errorf("bind: %w", apperr.Conflict("WRONG_TENANT", "card belongs to another tenant")))

		assert.Equal(t, http.StatusConflict, w.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "WRONG_TENANT", body.Code)
		assert.Equal(t, "card belongs to another tenant", body.Error)
	})

	t.Run("contention that outlasts retries is a conflict", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/device/sessions", nil)

		err := db.Retry(context.Background(), 3, func() error {
			return fmt.Errorf("insert session: %w", db.ErrUniqueViolation)
		})
		RespondError(c, err)

		assert.Equal(t, http.StatusConflict, w.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "CONCURRENT_UPDATE", body.Code)
	})

	t.Run("internal error is not leaked", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/wallet", nil)

		RespondError(c, errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
	})
}

func TestRespondBindError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	type topup struct {
		Amount int `json:"amount" binding:"required,gt=0"`
	}

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "failed tag", body: `{"amount":-5}`, want: "invalid field Amount: gt"},
		{name: "malformed json", body: `{"amount":`, want: "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/wallet/topup", strings.NewReader(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var req topup
			err := c.ShouldBindJSON(&req)
			require.Error(t, err)
			RespondBindError(c, err)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.Error)
			assert.Equal(t, "VALIDATION_ERROR", body.Code)
		})
	}
}
