package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/2ue/total-gmn/internal/config"
	"github.com/2ue/total-gmn/internal/database"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := &config.Config{
		Settlement: config.SettlementConfig{
			DeductRefundExpense: true,
			DefaultStrategy:     "cumulative",
			StampChunkSize:      100,
			HeldNudgeTolerance:  "0.05",
			TimeZone:            "UTC",
		},
	}
	return Setup(db, cfg)
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func seed(t *testing.T, r *gin.Engine) {
	t.Helper()
	w, _ := do(t, r, http.MethodPut, "/api/v1/participants", gin.H{
		"participants": []gin.H{
			{"name": "甲", "billAccount": "acc-a", "ratio": "0.6"},
			{"name": "乙", "ratio": "0.4"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = do(t, r, http.MethodPost, "/api/v1/transactions", gin.H{
		"transactions": []gin.H{
			{"transactionTime": "2024-03-01 10:00:00", "billAccount": "acc-a", "category": "main-income", "direction": "income", "status": "交易成功", "amount": "1000"},
			{"transactionTime": "2024-03-02 10:00:00", "billAccount": "acc-b", "category": "main-income", "direction": "income", "status": "交易成功", "amount": "500"},
			{"transactionTime": "2024-03-03 10:00:00", "billAccount": "acc-a", "category": "traffic-cost", "direction": "expense", "status": "交易成功", "amount": "100"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)
	w, _ := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDPassthrough(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestSettlementFlow(t *testing.T) {
	r := newTestRouter(t)
	seed(t, r)

	w, env := do(t, r, http.MethodGet, "/api/v1/settlements/preview?settlementTime=2024-03-05&strategy=cumulative", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var preview map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &preview))
	assert.Equal(t, "1400.00", preview["paidAmount"])
	assert.Equal(t, "0.00", preview["carryRatio"])
	allocations := preview["allocations"].([]interface{})
	require.Len(t, allocations, 2)
	assert.Equal(t, "840.00", allocations[0].(map[string]interface{})["amount"])
	assert.Equal(t, "0.600000", allocations[0].(map[string]interface{})["ratio"])

	w, env = do(t, r, http.MethodPost, "/api/v1/settlements", gin.H{
		"settlementTime": "2024-03-05",
		"carryRatio":     "0.1",
		"note":           "首期",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var batch map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &batch))
	assert.Equal(t, "cumulative", batch["strategy"])
	assert.Equal(t, "1260.00", batch["paidAmount"])
	assert.Equal(t, "140.00", batch["carryForwardAmount"])
	assert.Equal(t, true, batch["isEffective"])
	assert.Regexp(t, `^SB\d{14}[0-9a-z]{4}$`, batch["batchNo"])
	id := int64(batch["id"].(float64))

	w, env = do(t, r, http.MethodGet, "/api/v1/settlements?strategy=cumulative", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)

	w, _ = do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/settlements/%d", id), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/settlements/%d", id), nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/settlements/404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSettlementValidation(t *testing.T) {
	r := newTestRouter(t)

	w, _ := do(t, r, http.MethodGet, "/api/v1/settlements/preview?settlementTime=2024-03-05", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/settlements/preview?settlementTime=soon&strategy=cumulative", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/settlements/preview?settlementTime=2024-03-05&strategy=weekly", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/v1/settlements", gin.H{"strategy": "cumulative"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 没有参与人时不能创建批次
	w, _ = do(t, r, http.MethodPost, "/api/v1/settlements", gin.H{"settlementTime": "2024-03-05"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestParticipantInvariants(t *testing.T) {
	r := newTestRouter(t)

	w, _ := do(t, r, http.MethodPut, "/api/v1/participants", gin.H{
		"participants": []gin.H{
			{"name": "甲", "ratio": "0.5"},
			{"name": "乙", "ratio": "0.4"},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, env := do(t, r, http.MethodGet, "/api/v1/participants", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestTransactionEndpoints(t *testing.T) {
	r := newTestRouter(t)
	seed(t, r)

	w, env := do(t, r, http.MethodGet, "/api/v1/transactions?billAccount=acc-a&page=1&pageSize=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Transactions []map[string]interface{} `json:"transactions"`
		Pagination   struct {
			Total     int64 `json:"total"`
			TotalPage int64 `json:"totalPage"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, int64(2), page.Pagination.Total)
	assert.Equal(t, int64(2), page.Pagination.TotalPage)
	assert.Equal(t, "1000.00", page.Transactions[0]["amount"])
	firstID := int64(page.Transactions[0]["id"].(float64))

	w, _ = do(t, r, http.MethodPost, "/api/v1/settlements", gin.H{
		"settlementTime": "2024-03-01 23:00:00",
		"strategy":       "incremental",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = do(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/transactions/%d", firstID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = do(t, r, http.MethodPatch, "/api/v1/transactions/category", gin.H{
		"ids":      []int64{firstID},
		"category": "other",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = do(t, r, http.MethodDelete, "/api/v1/transactions/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/v1/transactions", gin.H{
		"transactions": []gin.H{{"transactionTime": "2024-03-01", "category": "salary", "direction": "income", "amount": "1"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfitSummaryEndpoint(t *testing.T) {
	r := newTestRouter(t)
	seed(t, r)

	w, env := do(t, r, http.MethodGet, "/api/v1/profit/summary?end=2024-03-02", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, "1500.00", summary["pureProfit"])
	assert.Equal(t, "1500.00", summary["settledIncome"])
	assert.Equal(t, false, summary["includeClosedNet"])

	w, _ = do(t, r, http.MethodGet, "/api/v1/profit/summary?start=2024-03-05&end=2024-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
