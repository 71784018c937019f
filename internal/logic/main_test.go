package logic

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/2ue/total-gmn/internal/config"
	"github.com/2ue/total-gmn/internal/database"
	"github.com/2ue/total-gmn/internal/model"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var day0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func testSettlementConfig() config.SettlementConfig {
	return config.SettlementConfig{
		DeductRefundExpense: true,
		DefaultStrategy:     "cumulative",
		StampChunkSize:      2,
		HeldNudgeTolerance:  "0.05",
		TimeZone:            "UTC",
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string {
	return &s
}

func at(day int) time.Time {
	return day0.AddDate(0, 0, day)
}

func ledgerTx(day int, account string, category model.Category, direction model.Direction, status, amount string) model.TransactionModel {
	return model.TransactionModel{
		TransactionTime: at(day),
		BillAccount:     account,
		Category:        category,
		Direction:       direction,
		Status:          status,
		Amount:          dec(amount),
	}
}

func seedTransactions(t *testing.T, db *gorm.DB, txs ...model.TransactionModel) []model.TransactionModel {
	t.Helper()
	require.NoError(t, NewTransactionLogic(db).ImportTransactions(txs))
	return txs
}

func seedParticipants(t *testing.T, db *gorm.DB) []model.ParticipantModel {
	t.Helper()
	saved, err := NewParticipantLogic(db).SaveParticipants([]model.ParticipantModel{
		{Name: "甲", BillAccount: strPtr("acc-a"), Ratio: dec("0.6")},
		{Name: "乙", Ratio: dec("0.4")},
	})
	require.NoError(t, err)
	return saved
}
