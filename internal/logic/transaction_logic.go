package logic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/2ue/total-gmn/internal/logger"
	"github.com/2ue/total-gmn/internal/model"
	"github.com/2ue/total-gmn/internal/money"
	"github.com/2ue/total-gmn/internal/repository"
	"gorm.io/gorm"
)

// TransactionLogic 账单交易业务逻辑
type TransactionLogic struct {
	db *gorm.DB
}

// NewTransactionLogic 创建账单交易业务逻辑
func NewTransactionLogic(db *gorm.DB) *TransactionLogic {
	return &TransactionLogic{db: db}
}

// ImportTransactions 写入已分类交易，在边界处一次性校验
func (t *TransactionLogic) ImportTransactions(txs []model.TransactionModel) error {
	if len(txs) == 0 {
		return validationf("导入的交易不能为空")
	}
	for i := range txs {
		if err := t.validateTransaction(&txs[i], i); err != nil {
			return err
		}
	}

	if err := repository.NewLedgerRepo(t.db).CreateTransactions(txs); err != nil {
		return err
	}
	logger.Info("Imported %d classified transactions", len(txs))
	return nil
}

// ListTransactions 分页查询交易
func (t *TransactionLogic) ListTransactions(filter repository.TransactionFilter) ([]model.TransactionModel, int64, error) {
	ledger := repository.NewLedgerRepo(t.db)
	total, err := ledger.CountTransactions(filter)
	if err != nil {
		return nil, 0, err
	}
	txs, err := ledger.FindTransactions(filter)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// DeleteTransaction 删除交易，已增量结算的交易拒绝删除
func (t *TransactionLogic) DeleteTransaction(id int64) error {
	ledger := repository.NewLedgerRepo(t.db)
	tx, err := ledger.GetTransaction(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: 交易 %d", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("获取交易失败: %w", err)
	}
	if tx.IsIncrementalSettled() {
		return conflictf("交易 %d 已被增量结算，不可删除", id)
	}

	if err := ledger.DeleteTransaction(id); err != nil {
		if errors.Is(err, repository.ErrSettledTransaction) {
			return conflictf("交易 %d 已被增量结算，不可删除", id)
		}
		return err
	}
	return nil
}

// UpdateCategory 批量修改分类，任何一笔已结算则整体拒绝
func (t *TransactionLogic) UpdateCategory(ids []int64, category model.Category, direction model.Direction) error {
	ids = uniqueIds(ids)
	if len(ids) == 0 {
		return validationf("交易 id 不能为空")
	}
	if !category.Valid() {
		return validationf("无效的交易分类: %s", category)
	}
	if direction != "" && !direction.Valid() {
		return validationf("无效的收支方向: %s", direction)
	}

	return t.db.Transaction(func(tx *gorm.DB) error {
		ledger := repository.NewLedgerRepo(tx)
		settled, err := ledger.CountSettled(ids)
		if err != nil {
			return err
		}
		if settled > 0 {
			return conflictf("%d 笔交易已被增量结算，不可修改分类", settled)
		}

		updated, err := ledger.UpdateCategory(ids, category, direction)
		if err != nil {
			return err
		}
		if updated != int64(len(ids)) {
			return fmt.Errorf("%w: 期望修改 %d 笔交易，实际 %d 笔", ErrNotFound, len(ids), updated)
		}
		return nil
	})
}

func (t *TransactionLogic) validateTransaction(tx *model.TransactionModel, i int) error {
	if tx.TransactionTime.IsZero() {
		return validationf("第 %d 笔交易缺少交易时间", i+1)
	}
	if !tx.Category.Valid() {
		return validationf("第 %d 笔交易分类无效: %s", i+1, tx.Category)
	}
	if !tx.Direction.Valid() {
		return validationf("第 %d 笔交易方向无效: %s", i+1, tx.Direction)
	}
	tx.Amount = money.Round2(tx.Amount)
	if tx.Amount.IsNegative() {
		return validationf("第 %d 笔交易金额不能为负数", i+1)
	}
	tx.BillAccount = strings.TrimSpace(tx.BillAccount)
	if tx.Category == model.CategoryInternalTransfer {
		tx.InternalTransfer = true
	}
	// 结算标记只能由结算批次写入
	tx.Id = 0
	tx.IncrementalSettledAt = nil
	tx.IncrementalSettlementBatchId = nil
	return nil
}

func uniqueIds(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id <= 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
