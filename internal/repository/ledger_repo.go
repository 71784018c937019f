package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/2ue/total-gmn/internal/model"
	"gorm.io/gorm"
)

// ErrSettledTransaction 交易已被增量结算，不可修改或删除
var ErrSettledTransaction = errors.New("transaction already incrementally settled")

// TransactionFilter 账单交易查询条件
type TransactionFilter struct {
	Start         *time.Time
	End           *time.Time
	BillAccount   string
	Categories    []model.Category
	Direction     model.Direction
	Status        string
	UnsettledOnly bool
	Limit         int
	Offset        int
}

// LedgerRepo 账单交易存储
type LedgerRepo struct {
	db *gorm.DB
}

// NewLedgerRepo 创建账单交易存储
func NewLedgerRepo(db *gorm.DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

// WithTx 返回绑定到事务的存储
func (r *LedgerRepo) WithTx(tx *gorm.DB) *LedgerRepo {
	return &LedgerRepo{db: tx}
}

func (r *LedgerRepo) query(filter TransactionFilter) *gorm.DB {
	q := r.db.Model(&model.TransactionModel{})
	if filter.Start != nil {
		q = q.Where("transaction_time >= ?", *filter.Start)
	}
	if filter.End != nil {
		q = q.Where("transaction_time <= ?", *filter.End)
	}
	if filter.BillAccount != "" {
		q = q.Where("bill_account = ?", filter.BillAccount)
	}
	if len(filter.Categories) > 0 {
		q = q.Where("category IN ?", filter.Categories)
	}
	if filter.Direction != "" {
		q = q.Where("direction = ?", filter.Direction)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.UnsettledOnly {
		q = q.Where("incremental_settled_at IS NULL")
	}
	return q
}

// FindTransactions 按条件查询交易，按交易时间、id 升序
func (r *LedgerRepo) FindTransactions(filter TransactionFilter) ([]model.TransactionModel, error) {
	var txs []model.TransactionModel
	q := r.query(filter).Order("transaction_time ASC, id ASC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := q.Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("查询账单交易失败: %w", err)
	}
	return txs, nil
}

// CountTransactions 按条件统计交易数
func (r *LedgerRepo) CountTransactions(filter TransactionFilter) (int64, error) {
	var total int64
	if err := r.query(filter).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("统计账单交易失败: %w", err)
	}
	return total, nil
}

// GetTransaction 根据 id 获取交易
func (r *LedgerRepo) GetTransaction(id int64) (*model.TransactionModel, error) {
	var tx model.TransactionModel
	if err := r.db.First(&tx, id).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

// CreateTransactions 批量写入已分类交易
func (r *LedgerRepo) CreateTransactions(txs []model.TransactionModel) error {
	if len(txs) == 0 {
		return nil
	}
	if err := r.db.CreateInBatches(txs, 200).Error; err != nil {
		return fmt.Errorf("写入账单交易失败: %w", err)
	}
	return nil
}

// StampSettled 把交易标记为已被指定批次增量结算，按 chunkSize 分批执行。
// 任意一批命中行数不足（已被其他批次标记）即返回 ErrSettledTransaction。
func (r *LedgerRepo) StampSettled(ids []int64, batchId int64, settledAt time.Time, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		result := r.db.Model(&model.TransactionModel{}).
			Where("id IN ? AND incremental_settled_at IS NULL", chunk).
			Updates(map[string]interface{}{
				"incremental_settled_at":          settledAt,
				"incremental_settlement_batch_id": batchId,
			})
		if result.Error != nil {
			return fmt.Errorf("标记增量结算失败: %w", result.Error)
		}
		if result.RowsAffected != int64(len(chunk)) {
			return fmt.Errorf("%w: 期望标记 %d 条，实际 %d 条", ErrSettledTransaction, len(chunk), result.RowsAffected)
		}
	}
	return nil
}

// DeleteTransaction 删除未结算交易
func (r *LedgerRepo) DeleteTransaction(id int64) error {
	result := r.db.Where("id = ? AND incremental_settled_at IS NULL", id).Delete(&model.TransactionModel{})
	if result.Error != nil {
		return fmt.Errorf("删除账单交易失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSettledTransaction
	}
	return nil
}

// UpdateCategory 批量修改交易分类，仅作用于未结算交易
func (r *LedgerRepo) UpdateCategory(ids []int64, category model.Category, direction model.Direction) (int64, error) {
	updates := map[string]interface{}{"category": category}
	if direction != "" {
		updates["direction"] = direction
	}
	result := r.db.Model(&model.TransactionModel{}).
		Where("id IN ? AND incremental_settled_at IS NULL", ids).
		Updates(updates)
	if result.Error != nil {
		return 0, fmt.Errorf("修改交易分类失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountSettled 统计给定 id 中已被增量结算的条数
func (r *LedgerRepo) CountSettled(ids []int64) (int64, error) {
	var n int64
	if err := r.db.Model(&model.TransactionModel{}).
		Where("id IN ? AND incremental_settled_at IS NOT NULL", ids).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("统计已结算交易失败: %w", err)
	}
	return n, nil
}
