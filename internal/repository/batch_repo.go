package repository

import (
	"errors"
	"fmt"

	"github.com/2ue/total-gmn/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Scope 结算范围 (策略, 账户)
type Scope struct {
	Strategy    model.Strategy `json:"strategy"`
	BillAccount string         `json:"bill_account"`
}

// Key 范围的唯一键
func (s Scope) Key() string {
	return string(s.Strategy) + "|" + s.BillAccount
}

// BatchRepo 结算批次存储
type BatchRepo struct {
	db *gorm.DB
}

// NewBatchRepo 创建结算批次存储
func NewBatchRepo(db *gorm.DB) *BatchRepo {
	return &BatchRepo{db: db}
}

// WithTx 返回绑定到事务的存储
func (r *BatchRepo) WithTx(tx *gorm.DB) *BatchRepo {
	return &BatchRepo{db: tx}
}

// LockScope 在当前事务内对范围加排他锁，仅 postgres 生效；
// 进程内互斥由调用方保证
func (r *BatchRepo) LockScope(scope Scope) error {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := r.db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "settlement:"+scope.Key()).Error; err != nil {
		return fmt.Errorf("获取结算范围锁失败: %w", err)
	}
	return nil
}

// GetEffective 获取范围内当前生效批次，没有时返回 nil
func (r *BatchRepo) GetEffective(scope Scope) (*model.SettlementBatchModel, error) {
	var batch model.SettlementBatchModel
	err := r.db.Where("strategy = ? AND bill_account = ? AND is_effective = ?", scope.Strategy, scope.BillAccount, true).
		Order("id DESC").
		First(&batch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("获取生效结算批次失败: %w", err)
	}
	return &batch, nil
}

// GetBatch 获取批次及其分配明细
func (r *BatchRepo) GetBatch(id int64) (*model.SettlementBatchModel, error) {
	var batch model.SettlementBatchModel
	if err := r.db.Preload("Allocations", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).First(&batch, id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

// ListBatches 按结算时间倒序列出批次，strategy/billAccount 为 nil 时不过滤
func (r *BatchRepo) ListBatches(strategy *model.Strategy, billAccount *string) ([]model.SettlementBatchModel, error) {
	q := r.db.Model(&model.SettlementBatchModel{})
	if strategy != nil {
		q = q.Where("strategy = ?", *strategy)
	}
	if billAccount != nil {
		q = q.Where("bill_account = ?", *billAccount)
	}

	var batches []model.SettlementBatchModel
	if err := q.Preload("Allocations", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Order("settlement_time DESC, id DESC").Find(&batches).Error; err != nil {
		return nil, fmt.Errorf("获取结算批次列表失败: %w", err)
	}
	return batches, nil
}

// BatchNoExists 批次号是否已被占用
func (r *BatchRepo) BatchNoExists(batchNo string) (bool, error) {
	var n int64
	if err := r.db.Model(&model.SettlementBatchModel{}).Where("batch_no = ?", batchNo).Count(&n).Error; err != nil {
		return false, fmt.Errorf("检查批次号失败: %w", err)
	}
	return n > 0, nil
}

// DemoteEffective 把范围内所有生效批次置为失效
func (r *BatchRepo) DemoteEffective(scope Scope) error {
	if err := r.db.Model(&model.SettlementBatchModel{}).
		Where("strategy = ? AND bill_account = ? AND is_effective = ?", scope.Strategy, scope.BillAccount, true).
		Update("is_effective", false).Error; err != nil {
		return fmt.Errorf("更新批次生效状态失败: %w", err)
	}
	return nil
}

// CreateBatch 写入批次及其分配明细
func (r *BatchRepo) CreateBatch(batch *model.SettlementBatchModel) error {
	allocations := batch.Allocations
	batch.Allocations = nil
	if err := r.db.Create(batch).Error; err != nil {
		return fmt.Errorf("写入结算批次失败: %w", err)
	}

	for i := range allocations {
		allocations[i].BatchId = batch.Id
	}
	if len(allocations) > 0 {
		if err := r.db.Create(&allocations).Error; err != nil {
			return fmt.Errorf("写入结算分配失败: %w", err)
		}
	}
	batch.Allocations = allocations
	return nil
}

// PreviousHeld 汇总范围内历史批次中各账户已计的留存金额
func (r *BatchRepo) PreviousHeld(scope Scope) (map[string]decimal.Decimal, error) {
	var rows []model.SettlementAllocationModel
	if err := r.db.Model(&model.SettlementAllocationModel{}).
		Joins("JOIN settlement_batch ON settlement_batch.id = settlement_allocation.batch_id").
		Where("settlement_batch.strategy = ? AND settlement_batch.bill_account = ?", scope.Strategy, scope.BillAccount).
		Where("settlement_allocation.participant_bill_account <> ''").
		Select("settlement_allocation.participant_bill_account, settlement_allocation.account_held_amount").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("汇总历史账户留存失败: %w", err)
	}

	held := make(map[string]decimal.Decimal)
	for _, row := range rows {
		prev, ok := held[row.ParticipantBillAccount]
		if !ok {
			prev = decimal.Zero
		}
		held[row.ParticipantBillAccount] = prev.Add(row.AccountHeldAmount)
	}
	return held, nil
}

// Scopes 列出存在批次的所有范围
func (r *BatchRepo) Scopes() ([]Scope, error) {
	var scopes []Scope
	if err := r.db.Model(&model.SettlementBatchModel{}).
		Distinct("strategy", "bill_account").
		Order("strategy, bill_account").
		Scan(&scopes).Error; err != nil {
		return nil, fmt.Errorf("获取结算范围失败: %w", err)
	}
	return scopes, nil
}
