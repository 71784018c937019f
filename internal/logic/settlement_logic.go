package logic

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/2ue/total-gmn/internal/config"
	"github.com/2ue/total-gmn/internal/logger"
	"github.com/2ue/total-gmn/internal/model"
	"github.com/2ue/total-gmn/internal/money"
	"github.com/2ue/total-gmn/internal/profit"
	"github.com/2ue/total-gmn/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	batchNoAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	batchNoAttempts = 5
)

// PreviewRequest 结算预览参数
type PreviewRequest struct {
	SettlementTime time.Time
	Strategy       model.Strategy
	BillAccount    string
	CarryRatio     *decimal.Decimal // 为空时使用配置默认值
}

// CreateRequest 创建结算批次参数
type CreateRequest struct {
	PreviewRequest
	Note string
}

// PreviewResult 结算预览结果，不落库
type PreviewResult struct {
	Strategy                    model.Strategy
	BillAccount                 string
	SettlementTime              time.Time
	CarryRatio                  decimal.Decimal
	PeriodNetAmount             decimal.Decimal
	PreviousCumulativeNetAmount decimal.Decimal
	PreviousCarryForwardAmount  decimal.Decimal
	CumulativeNetAmount         decimal.Decimal
	SettledBaseAmount           decimal.Decimal
	DistributableAmount         decimal.Decimal
	PaidAmount                  decimal.Decimal
	CarryForwardAmount          decimal.Decimal
	CumulativeSettledAmount     decimal.Decimal
	PreviousBatchId             *int64
	CandidateCount              int
	Summary                     profit.Summary
	Allocations                 []profit.Allocation

	candidateIds []int64
	participants int
}

// SettlementLogic 结算批次业务逻辑
type SettlementLogic struct {
	db    *gorm.DB
	cfg   config.SettlementConfig
	loc   *time.Location
	locks *scopeLocks
	now   func() time.Time
}

// NewSettlementLogic 创建结算批次业务逻辑
func NewSettlementLogic(db *gorm.DB, cfg config.SettlementConfig) *SettlementLogic {
	return &SettlementLogic{
		db:    db,
		cfg:   cfg,
		loc:   LoadLocation(cfg.TimeZone),
		locks: newScopeLocks(),
		now:   time.Now,
	}
}

// Location 解析结算时间使用的时区
func (s *SettlementLogic) Location() *time.Location {
	return s.loc
}

// DefaultStrategy 配置的默认结算策略
func (s *SettlementLogic) DefaultStrategy() model.Strategy {
	if st := model.Strategy(s.cfg.DefaultStrategy); st.Valid() {
		return st
	}
	return model.StrategyCumulative
}

// Policy 读取一次口径开关，同一次计算内保持不变
func (s *SettlementLogic) Policy() profit.Policy {
	return PolicyFrom(s.cfg)
}

func (s *SettlementLogic) nudgeTolerance() decimal.Decimal {
	if s.cfg.HeldNudgeTolerance == "" {
		return profit.DefaultHeldNudgeTolerance
	}
	d, err := decimal.NewFromString(s.cfg.HeldNudgeTolerance)
	if err != nil || d.IsNegative() {
		return profit.DefaultHeldNudgeTolerance
	}
	return d
}

func (s *SettlementLogic) validateRequest(req *PreviewRequest) error {
	if req.SettlementTime.IsZero() {
		return validationf("结算时间不能为空")
	}
	if !req.Strategy.Valid() {
		return validationf("无效的结算策略: %s", req.Strategy)
	}
	return nil
}

func (s *SettlementLogic) carryRatio(req *PreviewRequest) decimal.Decimal {
	if req.CarryRatio != nil {
		return *req.CarryRatio
	}
	return decimal.NewFromFloat(s.cfg.DefaultCarryRatio)
}

// Preview 计算结算预览，只读
func (s *SettlementLogic) Preview(req PreviewRequest) (*PreviewResult, error) {
	if err := s.validateRequest(&req); err != nil {
		return nil, err
	}

	result, err := s.resolve(s.db, req, s.Policy())
	if err != nil {
		return nil, err
	}
	if err := validatePreview(result); err != nil {
		return nil, err
	}
	return result, nil
}

// resolve 结算口径解析 -> 派发计算 -> 分配计算
func (s *SettlementLogic) resolve(db *gorm.DB, req PreviewRequest, policy profit.Policy) (*PreviewResult, error) {
	ledger := repository.NewLedgerRepo(db)
	batches := repository.NewBatchRepo(db)
	scope := repository.Scope{Strategy: req.Strategy, BillAccount: req.BillAccount}

	effective, err := batches.GetEffective(scope)
	if err != nil {
		return nil, err
	}

	result := &PreviewResult{
		Strategy:                    req.Strategy,
		BillAccount:                 req.BillAccount,
		SettlementTime:              req.SettlementTime,
		PreviousCumulativeNetAmount: decimal.Zero,
		SettledBaseAmount:           decimal.Zero,
	}
	if effective != nil {
		id := effective.Id
		result.PreviousBatchId = &id
		result.PreviousCumulativeNetAmount = effective.CumulativeNetAmount
		result.SettledBaseAmount = effective.CumulativeSettledAmount
	}
	result.PreviousCarryForwardAmount = money.Round2(result.PreviousCumulativeNetAmount.Sub(result.SettledBaseAmount))

	end := req.SettlementTime
	all, err := ledger.FindTransactions(repository.TransactionFilter{End: &end})
	if err != nil {
		return nil, err
	}

	filter := profit.Filter{End: &end, BillAccount: req.BillAccount}
	result.Summary = profit.Aggregate(all, filter, policy)
	result.CumulativeNetAmount = result.Summary.PureProfit()

	switch req.Strategy {
	case model.StrategyCumulative:
		result.PeriodNetAmount = money.Round2(result.CumulativeNetAmount.Sub(result.PreviousCumulativeNetAmount))
	case model.StrategyIncremental:
		unsettled, err := ledger.FindTransactions(repository.TransactionFilter{
			End:           &end,
			BillAccount:   req.BillAccount,
			UnsettledOnly: true,
		})
		if err != nil {
			return nil, err
		}
		scan := profit.ScanIncremental(unsettled, filter, policy)
		result.PeriodNetAmount = scan.NetAmount
		result.candidateIds = scan.CandidateIds
		result.CandidateCount = len(scan.CandidateIds)
	}

	payout := profit.CalculatePayout(result.CumulativeNetAmount, result.SettledBaseAmount, s.carryRatio(&req))
	result.CarryRatio = payout.CarryRatio
	result.DistributableAmount = payout.DistributableAmount
	result.PaidAmount = payout.PaidAmount
	result.CarryForwardAmount = payout.CarryForwardAmount
	result.CumulativeSettledAmount = payout.CumulativeSettledAmount

	participants, err := repository.NewParticipantRepo(db).List()
	if err != nil {
		return nil, err
	}
	previousHeld, err := batches.PreviousHeld(scope)
	if err != nil {
		return nil, err
	}

	result.participants = len(participants)
	result.Allocations = profit.Allocate(profit.AllocationInput{
		Participants:   participants,
		PaidAmount:     result.PaidAmount,
		CumulativeBase: result.CumulativeSettledAmount,
		AccountNets:    scopedAccountNets(all, participants, req, policy),
		PreviousHeld:   previousHeld,
		NudgeTolerance: s.nudgeTolerance(),
	})
	return result, nil
}

// scopedAccountNets 绑定账户截至结算时点的纯利润；指定了账户范围时其他账户贡献为0
func scopedAccountNets(all []model.TransactionModel, participants []model.ParticipantModel, req PreviewRequest, policy profit.Policy) map[string]decimal.Decimal {
	accounts := make([]string, 0, len(participants))
	for _, p := range participants {
		if a := p.BoundAccount(); a != "" && (req.BillAccount == "" || a == req.BillAccount) {
			accounts = append(accounts, a)
		}
	}
	return profit.AccountNets(all, accounts, req.SettlementTime, policy)
}

// validatePreview 校验计算结果必填字段齐全
func validatePreview(r *PreviewResult) error {
	if r == nil {
		return validationf("结算预览结果为空")
	}
	if !r.Strategy.Valid() || r.SettlementTime.IsZero() {
		return validationf("结算预览结果缺少策略或结算时间")
	}
	if r.Allocations == nil || len(r.Allocations) != r.participants {
		return validationf("结算预览结果缺少分配明细")
	}
	return nil
}

// Create 在单个事务内重新计算并落库：置旧批次失效、写入新批次和分配、增量策略下标记交易
func (s *SettlementLogic) Create(req CreateRequest) (*model.SettlementBatchModel, error) {
	if err := s.validateRequest(&req.PreviewRequest); err != nil {
		return nil, err
	}

	scope := repository.Scope{Strategy: req.Strategy, BillAccount: req.BillAccount}
	unlock := s.locks.lock(scope.Key())
	defer unlock()

	policy := s.Policy()
	var batchId int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		batches := repository.NewBatchRepo(tx)
		if err := batches.LockScope(scope); err != nil {
			return err
		}

		result, err := s.resolve(tx, req.PreviewRequest, policy)
		if err != nil {
			return err
		}
		if err := validatePreview(result); err != nil {
			return err
		}
		if result.participants == 0 {
			return invariantf("尚未配置利润分配参与人")
		}

		batchNo, err := s.uniqueBatchNo(batches)
		if err != nil {
			return err
		}

		if err := batches.DemoteEffective(scope); err != nil {
			return err
		}

		batch := newBatch(result, batchNo, req.Note)
		if err := batches.CreateBatch(batch); err != nil {
			return err
		}
		batchId = batch.Id

		if req.Strategy == model.StrategyIncremental && len(result.candidateIds) > 0 {
			err := repository.NewLedgerRepo(tx).StampSettled(result.candidateIds, batch.Id, s.now(), s.cfg.StampChunkSize)
			if errors.Is(err, repository.ErrSettledTransaction) {
				return conflictf("部分交易已被其他批次结算: %v", err)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to create settlement batch for scope %s: %v", scope.Key(), err)
		return nil, err
	}

	batch, err := repository.NewBatchRepo(s.db).GetBatch(batchId)
	if err != nil {
		return nil, fmt.Errorf("读取结算批次失败: %w", err)
	}
	logger.Info("Created settlement batch %s scope=%s paid=%s carry=%s cumulative_settled=%s",
		batch.BatchNo, scope.Key(), money.FormatAmount(batch.PaidAmount),
		money.FormatAmount(batch.CarryForwardAmount), money.FormatAmount(batch.CumulativeSettledAmount))
	return batch, nil
}

func newBatch(r *PreviewResult, batchNo, note string) *model.SettlementBatchModel {
	batch := &model.SettlementBatchModel{
		BatchNo:                    batchNo,
		Strategy:                   r.Strategy,
		BillAccount:                r.BillAccount,
		SettlementTime:             r.SettlementTime,
		CarryRatio:                 r.CarryRatio,
		PeriodNetAmount:            r.PeriodNetAmount,
		PreviousCarryForwardAmount: r.PreviousCarryForwardAmount,
		CumulativeNetAmount:        r.CumulativeNetAmount,
		SettledBaseAmount:          r.SettledBaseAmount,
		DistributableAmount:        r.DistributableAmount,
		PaidAmount:                 r.PaidAmount,
		CarryForwardAmount:         r.CarryForwardAmount,
		CumulativeSettledAmount:    r.CumulativeSettledAmount,
		Note:                       note,
		IsEffective:                true,
	}
	for _, a := range r.Allocations {
		batch.Allocations = append(batch.Allocations, model.SettlementAllocationModel{
			ParticipantId:          a.ParticipantId,
			ParticipantName:        a.ParticipantName,
			ParticipantBillAccount: a.ParticipantBillAccount,
			Ratio:                  a.Ratio,
			Amount:                 a.Amount,
			AccountHeldAmount:      a.AccountHeldAmount,
			ActualTransferAmount:   a.ActualTransferAmount,
			Note:                   a.Note,
		})
	}
	return batch
}

func (s *SettlementLogic) uniqueBatchNo(batches *repository.BatchRepo) (string, error) {
	for i := 0; i < batchNoAttempts; i++ {
		no, err := GenerateBatchNo(s.now().In(s.loc))
		if err != nil {
			return "", err
		}
		exists, err := batches.BatchNoExists(no)
		if err != nil {
			return "", err
		}
		if !exists {
			return no, nil
		}
		logger.Warn("Batch number %s collided, regenerating", no)
	}
	return "", conflictf("生成批次号失败，请重试")
}

// GenerateBatchNo 生成批次号：SB + 年月日时分秒 + 4位36进制随机串
func GenerateBatchNo(t time.Time) (string, error) {
	suffix := make([]byte, 4)
	max := big.NewInt(int64(len(batchNoAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("生成随机批次号失败: %w", err)
		}
		suffix[i] = batchNoAlphabet[n.Int64()]
	}
	return "SB" + t.Format("20060102150405") + string(suffix), nil
}

// ListBatches 列出批次（含分配明细），按结算时间倒序
func (s *SettlementLogic) ListBatches(strategy *model.Strategy, billAccount *string) ([]model.SettlementBatchModel, error) {
	if strategy != nil && !strategy.Valid() {
		return nil, validationf("无效的结算策略: %s", *strategy)
	}
	return repository.NewBatchRepo(s.db).ListBatches(strategy, billAccount)
}

// GetBatch 获取批次详情
func (s *SettlementLogic) GetBatch(id int64) (*model.SettlementBatchModel, error) {
	batch, err := repository.NewBatchRepo(s.db).GetBatch(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: 结算批次 %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("获取结算批次失败: %w", err)
	}
	return batch, nil
}

// DeleteBatch 历史批次只追加不删除，始终拒绝
func (s *SettlementLogic) DeleteBatch(id int64) error {
	logger.Warn("Rejected attempt to delete settlement batch %d", id)
	return fmt.Errorf("%w: 结算批次不可删除，如需更正请创建新批次", ErrNotPermitted)
}

// scopeLocks 进程内按结算范围互斥
type scopeLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newScopeLocks() *scopeLocks {
	return &scopeLocks{m: make(map[string]*sync.Mutex)}
}

func (l *scopeLocks) lock(key string) func() {
	l.mu.Lock()
	m, ok := l.m[key]
	if !ok {
		m = &sync.Mutex{}
		l.m[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
