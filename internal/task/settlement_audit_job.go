package task

import (
	"fmt"
	"sync"
	"time"

	"github.com/2ue/total-gmn/internal/config"
	"github.com/2ue/total-gmn/internal/logger"
	"github.com/2ue/total-gmn/internal/money"
	"github.com/2ue/total-gmn/internal/repository"
	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AuditIssue 巡检发现的问题
type AuditIssue struct {
	Scope   repository.Scope
	BatchNo string
	Message string
}

// SettlementAuditJob 结算批次巡检任务，只读，发现问题只记录日志
type SettlementAuditJob struct {
	db     *gorm.DB
	config *config.Config
}

// NewSettlementAuditJob 创建结算巡检任务
func NewSettlementAuditJob(db *gorm.DB, cfg *config.Config) *SettlementAuditJob {
	return &SettlementAuditJob{
		db:     db,
		config: cfg,
	}
}

// GetName 获取任务名称
func (j *SettlementAuditJob) GetName() string {
	return "settlement_audit"
}

// GetSchedule 获取调度配置
func (j *SettlementAuditJob) GetSchedule() gocron.JobDefinition {
	interval := j.config.Task.Interval
	if interval <= 0 {
		interval = 600
	}
	return gocron.DurationJob(time.Duration(interval) * time.Second)
}

// Execute 执行任务
func (j *SettlementAuditJob) Execute() {
	logger.Info("Starting settlement audit task")

	issues, err := j.Audit()
	if err != nil {
		logger.Error("Settlement audit failed: %v", err)
		return
	}
	for _, issue := range issues {
		logger.Warn("Settlement audit scope=%s batch=%s: %s", issue.Scope.Key(), issue.BatchNo, issue.Message)
	}

	logger.Info("Settlement audit task completed. Found %d issues", len(issues))
}

// Audit 按范围并发检查批次不变量
func (j *SettlementAuditJob) Audit() ([]AuditIssue, error) {
	batches := repository.NewBatchRepo(j.db)
	scopes, err := batches.Scopes()
	if err != nil {
		return nil, err
	}
	if len(scopes) == 0 {
		return nil, nil
	}

	workers := j.config.Task.Workers
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("创建巡检协程池失败: %w", err)
	}
	defer pool.Release()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		issues []AuditIssue
		errs   []error
	)
	for _, scope := range scopes {
		scope := scope
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			found, err := auditScope(batches, scope)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			issues = append(issues, found...)
		}); err != nil {
			wg.Done()
			return nil, fmt.Errorf("提交巡检任务失败: %w", err)
		}
	}
	wg.Wait()

	if len(errs) > 0 {
		return issues, errs[0]
	}
	return issues, nil
}

// auditScope 检查单个范围：恰好一个生效批次、分配合计、金额恒等式
func auditScope(batches *repository.BatchRepo, scope repository.Scope) ([]AuditIssue, error) {
	strategy := scope.Strategy
	account := scope.BillAccount
	list, err := batches.ListBatches(&strategy, &account)
	if err != nil {
		return nil, err
	}

	var issues []AuditIssue
	effective := 0
	for _, b := range list {
		if b.IsEffective {
			effective++
		}

		if want := money.Round2(b.SettledBaseAmount.Add(b.PaidAmount)); !want.Equal(b.CumulativeSettledAmount) {
			issues = append(issues, AuditIssue{scope, b.BatchNo, fmt.Sprintf("累计已结算 %s 不等于基数加派发 %s",
				money.FormatAmount(b.CumulativeSettledAmount), money.FormatAmount(want))})
		}
		if want := money.Round2(b.CumulativeNetAmount.Sub(b.SettledBaseAmount)); !want.Equal(b.DistributableAmount) {
			issues = append(issues, AuditIssue{scope, b.BatchNo, fmt.Sprintf("可分配 %s 不等于累计净额减基数 %s",
				money.FormatAmount(b.DistributableAmount), money.FormatAmount(want))})
		}

		if len(b.Allocations) > 0 {
			sum := decimal.Zero
			for _, a := range b.Allocations {
				sum = sum.Add(a.Amount)
			}
			if !sum.Equal(b.PaidAmount) {
				issues = append(issues, AuditIssue{scope, b.BatchNo, fmt.Sprintf("分配合计 %s 不等于派发金额 %s",
					money.FormatAmount(sum), money.FormatAmount(b.PaidAmount))})
			}
		}
	}

	if len(list) > 0 && effective != 1 {
		issues = append(issues, AuditIssue{Scope: scope, Message: fmt.Sprintf("生效批次数量为 %d", effective)})
	}
	return issues, nil
}
