package logic

import (
	"time"

	"github.com/2ue/total-gmn/internal/config"
	"github.com/2ue/total-gmn/internal/profit"
	"github.com/2ue/total-gmn/internal/repository"
	"gorm.io/gorm"
)

// ProfitLogic 利润汇总查询
type ProfitLogic struct {
	db  *gorm.DB
	cfg config.SettlementConfig
}

// NewProfitLogic 创建利润汇总查询
func NewProfitLogic(db *gorm.DB, cfg config.SettlementConfig) *ProfitLogic {
	return &ProfitLogic{db: db, cfg: cfg}
}

// GetSummary 按时间范围和账户汇总利润
func (p *ProfitLogic) GetSummary(start, end *time.Time, billAccount string) (profit.Summary, error) {
	if start != nil && end != nil && start.After(*end) {
		return profit.Summary{}, validationf("开始时间不能晚于结束时间")
	}

	txs, err := repository.NewLedgerRepo(p.db).FindTransactions(repository.TransactionFilter{
		Start:       start,
		End:         end,
		BillAccount: billAccount,
	})
	if err != nil {
		return profit.Summary{}, err
	}

	return profit.Aggregate(txs, profit.Filter{Start: start, End: end, BillAccount: billAccount}, PolicyFrom(p.cfg)), nil
}

// PolicyFrom 从配置读取口径开关
func PolicyFrom(cfg config.SettlementConfig) profit.Policy {
	return profit.Policy{
		IncludeClosedNet:    cfg.IncludeClosedNet,
		DeductRefundExpense: cfg.DeductRefundExpense,
	}
}
