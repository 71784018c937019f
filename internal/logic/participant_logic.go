package logic

import (
	"errors"
	"strings"

	"github.com/2ue/total-gmn/internal/logger"
	"github.com/2ue/total-gmn/internal/model"
	"github.com/2ue/total-gmn/internal/money"
	"github.com/2ue/total-gmn/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ParticipantLogic 利润分配参与人业务逻辑
type ParticipantLogic struct {
	db *gorm.DB
}

// NewParticipantLogic 创建参与人业务逻辑
func NewParticipantLogic(db *gorm.DB) *ParticipantLogic {
	return &ParticipantLogic{db: db}
}

// ListParticipants 获取参与人列表
func (p *ParticipantLogic) ListParticipants() ([]model.ParticipantModel, error) {
	return repository.NewParticipantRepo(p.db).List()
}

// SaveParticipants 整体替换参与人集合，任何校验失败都不修改已有数据
func (p *ParticipantLogic) SaveParticipants(participants []model.ParticipantModel) ([]model.ParticipantModel, error) {
	if err := p.validateParticipants(participants); err != nil {
		return nil, err
	}

	var saved []model.ParticipantModel
	err := p.db.Transaction(func(tx *gorm.DB) error {
		var err error
		saved, err = repository.NewParticipantRepo(tx).ReplaceAll(participants)
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, validationf("参与人不存在: %v", err)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Saved %d profit participants", len(saved))
	return saved, nil
}

// validateParticipants 名称非空、比例合计为1、账户绑定唯一
func (p *ParticipantLogic) validateParticipants(participants []model.ParticipantModel) error {
	ratios := make([]decimal.Decimal, 0, len(participants))
	accounts := make(map[string]string, len(participants))
	ids := make(map[int64]struct{}, len(participants))

	for i := range participants {
		pt := &participants[i]
		pt.Name = strings.TrimSpace(pt.Name)
		if pt.Name == "" {
			return invariantf("第 %d 个参与人名称不能为空", i+1)
		}
		if pt.Id > 0 {
			if _, dup := ids[pt.Id]; dup {
				return invariantf("参与人 %d 重复提交", pt.Id)
			}
			ids[pt.Id] = struct{}{}
		}

		pt.Ratio = money.Round6(pt.Ratio)
		if pt.Ratio.IsNegative() {
			return invariantf("参与人 %s 的比例不能为负数", pt.Name)
		}
		ratios = append(ratios, pt.Ratio)

		if pt.BillAccount != nil {
			account := strings.TrimSpace(*pt.BillAccount)
			if account == "" {
				pt.BillAccount = nil
				continue
			}
			pt.BillAccount = &account
			if other, dup := accounts[account]; dup {
				return invariantf("账户 %s 同时绑定了 %s 和 %s", account, other, pt.Name)
			}
			accounts[account] = pt.Name
		}
	}

	if len(participants) > 0 && !money.RatioSumValid(ratios) {
		total := decimal.Sum(decimal.Zero, ratios...)
		return invariantf("参与人比例合计必须为 1.000000，当前为 %s", money.FormatRatio(total))
	}
	return nil
}
