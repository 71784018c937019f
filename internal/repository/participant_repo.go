package repository

import (
	"fmt"

	"github.com/2ue/total-gmn/internal/model"
	"gorm.io/gorm"
)

// ParticipantRepo 参与人存储
type ParticipantRepo struct {
	db *gorm.DB
}

// NewParticipantRepo 创建参与人存储
func NewParticipantRepo(db *gorm.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

// WithTx 返回绑定到事务的存储
func (r *ParticipantRepo) WithTx(tx *gorm.DB) *ParticipantRepo {
	return &ParticipantRepo{db: tx}
}

// List 按 id 升序返回全部参与人，顺序即分配时的稳定顺序
func (r *ParticipantRepo) List() ([]model.ParticipantModel, error) {
	var participants []model.ParticipantModel
	if err := r.db.Order("id ASC").Find(&participants).Error; err != nil {
		return nil, fmt.Errorf("获取参与人列表失败: %w", err)
	}
	return participants, nil
}

// ReplaceAll 整体替换参与人集合：删除未出现的、更新已有的、新增无 id 的。
// 调用方负责在事务内执行并事先校验不变量。
func (r *ParticipantRepo) ReplaceAll(participants []model.ParticipantModel) ([]model.ParticipantModel, error) {
	keep := make([]int64, 0, len(participants))
	for _, p := range participants {
		if p.Id > 0 {
			keep = append(keep, p.Id)
		}
	}

	// 被删除参与人的历史分配快照保留，只断开引用
	removed := r.db.Model(&model.ParticipantModel{})
	if len(keep) > 0 {
		removed = removed.Where("id NOT IN ?", keep)
	}
	var removedIds []int64
	if err := removed.Pluck("id", &removedIds).Error; err != nil {
		return nil, fmt.Errorf("查询待删除参与人失败: %w", err)
	}
	if len(removedIds) > 0 {
		if err := r.db.Model(&model.SettlementAllocationModel{}).
			Where("participant_id IN ?", removedIds).
			Update("participant_id", nil).Error; err != nil {
			return nil, fmt.Errorf("解除分配快照引用失败: %w", err)
		}
		if err := r.db.Where("id IN ?", removedIds).Delete(&model.ParticipantModel{}).Error; err != nil {
			return nil, fmt.Errorf("删除参与人失败: %w", err)
		}
	}

	// 先清空保留者的账户绑定，避免互换账户时触发唯一索引冲突
	if len(keep) > 0 {
		if err := r.db.Model(&model.ParticipantModel{}).
			Where("id IN ?", keep).
			Update("bill_account", nil).Error; err != nil {
			return nil, fmt.Errorf("重置账户绑定失败: %w", err)
		}
	}

	for i := range participants {
		p := &participants[i]
		if p.Id > 0 {
			result := r.db.Model(&model.ParticipantModel{}).Where("id = ?", p.Id).
				Updates(map[string]interface{}{
					"name":         p.Name,
					"bill_account": p.BillAccount,
					"ratio":        p.Ratio,
					"note":         p.Note,
				})
			if result.Error != nil {
				return nil, fmt.Errorf("更新参与人 %d 失败: %w", p.Id, result.Error)
			}
			if result.RowsAffected == 0 {
				return nil, fmt.Errorf("参与人 %d 不存在: %w", p.Id, gorm.ErrRecordNotFound)
			}
			continue
		}
		if err := r.db.Create(p).Error; err != nil {
			return nil, fmt.Errorf("新增参与人失败: %w", err)
		}
	}

	return r.List()
}
