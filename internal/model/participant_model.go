package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ParticipantModel 利润分配参与人
type ParticipantModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name string `json:"name" gorm:"size:64;not null"`
	// 绑定的账单账户，为空表示未绑定；同一账户至多绑定一人
	BillAccount *string         `json:"bill_account" gorm:"size:128;uniqueIndex"`
	Ratio       decimal.Decimal `json:"ratio" gorm:"type:decimal(12,6);not null"`
	Note        string          `json:"note" gorm:"type:text"`
}

// TableName 自定义表名
func (ParticipantModel) TableName() string {
	return "profit_participant"
}

// BoundAccount 返回绑定账户，未绑定时为空串
func (p *ParticipantModel) BoundAccount() string {
	if p.BillAccount == nil {
		return ""
	}
	return *p.BillAccount
}
