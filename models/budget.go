package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BudgetPeriod 预算周期
type BudgetPeriod string

const (
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
)

// Budget 类别预算
type Budget struct {
	ID         uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	LedgerID   uuid.UUID       `json:"ledger_id" gorm:"type:char(36);index;not null"`
	CategoryID uuid.UUID       `json:"category_id" gorm:"type:char(36);index;not null"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:decimal(15,2);not null"`
	Period     BudgetPeriod    `json:"period" gorm:"size:16;not null"`
	Year       int             `json:"year" gorm:"not null"`
	Month      *int            `json:"month,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `json:"-" gorm:"index"`
}

func (Budget) TableName() string {
	return "budgets"
}

func (b Budget) EntityID() uuid.UUID { return b.ID }

func (b Budget) IsDeleted() bool { return isTombstoned(b.DeletedAt) }

// ValidatePeriod 月度预算必须指定 1-12 月，年度预算不能指定月份
func (b Budget) ValidatePeriod() error {
	if b.Year < 1970 || b.Year > 9999 {
		return errors.New("year out of range")
	}
	switch b.Period {
	case BudgetPeriodMonthly:
		if b.Month == nil || *b.Month < 1 || *b.Month > 12 {
			return errors.New("monthly budget requires month 1-12")
		}
	case BudgetPeriodYearly:
		if b.Month != nil {
			return errors.New("yearly budget must not set month")
		}
	default:
		return errors.New("unknown budget period")
	}
	return nil
}
