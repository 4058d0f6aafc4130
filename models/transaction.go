package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction 收支记录
// AuthorID 可为空：账号永久抹除后作者引用被置空
type Transaction struct {
	ID              uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	LedgerID        uuid.UUID       `json:"ledger_id" gorm:"type:char(36);index;not null"`
	CategoryID      uuid.UUID       `json:"category_id" gorm:"type:char(36);index;not null"`
	AuthorID        *uuid.UUID      `json:"author_id" gorm:"type:char(36);index"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(15,2);not null"`
	Type            EntryType       `json:"type" gorm:"size:16;not null"`
	Description     string          `json:"description" gorm:"size:255"`
	TransactionDate time.Time       `json:"transaction_date" gorm:"index;not null"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `json:"-" gorm:"index"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t Transaction) EntityID() uuid.UUID { return t.ID }

func (t Transaction) IsDeleted() bool { return isTombstoned(t.DeletedAt) }

// AuthoredBy 是否由指定账号创建
func (t Transaction) AuthoredBy(accountID uuid.UUID) bool {
	return t.AuthorID != nil && *t.AuthorID == accountID
}
