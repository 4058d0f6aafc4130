package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ledger 共享账本，CreatedBy 为当前所有者
type Ledger struct {
	ID          uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	Name        string         `json:"name" gorm:"size:100;not null"`
	Description string         `json:"description" gorm:"size:255"`
	Currency    string         `json:"currency" gorm:"size:8;not null"`
	CreatedBy   uuid.UUID      `json:"created_by" gorm:"type:char(36);index;not null"`
	Version     int64          `json:"-" gorm:"not null;default:1"` // 所有权变更的乐观锁
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (Ledger) TableName() string {
	return "ledgers"
}

func (l Ledger) EntityID() uuid.UUID { return l.ID }

func (l Ledger) IsDeleted() bool { return isTombstoned(l.DeletedAt) }

// Membership 账号在账本中的成员关系
type Membership struct {
	ID        uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	LedgerID  uuid.UUID      `json:"ledger_id" gorm:"type:char(36);index:idx_member_ledger_account;not null"`
	AccountID uuid.UUID      `json:"account_id" gorm:"type:char(36);index:idx_member_ledger_account;index;not null"`
	Role      Role           `json:"role" gorm:"type:varchar(16);not null"`
	JoinedAt  time.Time      `json:"joined_at" gorm:"not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (Membership) TableName() string {
	return "ledger_members"
}

func (m Membership) EntityID() uuid.UUID { return m.ID }

func (m Membership) IsDeleted() bool { return isTombstoned(m.DeletedAt) }
