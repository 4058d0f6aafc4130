package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountState 账号生命周期状态
type AccountState string

const (
	AccountStateActive          AccountState = "active"
	AccountStatePendingDeletion AccountState = "pending_deletion"
	AccountStateDeleted         AccountState = "deleted"
)

// Account 用户账号，ID 即认证服务商签发的用户标识
// DeletedAt 为注销申请时间，ErasedAt 为永久抹除时间
type Account struct {
	ID          uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	Email       string         `json:"email" gorm:"size:100"`
	DisplayName string         `json:"display_name" gorm:"size:50"`
	Currency    string         `json:"currency" gorm:"size:8"`
	Timezone    string         `json:"timezone" gorm:"size:64"`
	ErasedAt    *time.Time     `json:"-" gorm:"index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (Account) TableName() string {
	return "accounts"
}

func (a Account) EntityID() uuid.UUID { return a.ID }

func (a Account) IsDeleted() bool { return isTombstoned(a.DeletedAt) }

// State 当前生命周期状态
func (a Account) State() AccountState {
	switch {
	case a.ErasedAt != nil:
		return AccountStateDeleted
	case a.DeletedAt.Valid:
		return AccountStatePendingDeletion
	}
	return AccountStateActive
}
