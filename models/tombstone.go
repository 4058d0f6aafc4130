package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tombstonable 所有支持软删除的实体
// deleted_at 为空即为有效数据；删除只写入时间戳，不物理删除
type Tombstonable interface {
	TableName() string
	EntityID() uuid.UUID
	IsDeleted() bool
}

func isTombstoned(d gorm.DeletedAt) bool {
	return d.Valid
}

var (
	_ Tombstonable = Account{}
	_ Tombstonable = Ledger{}
	_ Tombstonable = Membership{}
	_ Tombstonable = Category{}
	_ Tombstonable = Transaction{}
	_ Tombstonable = Budget{}
)
