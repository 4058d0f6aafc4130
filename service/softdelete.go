package service

import (
	"time"

	"bugie/models"

	"gorm.io/gorm"
)

// SoftDelete 写入删除时间戳；已删除的数据不变
// 只更新 deleted_at 一列，不级联到子数据
func SoftDelete(tx *gorm.DB, entity models.Tombstonable, now time.Time) (bool, error) {
	res := tx.Table(entity.TableName()).
		Where("id = ? AND deleted_at IS NULL", entity.EntityID()).
		UpdateColumn("deleted_at", now)
	return res.RowsAffected > 0, res.Error
}

// Restore 清除删除时间戳；未删除的数据不变
func Restore(tx *gorm.DB, entity models.Tombstonable) (bool, error) {
	res := tx.Table(entity.TableName()).
		Where("id = ? AND deleted_at IS NOT NULL", entity.EntityID()).
		UpdateColumn("deleted_at", nil)
	return res.RowsAffected > 0, res.Error
}

// Visible 默认只查询未删除数据，includeDeleted 时包含已删除数据（审计与清理任务使用）
func Visible(db *gorm.DB, includeDeleted bool) *gorm.DB {
	if includeDeleted {
		return db.Unscoped()
	}
	return db
}
