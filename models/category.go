package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntryType 收支类型
type EntryType string

const (
	EntryTypeIncome  EntryType = "income"
	EntryTypeExpense EntryType = "expense"
)

// ParseEntryType 解析收支类型
func ParseEntryType(s string) (EntryType, error) {
	switch t := EntryType(s); t {
	case EntryTypeIncome, EntryTypeExpense:
		return t, nil
	}
	return "", fmt.Errorf("unknown entry type %q", s)
}

// CategoryTemplate 共享只读的类别模板
type CategoryTemplate struct {
	ID    uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name  string    `json:"name" gorm:"size:50;not null"`
	Type  EntryType `json:"type" gorm:"size:16;not null;index"`
	Icon  string    `json:"icon" gorm:"size:32"`
	Color string    `json:"color" gorm:"size:20;default:#64748b"`
	Sort  int       `json:"sort" gorm:"default:0"`
}

func (CategoryTemplate) TableName() string {
	return "category_templates"
}

// Category 账本内的收支类别
type Category struct {
	ID         uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	LedgerID   uuid.UUID      `json:"ledger_id" gorm:"type:char(36);index;not null"`
	TemplateID *uuid.UUID     `json:"template_id,omitempty" gorm:"type:char(36)"`
	Name       string         `json:"name" gorm:"size:50;not null"`
	Type       EntryType      `json:"type" gorm:"size:16;not null"`
	Icon       string         `json:"icon" gorm:"size:32"`
	Color      string         `json:"color" gorm:"size:20;default:#64748b"` // 颜色代码，如 #ef4444
	Sort       int            `json:"sort" gorm:"default:0"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Category) TableName() string {
	return "categories"
}

func (c Category) EntityID() uuid.UUID { return c.ID }

func (c Category) IsDeleted() bool { return isTombstoned(c.DeletedAt) }

// DefaultCategoryTemplates 初始化时写入的默认类别模板
func DefaultCategoryTemplates() []CategoryTemplate {
	items := []struct {
		Name  string
		Type  EntryType
		Icon  string
		Color string
	}{
		{"餐饮", EntryTypeExpense, "utensils", "#ef4444"},
		{"交通", EntryTypeExpense, "bus", "#3b82f6"},
		{"购物", EntryTypeExpense, "bag", "#a855f7"},
		{"住房", EntryTypeExpense, "home", "#14b8a6"},
		{"医疗", EntryTypeExpense, "heart", "#10b981"},
		{"其他", EntryTypeExpense, "dots", "#64748b"},
		{"工资", EntryTypeIncome, "wallet", "#10b981"},
		{"奖金", EntryTypeIncome, "gift", "#3b82f6"},
		{"其他收入", EntryTypeIncome, "dots", "#64748b"},
	}
	templates := make([]CategoryTemplate, 0, len(items))
	for i, item := range items {
		templates = append(templates, CategoryTemplate{
			ID:    uuid.NewSHA1(uuid.NameSpaceOID, []byte("category-template:"+item.Name)),
			Name:  item.Name,
			Type:  item.Type,
			Icon:  item.Icon,
			Color: item.Color,
			Sort:  (i + 1) * 10,
		})
	}
	return templates
}
