package service

import (
	"context"
	"strings"

	"bugie/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryInput 类别创建与修改参数
type CategoryInput struct {
	Name  string
	Type  models.EntryType
	Icon  string
	Color string
	Sort  *int
}

// CategoryService 账本内的收支类别
type CategoryService struct {
	store *Store
}

func NewCategoryService(store *Store) *CategoryService {
	return &CategoryService{store: store}
}

// ListTemplates 共享类别模板
func (s *CategoryService) ListTemplates(ctx context.Context) ([]models.CategoryTemplate, error) {
	var list []models.CategoryTemplate
	err := s.store.Query(ctx, "category.templates", func(db *gorm.DB) error {
		return db.Order("type ASC, sort ASC").Find(&list).Error
	})
	return list, err
}

// ListCategories 列出类别；includeDeleted 需要审计权限
func (s *CategoryService) ListCategories(ctx context.Context, accountID, ledgerID uuid.UUID, includeDeleted bool) ([]models.Category, error) {
	var list []models.Category
	err := s.store.Query(ctx, "category.list", func(db *gorm.DB) error {
		if err := authorizeRead(db, accountID, ledgerID, ActionReadCategories, includeDeleted); err != nil {
			return err
		}
		return Visible(db, includeDeleted).
			Where("ledger_id = ?", ledgerID).
			Order("type ASC, sort ASC").
			Find(&list).Error
	})
	return list, err
}

// CreateCategory 创建类别（管理员）
func (s *CategoryService) CreateCategory(ctx context.Context, accountID, ledgerID uuid.UUID, in CategoryInput) (*models.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, invalidInput("category name is required")
	}
	if _, err := models.ParseEntryType(string(in.Type)); err != nil {
		return nil, invalidInput(err.Error())
	}

	cat := models.Category{
		ID:       uuid.New(),
		LedgerID: ledgerID,
		Name:     in.Name,
		Type:     in.Type,
		Icon:     in.Icon,
		Color:    in.Color,
	}
	if cat.Color == "" {
		cat.Color = "#64748b"
	}
	if in.Sort != nil {
		cat.Sort = *in.Sort
	}
	err := s.store.Transaction(ctx, "category.create", func(tx *gorm.DB) error {
		if _, err := authorize(tx, accountID, ledgerID, ActionManageCategories); err != nil {
			return err
		}
		return tx.Create(&cat).Error
	})
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// UpdateCategory 修改类别名称、图标、颜色与排序；类型创建后不可修改
func (s *CategoryService) UpdateCategory(ctx context.Context, accountID, ledgerID, categoryID uuid.UUID, in CategoryInput) (*models.Category, error) {
	updates := map[string]interface{}{}
	if name := strings.TrimSpace(in.Name); name != "" {
		updates["name"] = name
	}
	if in.Icon != "" {
		updates["icon"] = in.Icon
	}
	if in.Color != "" {
		updates["color"] = in.Color
	}
	if in.Sort != nil {
		updates["sort"] = *in.Sort
	}

	var cat models.Category
	err := s.store.Transaction(ctx, "category.update", func(tx *gorm.DB) error {
		if _, err := authorize(tx, accountID, ledgerID, ActionManageCategories); err != nil {
			return err
		}
		if err := tx.First(&cat, "id = ? AND ledger_id = ?", categoryID, ledgerID).Error; err != nil {
			return notFound(err)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&cat).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&cat, "id = ?", categoryID).Error
	})
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// DeleteCategory 软删除类别，引用它的收支记录不受影响
func (s *CategoryService) DeleteCategory(ctx context.Context, accountID, ledgerID, categoryID uuid.UUID) error {
	return s.store.Transaction(ctx, "category.delete", func(tx *gorm.DB) error {
		if _, err := authorize(tx, accountID, ledgerID, ActionManageCategories); err != nil {
			return err
		}
		var cat models.Category
		if err := tx.Unscoped().First(&cat, "id = ? AND ledger_id = ?", categoryID, ledgerID).Error; err != nil {
			return notFound(err)
		}
		_, err := SoftDelete(tx, cat, s.store.Now())
		return err
	})
}

// RestoreCategory 恢复已删除的类别
func (s *CategoryService) RestoreCategory(ctx context.Context, accountID, ledgerID, categoryID uuid.UUID) (*models.Category, error) {
	var cat models.Category
	err := s.store.Transaction(ctx, "category.restore", func(tx *gorm.DB) error {
		if _, err := authorize(tx, accountID, ledgerID, ActionManageCategories); err != nil {
			return err
		}
		if err := tx.Unscoped().First(&cat, "id = ? AND ledger_id = ?", categoryID, ledgerID).Error; err != nil {
			return notFound(err)
		}
		if _, err := Restore(tx, cat); err != nil {
			return err
		}
		// 重新读取到新的结构体，避免保留旧的 DeletedAt
		cat = models.Category{}
		return tx.First(&cat, "id = ?", categoryID).Error
	})
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// seedCategories 按模板初始化账本类别
func seedCategories(tx *gorm.DB, ledgerID uuid.UUID) error {
	var templates []models.CategoryTemplate
	if err := tx.Order("type ASC, sort ASC").Find(&templates).Error; err != nil {
		return err
	}
	if len(templates) == 0 {
		return nil
	}
	cats := make([]models.Category, 0, len(templates))
	for _, t := range templates {
		templateID := t.ID
		cats = append(cats, models.Category{
			ID:         uuid.New(),
			LedgerID:   ledgerID,
			TemplateID: &templateID,
			Name:       t.Name,
			Type:       t.Type,
			Icon:       t.Icon,
			Color:      t.Color,
			Sort:       t.Sort,
		})
	}
	return tx.Create(&cats).Error
}

// authorizeRead 读取授权；包含已删除数据时额外要求审计权限
func authorizeRead(db *gorm.DB, accountID, ledgerID uuid.UUID, action Action, includeDeleted bool) error {
	role, err := authorize(db, accountID, ledgerID, action)
	if err != nil {
		return err
	}
	if includeDeleted && !Decide(role, ActionAuditDeleted, true) {
		return ErrUnauthorized
	}
	return nil
}
