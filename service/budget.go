package service

import (
	"context"

	"bugie/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BudgetInput 预算创建与修改参数
type BudgetInput struct {
	CategoryID uuid.UUID
	Amount     decimal.Decimal
	Period     models.BudgetPeriod
	Year       int
	Month      *int
}

// BudgetService 类别预算
type BudgetService struct {
	store *Store
}

func NewBudgetService(store *Store) *BudgetService {
	return &BudgetService{store: store}
}

// ListBudgets 列出预算，year 为 0 时不过滤
func (s *BudgetService) ListBudgets(ctx context.Context, accountID, ledgerID uuid.UUID, year int, includeDeleted bool) ([]models.Budget, error) {
	var list []models.Budget
	err := s.store.Query(ctx, "budget.list", func(db *gorm.DB) error {
		if err := authorizeRead(db, accountID, ledgerID, ActionReadBudgets, includeDeleted); err != nil {
			return err
		}
		q := Visible(db, includeDeleted).Where("ledger_id = ?", ledgerID)
		if year > 0 {
			q = q.Where("year = ?", year)
		}
		return q.Order("year DESC, month ASC").Find(&list).Error
	})
	return list, err
}

// CreateBudget 创建预算（管理员）
func (s *BudgetService) CreateBudget(ctx context.Context, accountID, ledgerID uuid.UUID, in BudgetInput) (*models.Budget, error) {
	budget := models.Budget{
		ID:         uuid.New(),
		LedgerID:   ledgerID,
		CategoryID: in.CategoryID,
		Amount:     in.Amount.Round(2),
		Period:     in.Period,
		Year:       in.Year,
		Month:      in.Month,
	}
	if err := validateBudget(budget); err != nil {
		return nil, err
	}
	err := s.store.Transaction(ctx, "budget.create", func(tx *gorm.DB) error {
		if _, err := authorize(tx, accountID, ledgerID, ActionManageBudgets); err != nil {
			return err
		}
		if _, err := activeCategory(tx, ledgerID, in.CategoryID); err != nil {
			return err
		}
		return tx.Create(&budget).Error
	})
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

// UpdateBudget 修改预算金额与周期
func (s *BudgetService) UpdateBudget(ctx context.Context, accountID, ledgerID, budgetID uuid.UUID, in BudgetInput) (*models.Budget, error) {
	var budget models.Budget
	err := s.store.Transaction(ctx, "budget.update", func(tx *gorm.DB) error {
		if _, err := authorize(tx, accountID, ledgerID, ActionManageBudgets); err != nil {
			return err
		}
		if err := tx.First(&budget, "id = ? AND ledger_id = ?", budgetID, ledgerID).Error; err != nil {
			return notFound(err)
		}
		if !in.Amount.IsZero() {
			budget.Amount = in.Amount.Round(2)
		}
		if in.Period != "" {
			budget.Period = in.Period
			budget.Month = in.Month
		} else if in.Month != nil {
			budget.Month = in.Month
		}
		if in.Year != 0 {
			budget.Year = in.Year
		}
		if err := validateBudget(budget); err != nil {
			return err
		}
		return tx.Model(&models.Budget{}).Where("id = ?", budgetID).Updates(map[string]interface{}{
			"amount": budget.Amount,
			"period": budget.Period,
			"year":   budget.Year,
			"month":  budget.Month,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

// DeleteBudget 软删除预算
func (s *BudgetService) DeleteBudget(ctx context.Context, accountID, ledgerID, budgetID uuid.UUID) error {
	return s.store.Transaction(ctx, "budget.delete", func(tx *gorm.DB) error {
		if _, err := authorize(tx, accountID, ledgerID, ActionManageBudgets); err != nil {
			return err
		}
		var budget models.Budget
		if err := tx.Unscoped().First(&budget, "id = ? AND ledger_id = ?", budgetID, ledgerID).Error; err != nil {
			return notFound(err)
		}
		_, err := SoftDelete(tx, budget, s.store.Now())
		return err
	})
}

// RestoreBudget 恢复已删除的预算
func (s *BudgetService) RestoreBudget(ctx context.Context, accountID, ledgerID, budgetID uuid.UUID) (*models.Budget, error) {
	var budget models.Budget
	err := s.store.Transaction(ctx, "budget.restore", func(tx *gorm.DB) error {
		if _, err := authorize(tx, accountID, ledgerID, ActionManageBudgets); err != nil {
			return err
		}
		if err := tx.Unscoped().First(&budget, "id = ? AND ledger_id = ?", budgetID, ledgerID).Error; err != nil {
			return notFound(err)
		}
		if _, err := Restore(tx, budget); err != nil {
			return err
		}
		budget.DeletedAt = gorm.DeletedAt{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

func validateBudget(b models.Budget) error {
	if !b.Amount.IsPositive() {
		return invalidInput("budget amount must be positive")
	}
	if err := b.ValidatePeriod(); err != nil {
		return invalidInput(err.Error())
	}
	return nil
}
