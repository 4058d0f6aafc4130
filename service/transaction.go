package service

import (
	"context"
	"errors"
	"time"

	"bugie/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionInput 收支记录创建与修改参数
type TransactionInput struct {
	CategoryID      uuid.UUID
	Amount          decimal.Decimal
	Description     *string
	TransactionDate time.Time
}

// TransactionFilter 收支记录查询条件
type TransactionFilter struct {
	Start          *time.Time
	End            *time.Time
	CategoryID     *uuid.UUID
	Type           models.EntryType
	IncludeDeleted bool
	Page           int
	PageSize       int
}

// TransactionPage 分页结果
type TransactionPage struct {
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	List     []models.Transaction `json:"list"`
}

// Summary 区间收支合计
type Summary struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
	Count   int             `json:"count"`
}

// TransactionService 账本收支记录
type TransactionService struct {
	store *Store
}

func NewTransactionService(store *Store) *TransactionService {
	return &TransactionService{store: store}
}

func (f *TransactionFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 500 {
		f.PageSize = 50
	}
}

func filterTransactions(db *gorm.DB, ledgerID uuid.UUID, f TransactionFilter) *gorm.DB {
	q := Visible(db, f.IncludeDeleted).Model(&models.Transaction{}).Where("ledger_id = ?", ledgerID)
	if f.Start != nil {
		q = q.Where("transaction_date >= ?", f.Start.UTC())
	}
	if f.End != nil {
		q = q.Where("transaction_date < ?", f.End.UTC())
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	return q
}

// ListTransactions 分页查询收支记录，按交易日期倒序
func (s *TransactionService) ListTransactions(ctx context.Context, accountID, ledgerID uuid.UUID, f TransactionFilter) (*TransactionPage, error) {
	f.normalize()
	page := &TransactionPage{Page: f.Page, PageSize: f.PageSize}
	err := s.store.Query(ctx, "transaction.list", func(db *gorm.DB) error {
		if err := authorizeRead(db, accountID, ledgerID, ActionReadTransactions, f.IncludeDeleted); err != nil {
			return err
		}
		if err := filterTransactions(db, ledgerID, f).Count(&page.Total).Error; err != nil {
			return err
		}
		return filterTransactions(db, ledgerID, f).
			Order("transaction_date DESC, created_at DESC").
			Offset((f.Page - 1) * f.PageSize).
			Limit(f.PageSize).
			Find(&page.List).Error
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// AllTransactions 不分页查询，供导出使用
func (s *TransactionService) AllTransactions(ctx context.Context, accountID, ledgerID uuid.UUID, f TransactionFilter) ([]models.Transaction, error) {
	var list []models.Transaction
	err := s.store.Query(ctx, "transaction.all", func(db *gorm.DB) error {
		if err := authorizeRead(db, accountID, ledgerID, ActionReadTransactions, f.IncludeDeleted); err != nil {
			return err
		}
		return filterTransactions(db, ledgerID, f).Order("transaction_date ASC, created_at ASC").Find(&list).Error
	})
	return list, err
}

// Summarize 区间收支合计（只统计有效记录）
func (s *TransactionService) Summarize(ctx context.Context, accountID, ledgerID uuid.UUID, f TransactionFilter) (*Summary, error) {
	f.IncludeDeleted = false
	list, err := s.AllTransactions(ctx, accountID, ledgerID, f)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Income: decimal.Zero, Expense: decimal.Zero, Count: len(list)}
	for _, t := range list {
		switch t.Type {
		case models.EntryTypeIncome:
			sum.Income = sum.Income.Add(t.Amount)
		case models.EntryTypeExpense:
			sum.Expense = sum.Expense.Add(t.Amount)
		}
	}
	sum.Balance = sum.Income.Sub(sum.Expense)
	return sum, nil
}

// CreateTransaction 新增收支记录，类型跟随类别
func (s *TransactionService) CreateTransaction(ctx context.Context, accountID, ledgerID uuid.UUID, in TransactionInput) (*models.Transaction, error) {
	if !in.Amount.IsPositive() {
		return nil, invalidInput("amount must be positive")
	}
	if in.TransactionDate.IsZero() {
		return nil, invalidInput("transaction date is required")
	}

	author := accountID
	txn := models.Transaction{
		ID:              uuid.New(),
		LedgerID:        ledgerID,
		CategoryID:      in.CategoryID,
		AuthorID:        &author,
		Amount:          in.Amount.Round(2),
		TransactionDate: in.TransactionDate.UTC(),
	}
	if in.Description != nil {
		txn.Description = *in.Description
	}
	err := s.store.Transaction(ctx, "transaction.create", func(tx *gorm.DB) error {
		if _, err := authorize(tx, accountID, ledgerID, ActionCreateTransaction); err != nil {
			return err
		}
		cat, err := activeCategory(tx, ledgerID, in.CategoryID)
		if err != nil {
			return err
		}
		txn.Type = cat.Type
		return tx.Create(&txn).Error
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// UpdateTransaction 修改自己创建的收支记录
func (s *TransactionService) UpdateTransaction(ctx context.Context, accountID, ledgerID, transactionID uuid.UUID, in TransactionInput) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.store.Transaction(ctx, "transaction.update", func(tx *gorm.DB) error {
		if err := tx.First(&txn, "id = ? AND ledger_id = ?", transactionID, ledgerID).Error; err != nil {
			return notFound(err)
		}
		if err := authorizeTransaction(tx, accountID, txn, ActionEditOwnTransaction); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.CategoryID != uuid.Nil && in.CategoryID != txn.CategoryID {
			cat, err := activeCategory(tx, ledgerID, in.CategoryID)
			if err != nil {
				return err
			}
			updates["category_id"] = cat.ID
			updates["type"] = cat.Type
		}
		if !in.Amount.IsZero() {
			if !in.Amount.IsPositive() {
				return invalidInput("amount must be positive")
			}
			updates["amount"] = in.Amount.Round(2)
		}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if !in.TransactionDate.IsZero() {
			updates["transaction_date"] = in.TransactionDate.UTC()
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&txn).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&txn, "id = ?", transactionID).Error
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// DeleteTransaction 软删除自己创建的收支记录
func (s *TransactionService) DeleteTransaction(ctx context.Context, accountID, ledgerID, transactionID uuid.UUID) error {
	return s.store.Transaction(ctx, "transaction.delete", func(tx *gorm.DB) error {
		var txn models.Transaction
		if err := tx.Unscoped().First(&txn, "id = ? AND ledger_id = ?", transactionID, ledgerID).Error; err != nil {
			return notFound(err)
		}
		if err := authorizeTransaction(tx, accountID, txn, ActionDeleteOwnTransaction); err != nil {
			return err
		}
		_, err := SoftDelete(tx, txn, s.store.Now())
		return err
	})
}

// RestoreTransaction 恢复自己删除的收支记录
func (s *TransactionService) RestoreTransaction(ctx context.Context, accountID, ledgerID, transactionID uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.store.Transaction(ctx, "transaction.restore", func(tx *gorm.DB) error {
		if err := tx.Unscoped().First(&txn, "id = ? AND ledger_id = ?", transactionID, ledgerID).Error; err != nil {
			return notFound(err)
		}
		if err := authorizeTransaction(tx, accountID, txn, ActionDeleteOwnTransaction); err != nil {
			return err
		}
		if _, err := Restore(tx, txn); err != nil {
			return err
		}
		txn.DeletedAt = gorm.DeletedAt{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func authorizeTransaction(tx *gorm.DB, accountID uuid.UUID, txn models.Transaction, action Action) error {
	role, err := roleIn(tx, accountID, txn.LedgerID)
	if err != nil {
		return err
	}
	if !Decide(role, action, txn.AuthoredBy(accountID)) {
		return ErrUnauthorized
	}
	return nil
}

func activeCategory(tx *gorm.DB, ledgerID, categoryID uuid.UUID) (*models.Category, error) {
	var cat models.Category
	if err := tx.First(&cat, "id = ? AND ledger_id = ?", categoryID, ledgerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalidInput("category not found in ledger")
		}
		return nil, err
	}
	return &cat, nil
}
