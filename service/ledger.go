package service

import (
	"context"
	"strings"

	"bugie/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LedgerWithRole 账本及当前账号的角色
type LedgerWithRole struct {
	models.Ledger
	Role models.Role `json:"role"`
}

// LedgerUpdate 账本可修改字段，nil 表示不修改
type LedgerUpdate struct {
	Name        *string
	Description *string
	Currency    *string
}

// LedgerService 账本的读取、修改与软删除
type LedgerService struct {
	store *Store
}

func NewLedgerService(store *Store) *LedgerService {
	return &LedgerService{store: store}
}

// ListLedgers 账号有效成员关系所在的有效账本
func (s *LedgerService) ListLedgers(ctx context.Context, accountID uuid.UUID) ([]LedgerWithRole, error) {
	var result []LedgerWithRole
	err := s.store.Query(ctx, "ledger.list", func(db *gorm.DB) error {
		var members []models.Membership
		if err := db.Where("account_id = ?", accountID).Find(&members).Error; err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}
		roles := make(map[uuid.UUID]models.Role, len(members))
		ids := make([]uuid.UUID, 0, len(members))
		for _, m := range members {
			roles[m.LedgerID] = m.Role
			ids = append(ids, m.LedgerID)
		}
		var ledgers []models.Ledger
		if err := db.Where("id IN ?", ids).Order("created_at ASC").Find(&ledgers).Error; err != nil {
			return err
		}
		result = make([]LedgerWithRole, 0, len(ledgers))
		for _, l := range ledgers {
			result = append(result, LedgerWithRole{Ledger: l, Role: roles[l.ID]})
		}
		return nil
	})
	return result, err
}

// GetLedger 读取账本，要求 read-ledger 权限
func (s *LedgerService) GetLedger(ctx context.Context, accountID, ledgerID uuid.UUID) (*LedgerWithRole, error) {
	var result LedgerWithRole
	err := s.store.Query(ctx, "ledger.get", func(db *gorm.DB) error {
		role, err := authorize(db, accountID, ledgerID, ActionReadLedger)
		if err != nil {
			return err
		}
		if err := db.First(&result.Ledger, "id = ?", ledgerID).Error; err != nil {
			return notFound(err)
		}
		result.Role = role
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateLedger 修改账本名称、描述与币种（所有者）
func (s *LedgerService) UpdateLedger(ctx context.Context, accountID, ledgerID uuid.UUID, in LedgerUpdate) (*models.Ledger, error) {
	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalidInput("ledger name is required")
		}
		updates["name"] = name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*in.Currency))
		if currency == "" {
			return nil, invalidInput("ledger currency is required")
		}
		updates["currency"] = currency
	}

	var ledger *models.Ledger
	err := s.store.Transaction(ctx, "ledger.update", func(tx *gorm.DB) error {
		var err error
		if ledger, err = lockActiveLedger(tx, ledgerID); err != nil {
			return err
		}
		if _, err := authorize(tx, accountID, ledgerID, ActionUpdateLedger); err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.Ledger{}).Where("id = ?", ledgerID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(ledger, "id = ?", ledgerID).Error
	})
	if err != nil {
		return nil, err
	}
	return ledger, nil
}

// DeleteLedger 软删除账本，不级联到成员、类别与收支记录
func (s *LedgerService) DeleteLedger(ctx context.Context, accountID, ledgerID uuid.UUID) error {
	err := s.store.Transaction(ctx, "ledger.delete", func(tx *gorm.DB) error {
		ledger, err := lockActiveLedger(tx, ledgerID)
		if err != nil {
			return err
		}
		if _, err := authorize(tx, accountID, ledgerID, ActionDeleteLedger); err != nil {
			return err
		}
		_, err = SoftDelete(tx, *ledger, s.store.Now())
		return err
	})
	if err == nil {
		s.store.Logger().Info("ledger deleted", zap.Stringer("ledger_id", ledgerID), zap.Stringer("account_id", accountID))
	}
	return err
}

// RestoreLedger 恢复已删除的账本
// 账本删除后成员关系仍保留，恢复要求调用者是 created_by 且其 owner 成员关系有效
func (s *LedgerService) RestoreLedger(ctx context.Context, accountID, ledgerID uuid.UUID) (*models.Ledger, error) {
	var ledger models.Ledger
	err := s.store.Transaction(ctx, "ledger.restore", func(tx *gorm.DB) error {
		if err := forUpdate(tx.Unscoped()).First(&ledger, "id = ?", ledgerID).Error; err != nil {
			return notFound(err)
		}
		if ledger.CreatedBy != accountID {
			return ErrUnauthorized
		}
		m, err := activeMembership(tx, ledgerID, accountID)
		if err != nil {
			return err
		}
		if m == nil || !Decide(m.Role, ActionDeleteLedger, true) {
			return ErrUnauthorized
		}
		if _, err := Restore(tx, ledger); err != nil {
			return err
		}
		ledger.DeletedAt = gorm.DeletedAt{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}
