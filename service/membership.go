package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bugie/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LedgerAttrs 创建或修改账本的属性
type LedgerAttrs struct {
	Name                  string
	Description           string
	Currency              string
	SeedDefaultCategories bool // 用默认模板初始化类别
}

// MembershipService 账本成员管理：加入、离开、角色变更与所有权转移
type MembershipService struct {
	store *Store
	authz *Authorizer
}

// NewMembershipService 创建成员管理服务
func NewMembershipService(store *Store, authz *Authorizer) *MembershipService {
	return &MembershipService{store: store, authz: authz}
}

// CreateLedger 创建账本并在同一事务中创建所有者成员关系
func (s *MembershipService) CreateLedger(ctx context.Context, ownerID uuid.UUID, attrs LedgerAttrs) (*models.Ledger, error) {
	attrs.Name = strings.TrimSpace(attrs.Name)
	if attrs.Name == "" {
		return nil, invalidInput("ledger name is required")
	}

	var ledger models.Ledger
	err := s.store.Transaction(ctx, "membership.create_ledger", func(tx *gorm.DB) error {
		owner, err := lockActiveAccount(tx, ownerID)
		if err != nil {
			return err
		}
		currency := strings.ToUpper(strings.TrimSpace(attrs.Currency))
		if currency == "" {
			currency = owner.Currency
		}
		if currency == "" {
			return invalidInput("ledger currency is required")
		}

		now := s.store.Now()
		ledger = models.Ledger{
			ID:          uuid.New(),
			Name:        attrs.Name,
			Description: attrs.Description,
			Currency:    currency,
			CreatedBy:   ownerID,
			Version:     1,
		}
		if err := tx.Create(&ledger).Error; err != nil {
			return err
		}
		membership := models.Membership{
			ID:        uuid.New(),
			LedgerID:  ledger.ID,
			AccountID: ownerID,
			Role:      models.RoleOwner,
			JoinedAt:  now,
		}
		if err := tx.Create(&membership).Error; err != nil {
			return err
		}
		if attrs.SeedDefaultCategories {
			return seedCategories(tx, ledger.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.store.Logger().Info("ledger created", zap.Stringer("ledger_id", ledger.ID), zap.Stringer("owner_id", ownerID))
	return &ledger, nil
}

// InviteMember 邀请账号加入账本
// 管理员最多授予 member，只有所有者可以授予 admin，owner 只能通过转移获得
func (s *MembershipService) InviteMember(ctx context.Context, actorID, ledgerID, targetID uuid.UUID, role models.Role) (*models.Membership, error) {
	if !role.Valid() {
		return nil, invalidInput("unknown role")
	}

	var membership models.Membership
	err := s.store.Transaction(ctx, "membership.invite", func(tx *gorm.DB) error {
		if _, err := lockActiveLedger(tx, ledgerID); err != nil {
			return err
		}
		actorRole, err := roleIn(tx, actorID, ledgerID)
		if err != nil {
			return err
		}
		if !Decide(actorRole, ActionManageMembers, true) {
			return ErrInsufficientRole
		}
		if role.Compare(MaxAssignableRole(actorRole)) > 0 {
			return ErrInsufficientRole
		}
		if _, err := lockActiveAccount(tx, targetID); err != nil {
			return err
		}
		existing, err := activeMembership(tx, ledgerID, targetID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyMember
		}

		membership = models.Membership{
			ID:        uuid.New(),
			LedgerID:  ledgerID,
			AccountID: targetID,
			Role:      role,
			JoinedAt:  s.store.Now(),
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// ChangeRole 调整成员角色
// 所有者角色不可被调整；涉及 admin 的调整只有所有者可以执行
func (s *MembershipService) ChangeRole(ctx context.Context, actorID, ledgerID, targetID uuid.UUID, newRole models.Role) (*models.Membership, error) {
	if !newRole.Valid() {
		return nil, invalidInput("unknown role")
	}

	var target *models.Membership
	err := s.store.Transaction(ctx, "membership.change_role", func(tx *gorm.DB) error {
		if _, err := lockActiveLedger(tx, ledgerID); err != nil {
			return err
		}
		actorRole, err := authorize(tx, actorID, ledgerID, ActionManageMembers)
		if err != nil {
			return err
		}
		target, err = activeMembership(tx, ledgerID, targetID)
		if err != nil {
			return err
		}
		if target == nil {
			return ErrNotFound
		}
		if target.Role == newRole {
			return nil
		}
		if target.Role == models.RoleOwner {
			return ErrCannotDemoteOwner
		}
		if newRole == models.RoleOwner {
			return ErrInsufficientRole
		}
		if (target.Role == models.RoleAdmin || newRole == models.RoleAdmin) && actorRole != models.RoleOwner {
			return ErrInsufficientRole
		}

		if err := tx.Model(&models.Membership{}).Where("id = ?", target.ID).Update("role", newRole).Error; err != nil {
			return err
		}
		target.Role = newRole
		return nil
	})
	if err != nil {
		return nil, err
	}
	return target, nil
}

// RemoveMember 移除成员（软删除成员关系）
// 所有者不能被移除，需先转移所有权；移除管理员只有所有者可以执行
func (s *MembershipService) RemoveMember(ctx context.Context, actorID, ledgerID, targetID uuid.UUID) error {
	return s.store.Transaction(ctx, "membership.remove", func(tx *gorm.DB) error {
		if _, err := lockActiveLedger(tx, ledgerID); err != nil {
			return err
		}
		target, err := activeMembership(tx, ledgerID, targetID)
		if err != nil {
			return err
		}

		if actorID != targetID {
			actorRole, err := authorize(tx, actorID, ledgerID, ActionManageMembers)
			if err != nil {
				return err
			}
			if target == nil {
				return ErrNotFound
			}
			if target.Role == models.RoleOwner {
				return ErrCannotRemoveSoleOwner
			}
			if target.Role == models.RoleAdmin && !Decide(actorRole, ActionRemoveAdmin, true) {
				return ErrUnauthorized
			}
		} else {
			if target == nil {
				return ErrNotFound
			}
			if target.Role == models.RoleOwner {
				return ErrCannotRemoveSoleOwner
			}
		}

		_, err = SoftDelete(tx, *target, s.store.Now())
		return err
	})
}

// LeaveLedger 主动退出账本
func (s *MembershipService) LeaveLedger(ctx context.Context, accountID, ledgerID uuid.UUID) error {
	return s.store.Transaction(ctx, "membership.leave", func(tx *gorm.DB) error {
		if _, err := lockActiveLedger(tx, ledgerID); err != nil {
			return err
		}
		m, err := activeMembership(tx, ledgerID, accountID)
		if err != nil {
			return err
		}
		if m == nil {
			return ErrNotFound
		}
		if m.Role == models.RoleOwner {
			return ErrCannotLeaveAsSoleOwner
		}
		_, err = SoftDelete(tx, *m, s.store.Now())
		return err
	})
}

// TransferOwnership 转移所有权：原所有者降为 admin，目标成为 owner，并更新账本 created_by
// 三步在同一事务中完成，账本的 version 列作为乐观锁
func (s *MembershipService) TransferOwnership(ctx context.Context, currentOwnerID, ledgerID, newOwnerID uuid.UUID) error {
	if currentOwnerID == newOwnerID {
		return invalidInput("new owner must differ from current owner")
	}

	err := s.store.Transaction(ctx, "membership.transfer", func(tx *gorm.DB) error {
		ledger, err := lockActiveLedger(tx, ledgerID)
		if err != nil {
			return err
		}
		if ledger.CreatedBy != currentOwnerID {
			return ErrUnauthorized
		}
		current, err := activeMembership(tx, ledgerID, currentOwnerID)
		if err != nil {
			return err
		}
		if current == nil || current.Role != models.RoleOwner {
			return ErrUnauthorized
		}
		if _, err := lockActiveAccount(tx, newOwnerID); err != nil {
			return err
		}

		res := tx.Model(&models.Ledger{}).
			Where("id = ? AND created_by = ? AND version = ?", ledgerID, currentOwnerID, ledger.Version).
			Updates(map[string]interface{}{
				"created_by": newOwnerID,
				"version":    gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return errConflict
		}

		if err := tx.Model(&models.Membership{}).Where("id = ?", current.ID).Update("role", models.RoleAdmin).Error; err != nil {
			return err
		}
		target, err := activeMembership(tx, ledgerID, newOwnerID)
		if err != nil {
			return err
		}
		if target != nil {
			return tx.Model(&models.Membership{}).Where("id = ?", target.ID).Update("role", models.RoleOwner).Error
		}
		return tx.Create(&models.Membership{
			ID:        uuid.New(),
			LedgerID:  ledgerID,
			AccountID: newOwnerID,
			Role:      models.RoleOwner,
			JoinedAt:  s.store.Now(),
		}).Error
	})
	if err != nil {
		return err
	}
	s.store.Logger().Info("ledger ownership transferred",
		zap.Stringer("ledger_id", ledgerID),
		zap.Stringer("from", currentOwnerID),
		zap.Stringer("to", newOwnerID))
	return nil
}

// ListMembers 账本的有效成员列表
func (s *MembershipService) ListMembers(ctx context.Context, actorID, ledgerID uuid.UUID) ([]models.Membership, error) {
	var members []models.Membership
	err := s.store.Query(ctx, "membership.list", func(db *gorm.DB) error {
		if _, err := authorize(db, actorID, ledgerID, ActionReadLedger); err != nil {
			return err
		}
		return db.Where("ledger_id = ?", ledgerID).Order("joined_at ASC").Find(&members).Error
	})
	return members, err
}

// CheckOwnerInvariant 校验有效账本恰有一个有效 owner 成员关系，且与 created_by 一致
// 已删除的账本不受约束
func CheckOwnerInvariant(db *gorm.DB, ledgerID uuid.UUID) error {
	var ledger models.Ledger
	if err := db.Unscoped().First(&ledger, "id = ?", ledgerID).Error; err != nil {
		return err
	}
	if ledger.IsDeleted() {
		return nil
	}
	var owners []models.Membership
	if err := db.Where("ledger_id = ? AND role = ?", ledgerID, models.RoleOwner).Find(&owners).Error; err != nil {
		return err
	}
	if len(owners) != 1 {
		return fmt.Errorf("ledger %s has %d active owners", ledgerID, len(owners))
	}
	if owners[0].AccountID != ledger.CreatedBy {
		return fmt.Errorf("ledger %s owner %s does not match created_by %s", ledgerID, owners[0].AccountID, ledger.CreatedBy)
	}
	return nil
}

// lockActiveLedger 锁定未删除的账本行
func lockActiveLedger(tx *gorm.DB, ledgerID uuid.UUID) (*models.Ledger, error) {
	var ledger models.Ledger
	if err := forUpdate(tx).First(&ledger, "id = ?", ledgerID).Error; err != nil {
		return nil, notFound(err)
	}
	return &ledger, nil
}

// lockActiveAccount 锁定账号行，要求账号处于 Active 状态
func lockActiveAccount(tx *gorm.DB, accountID uuid.UUID) (*models.Account, error) {
	account, err := lockAccount(tx, accountID)
	if err != nil {
		return nil, err
	}
	if account.State() != models.AccountStateActive {
		return nil, ErrAccountNotActive
	}
	return account, nil
}

// lockAccount 锁定账号行，包含待注销与已抹除的账号
func lockAccount(tx *gorm.DB, accountID uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := forUpdate(tx.Unscoped()).First(&account, "id = ?", accountID).Error; err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

// activeMembership 查询有效成员关系，不存在时返回 nil
func activeMembership(tx *gorm.DB, ledgerID, accountID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := forUpdate(tx).Where("ledger_id = ? AND account_id = ?", ledgerID, accountID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
