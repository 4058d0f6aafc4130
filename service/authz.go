package service

import (
	"context"

	"bugie/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Action 账本内可授权的操作
type Action string

const (
	ActionReadLedger           Action = "read-ledger"
	ActionReadCategories       Action = "read-categories"
	ActionReadTransactions     Action = "read-transactions"
	ActionReadBudgets          Action = "read-budgets"
	ActionCreateTransaction    Action = "create-transaction"
	ActionEditOwnTransaction   Action = "edit-own-transaction"
	ActionDeleteOwnTransaction Action = "delete-own-transaction"
	ActionManageCategories     Action = "manage-categories"
	ActionManageBudgets        Action = "manage-budgets"
	ActionManageMembers        Action = "manage-members"
	ActionUpdateLedger         Action = "update-ledger"
	ActionDeleteLedger         Action = "delete-ledger"
	ActionTransferOwnership    Action = "transfer-ownership"
	ActionRemoveAdmin          Action = "remove-admin"
	ActionAuditDeleted         Action = "audit-deleted"
)

// capabilities 每个操作所需的最低角色
var capabilities = map[Action]models.Role{
	ActionReadLedger:           models.RoleViewer,
	ActionReadCategories:       models.RoleViewer,
	ActionReadTransactions:     models.RoleViewer,
	ActionReadBudgets:          models.RoleViewer,
	ActionCreateTransaction:    models.RoleMember,
	ActionEditOwnTransaction:   models.RoleMember,
	ActionDeleteOwnTransaction: models.RoleMember,
	ActionManageCategories:     models.RoleAdmin,
	ActionManageBudgets:        models.RoleAdmin,
	ActionManageMembers:        models.RoleAdmin,
	ActionUpdateLedger:         models.RoleOwner,
	ActionDeleteLedger:         models.RoleOwner,
	ActionTransferOwnership:    models.RoleOwner,
	ActionRemoveAdmin:          models.RoleOwner,
	ActionAuditDeleted:         models.RoleOwner,
}

// authorScoped 只能作用于自己创建的记录
var authorScoped = map[Action]bool{
	ActionEditOwnTransaction:   true,
	ActionDeleteOwnTransaction: true,
}

// Decide 纯函数授权判定；未定义的操作一律拒绝
// ownsTarget 仅对作者范围的操作生效
func Decide(role models.Role, action Action, ownsTarget bool) bool {
	min, ok := capabilities[action]
	if !ok || !role.AtLeast(min) {
		return false
	}
	if authorScoped[action] {
		return ownsTarget
	}
	return true
}

// MaxAssignableRole 该角色邀请或调整成员时可授予的最高角色
func MaxAssignableRole(role models.Role) models.Role {
	switch role {
	case models.RoleOwner:
		return models.RoleAdmin
	case models.RoleAdmin:
		return models.RoleMember
	}
	return models.RoleUnknown
}

// Authorizer 基于成员角色的授权判定，无副作用
type Authorizer struct {
	store *Store
}

// NewAuthorizer 创建授权组件
func NewAuthorizer(store *Store) *Authorizer {
	return &Authorizer{store: store}
}

// RoleOf 账号在有效账本中的有效角色；非成员返回 RoleUnknown
func (a *Authorizer) RoleOf(ctx context.Context, accountID, ledgerID uuid.UUID) (models.Role, error) {
	var role models.Role
	err := a.store.Query(ctx, "authz.role", func(db *gorm.DB) error {
		var err error
		role, err = roleIn(db, accountID, ledgerID)
		return err
	})
	return role, err
}

// Can 账号能否在账本中执行操作
// 作者范围的操作在此表示“能否操作自己的记录”，具体记录用 CanOnTransaction 判定
func (a *Authorizer) Can(ctx context.Context, accountID, ledgerID uuid.UUID, action Action) (bool, error) {
	role, err := a.RoleOf(ctx, accountID, ledgerID)
	if err != nil {
		return false, err
	}
	return Decide(role, action, true), nil
}

// CanOnTransaction 针对具体收支记录的授权判定
func (a *Authorizer) CanOnTransaction(ctx context.Context, accountID uuid.UUID, txn models.Transaction, action Action) (bool, error) {
	role, err := a.RoleOf(ctx, accountID, txn.LedgerID)
	if err != nil {
		return false, err
	}
	return Decide(role, action, txn.AuthoredBy(accountID)), nil
}

// roleIn 查询角色，要求成员关系与账本均未删除
func roleIn(db *gorm.DB, accountID, ledgerID uuid.UUID) (models.Role, error) {
	var roles []models.Role
	err := db.Model(&models.Membership{}).
		Joins("JOIN ledgers ON ledgers.id = ledger_members.ledger_id AND ledgers.deleted_at IS NULL").
		Where("ledger_members.ledger_id = ? AND ledger_members.account_id = ?", ledgerID, accountID).
		Limit(1).
		Pluck("ledger_members.role", &roles).Error
	if err != nil || len(roles) == 0 {
		return models.RoleUnknown, err
	}
	return roles[0], nil
}

// authorize 事务内授权，拒绝时返回 ErrUnauthorized
func authorize(tx *gorm.DB, accountID, ledgerID uuid.UUID, action Action) (models.Role, error) {
	role, err := roleIn(tx, accountID, ledgerID)
	if err != nil {
		return role, err
	}
	if !Decide(role, action, true) {
		return role, ErrUnauthorized
	}
	return role, nil
}
