package service

import (
	"sync"
	"testing"

	"bugie/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLedger(t *testing.T) {
	f := newFixture(t)
	owner := f.account("owner")

	l, err := f.members.CreateLedger(f.ctx, owner, LedgerAttrs{Name: "  우리집  ", Currency: "usd"})
	require.NoError(t, err)
	assert.Equal(t, "우리집", l.Name)
	assert.Equal(t, "USD", l.Currency)
	assert.Equal(t, owner, l.CreatedBy)
	f.requireInvariant(l.ID)

	_, err = f.members.CreateLedger(f.ctx, owner, LedgerAttrs{Name: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.members.CreateLedger(f.ctx, uuid.New(), LedgerAttrs{Name: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInviteMember(t *testing.T) {
	f := newFixture(t)
	owner := f.account("owner")
	admin := f.account("admin")
	member := f.account("member")
	target := f.account("target")
	ledger := f.ledger(owner)

	f.invite(owner, ledger, admin, models.RoleAdmin)
	f.invite(admin, ledger, member, models.RoleMember)
	f.requireInvariant(ledger)

	tests := []struct {
		name  string
		actor uuid.UUID
		role  models.Role
	}{
		{"member cannot invite", member, models.RoleViewer},
		{"admin cannot grant admin", admin, models.RoleAdmin},
		{"owner cannot grant owner", owner, models.RoleOwner},
	}
	for _, tt := range tests {
		_, err := f.members.InviteMember(f.ctx, tt.actor, ledger, target, tt.role)
		assert.ErrorIsf(t, err, ErrInsufficientRole, tt.name)
	}

	_, err := f.members.InviteMember(f.ctx, owner, ledger, member, models.RoleViewer)
	assert.ErrorIs(t, err, ErrAlreadyMember)
	assert.ErrorIs(t, err, ErrInsufficientRole)

	_, err = f.members.InviteMember(f.ctx, owner, ledger, target, models.RoleUnknown)
	assert.ErrorIs(t, err, ErrInvalidInput)

	m, err := f.members.InviteMember(f.ctx, admin, ledger, target, models.RoleViewer)
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, m.Role)
	assert.True(t, m.JoinedAt.Equal(f.now))
	f.requireInvariant(ledger)
}

func TestInviteMember_TargetMustBeActive(t *testing.T) {
	f := newFixture(t)
	owner := f.account("owner")
	leaving := f.account("leaving")
	ledger := f.ledger(owner)

	_, err := f.lifecycle.RequestDeletion(f.ctx, leaving, DeletionConfirmPhrase)
	require.NoError(t, err)

	_, err = f.members.InviteMember(f.ctx, owner, ledger, leaving, models.RoleMember)
	assert.ErrorIs(t, err, ErrAccountNotActive)
}

func TestChangeRole(t *testing.T) {
	f := newFixture(t)
	owner := f.account("owner")
	admin := f.account("admin")
	member := f.account("member")
	ledger := f.ledger(owner)
	f.invite(owner, ledger, admin, models.RoleAdmin)
	f.invite(owner, ledger, member, models.RoleMember)

	_, err := f.members.ChangeRole(f.ctx, admin, ledger, owner, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrCannotDemoteOwner)
	_, err = f.members.ChangeRole(f.ctx, owner, ledger, owner, models.RoleMember)
	assert.ErrorIs(t, err, ErrCannotDemoteOwner)
	_, err = f.members.ChangeRole(f.ctx, owner, ledger, member, models.RoleOwner)
	assert.ErrorIs(t, err, ErrInsufficientRole)
	_, err = f.members.ChangeRole(f.ctx, admin, ledger, member, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrInsufficientRole)
	_, err = f.members.ChangeRole(f.ctx, member, ledger, admin, models.RoleViewer)
	assert.ErrorIs(t, err, ErrUnauthorized)
	f.requireInvariant(ledger)

	m, err := f.members.ChangeRole(f.ctx, admin, ledger, member, models.RoleViewer)
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, m.Role)
	assert.Equal(t, models.RoleViewer, f.role(member, ledger))

	_, err = f.members.ChangeRole(f.ctx, owner, ledger, admin, models.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, f.role(admin, ledger))
	f.requireInvariant(ledger)
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t)
	owner := f.account("owner")
	admin := f.account("admin")
	admin2 := f.account("admin2")
	member := f.account("member")
	ledger := f.ledger(owner)
	f.invite(owner, ledger, admin, models.RoleAdmin)
	f.invite(owner, ledger, admin2, models.RoleAdmin)
	f.invite(owner, ledger, member, models.RoleMember)

	assert.ErrorIs(t, f.members.RemoveMember(f.ctx, owner, ledger, owner), ErrCannotRemoveSoleOwner)
	assert.ErrorIs(t, f.members.RemoveMember(f.ctx, admin, ledger, owner), ErrCannotRemoveSoleOwner)
	assert.ErrorIs(t, f.members.RemoveMember(f.ctx, admin, ledger, admin2), ErrUnauthorized)
	assert.ErrorIs(t, f.members.RemoveMember(f.ctx, member, ledger, admin), ErrUnauthorized)
	f.requireInvariant(ledger)

	require.NoError(t, f.members.RemoveMember(f.ctx, admin, ledger, member))
	assert.Equal(t, models.RoleUnknown, f.role(member, ledger))
	require.NoError(t, f.members.RemoveMember(f.ctx, owner, ledger, admin2))
	// 非所有者可以移除自己
	require.NoError(t, f.members.RemoveMember(f.ctx, admin, ledger, admin))
	assert.ErrorIs(t, f.members.RemoveMember(f.ctx, owner, ledger, admin), ErrNotFound)
	f.requireInvariant(ledger)

	// 成员关系保留为已删除记录
	var removed int64
	require.NoError(t, f.db.Unscoped().Model(&models.Membership{}).
		Where("ledger_id = ? AND deleted_at IS NOT NULL", ledger).Count(&removed).Error)
	assert.EqualValues(t, 3, removed)
}

func TestLeaveLedger(t *testing.T) {
	f := newFixture(t)
	owner := f.account("owner")
	viewer := f.account("viewer")
	stranger := f.account("stranger")
	ledger := f.ledger(owner)
	f.invite(owner, ledger, viewer, models.RoleViewer)

	assert.ErrorIs(t, f.members.LeaveLedger(f.ctx, owner, ledger), ErrCannotLeaveAsSoleOwner)
	assert.ErrorIs(t, f.members.LeaveLedger(f.ctx, stranger, ledger), ErrNotFound)
	require.NoError(t, f.members.LeaveLedger(f.ctx, viewer, ledger))
	assert.Equal(t, models.RoleUnknown, f.role(viewer, ledger))
	f.requireInvariant(ledger)
}

func TestTransferOwnership(t *testing.T) {
	f := newFixture(t)
	owner := f.account("owner")
	admin := f.account("admin")
	outsider := f.account("outsider")
	ledger := f.ledger(owner)
	f.invite(owner, ledger, admin, models.RoleAdmin)

	assert.ErrorIs(t, f.members.TransferOwnership(f.ctx, admin, ledger, admin), ErrInvalidInput)
	assert.ErrorIs(t, f.members.TransferOwnership(f.ctx, admin, ledger, outsider), ErrUnauthorized)

	require.NoError(t, f.members.TransferOwnership(f.ctx, owner, ledger, admin))
	f.requireInvariant(ledger)
	assert.Equal(t, models.RoleOwner, f.role(admin, ledger))
	assert.Equal(t, models.RoleAdmin, f.role(owner, ledger))

	var l models.Ledger
	require.NoError(t, f.db.First(&l, "id = ?", ledger).Error)
	assert.Equal(t, admin, l.CreatedBy)
	assert.EqualValues(t, 2, l.Version)

	// 目标没有成员关系时直接创建 owner 成员关系
	require.NoError(t, f.members.TransferOwnership(f.ctx, admin, ledger, outsider))
	f.requireInvariant(ledger)
	assert.Equal(t, models.RoleOwner, f.role(outsider, ledger))
	assert.Equal(t, models.RoleAdmin, f.role(admin, ledger))

	// 原所有者不再拥有账本，可以申请注销
	_, err := f.lifecycle.RequestDeletion(f.ctx, owner, DeletionConfirmPhrase)
	require.NoError(t, err)
	f.requireInvariant(ledger)
}

func TestTransferOwnership_Concurrent(t *testing.T) {
	f := newFixture(t)
	owner := f.account("owner")
	a := f.account("a")
	b := f.account("b")
	ledger := f.ledger(owner)
	f.invite(owner, ledger, a, models.RoleAdmin)
	f.invite(owner, ledger, b, models.RoleMember)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, target := range []uuid.UUID{a, b} {
		wg.Add(1)
		go func(i int, target uuid.UUID) {
			defer wg.Done()
			errs[i] = f.members.TransferOwnership(f.ctx, owner, ledger, target)
		}(i, target)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrUnauthorized)
		}
	}
	assert.Equal(t, 1, succeeded)
	f.requireInvariant(ledger)
}

func TestListMembers(t *testing.T) {
	f := newFixture(t)
	owner := f.account("owner")
	viewer := f.account("viewer")
	stranger := f.account("stranger")
	ledger := f.ledger(owner)
	f.invite(owner, ledger, viewer, models.RoleViewer)

	list, err := f.members.ListMembers(f.ctx, viewer, ledger)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = f.members.ListMembers(f.ctx, stranger, ledger)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
