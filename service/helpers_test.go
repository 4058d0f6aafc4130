package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"bugie/database"
	"bugie/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB
	now time.Time

	store        *Store
	authz        *Authorizer
	members      *MembershipService
	ledgers      *LedgerService
	categories   *CategoryService
	transactions *TransactionService
	budgets      *BudgetService
	lifecycle    *LifecycleService
}

// newTestDB 每个测试独立的内存数据库；单连接保证同一个数据库实例
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

// newFileDB 文件数据库，多个连接可真正并发执行事务
func newFileDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "bugie.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(4)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func newFixture(t *testing.T, opts ...func(*LifecycleOptions)) *fixture {
	t.Helper()
	f := &fixture{t: t, ctx: context.Background(), db: newTestDB(t), now: baseTime}
	f.store = NewStore(f.db, WithClock(func() time.Time { return f.now }))
	f.authz = NewAuthorizer(f.store)
	f.members = NewMembershipService(f.store, f.authz)
	f.ledgers = NewLedgerService(f.store)
	f.categories = NewCategoryService(f.store)
	f.transactions = NewTransactionService(f.store)
	f.budgets = NewBudgetService(f.store)

	lo := LifecycleOptions{}
	for _, opt := range opts {
		opt(&lo)
	}
	f.lifecycle = NewLifecycleService(f.store, lo)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) account(name string) uuid.UUID {
	f.t.Helper()
	acc, err := f.lifecycle.EnsureAccount(f.ctx, Identity{
		AccountID:   uuid.New(),
		Email:       name + "@example.com",
		DisplayName: name,
	})
	require.NoError(f.t, err)
	return acc.ID
}

func (f *fixture) ledger(owner uuid.UUID) uuid.UUID {
	f.t.Helper()
	l, err := f.members.CreateLedger(f.ctx, owner, LedgerAttrs{Name: "가계부", SeedDefaultCategories: true})
	require.NoError(f.t, err)
	return l.ID
}

func (f *fixture) invite(actor, ledger, target uuid.UUID, role models.Role) {
	f.t.Helper()
	_, err := f.members.InviteMember(f.ctx, actor, ledger, target, role)
	require.NoError(f.t, err)
}

func (f *fixture) role(account, ledger uuid.UUID) models.Role {
	f.t.Helper()
	r, err := f.authz.RoleOf(f.ctx, account, ledger)
	require.NoError(f.t, err)
	return r
}

func (f *fixture) requireInvariant(ledger uuid.UUID) {
	f.t.Helper()
	require.NoError(f.t, CheckOwnerInvariant(f.db, ledger))
}

func (f *fixture) reload(account uuid.UUID) models.Account {
	f.t.Helper()
	var acc models.Account
	require.NoError(f.t, f.db.Unscoped().First(&acc, "id = ?", account).Error)
	return acc
}

func (f *fixture) firstCategory(ledger uuid.UUID, typ models.EntryType) models.Category {
	f.t.Helper()
	var cat models.Category
	require.NoError(f.t, f.db.Where("ledger_id = ? AND type = ?", ledger, typ).Order("sort ASC").First(&cat).Error)
	return cat
}
