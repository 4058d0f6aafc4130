package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bugie/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// DeletionConfirmPhrase 申请注销时必须完整输入的确认文字
	DeletionConfirmPhrase = "DELETE MY ACCOUNT"
	// GracePeriod 注销申请后可恢复的期限
	GracePeriod = 30 * 24 * time.Hour

	defaultCurrency = "KRW"
	defaultTimezone = "Asia/Seoul"
)

// Identity 认证服务商确认的身份
type Identity struct {
	AccountID   uuid.UUID
	Email       string
	DisplayName string
}

// DeletionReceipt 注销申请结果
type DeletionReceipt struct {
	AccountID       uuid.UUID `json:"account_id"`
	RequestedAt     time.Time `json:"requested_at"`
	RestoreDeadline time.Time `json:"restore_deadline"`
	MembershipsLeft int64     `json:"memberships_left"`
}

// ProfileUpdate 个人资料可修改字段
type ProfileUpdate struct {
	DisplayName *string
	Currency    *string
	Timezone    *string
}

// DeletionNotifier 注销申请提交后的通知
type DeletionNotifier interface {
	NotifyDeletionScheduled(ctx context.Context, account models.Account, deadline time.Time) error
}

// LifecycleOptions 生命周期服务配置
type LifecycleOptions struct {
	RestoreMemberships bool
	SweepBatchSize     int
	Notifier           DeletionNotifier
}

// LifecycleService 账号生命周期：Active -> PendingDeletion -> Deleted
type LifecycleService struct {
	store *Store
	opts  LifecycleOptions
}

// NewLifecycleService 创建生命周期服务
func NewLifecycleService(store *Store, opts LifecycleOptions) *LifecycleService {
	if opts.SweepBatchSize <= 0 {
		opts.SweepBatchSize = 100
	}
	return &LifecycleService{store: store, opts: opts}
}

// EnsureAccount 首次认证时创建账号；已存在的账号（包括已注销的）原样返回
func (s *LifecycleService) EnsureAccount(ctx context.Context, id Identity) (*models.Account, error) {
	if id.AccountID == uuid.Nil {
		return nil, invalidInput("account id is required")
	}
	var account models.Account
	err := s.store.Transaction(ctx, "lifecycle.ensure_account", func(tx *gorm.DB) error {
		err := tx.Unscoped().First(&account, "id = ?", id.AccountID).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		name := strings.TrimSpace(id.DisplayName)
		if name == "" {
			name = strings.Split(id.Email, "@")[0]
		}
		account = models.Account{
			ID:          id.AccountID,
			Email:       id.Email,
			DisplayName: name,
			Currency:    defaultCurrency,
			Timezone:    defaultTimezone,
		}
		return tx.Create(&account).Error
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// State 账号当前生命周期状态
func (s *LifecycleService) State(ctx context.Context, accountID uuid.UUID) (models.AccountState, error) {
	account, err := s.GetProfile(ctx, accountID)
	if err != nil {
		return "", err
	}
	return account.State(), nil
}

// GetProfile 读取账号，包含待注销与已抹除的账号
func (s *LifecycleService) GetProfile(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := s.store.Query(ctx, "lifecycle.profile", func(db *gorm.DB) error {
		return notFound(db.Unscoped().First(&account, "id = ?", accountID).Error)
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateProfile 修改个人资料，仅限 Active 账号
func (s *LifecycleService) UpdateProfile(ctx context.Context, accountID uuid.UUID, in ProfileUpdate) (*models.Account, error) {
	updates := map[string]interface{}{}
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" {
			return nil, invalidInput("display name is required")
		}
		updates["display_name"] = name
	}
	if in.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*in.Currency))
		if len(currency) != 3 {
			return nil, invalidInput("currency must be an ISO 4217 code")
		}
		updates["currency"] = currency
	}
	if in.Timezone != nil {
		if _, err := time.LoadLocation(*in.Timezone); err != nil || *in.Timezone == "" {
			return nil, invalidInput(fmt.Sprintf("unknown timezone %q", *in.Timezone))
		}
		updates["timezone"] = *in.Timezone
	}

	var account *models.Account
	err := s.store.Transaction(ctx, "lifecycle.update_profile", func(tx *gorm.DB) error {
		var err error
		if account, err = lockActiveAccount(tx, accountID); err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(account).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(account, "id = ?", accountID).Error
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// RequestDeletion 申请注销
// 仍拥有有效账本时拒绝且不做任何修改；否则标记账号并移除其全部成员关系
func (s *LifecycleService) RequestDeletion(ctx context.Context, accountID uuid.UUID, confirmation string) (*DeletionReceipt, error) {
	if confirmation != DeletionConfirmPhrase {
		return nil, ErrConfirmTextMismatch
	}

	var (
		receipt DeletionReceipt
		account *models.Account
	)
	err := s.store.Transaction(ctx, "lifecycle.request_deletion", func(tx *gorm.DB) error {
		var err error
		if account, err = lockActiveAccount(tx, accountID); err != nil {
			return err
		}

		var owned int64
		if err := tx.Model(&models.Ledger{}).Where("created_by = ?", accountID).Count(&owned).Error; err != nil {
			return err
		}
		if owned > 0 {
			return &HasOwnedLedgersError{Count: owned}
		}

		now := s.store.Now()
		if _, err := SoftDelete(tx, *account, now); err != nil {
			return err
		}
		// 成员关系使用与账号相同的删除时间，恢复时据此识别
		res := tx.Model(&models.Membership{}).Where("account_id = ?", accountID).UpdateColumn("deleted_at", now)
		if res.Error != nil {
			return res.Error
		}
		receipt = DeletionReceipt{
			AccountID:       accountID,
			RequestedAt:     now,
			RestoreDeadline: now.Add(GracePeriod),
			MembershipsLeft: res.RowsAffected,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.store.Logger().Info("account deletion requested",
		zap.Stringer("account_id", accountID),
		zap.Int64("memberships_left", receipt.MembershipsLeft),
		zap.Time("restore_deadline", receipt.RestoreDeadline))

	if s.opts.Notifier != nil {
		if err := s.opts.Notifier.NotifyDeletionScheduled(ctx, *account, receipt.RestoreDeadline); err != nil {
			s.store.Logger().Warn("deletion notice not sent", zap.Stringer("account_id", accountID), zap.Error(err))
		}
	}
	return &receipt, nil
}

// Reauthenticate 登录时调用
// 期限内的待注销账号被恢复；超过期限的在本次调用中永久抹除并返回 ErrAccountPermanentlyDeleted
func (s *LifecycleService) Reauthenticate(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	var (
		account *models.Account
		erased  bool
	)
	err := s.store.Transaction(ctx, "lifecycle.reauthenticate", func(tx *gorm.DB) error {
		erased = false
		var err error
		if account, err = lockAccount(tx, accountID); err != nil {
			return err
		}
		switch account.State() {
		case models.AccountStateDeleted:
			return ErrAccountPermanentlyDeleted
		case models.AccountStateActive:
			return nil
		}

		now := s.store.Now()
		requestedAt := account.DeletedAt.Time
		if now.Sub(requestedAt) >= GracePeriod {
			// 先提交抹除，再返回错误
			if _, err := erase(tx, accountID, now, now.Add(-GracePeriod)); err != nil {
				return err
			}
			erased = true
			return nil
		}

		if _, err := Restore(tx, *account); err != nil {
			return err
		}
		account.DeletedAt = gorm.DeletedAt{}
		if s.opts.RestoreMemberships {
			return restoreMemberships(tx, accountID, requestedAt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if erased {
		s.store.Logger().Info("account erased on reauthentication", zap.Stringer("account_id", accountID))
		return nil, ErrAccountPermanentlyDeleted
	}
	return account, nil
}

// SweepExpired 抹除超过期限的待注销账号，返回本次抹除的数量
// 可重复执行，多个实例并发执行时每个账号只会被抹除一次
func (s *LifecycleService) SweepExpired(ctx context.Context) (int, error) {
	now := s.store.Now()
	cutoff := now.Add(-GracePeriod)

	var ids []uuid.UUID
	err := s.store.Query(ctx, "lifecycle.sweep_candidates", func(db *gorm.DB) error {
		return db.Unscoped().Model(&models.Account{}).
			Where("erased_at IS NULL AND deleted_at IS NOT NULL AND deleted_at <= ?", cutoff).
			Order("deleted_at ASC").
			Limit(s.opts.SweepBatchSize).
			Pluck("id", &ids).Error
	})
	if err != nil {
		return 0, err
	}

	var (
		erasedCount int
		errs        []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		var claimed bool
		err := s.store.Transaction(ctx, "lifecycle.sweep", func(tx *gorm.DB) error {
			var err error
			claimed, err = erase(tx, id, now, cutoff)
			return err
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if claimed {
			erasedCount++
		}
	}
	if erasedCount > 0 {
		s.store.Logger().Info("expired accounts erased", zap.Int("count", erasedCount))
	}
	return erasedCount, errors.Join(errs...)
}

// erase 以条件更新认领并抹除账号：只有仍在待注销且已过期的账号会被修改
// 收支记录的作者引用被置空，记录本身保留
func erase(tx *gorm.DB, accountID uuid.UUID, now, cutoff time.Time) (bool, error) {
	res := tx.Unscoped().Model(&models.Account{}).
		Where("id = ? AND erased_at IS NULL AND deleted_at IS NOT NULL AND deleted_at <= ?", accountID, cutoff).
		UpdateColumns(map[string]interface{}{
			"email":        "",
			"display_name": "",
			"currency":     "",
			"timezone":     "",
			"erased_at":    now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	err := tx.Unscoped().Model(&models.Transaction{}).
		Where("author_id = ?", accountID).
		UpdateColumn("author_id", nil).Error
	return err == nil, err
}

// restoreMemberships 恢复注销时一并移除的成员关系
// 账本已删除或已存在有效成员关系的跳过
func restoreMemberships(tx *gorm.DB, accountID uuid.UUID, stamp time.Time) error {
	var removed []models.Membership
	if err := tx.Unscoped().Where("account_id = ? AND deleted_at = ?", accountID, stamp).Find(&removed).Error; err != nil {
		return err
	}
	for _, m := range removed {
		var n int64
		if err := tx.Model(&models.Ledger{}).Where("id = ?", m.LedgerID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		existing, err := activeMembership(tx, m.LedgerID, accountID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if _, err := Restore(tx, m); err != nil {
			return err
		}
	}
	return nil
}
