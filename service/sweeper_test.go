package service

import (
	"context"
	"testing"
	"time"

	"bugie/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_RunOnce(t *testing.T) {
	f := newFixture(t)
	user := f.account("user")
	_, err := f.lifecycle.RequestDeletion(f.ctx, user, DeletionConfirmPhrase)
	require.NoError(t, err)

	s := NewSweeper(f.lifecycle, time.Hour, nil)
	assert.Zero(t, s.RunOnce(f.ctx))

	f.advance(GracePeriod)
	assert.Equal(t, 1, s.RunOnce(f.ctx))
	assert.Equal(t, models.AccountStateDeleted, f.reload(user).State())
}

func TestSweeper_StartShutdown(t *testing.T) {
	f := newFixture(t)
	user := f.account("user")
	_, err := f.lifecycle.RequestDeletion(f.ctx, user, DeletionConfirmPhrase)
	require.NoError(t, err)
	f.advance(GracePeriod + time.Minute)

	s := NewSweeper(f.lifecycle, time.Hour, nil)
	s.Start(context.Background())
	// 启动时立即执行一次
	assert.Eventually(t, func() bool {
		var acc models.Account
		if err := f.db.Unscoped().First(&acc, "id = ?", user).Error; err != nil {
			return false
		}
		return acc.State() == models.AccountStateDeleted
	}, 2*time.Second, 20*time.Millisecond)
	s.Shutdown()
}
