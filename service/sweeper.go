package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper 定时执行 SweepExpired 的后台任务
type Sweeper struct {
	lifecycle *LifecycleService
	interval  time.Duration
	log       *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewSweeper 创建清理任务
func NewSweeper(lifecycle *LifecycleService, interval time.Duration, log *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{lifecycle: lifecycle, interval: interval, log: log}
}

// Start 启动后台任务，启动时立即执行一次
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
	s.log.Info("account sweeper started", zap.Duration("interval", s.interval))
}

// RunOnce 执行一次清理
func (s *Sweeper) RunOnce(ctx context.Context) int {
	n, err := s.lifecycle.SweepExpired(ctx)
	if err != nil && ctx.Err() == nil {
		s.log.Error("account sweep failed", zap.Int("erased", n), zap.Error(err))
	}
	return n
}

// Shutdown 停止并等待正在执行的清理结束
func (s *Sweeper) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info("account sweeper stopped")
}
