package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Clock 当前时间来源，测试中可替换
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// errConflict 乐观锁冲突，事务整体重试
var errConflict = errors.New("bugie: optimistic conflict")

// Store 关系型存储网关：所有业务操作都是一个有界事务
type Store struct {
	db         *gorm.DB
	isolation  sql.IsolationLevel
	timeout    time.Duration
	maxRetries int
	now        Clock
	log        *zap.Logger
}

// StoreOption Store 可选配置
type StoreOption func(*Store)

// WithIsolation 事务隔离级别
func WithIsolation(level sql.IsolationLevel) StoreOption {
	return func(s *Store) { s.isolation = level }
}

// WithTimeout 调用方未设置截止时间时使用的默认超时
func WithTimeout(d time.Duration) StoreOption {
	return func(s *Store) { s.timeout = d }
}

// WithMaxRetries 序列化冲突的最大重试次数
func WithMaxRetries(n int) StoreOption {
	return func(s *Store) { s.maxRetries = n }
}

// WithClock 替换时钟
func WithClock(c Clock) StoreOption {
	return func(s *Store) { s.now = c }
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

// NewStore 创建存储网关
func NewStore(db *gorm.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:         db,
		isolation:  sql.LevelDefault,
		timeout:    5 * time.Second,
		maxRetries: 3,
		now:        systemClock,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now 当前时间
func (s *Store) Now() time.Time {
	return s.now()
}

// Logger 日志
func (s *Store) Logger() *zap.Logger {
	return s.log
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Transaction 在单个事务中执行 fn
// 领域错误回滚后原样返回；序列化冲突按指数退避重试；其余错误包装为 InfrastructureError
func (s *Store) Transaction(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var txOpts []*sql.TxOptions
	if s.isolation != sql.LevelDefault {
		txOpts = append(txOpts, &sql.TxOptions{Isolation: s.isolation})
	}

	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		err := s.db.WithContext(ctx).Transaction(fn, txOpts...)
		switch {
		case err == nil:
			return struct{}{}, nil
		case IsDomainError(err):
			return struct{}{}, backoff.Permanent(err)
		case isConflict(err):
			s.log.Debug("transaction conflict, retrying", zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(infraError(op, err))
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(s.maxRetries+1)),
	)
	if err != nil && !IsDomainError(err) {
		return infraError(op, err)
	}
	return err
}

// Query 只读查询，不开启事务也不重试
func (s *Store) Query(ctx context.Context, op string, fn func(db *gorm.DB) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := fn(s.db.WithContext(ctx))
	if err == nil || IsDomainError(err) {
		return err
	}
	return infraError(op, err)
}

func isConflict(err error) bool {
	if errors.Is(err, errConflict) {
		return true
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		// 1213 死锁，1205 锁等待超时
		return myErr.Number == 1213 || myErr.Number == 1205
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// forUpdate 行锁，sqlite 驱动会忽略
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// notFound 将 gorm 未找到记录转为领域错误
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
