package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrConflict 条件更新未命中任何行（状态已被其他请求修改）
	ErrConflict = errors.New("record state changed concurrently")
	// ErrDuplicate 唯一键冲突
	ErrDuplicate = errors.New("duplicate record")
)

// Executor 同时由 *sqlx.DB 和 *sqlx.Tx 实现
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Store 聚合所有仓库，并提供事务边界
type Store interface {
	Mailings() MailingRepository
	Spots() SpotRepository
	Payments() PaymentRepository
	LandingPages() LandingPageRepository
	Profiles() ProfileRepository
	Analytics() AnalyticsRepository
	BlogPosts() BlogPostRepository
	Outbox() OutboxRepository
	WebhookEvents() WebhookEventRepository

	// InTx 在单个数据库事务中执行fn，fn返回错误时整体回滚
	InTx(ctx context.Context, fn func(tx Store) error) error
}

type sqlStore struct {
	db   *sqlx.DB
	exec Executor
	inTx bool
}

// NewStore 创建基于MySQL的Store
func NewStore(db *sqlx.DB) Store {
	return &sqlStore{db: db, exec: db}
}

func (s *sqlStore) Mailings() MailingRepository         { return &mailingRepository{db: s.exec} }
func (s *sqlStore) Spots() SpotRepository               { return &spotRepository{db: s.exec} }
func (s *sqlStore) Payments() PaymentRepository         { return &paymentRepository{db: s.exec} }
func (s *sqlStore) LandingPages() LandingPageRepository { return &landingPageRepository{db: s.exec} }
func (s *sqlStore) Profiles() ProfileRepository         { return &profileRepository{db: s.exec} }
func (s *sqlStore) Analytics() AnalyticsRepository      { return &analyticsRepository{db: s.exec} }
func (s *sqlStore) BlogPosts() BlogPostRepository       { return &blogPostRepository{db: s.exec} }
func (s *sqlStore) Outbox() OutboxRepository            { return &outboxRepository{db: s.exec} }
func (s *sqlStore) WebhookEvents() WebhookEventRepository {
	return &webhookEventRepository{db: s.exec}
}

// InTx 开启事务；已在事务中时直接复用当前事务
func (s *sqlStore) InTx(ctx context.Context, fn func(tx Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&sqlStore{db: s.db, exec: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (回滚失败: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// notFound 将 sql.ErrNoRows 转换为 ErrNotFound
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// requireAffected 条件更新必须命中至少一行
func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("获取影响行数失败: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// isDuplicateKey MySQL 1062 唯一键冲突
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
