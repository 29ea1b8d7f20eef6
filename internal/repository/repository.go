package repository

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db     *gorm.DB
	txOpts *sql.TxOptions

	User           UserRepository
	Class          ClassRepository
	Room           RoomRepository
	Semester       SemesterRepository
	Subject        SubjectRepository
	Assignment     AssignmentRepository
	Timetable      TimetableRepository
	Placement      PlacementRepository
	Unavailability UnavailabilityRepository
	Notification   NotificationRepository
}

// Option Repository 构造选项
type Option func(*Repository)

// WithSerializable 写事务使用 SERIALIZABLE 隔离级别，防止并发校验出现写偏斜
func WithSerializable(enabled bool) Option {
	return func(r *Repository) {
		if enabled {
			r.txOpts = &sql.TxOptions{Isolation: sql.LevelSerializable}
		} else {
			r.txOpts = nil
		}
	}
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB, opts ...Option) *Repository {
	r := build(db)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func build(db *gorm.DB) *Repository {
	return &Repository{
		db:             db,
		User:           NewUserRepo(db),
		Class:          NewClassRepo(db),
		Room:           NewRoomRepo(db),
		Semester:       NewSemesterRepo(db),
		Subject:        NewSubjectRepo(db),
		Assignment:     NewAssignmentRepo(db),
		Timetable:      NewTimetableRepo(db),
		Placement:      NewPlacementRepo(db),
		Unavailability: NewUnavailabilityRepo(db),
		Notification:   NewNotificationRepo(db),
	}
}

// BeginTx 开启事务；未绑定数据库（单元测试注入 mock）时返回 nil
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin(r.txOpts)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到指定事务连接的 Repository；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	txRepo := build(tx)
	txRepo.txOpts = r.txOpts
	return txRepo
}

// Transaction 在单个事务中执行 fn，fn 返回错误或 panic 时整体回滚
// 未绑定数据库时直接以自身调用 fn
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	if tx == nil {
		return fn(r)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(r.WithTx(tx)); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}
