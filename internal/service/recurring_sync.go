package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Dountche/esi-edt-backend/config"
	"github.com/Dountche/esi-edt-backend/internal/model"
	"github.com/Dountche/esi-edt-backend/internal/repository"
	pkgredis "github.com/Dountche/esi-edt-backend/pkg/redis"
)

// ── 固定周课同步业务错误 ──

var (
	ErrRecurringSyncBusy = errors.New("该课表的固定周课正在同步，请稍后重试")
)

// 跳过原因
const (
	SyncSkipNoSlot    = "no_recurring_slot"
	SyncSkipNoSubject = "special_subject_not_found"
)

const (
	syncLockTTL      = 30 * time.Second
	syncLockAttempts = 20
	syncLockBackoff  = 100 * time.Millisecond
)

// Locker 短时分布式锁，由 pkg/redis.Client 实现
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, name, token string) error
}

// SyncResult 同步结果
type SyncResult struct {
	Created int    `json:"created"`
	Deleted int64  `json:"deleted"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
}

// RecurringSlotSynchronizer 按班级固定周课配置重建课表中的占位课次
type RecurringSlotSynchronizer struct {
	repo   *repository.Repository
	locker Locker // 可为 nil，此时不加锁
	cfg    config.TimetableConfig
	logger *zap.Logger
}

// NewRecurringSlotSynchronizer 创建同步器
func NewRecurringSlotSynchronizer(repo *repository.Repository, locker Locker, cfg config.TimetableConfig, logger *zap.Logger) *RecurringSlotSynchronizer {
	return &RecurringSlotSynchronizer{repo: repo, locker: locker, cfg: cfg, logger: logger}
}

// Sync 删除课表中该课程的全部课次后按周数重新生成，整体在一个事务内完成
func (s *RecurringSlotSynchronizer) Sync(ctx context.Context, timetableID string) (*SyncResult, error) {
	release, err := s.lock(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	defer release()

	tt, err := s.repo.Timetable.GetByID(ctx, timetableID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimetableNotFound
		}
		return nil, fmt.Errorf("查询课表失败: %w", err)
	}

	class := tt.Class
	if class == nil {
		if class, err = s.repo.Class.GetByID(ctx, tt.ClassID); err != nil {
			return nil, fmt.Errorf("查询班级失败: %w", err)
		}
	}
	if !class.HasRecurringSlot() {
		return &SyncResult{Skipped: true, Reason: SyncSkipNoSlot}, nil
	}

	subject, err := s.resolveSubject(ctx, class)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		s.logger.Warn("未找到固定周课对应课程，跳过同步",
			zap.String("timetable_id", timetableID),
			zap.String("class_id", class.ClassID),
			zap.String("pattern", s.cfg.SpecialSubjectPattern),
		)
		return &SyncResult{Skipped: true, Reason: SyncSkipNoSubject}, nil
	}

	generated := make([]model.Placement, 0, s.cfg.WeekCount)
	for week := 1; week <= s.cfg.WeekCount; week++ {
		generated = append(generated, model.Placement{
			TimetableID: tt.TimetableID,
			SemesterID:  tt.SemesterID,
			DayOfWeek:   *class.RecurringDay,
			StartTime:   *class.RecurringStart,
			EndTime:     *class.RecurringEnd,
			WeekNumber:  week,
			SubjectID:   subject.SubjectID,
			Kind:        s.cfg.RecurringKind,
		})
	}

	result := &SyncResult{}
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		deleted, err := txRepo.Placement.DeleteByTimetableAndSubject(ctx, tt.TimetableID, subject.SubjectID)
		if err != nil {
			return fmt.Errorf("删除旧固定周课失败: %w", err)
		}
		if err := txRepo.Placement.BatchCreate(ctx, generated); err != nil {
			return fmt.Errorf("生成固定周课失败: %w", err)
		}
		result.Deleted = deleted
		result.Created = len(generated)
		return nil
	})
	if err != nil {
		s.logger.Error("同步固定周课失败", zap.String("timetable_id", timetableID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("固定周课已同步",
		zap.String("timetable_id", timetableID),
		zap.String("subject_id", subject.SubjectID),
		zap.Int64("deleted", result.Deleted),
		zap.Int("created", result.Created),
	)
	return result, nil
}

// Remove 删除课表中指定课程的全部课次，用于固定周课被清除或更换课程
func (s *RecurringSlotSynchronizer) Remove(ctx context.Context, timetableID, subjectID string) (int64, error) {
	release, err := s.lock(ctx, timetableID)
	if err != nil {
		return 0, err
	}
	defer release()

	deleted, err := s.repo.Placement.DeleteByTimetableAndSubject(ctx, timetableID, subjectID)
	if err != nil {
		s.logger.Error("清理旧固定周课失败", zap.String("timetable_id", timetableID), zap.Error(err))
		return 0, err
	}
	return deleted, nil
}

// resolveSubject 优先使用班级配置的课程，否则按名称关键字查找；均未找到返回 nil
func (s *RecurringSlotSynchronizer) resolveSubject(ctx context.Context, class *model.Class) (*model.Subject, error) {
	if class.RecurringSubjectID != nil && *class.RecurringSubjectID != "" {
		subject, err := s.repo.Subject.GetByID(ctx, *class.RecurringSubjectID)
		if err == nil {
			return subject, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("查询固定周课课程失败: %w", err)
		}
	}

	if s.cfg.SpecialSubjectPattern == "" {
		return nil, nil
	}
	subject, err := s.repo.Subject.FindByNamePattern(ctx, s.cfg.SpecialSubjectPattern)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("按名称查找固定周课课程失败: %w", err)
	}
	return subject, nil
}

// lock 获取课表级同步锁；Redis 不可用时降级为不加锁
func (s *RecurringSlotSynchronizer) lock(ctx context.Context, timetableID string) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	name := "recurring-sync:" + timetableID
	for attempt := 0; attempt < syncLockAttempts; attempt++ {
		token, err := s.locker.TryLock(ctx, name, syncLockTTL)
		if err == nil {
			return func() {
				// 请求 ctx 可能已取消，释放锁使用独立 ctx
				_ = s.locker.Unlock(context.Background(), name, token)
			}, nil
		}
		if !errors.Is(err, pkgredis.ErrLockNotAcquired) {
			s.logger.Warn("获取同步锁失败，降级为无锁同步", zap.String("lock", name), zap.Error(err))
			return noop, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(syncLockBackoff):
		}
	}
	return nil, ErrRecurringSyncBusy
}
