package job

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Dountche/esi-edt-backend/config"
)

const cleanupTimeout = 2 * time.Minute

// NotificationPurger 清理已读通知，由 service.NotificationService 实现
type NotificationPurger interface {
	PurgeReadBefore(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler 后台定时任务
//
// 任务均在 cron 自身的 goroutine 中运行，与请求处理互不阻塞。
type Scheduler struct {
	cron   *cron.Cron
	cfg    config.JobsConfig
	purger NotificationPurger
	logger *zap.Logger
	now    func() time.Time
}

// NewScheduler 创建调度器并注册任务；jobs.enabled 为 false 时不注册任何任务
func NewScheduler(cfg config.JobsConfig, purger NotificationPurger, logger *zap.Logger) (*Scheduler, error) {
	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		cfg:    cfg,
		purger: purger,
		logger: logger,
		now:    time.Now,
	}
	if !cfg.Enabled {
		return s, nil
	}

	if _, err := s.cron.AddFunc(cfg.NotificationCleanupCron, s.cleanupNotifications); err != nil {
		return nil, fmt.Errorf("注册通知清理任务失败: %w", err)
	}
	return s, nil
}

// Start 启动调度（非阻塞）
func (s *Scheduler) Start() {
	if len(s.cron.Entries()) == 0 {
		return
	}
	s.cron.Start()
	s.logger.Info("定时任务已启动",
		zap.Int("jobs", len(s.cron.Entries())),
		zap.String("notification_cleanup", s.cfg.NotificationCleanupCron),
	)
}

// Stop 停止调度并等待运行中的任务结束
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("等待定时任务结束超时")
	}
}

// cleanupNotifications 删除超过保留天数的已读通知
func (s *Scheduler) cleanupNotifications() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	before := s.now().AddDate(0, 0, -s.cfg.NotificationRetentionDays)
	if _, err := s.purger.PurgeReadBefore(ctx, before); err != nil {
		s.logger.Error("通知清理任务失败", zap.Error(err))
	}
}

// cronLogger 将 cron 内部日志转发到 zap
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
