package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/Dountche/esi-edt-backend/config"
	"github.com/Dountche/esi-edt-backend/internal/repository"
	"github.com/Dountche/esi-edt-backend/pkg/jwt"
	pkglogger "github.com/Dountche/esi-edt-backend/pkg/logger"
	"github.com/Dountche/esi-edt-backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth           AuthService
	User           UserService
	Semester       SemesterService
	Room           RoomService
	Subject        SubjectService
	Class          ClassService
	Assignment     AssignmentService
	Timetable      TimetableService
	Placement      PlacementService
	Unavailability UnavailabilityService
	Notification   NotificationService
	Export         ExportService
	Dashboard      DashboardService

	Catalog *SlotCatalog
}

// NewService 创建 Service 聚合
// rdb 可为 nil：Token 黑名单与同步锁随之降级
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	catalog := DefaultSlotCatalog()

	var (
		locker      Locker
		blacklister TokenBlacklist
	)
	if rdb != nil {
		locker = rdb
		blacklister = rdb
	}

	syncer := NewRecurringSlotSynchronizer(repo, locker, cfg.Timetable, pkglogger.Module(logger, "recurring-sync"))
	notifier := newNotifier(repo, logger)

	return &Service{
		Auth:           NewAuthService(cfg, repo, jwtMgr, blacklister, logger),
		User:           NewUserService(repo, logger),
		Semester:       NewSemesterService(repo, logger),
		Room:           NewRoomService(repo, logger),
		Subject:        NewSubjectService(repo, logger),
		Class:          NewClassService(repo, catalog, syncer, logger),
		Assignment:     NewAssignmentService(repo, notifier, logger),
		Timetable:      NewTimetableService(repo, syncer, notifier, logger),
		Placement:      NewPlacementService(repo, catalog, cfg.Timetable, logger),
		Unavailability: NewUnavailabilityService(repo, notifier, logger),
		Notification:   NewNotificationService(repo, logger),
		Export:         NewExportService(repo, catalog, cfg.Timetable, logger),
		Dashboard:      NewDashboardService(repo, logger),
		Catalog:        catalog,
	}
}

// ── 响应格式化辅助 ──

const (
	timeLayout = "2006-01-02T15:04:05Z07:00"
	dateLayout = "2006-01-02"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
