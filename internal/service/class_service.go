package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Dountche/esi-edt-backend/internal/dto"
	"github.com/Dountche/esi-edt-backend/internal/model"
	"github.com/Dountche/esi-edt-backend/internal/repository"
)

// ── 班级模块业务错误 ──

var (
	ErrClassNotFound           = errors.New("班级不存在")
	ErrManagerInvalid          = errors.New("负责人必须是 rup 角色的用户")
	ErrRecurringSlotIncomplete = errors.New("固定周课必须同时指定星期、开始时间与结束时间")
	ErrRecurringSlotInvalid    = errors.New("固定周课时段不在可选时段内")
)

// ClassService 班级业务接口
type ClassService interface {
	Create(ctx context.Context, req *dto.CreateClassRequest, callerID string) (*dto.ClassResponse, error)
	GetByID(ctx context.Context, scope Scope, id string) (*dto.ClassResponse, error)
	List(ctx context.Context, scope Scope, req *dto.ClassListRequest) ([]dto.ClassResponse, error)
	Update(ctx context.Context, scope Scope, id string, req *dto.UpdateClassRequest) (*dto.ClassResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
	Members(ctx context.Context, scope Scope, id string, page *dto.PaginationRequest) ([]dto.UserResponse, int64, error)
	SetRecurringSlot(ctx context.Context, scope Scope, id string, req *dto.SetRecurringSlotRequest) (*dto.SetRecurringSlotResponse, error)
}

type classService struct {
	repo    *repository.Repository
	catalog *SlotCatalog
	syncer  *RecurringSlotSynchronizer
	logger  *zap.Logger
}

// NewClassService 创建 ClassService 实例
func NewClassService(repo *repository.Repository, catalog *SlotCatalog, syncer *RecurringSlotSynchronizer, logger *zap.Logger) ClassService {
	return &classService{repo: repo, catalog: catalog, syncer: syncer, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *classService) Create(ctx context.Context, req *dto.CreateClassRequest, callerID string) (*dto.ClassResponse, error) {
	if err := s.checkRefs(ctx, req.ManagerID, req.MainRoomID); err != nil {
		return nil, err
	}

	class := &model.Class{
		Name:         req.Name,
		AcademicYear: req.AcademicYear,
		Level:        req.Level,
		ManagerID:    req.ManagerID,
		MainRoomID:   req.MainRoomID,
	}
	class.CreatedBy = &callerID
	class.UpdatedBy = &callerID

	if err := s.repo.Class.Create(ctx, class); err != nil {
		s.logger.Error("创建班级失败", zap.Error(err))
		return nil, err
	}

	created, err := s.repo.Class.GetByID(ctx, class.ClassID)
	if err != nil {
		return nil, err
	}
	return toClassResponse(created), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *classService) GetByID(ctx context.Context, scope Scope, id string) (*dto.ClassResponse, error) {
	class, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.CanViewClass(class) && !scope.IsTeacher() {
		return nil, ErrForbidden
	}
	return toClassResponse(class), nil
}

// ────────────────────── List ──────────────────────

// List rup 仅能看到名下班级
func (s *classService) List(ctx context.Context, scope Scope, req *dto.ClassListRequest) ([]dto.ClassResponse, error) {
	filter := repository.ClassFilter{AcademicYear: req.AcademicYear}
	if scope.IsManager() {
		filter.ManagerID = scope.UserID
	}

	classes, err := s.repo.Class.List(ctx, filter)
	if err != nil {
		s.logger.Error("列出班级失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.ClassResponse, 0, len(classes))
	for i := range classes {
		if scope.IsStudent() && classes[i].ClassID != scope.ClassID {
			continue
		}
		result = append(result, *toClassResponse(&classes[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *classService) Update(ctx context.Context, scope Scope, id string, req *dto.UpdateClassRequest) (*dto.ClassResponse, error) {
	class, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.CanManageClass(class) {
		return nil, ErrForbidden
	}
	// 负责人变更仅限管理员
	if req.ManagerID != nil && !scope.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := s.checkRefs(ctx, req.ManagerID, req.MainRoomID); err != nil {
		return nil, err
	}

	if req.Name != nil {
		class.Name = *req.Name
	}
	if req.AcademicYear != nil {
		class.AcademicYear = *req.AcademicYear
	}
	if req.Level != nil {
		class.Level = *req.Level
	}
	if req.ManagerID != nil {
		class.ManagerID = req.ManagerID
	}
	if req.MainRoomID != nil {
		class.MainRoomID = req.MainRoomID
	}
	class.Version = req.Version
	class.UpdatedBy = &scope.UserID

	if err := s.repo.Class.Update(ctx, class); err != nil {
		s.logger.Error("更新班级失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	updated, err := s.repo.Class.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toClassResponse(updated), nil
}

// ────────────────────── Delete ──────────────────────

func (s *classService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Class.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除班级失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Members ──────────────────────

func (s *classService) Members(ctx context.Context, scope Scope, id string, page *dto.PaginationRequest) ([]dto.UserResponse, int64, error) {
	class, err := s.load(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if !scope.CanViewClass(class) {
		return nil, 0, ErrForbidden
	}

	users, total, err := s.repo.User.List(ctx, repository.UserFilter{
		Role:    model.RoleStudent,
		ClassID: id,
	}, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询班级成员失败", zap.String("class_id", id), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *toUserResponse(&users[i]))
	}
	return result, total, nil
}

// ────────────────────── SetRecurringSlot ──────────────────────

// SetRecurringSlot 设置或清除班级固定周课，随后重建该班级全部草稿课表中的固定周课
//
// 同步在班级更新提交之后逐个课表进行，不嵌套在更新事务中。
func (s *classService) SetRecurringSlot(ctx context.Context, scope Scope, id string, req *dto.SetRecurringSlotRequest) (*dto.SetRecurringSlotResponse, error) {
	class, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.CanManageClass(class) {
		return nil, ErrForbidden
	}

	// 记录变更前的固定周课课程，用于清理旧课次
	var previous *model.Subject
	if class.HasRecurringSlot() {
		if previous, err = s.syncer.resolveSubject(ctx, class); err != nil {
			return nil, err
		}
	}

	if req.Clear {
		class.RecurringDay = nil
		class.RecurringStart = nil
		class.RecurringEnd = nil
		class.RecurringSubjectID = nil
	} else {
		if req.DayOfWeek == 0 || req.StartTime == "" || req.EndTime == "" {
			return nil, ErrRecurringSlotIncomplete
		}
		w := TimeWindow{Start: req.StartTime, End: req.EndTime}
		if !s.catalog.IsLegalWindow(req.DayOfWeek, w) {
			return nil, ErrRecurringSlotInvalid
		}
		if req.SubjectID != nil {
			if _, err := s.repo.Subject.GetByID(ctx, *req.SubjectID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrSubjectNotFound
				}
				return nil, err
			}
		}
		day, start, end := req.DayOfWeek, w.Start, w.End
		class.RecurringDay = &day
		class.RecurringStart = &start
		class.RecurringEnd = &end
		class.RecurringSubjectID = req.SubjectID
	}
	class.Version = req.Version
	class.UpdatedBy = &scope.UserID

	if err := s.repo.Class.Update(ctx, class); err != nil {
		s.logger.Error("更新固定周课失败", zap.String("class_id", id), zap.Error(err))
		return nil, err
	}

	drafts, err := s.repo.Timetable.ListDraftByClass(ctx, id)
	if err != nil {
		s.logger.Error("查询草稿课表失败", zap.String("class_id", id), zap.Error(err))
		return nil, err
	}

	resp := &dto.SetRecurringSlotResponse{
		Class:  toClassResponse(class),
		Synced: make([]dto.TimetableSyncResponse, 0, len(drafts)),
	}
	for i := range drafts {
		ttID := drafts[i].TimetableID
		if previous != nil {
			if _, err := s.syncer.Remove(ctx, ttID, previous.SubjectID); err != nil {
				return nil, err
			}
		}
		result, err := s.syncer.Sync(ctx, ttID)
		if err != nil {
			return nil, err
		}
		resp.Synced = append(resp.Synced, toSyncResponse(ttID, result))
	}

	s.logger.Info("班级固定周课已更新",
		zap.String("class_id", id),
		zap.Bool("cleared", req.Clear),
		zap.Int("timetables", len(drafts)),
	)
	return resp, nil
}

// ── 内部辅助方法 ──

func (s *classService) load(ctx context.Context, id string) (*model.Class, error) {
	class, err := s.repo.Class.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("查询班级失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return class, nil
}

// checkRefs 校验负责人角色与主教室存在
func (s *classService) checkRefs(ctx context.Context, managerID, roomID *string) error {
	if managerID != nil {
		manager, err := s.repo.User.GetByID(ctx, *managerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrManagerInvalid
			}
			return err
		}
		if manager.Role != model.RoleManager {
			return ErrManagerInvalid
		}
	}
	if roomID != nil {
		if _, err := s.repo.Room.GetByID(ctx, *roomID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
	}
	return nil
}

func toClassResponse(class *model.Class) *dto.ClassResponse {
	resp := &dto.ClassResponse{
		ID:           class.ClassID,
		Name:         class.Name,
		AcademicYear: class.AcademicYear,
		Level:        class.Level,
		ManagerID:    class.ManagerID,
		MainRoomID:   class.MainRoomID,
		Version:      class.Version,
		CreatedAt:    formatTime(class.CreatedAt),
	}
	if class.Manager != nil {
		resp.ManagerName = class.Manager.Name
	}
	if class.MainRoom != nil {
		resp.MainRoomName = class.MainRoom.Name
	}
	if class.HasRecurringSlot() {
		resp.RecurringSlot = &dto.RecurringSlotResponse{
			DayOfWeek: *class.RecurringDay,
			StartTime: *class.RecurringStart,
			EndTime:   *class.RecurringEnd,
			SubjectID: class.RecurringSubjectID,
		}
	}
	return resp
}

func toSyncResponse(timetableID string, r *SyncResult) dto.TimetableSyncResponse {
	return dto.TimetableSyncResponse{
		TimetableID: timetableID,
		Created:     r.Created,
		Deleted:     r.Deleted,
		Skipped:     r.Skipped,
		Reason:      r.Reason,
	}
}
