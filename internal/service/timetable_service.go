package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Dountche/esi-edt-backend/internal/dto"
	"github.com/Dountche/esi-edt-backend/internal/model"
	"github.com/Dountche/esi-edt-backend/internal/repository"
)

// ── 课表模块业务错误 ──

var (
	ErrTimetableNotFound     = errors.New("课表不存在")
	ErrTimetableExists       = errors.New("该班级在此学期已有课表")
	ErrTimetableSameSemester = errors.New("目标学期与源课表学期相同")
)

// TimetableService 课表业务接口
type TimetableService interface {
	Create(ctx context.Context, scope Scope, req *dto.CreateTimetableRequest) (*dto.CreateTimetableResponse, error)
	GetByID(ctx context.Context, scope Scope, id string) (*dto.TimetableResponse, error)
	List(ctx context.Context, scope Scope, req *dto.TimetableListRequest) ([]dto.TimetableResponse, error)
	UpdateStatus(ctx context.Context, scope Scope, id string, req *dto.UpdateTimetableStatusRequest) (*dto.TimetableResponse, error)
	Delete(ctx context.Context, scope Scope, id string) error
	Duplicate(ctx context.Context, scope Scope, id string, req *dto.DuplicateTimetableRequest) (*dto.CreateTimetableResponse, error)
	Sync(ctx context.Context, scope Scope, id string) (*dto.TimetableSyncResponse, error)
}

type timetableService struct {
	repo     *repository.Repository
	syncer   *RecurringSlotSynchronizer
	notifier *notifier
	logger   *zap.Logger
}

// NewTimetableService 创建 TimetableService 实例
func NewTimetableService(repo *repository.Repository, syncer *RecurringSlotSynchronizer, notifier *notifier, logger *zap.Logger) TimetableService {
	return &timetableService{repo: repo, syncer: syncer, notifier: notifier, logger: logger}
}

// ────────────────────── Create ──────────────────────

// Create 创建草稿课表并生成固定周课
func (s *timetableService) Create(ctx context.Context, scope Scope, req *dto.CreateTimetableRequest) (*dto.CreateTimetableResponse, error) {
	class, err := s.loadClass(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}
	if !scope.CanManageClass(class) {
		return nil, ErrForbidden
	}
	semester, err := s.loadSemester(ctx, req.SemesterID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureVacant(ctx, class.ClassID, semester.SemesterID); err != nil {
		return nil, err
	}

	tt := &model.Timetable{
		ClassID:    class.ClassID,
		SemesterID: semester.SemesterID,
		Status:     model.TimetableDraft,
	}
	tt.CreatedBy = &scope.UserID
	tt.UpdatedBy = &scope.UserID

	if err := s.repo.Timetable.Create(ctx, tt); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTimetableExists
		}
		s.logger.Error("创建课表失败", zap.Error(err))
		return nil, err
	}
	tt.Class, tt.Semester = class, semester

	result, err := s.syncer.Sync(ctx, tt.TimetableID)
	if err != nil {
		return nil, err
	}
	sync := toSyncResponse(tt.TimetableID, result)

	return &dto.CreateTimetableResponse{
		Timetable: toTimetableResponse(tt, nil),
		Sync:      &sync,
	}, nil
}

// ────────────────────── GetByID ──────────────────────

// GetByID 返回课表及其全部课次
func (s *timetableService) GetByID(ctx context.Context, scope Scope, id string) (*dto.TimetableResponse, error) {
	tt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canViewTimetable(scope, tt) {
		return nil, ErrForbidden
	}

	placements, err := s.repo.Placement.ListByTimetable(ctx, id)
	if err != nil {
		s.logger.Error("查询课次失败", zap.String("timetable_id", id), zap.Error(err))
		return nil, err
	}
	return toTimetableResponse(tt, placements), nil
}

// ────────────────────── List ──────────────────────

func (s *timetableService) List(ctx context.Context, scope Scope, req *dto.TimetableListRequest) ([]dto.TimetableResponse, error) {
	filter := repository.TimetableFilter{
		ClassID:    req.ClassID,
		SemesterID: req.SemesterID,
		Status:     req.Status,
	}
	switch {
	case scope.IsManager():
		filter.ManagerID = scope.UserID
	case scope.IsStudent():
		filter.ClassID = scope.ClassID
		filter.Status = model.TimetablePublished
	case scope.IsTeacher():
		filter.Status = model.TimetablePublished
	}

	list, err := s.repo.Timetable.List(ctx, filter)
	if err != nil {
		s.logger.Error("列出课表失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.TimetableResponse, 0, len(list))
	for i := range list {
		result = append(result, *toTimetableResponse(&list[i], nil))
	}
	return result, nil
}

// ────────────────────── UpdateStatus ──────────────────────

// UpdateStatus 发布或撤回课表；发布时通知班级全部学生
func (s *timetableService) UpdateStatus(ctx context.Context, scope Scope, id string, req *dto.UpdateTimetableStatusRequest) (*dto.TimetableResponse, error) {
	tt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.CanManageClass(tt.Class) {
		return nil, ErrForbidden
	}

	publishing := req.Status == model.TimetablePublished && tt.Status != model.TimetablePublished
	tt.Status = req.Status
	if req.Status == model.TimetablePublished {
		if tt.PublishedAt == nil {
			now := time.Now()
			tt.PublishedAt = &now
		}
	} else {
		tt.PublishedAt = nil
	}
	tt.Version = req.Version
	tt.UpdatedBy = &scope.UserID

	if err := s.repo.Timetable.Update(ctx, tt); err != nil {
		s.logger.Error("更新课表状态失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if publishing {
		semesterName := ""
		if tt.Semester != nil {
			semesterName = tt.Semester.Name
		}
		s.notifier.toClass(ctx, tt.ClassID, notice{
			Type:        model.NotificationTimetable,
			Title:       "课表已发布",
			Content:     fmt.Sprintf("%s 学期的课表已发布", semesterName),
			RelatedType: "timetable",
			RelatedID:   tt.TimetableID,
		})
	}

	return toTimetableResponse(tt, nil), nil
}

// ────────────────────── Delete ──────────────────────

func (s *timetableService) Delete(ctx context.Context, scope Scope, id string) error {
	tt, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !scope.CanManageClass(tt.Class) {
		return ErrForbidden
	}

	if err := s.repo.Timetable.Delete(ctx, id); err != nil {
		s.logger.Error("删除课表失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Duplicate ──────────────────────

// Duplicate 将课表中未取消的课次复制到另一学期的新草稿课表（不含教师与教室），随后重建固定周课
func (s *timetableService) Duplicate(ctx context.Context, scope Scope, id string, req *dto.DuplicateTimetableRequest) (*dto.CreateTimetableResponse, error) {
	src, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.CanManageClass(src.Class) {
		return nil, ErrForbidden
	}
	if src.SemesterID == req.SemesterID {
		return nil, ErrTimetableSameSemester
	}
	semester, err := s.loadSemester(ctx, req.SemesterID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureVacant(ctx, src.ClassID, semester.SemesterID); err != nil {
		return nil, err
	}

	placements, err := s.repo.Placement.ListByTimetable(ctx, id)
	if err != nil {
		s.logger.Error("查询源课表课次失败", zap.String("timetable_id", id), zap.Error(err))
		return nil, err
	}

	dst := &model.Timetable{
		ClassID:    src.ClassID,
		SemesterID: semester.SemesterID,
		Status:     model.TimetableDraft,
	}
	dst.CreatedBy = &scope.UserID
	dst.UpdatedBy = &scope.UserID

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Timetable.Create(ctx, dst); err != nil {
			return err
		}
		// 周次不分学期，保留教师与教室会与源课次自身冲突，由负责人重新指派
		copies := make([]model.Placement, 0, len(placements))
		for i := range placements {
			p := placements[i]
			if p.Cancelled {
				continue
			}
			copies = append(copies, model.Placement{
				TimetableID: dst.TimetableID,
				SemesterID:  dst.SemesterID,
				DayOfWeek:   p.DayOfWeek,
				StartTime:   p.StartTime,
				EndTime:     p.EndTime,
				WeekNumber:  p.WeekNumber,
				SubjectID:   p.SubjectID,
				Kind:        p.Kind,
				LockedModel: model.LockedModel{
					BaseModel: model.BaseModel{CreatedBy: &scope.UserID, UpdatedBy: &scope.UserID},
					Version:   1,
				},
			})
		}
		return txRepo.Placement.BatchCreate(ctx, copies)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTimetableExists
		}
		s.logger.Error("复制课表失败", zap.String("source_id", id), zap.Error(err))
		return nil, err
	}
	dst.Class, dst.Semester = src.Class, semester

	result, err := s.syncer.Sync(ctx, dst.TimetableID)
	if err != nil {
		return nil, err
	}
	sync := toSyncResponse(dst.TimetableID, result)

	s.logger.Info("课表已复制",
		zap.String("source_id", id),
		zap.String("target_id", dst.TimetableID),
		zap.Int("placements", len(placements)),
	)
	return &dto.CreateTimetableResponse{
		Timetable: toTimetableResponse(dst, nil),
		Sync:      &sync,
	}, nil
}

// ────────────────────── Sync ──────────────────────

func (s *timetableService) Sync(ctx context.Context, scope Scope, id string) (*dto.TimetableSyncResponse, error) {
	tt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.CanManageClass(tt.Class) {
		return nil, ErrForbidden
	}

	result, err := s.syncer.Sync(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toSyncResponse(id, result)
	return &resp, nil
}

// ── 内部辅助方法 ──

func (s *timetableService) load(ctx context.Context, id string) (*model.Timetable, error) {
	tt, err := s.repo.Timetable.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimetableNotFound
		}
		s.logger.Error("查询课表失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return tt, nil
}

func (s *timetableService) loadClass(ctx context.Context, id string) (*model.Class, error) {
	class, err := s.repo.Class.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}
	return class, nil
}

func (s *timetableService) loadSemester(ctx context.Context, id string) (*model.Semester, error) {
	semester, err := s.repo.Semester.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		return nil, err
	}
	return semester, nil
}

// ensureVacant 每个班级每学期至多一张课表
func (s *timetableService) ensureVacant(ctx context.Context, classID, semesterID string) error {
	_, err := s.repo.Timetable.GetByClassAndSemester(ctx, classID, semesterID)
	if err == nil {
		return ErrTimetableExists
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

// canViewTimetable 管理范围内可见全部状态；教师与本班学生仅可见已发布课表
func canViewTimetable(scope Scope, tt *model.Timetable) bool {
	if scope.CanManageClass(tt.Class) {
		return true
	}
	if tt.Status != model.TimetablePublished {
		return false
	}
	return scope.IsTeacher() || (scope.IsStudent() && scope.ClassID == tt.ClassID)
}

func toTimetableResponse(tt *model.Timetable, placements []model.Placement) *dto.TimetableResponse {
	resp := &dto.TimetableResponse{
		ID:          tt.TimetableID,
		ClassID:     tt.ClassID,
		SemesterID:  tt.SemesterID,
		Status:      tt.Status,
		PublishedAt: formatTimePtr(tt.PublishedAt),
		Version:     tt.Version,
		CreatedAt:   formatTime(tt.CreatedAt),
	}
	if tt.Class != nil {
		resp.ClassName = tt.Class.Name
	}
	if tt.Semester != nil {
		resp.SemesterName = tt.Semester.Name
	}
	if placements != nil {
		resp.Placements = make([]dto.PlacementResponse, 0, len(placements))
		for i := range placements {
			resp.Placements = append(resp.Placements, toPlacementResponse(&placements[i]))
		}
	}
	return resp
}
