package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Dountche/esi-edt-backend/config"
	"github.com/Dountche/esi-edt-backend/internal/dto"
	"github.com/Dountche/esi-edt-backend/internal/model"
	"github.com/Dountche/esi-edt-backend/internal/repository"
)

// ── 课次模块业务错误 ──

var (
	ErrPlacementNotFound = errors.New("课次不存在")
	ErrPlacementInvalid  = errors.New("课次未通过冲突校验")
	ErrNoAssignment      = errors.New("教师未被分配该班级本学期的该课程")
	ErrPlacementConflict = errors.New("同一时段已有相同教师或教室的课次")
	ErrWeekOutOfRange    = errors.New("周次超出学期范围")
)

// ValidationError 携带冲突校验结果的写入拒绝错误，errors.Is 可匹配 ErrPlacementInvalid
type ValidationError struct {
	Result *ValidationResult
}

func (e *ValidationError) Error() string {
	if e.Result != nil && len(e.Result.Violations) > 0 {
		return fmt.Sprintf("%s: %s", ErrPlacementInvalid, e.Result.Violations[0].Message)
	}
	return ErrPlacementInvalid.Error()
}

func (e *ValidationError) Unwrap() error { return ErrPlacementInvalid }

// CheckResult 仅校验不写入的结果
type CheckResult struct {
	Validation  *ValidationResult  `json:"validation"`
	Attribution *AttributionResult `json:"attribution,omitempty"`
}

// SlotsView 可选时段目录
type SlotsView struct {
	Days    []int        `json:"days"`
	Windows []TimeWindow `json:"windows"`
	Groups  []SlotGroup  `json:"groups"`
}

// PlacementService 课次业务接口
type PlacementService interface {
	Create(ctx context.Context, scope Scope, timetableID string, req *dto.CreatePlacementRequest) (*dto.PlacementResponse, error)
	Update(ctx context.Context, scope Scope, id string, req *dto.UpdatePlacementRequest) (*dto.PlacementResponse, error)
	Delete(ctx context.Context, scope Scope, id string) error
	Check(ctx context.Context, scope Scope, req *dto.CheckPlacementRequest) (*CheckResult, error)
	ListByTimetable(ctx context.Context, scope Scope, timetableID string) ([]dto.PlacementResponse, error)
	ListMine(ctx context.Context, scope Scope, req *dto.MyPlacementsRequest) ([]dto.PlacementResponse, error)
	Slots() *SlotsView
}

type placementService struct {
	repo    *repository.Repository
	catalog *SlotCatalog
	cfg     config.TimetableConfig
	logger  *zap.Logger
}

// NewPlacementService 创建 PlacementService 实例
func NewPlacementService(repo *repository.Repository, catalog *SlotCatalog, cfg config.TimetableConfig, logger *zap.Logger) PlacementService {
	return &placementService{repo: repo, catalog: catalog, cfg: cfg, logger: logger}
}

// ────────────────────── Create ──────────────────────

// Create 冲突校验、授课资格校验与写入在同一事务内完成
func (s *placementService) Create(ctx context.Context, scope Scope, timetableID string, req *dto.CreatePlacementRequest) (*dto.PlacementResponse, error) {
	tt, err := s.loadTimetable(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	if !scope.CanManageClass(tt.Class) {
		return nil, ErrForbidden
	}
	if err := s.checkWeek(req.WeekNumber); err != nil {
		return nil, err
	}
	if err := s.ensureSubject(ctx, req.SubjectID); err != nil {
		return nil, err
	}

	kind := req.Kind
	if kind == "" {
		kind = model.KindLecture
	}
	p := &model.Placement{
		TimetableID: tt.TimetableID,
		SemesterID:  tt.SemesterID,
		DayOfWeek:   req.DayOfWeek,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		WeekNumber:  req.WeekNumber,
		SubjectID:   req.SubjectID,
		TeacherID:   req.TeacherID,
		RoomID:      req.RoomID,
		Kind:        kind,
	}
	p.CreatedBy = &scope.UserID
	p.UpdatedBy = &scope.UserID

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := s.validate(ctx, txRepo, tt.ClassID, p, true, true); err != nil {
			return err
		}
		return txRepo.Placement.Create(ctx, p)
	})
	if err != nil {
		return nil, s.writeError("新增课次失败", err)
	}

	created, err := s.repo.Placement.GetByID(ctx, p.PlacementID)
	if err != nil {
		return nil, err
	}
	return ptr(toPlacementResponse(created)), nil
}

// ────────────────────── Update ──────────────────────

// Update 仅在时段、周次、教师、教室变化或恢复已取消课次时重新做冲突校验；
// 仅在课程或教师变化时重新做授课资格校验
func (s *placementService) Update(ctx context.Context, scope Scope, id string, req *dto.UpdatePlacementRequest) (*dto.PlacementResponse, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Timetable == nil || !scope.CanManageClass(p.Timetable.Class) {
		return nil, ErrForbidden
	}
	classID := p.ClassID()
	before := *p

	if req.DayOfWeek != nil {
		p.DayOfWeek = *req.DayOfWeek
	}
	if req.StartTime != nil {
		p.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		p.EndTime = *req.EndTime
	}
	if req.WeekNumber != nil {
		if err := s.checkWeek(*req.WeekNumber); err != nil {
			return nil, err
		}
		p.WeekNumber = *req.WeekNumber
	}
	if req.SubjectID != nil && *req.SubjectID != p.SubjectID {
		if err := s.ensureSubject(ctx, *req.SubjectID); err != nil {
			return nil, err
		}
		p.SubjectID = *req.SubjectID
	}
	switch {
	case req.ClearTeacher:
		p.TeacherID = nil
	case req.TeacherID != nil:
		p.TeacherID = req.TeacherID
	}
	switch {
	case req.ClearRoom:
		p.RoomID = nil
	case req.RoomID != nil:
		p.RoomID = req.RoomID
	}
	if req.Kind != nil {
		p.Kind = *req.Kind
	}
	if req.Cancelled != nil {
		p.Cancelled = *req.Cancelled
	}
	p.Version = req.Version
	p.UpdatedBy = &scope.UserID

	slotChanged := p.DayOfWeek != before.DayOfWeek ||
		p.StartTime != before.StartTime ||
		p.EndTime != before.EndTime ||
		p.WeekNumber != before.WeekNumber ||
		!sameRef(p.TeacherID, before.TeacherID) ||
		!sameRef(p.RoomID, before.RoomID) ||
		(before.Cancelled && !p.Cancelled)
	attrChanged := p.SubjectID != before.SubjectID || !sameRef(p.TeacherID, before.TeacherID)

	// 已取消的课次不占用资源
	if p.Cancelled {
		slotChanged = false
	}

	// 清除预加载关联，避免响应中出现过期数据
	p.Subject, p.Teacher, p.Room = nil, nil, nil

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := s.validate(ctx, txRepo, classID, p, slotChanged, attrChanged); err != nil {
			return err
		}
		return txRepo.Placement.Update(ctx, p)
	})
	if err != nil {
		return nil, s.writeError("更新课次失败", err)
	}

	updated, err := s.repo.Placement.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ptr(toPlacementResponse(updated)), nil
}

// ────────────────────── Delete ──────────────────────

func (s *placementService) Delete(ctx context.Context, scope Scope, id string) error {
	p, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if p.Timetable == nil || !scope.CanManageClass(p.Timetable.Class) {
		return ErrForbidden
	}

	if err := s.repo.Placement.Delete(ctx, id); err != nil {
		s.logger.Error("删除课次失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Check ──────────────────────

// Check 对候选课次执行冲突校验与授课资格校验，不写入
func (s *placementService) Check(ctx context.Context, scope Scope, req *dto.CheckPlacementRequest) (*CheckResult, error) {
	tt, err := s.loadTimetable(ctx, req.TimetableID)
	if err != nil {
		return nil, err
	}
	if !scope.CanManageClass(tt.Class) {
		return nil, ErrForbidden
	}

	detector := NewConflictDetector(s.repo.Placement, s.catalog)
	validation, err := detector.Validate(ctx, Candidate{
		TimetableID: tt.TimetableID,
		ClassID:     tt.ClassID,
		DayOfWeek:   req.DayOfWeek,
		Window:      TimeWindow{Start: req.StartTime, End: req.EndTime},
		WeekNumber:  req.WeekNumber,
		TeacherID:   req.TeacherID,
		RoomID:      req.RoomID,
		SubjectID:   req.SubjectID,
		ExcludeID:   req.ExcludeID,
	})
	if err != nil {
		s.logger.Error("冲突校验失败", zap.Error(err))
		return nil, err
	}

	result := &CheckResult{Validation: validation}
	if req.TeacherID != nil {
		attribution, err := NewAttributionValidator(s.repo.Assignment).
			Validate(ctx, req.SubjectID, *req.TeacherID, tt.ClassID, tt.SemesterID)
		if err != nil {
			s.logger.Error("授课资格校验失败", zap.Error(err))
			return nil, err
		}
		result.Attribution = attribution
	}
	return result, nil
}

// ────────────────────── ListByTimetable ──────────────────────

func (s *placementService) ListByTimetable(ctx context.Context, scope Scope, timetableID string) ([]dto.PlacementResponse, error) {
	tt, err := s.loadTimetable(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	if !canViewTimetable(scope, tt) {
		return nil, ErrForbidden
	}

	list, err := s.repo.Placement.ListByTimetable(ctx, timetableID)
	if err != nil {
		s.logger.Error("查询课次失败", zap.String("timetable_id", timetableID), zap.Error(err))
		return nil, err
	}
	return toPlacementResponses(list, nil), nil
}

// ────────────────────── ListMine ──────────────────────

// ListMine 学生返回本班已发布课表的课次，其他角色返回本人授课的课次
func (s *placementService) ListMine(ctx context.Context, scope Scope, req *dto.MyPlacementsRequest) ([]dto.PlacementResponse, error) {
	var (
		list []model.Placement
		err  error
	)
	if scope.IsStudent() {
		if scope.ClassID == "" {
			return []dto.PlacementResponse{}, nil
		}
		list, err = s.repo.Placement.ListByClass(ctx, scope.ClassID, req.SemesterID)
	} else {
		list, err = s.repo.Placement.ListByTeacher(ctx, scope.UserID, req.SemesterID)
	}
	if err != nil {
		s.logger.Error("查询我的课次失败", zap.String("user_id", scope.UserID), zap.Error(err))
		return nil, err
	}

	if scope.IsStudent() {
		return toPlacementResponses(list, func(p *model.Placement) bool {
			return p.Timetable != nil && p.Timetable.Status == model.TimetablePublished
		}), nil
	}
	return toPlacementResponses(list, nil), nil
}

// ────────────────────── Slots ──────────────────────

func (s *placementService) Slots() *SlotsView {
	return &SlotsView{
		Days:    []int{1, 2, 3, 4, 5, 6},
		Windows: s.catalog.Windows(),
		Groups:  s.catalog.Groups(),
	}
}

// ── 内部辅助方法 ──

// validate 在事务仓储上执行冲突校验与授课资格校验
func (s *placementService) validate(ctx context.Context, txRepo *repository.Repository, classID string, p *model.Placement, checkSlot, checkAttribution bool) error {
	if checkSlot {
		var exclude *string
		if p.PlacementID != "" {
			exclude = &p.PlacementID
		}
		result, err := NewConflictDetector(txRepo.Placement, s.catalog).Validate(ctx, Candidate{
			TimetableID: p.TimetableID,
			ClassID:     classID,
			DayOfWeek:   p.DayOfWeek,
			Window:      TimeWindow{Start: p.StartTime, End: p.EndTime},
			WeekNumber:  p.WeekNumber,
			TeacherID:   p.TeacherID,
			RoomID:      p.RoomID,
			SubjectID:   p.SubjectID,
			ExcludeID:   exclude,
		})
		if err != nil {
			return err
		}
		if !result.OK {
			return &ValidationError{Result: result}
		}
	}

	if checkAttribution && p.TeacherID != nil {
		result, err := NewAttributionValidator(txRepo.Assignment).
			Validate(ctx, p.SubjectID, *p.TeacherID, classID, p.SemesterID)
		if err != nil {
			return err
		}
		if !result.Valid {
			return ErrNoAssignment
		}
	}
	return nil
}

// writeError 业务拒绝原样返回，唯一索引冲突转换为 ErrPlacementConflict，其余记录日志
func (s *placementService) writeError(msg string, err error) error {
	switch {
	case errors.Is(err, ErrPlacementInvalid), errors.Is(err, ErrNoAssignment):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrPlacementConflict
	}
	s.logger.Error(msg, zap.Error(err))
	return err
}

func (s *placementService) checkWeek(week int) error {
	if week < 1 || week > s.cfg.WeekCount {
		return ErrWeekOutOfRange
	}
	return nil
}

func (s *placementService) ensureSubject(ctx context.Context, id string) error {
	if _, err := s.repo.Subject.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubjectNotFound
		}
		return err
	}
	return nil
}

func (s *placementService) load(ctx context.Context, id string) (*model.Placement, error) {
	p, err := s.repo.Placement.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlacementNotFound
		}
		s.logger.Error("查询课次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (s *placementService) loadTimetable(ctx context.Context, id string) (*model.Timetable, error) {
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

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func ptr[T any](v T) *T { return &v }

func toPlacementResponses(list []model.Placement, keep func(*model.Placement) bool) []dto.PlacementResponse {
	result := make([]dto.PlacementResponse, 0, len(list))
	for i := range list {
		if keep != nil && !keep(&list[i]) {
			continue
		}
		result = append(result, toPlacementResponse(&list[i]))
	}
	return result
}

func toPlacementResponse(p *model.Placement) dto.PlacementResponse {
	resp := dto.PlacementResponse{
		ID:          p.PlacementID,
		TimetableID: p.TimetableID,
		ClassID:     p.ClassID(),
		ClassName:   p.ClassName(),
		DayOfWeek:   p.DayOfWeek,
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
		WeekNumber:  p.WeekNumber,
		SubjectID:   p.SubjectID,
		TeacherID:   p.TeacherID,
		RoomID:      p.RoomID,
		Kind:        p.Kind,
		Cancelled:   p.Cancelled,
		Version:     p.Version,
	}
	if p.Subject != nil {
		resp.SubjectName = p.Subject.Name
	}
	if p.Teacher != nil {
		resp.TeacherName = p.Teacher.Name
	}
	if p.Room != nil {
		resp.RoomName = p.Room.Name
	}
	return resp
}
