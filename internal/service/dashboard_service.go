package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Dountche/esi-edt-backend/internal/dto"
	"github.com/Dountche/esi-edt-backend/internal/model"
	"github.com/Dountche/esi-edt-backend/internal/repository"
)

// upcomingLimit 概览中即将开始课次的条数
const upcomingLimit = 3

// DashboardService 首页概览业务接口
type DashboardService interface {
	Summary(ctx context.Context, scope Scope) (*dto.DashboardResponse, error)
}

type dashboardService struct {
	repo   *repository.Repository
	now    func() time.Time
	logger *zap.Logger
}

// NewDashboardService 创建 DashboardService 实例
func NewDashboardService(repo *repository.Repository, logger *zap.Logger) DashboardService {
	return &dashboardService{repo: repo, now: time.Now, logger: logger}
}

// Summary 按调用者角色汇总当前学期的概览数据
func (s *dashboardService) Summary(ctx context.Context, scope Scope) (*dto.DashboardResponse, error) {
	semester, err := s.repo.Semester.GetCurrent(ctx)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询当前学期失败", zap.Error(err))
		return nil, err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		semester = nil
	}

	resp := &dto.DashboardResponse{Role: scope.Role}
	if semester != nil {
		resp.Semester = toSemesterResponse(semester)
	}

	switch {
	case scope.IsAdmin() || scope.IsManager():
		resp.Manager, err = s.managerSummary(ctx, scope, semester)
	case scope.IsTeacher():
		resp.Teacher, err = s.teacherSummary(ctx, scope, semester)
	case scope.IsStudent():
		resp.Student, err = s.studentSummary(ctx, scope, semester)
	default:
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *dashboardService) managerSummary(ctx context.Context, scope Scope, semester *model.Semester) (*dto.ManagerDashboard, error) {
	filter := repository.ClassFilter{}
	if scope.IsManager() {
		filter.ManagerID = scope.UserID
	}
	classes, err := s.repo.Class.List(ctx, filter)
	if err != nil {
		s.logger.Error("统计班级失败", zap.String("user_id", scope.UserID), zap.Error(err))
		return nil, err
	}

	out := &dto.ManagerDashboard{ClassCount: len(classes)}
	for i := range classes {
		ids, err := s.repo.User.ListStudentIDsByClass(ctx, classes[i].ClassID)
		if err != nil {
			return nil, err
		}
		out.StudentCount += len(ids)

		subjects, err := s.repo.Subject.List(ctx, repository.SubjectFilter{ClassID: classes[i].ClassID})
		if err != nil {
			return nil, err
		}
		out.SubjectCount += len(subjects)
	}

	if semester != nil {
		ttFilter := repository.TimetableFilter{SemesterID: semester.SemesterID}
		if scope.IsManager() {
			ttFilter.ManagerID = scope.UserID
		}
		timetables, err := s.repo.Timetable.List(ctx, ttFilter)
		if err != nil {
			s.logger.Error("统计课表失败", zap.String("user_id", scope.UserID), zap.Error(err))
			return nil, err
		}
		for i := range timetables {
			if timetables[i].Status == model.TimetablePublished {
				out.Timetables.Published++
			} else {
				out.Timetables.Draft++
			}
		}
	}

	// 审批不分班级，待审批数对负责人同样全量展示
	_, pending, err := s.repo.Unavailability.List(ctx, repository.UnavailabilityFilter{Status: model.UnavailabilityPending}, 0, 1)
	if err != nil {
		s.logger.Error("统计待审批申报失败", zap.Error(err))
		return nil, err
	}
	out.PendingUnavailabilities = pending
	return out, nil
}

func (s *dashboardService) teacherSummary(ctx context.Context, scope Scope, semester *model.Semester) (*dto.TeacherDashboard, error) {
	out := &dto.TeacherDashboard{UpcomingSessions: []dto.UpcomingSession{}}

	_, pending, err := s.repo.Unavailability.List(ctx, repository.UnavailabilityFilter{
		TeacherID: scope.UserID,
		Status:    model.UnavailabilityPending,
	}, 0, 1)
	if err != nil {
		s.logger.Error("统计待审批申报失败", zap.String("teacher_id", scope.UserID), zap.Error(err))
		return nil, err
	}
	out.PendingUnavailabilities = pending

	if semester == nil {
		return out, nil
	}

	assignments, err := s.repo.Assignment.List(ctx, repository.AssignmentFilter{
		TeacherID:  scope.UserID,
		SemesterID: semester.SemesterID,
	})
	if err != nil {
		s.logger.Error("查询授课分配失败", zap.String("teacher_id", scope.UserID), zap.Error(err))
		return nil, err
	}
	classes := make(map[string]struct{})
	subjects := make(map[string]struct{})
	for i := range assignments {
		classes[assignments[i].ClassID] = struct{}{}
		subjects[assignments[i].SubjectID] = struct{}{}
	}
	out.ClassCount = len(classes)
	out.SubjectCount = len(subjects)

	placements, err := s.repo.Placement.ListByTeacher(ctx, scope.UserID, semester.SemesterID)
	if err != nil {
		s.logger.Error("查询教师课次失败", zap.String("teacher_id", scope.UserID), zap.Error(err))
		return nil, err
	}
	var minutes int
	for i := range placements {
		if placements[i].Cancelled {
			continue
		}
		start, err1 := ParseClock(placements[i].StartTime)
		end, err2 := ParseClock(placements[i].EndTime)
		if err1 == nil && err2 == nil && end > start {
			minutes += end - start
		}
	}
	out.TotalHours = float64(minutes) / 60
	out.UpcomingSessions = s.upcoming(semester, placements, true)
	return out, nil
}

func (s *dashboardService) studentSummary(ctx context.Context, scope Scope, semester *model.Semester) (*dto.StudentDashboard, error) {
	if scope.ClassID == "" {
		return nil, ErrClassNotFound
	}
	class, err := s.repo.Class.GetByID(ctx, scope.ClassID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}
	subjects, err := s.repo.Subject.List(ctx, repository.SubjectFilter{ClassID: class.ClassID})
	if err != nil {
		return nil, err
	}

	out := &dto.StudentDashboard{
		ClassID:          class.ClassID,
		ClassName:        class.Name,
		SubjectCount:     len(subjects),
		UpcomingSessions: []dto.UpcomingSession{},
	}
	if semester == nil {
		return out, nil
	}

	tt, err := s.repo.Timetable.GetByClassAndSemester(ctx, class.ClassID, semester.SemesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return out, nil
		}
		return nil, err
	}
	// 草稿课表对学生不可见
	if tt.Status != model.TimetablePublished {
		return out, nil
	}
	out.TimetablePublished = true

	placements, err := s.repo.Placement.ListByClass(ctx, class.ClassID, semester.SemesterID)
	if err != nil {
		s.logger.Error("查询班级课次失败", zap.String("class_id", class.ClassID), zap.Error(err))
		return nil, err
	}
	out.UpcomingSessions = s.upcoming(semester, placements, false)
	return out, nil
}

// upcoming 取开始时间不早于当前时刻的前几个未取消课次
func (s *dashboardService) upcoming(semester *model.Semester, placements []model.Placement, withClass bool) []dto.UpcomingSession {
	type dated struct {
		at time.Time
		p  *model.Placement
	}
	now := s.now()
	var list []dated
	for i := range placements {
		p := &placements[i]
		if p.Cancelled {
			continue
		}
		at, err := atClock(semester.DateOf(p.WeekNumber, p.DayOfWeek), p.StartTime)
		if err != nil || at.Before(now) {
			continue
		}
		list = append(list, dated{at: at, p: p})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].at.Before(list[j].at) })
	if len(list) > upcomingLimit {
		list = list[:upcomingLimit]
	}

	out := make([]dto.UpcomingSession, 0, len(list))
	for _, d := range list {
		item := dto.UpcomingSession{
			PlacementID: d.p.PlacementID,
			Date:        d.at.Format(dateLayout),
			WeekNumber:  d.p.WeekNumber,
			DayOfWeek:   d.p.DayOfWeek,
			StartTime:   d.p.StartTime,
			EndTime:     d.p.EndTime,
		}
		if d.p.Subject != nil {
			item.SubjectName = d.p.Subject.Name
		}
		if withClass {
			item.ClassName = d.p.ClassName()
		}
		if d.p.Room != nil {
			item.RoomName = d.p.Room.Name
		}
		out = append(out, item)
	}
	return out
}
