package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Dountche/esi-edt-backend/internal/dto"
	"github.com/Dountche/esi-edt-backend/internal/model"
	"github.com/Dountche/esi-edt-backend/internal/repository"
)

// ── 授课分配模块业务错误 ──

var (
	ErrAssignmentNotFound     = errors.New("授课分配不存在")
	ErrAssignmentExists       = errors.New("该教师已被分配此班级本学期的该课程")
	ErrAssignmentNotTeacher   = errors.New("授课分配只能指定教师角色的用户")
	ErrAssignmentSubjectScope = errors.New("课程不属于该班级")
)

// AssignmentService 授课分配业务接口
type AssignmentService interface {
	Create(ctx context.Context, scope Scope, req *dto.CreateAssignmentRequest) (*dto.AssignmentResponse, error)
	GetByID(ctx context.Context, id string) (*dto.AssignmentResponse, error)
	List(ctx context.Context, scope Scope, req *dto.AssignmentListRequest) ([]dto.AssignmentResponse, error)
	Delete(ctx context.Context, scope Scope, id string) error
}

type assignmentService struct {
	repo     *repository.Repository
	notifier *notifier
	logger   *zap.Logger
}

// NewAssignmentService 创建 AssignmentService 实例
func NewAssignmentService(repo *repository.Repository, notifier *notifier, logger *zap.Logger) AssignmentService {
	return &assignmentService{repo: repo, notifier: notifier, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *assignmentService) Create(ctx context.Context, scope Scope, req *dto.CreateAssignmentRequest) (*dto.AssignmentResponse, error) {
	class, err := s.repo.Class.GetByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}
	if !scope.CanManageClass(class) {
		return nil, ErrForbidden
	}

	teacher, err := s.repo.User.GetByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if teacher.Role != model.RoleTeacher {
		return nil, ErrAssignmentNotTeacher
	}

	subject, err := s.repo.Subject.GetByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}
	// 公共课程可分配给任意班级
	if subject.ClassID != nil && *subject.ClassID != req.ClassID {
		return nil, ErrAssignmentSubjectScope
	}

	semester, err := s.repo.Semester.GetByID(ctx, req.SemesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		return nil, err
	}

	n, err := s.repo.Assignment.CountByTuple(ctx, req.TeacherID, req.SubjectID, req.ClassID, req.SemesterID)
	if err != nil {
		s.logger.Error("查询授课分配失败", zap.Error(err))
		return nil, err
	}
	if n > 0 {
		return nil, ErrAssignmentExists
	}

	a := &model.Assignment{
		TeacherID:  req.TeacherID,
		SubjectID:  req.SubjectID,
		ClassID:    req.ClassID,
		SemesterID: req.SemesterID,
	}
	a.CreatedBy = &scope.UserID
	a.UpdatedBy = &scope.UserID

	if err := s.repo.Assignment.Create(ctx, a); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAssignmentExists
		}
		s.logger.Error("创建授课分配失败", zap.Error(err))
		return nil, err
	}

	a.Teacher, a.Subject, a.Class = teacher, subject, class
	s.notifier.toUsers(ctx, []string{teacher.UserID}, notice{
		Type:        model.NotificationAssignment,
		Title:       "新的授课分配",
		Content:     fmt.Sprintf("您已被分配在 %s 学期为 %s 班讲授 %s", semester.Name, class.Name, subject.Name),
		RelatedType: "assignment",
		RelatedID:   a.AssignmentID,
	})

	return toAssignmentResponse(a), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *assignmentService) GetByID(ctx context.Context, id string) (*dto.AssignmentResponse, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toAssignmentResponse(a), nil
}

// ────────────────────── List ──────────────────────

// List 教师只能查询自己的分配
func (s *assignmentService) List(ctx context.Context, scope Scope, req *dto.AssignmentListRequest) ([]dto.AssignmentResponse, error) {
	filter := repository.AssignmentFilter{
		TeacherID:  req.TeacherID,
		SubjectID:  req.SubjectID,
		ClassID:    req.ClassID,
		SemesterID: req.SemesterID,
	}
	if scope.IsTeacher() {
		filter.TeacherID = scope.UserID
	}

	list, err := s.repo.Assignment.List(ctx, filter)
	if err != nil {
		s.logger.Error("列出授课分配失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.AssignmentResponse, 0, len(list))
	for i := range list {
		result = append(result, *toAssignmentResponse(&list[i]))
	}
	return result, nil
}

// ────────────────────── Delete ──────────────────────

func (s *assignmentService) Delete(ctx context.Context, scope Scope, id string) error {
	a, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !scope.CanManageClass(a.Class) {
		return ErrForbidden
	}

	if err := s.repo.Assignment.Delete(ctx, id); err != nil {
		s.logger.Error("删除授课分配失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *assignmentService) load(ctx context.Context, id string) (*model.Assignment, error) {
	a, err := s.repo.Assignment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		s.logger.Error("查询授课分配失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return a, nil
}

func toAssignmentResponse(a *model.Assignment) *dto.AssignmentResponse {
	resp := &dto.AssignmentResponse{
		ID:         a.AssignmentID,
		TeacherID:  a.TeacherID,
		SubjectID:  a.SubjectID,
		ClassID:    a.ClassID,
		SemesterID: a.SemesterID,
		CreatedAt:  formatTime(a.CreatedAt),
	}
	if a.Teacher != nil {
		resp.TeacherName = a.Teacher.Name
	}
	if a.Subject != nil {
		resp.SubjectName = a.Subject.Name
	}
	if a.Class != nil {
		resp.ClassName = a.Class.Name
	}
	return resp
}
