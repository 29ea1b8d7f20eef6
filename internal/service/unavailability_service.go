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
	pkgerrors "github.com/Dountche/esi-edt-backend/pkg/errors"
)

// ── 不可用申报模块业务错误 ──

var (
	ErrUnavailabilityNotFound   = errors.New("不可用申报不存在")
	ErrUnavailabilityNotPending = errors.New("申报已被审批，不能再修改")
	ErrUnavailabilityNotOwner   = errors.New("只能操作自己的申报")
	ErrUnavailabilityWindow     = errors.New("结束时间必须晚于开始时间")
	ErrUnavailabilityDate       = errors.New("日期格式错误")
)

// UnavailabilityService 不可用申报业务接口
type UnavailabilityService interface {
	Declare(ctx context.Context, scope Scope, req *dto.CreateUnavailabilityRequest) (*dto.UnavailabilityResponse, error)
	GetByID(ctx context.Context, scope Scope, id string) (*dto.UnavailabilityResponse, error)
	List(ctx context.Context, scope Scope, req *dto.UnavailabilityListRequest) ([]dto.UnavailabilityResponse, int64, error)
	Update(ctx context.Context, scope Scope, id string, req *dto.UpdateUnavailabilityRequest) (*dto.UnavailabilityResponse, error)
	Delete(ctx context.Context, scope Scope, id string) error
	Review(ctx context.Context, scope Scope, id string, req *dto.ReviewUnavailabilityRequest) (*dto.ReviewUnavailabilityResponse, error)
}

type unavailabilityService struct {
	repo     *repository.Repository
	notifier *notifier
	logger   *zap.Logger
}

// NewUnavailabilityService 创建 UnavailabilityService 实例
func NewUnavailabilityService(repo *repository.Repository, notifier *notifier, logger *zap.Logger) UnavailabilityService {
	return &unavailabilityService{repo: repo, notifier: notifier, logger: logger}
}

// ────────────────────── Declare ──────────────────────

func (s *unavailabilityService) Declare(ctx context.Context, scope Scope, req *dto.CreateUnavailabilityRequest) (*dto.UnavailabilityResponse, error) {
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, ErrUnavailabilityDate
	}
	if err := checkUnavailabilityWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	u := &model.Unavailability{
		TeacherID: scope.UserID,
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    req.Reason,
		Status:    model.UnavailabilityPending,
	}
	u.CreatedBy = &scope.UserID
	u.UpdatedBy = &scope.UserID

	if err := s.repo.Unavailability.Create(ctx, u); err != nil {
		s.logger.Error("创建不可用申报失败", zap.String("teacher_id", scope.UserID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("教师提交不可用申报",
		zap.String("id", u.UnavailabilityID),
		zap.String("teacher_id", scope.UserID),
		zap.String("date", req.Date),
	)
	return s.withImpact(ctx, u)
}

// ────────────────────── GetByID ──────────────────────

func (s *unavailabilityService) GetByID(ctx context.Context, scope Scope, id string) (*dto.UnavailabilityResponse, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if scope.IsTeacher() && u.TeacherID != scope.UserID {
		return nil, ErrForbidden
	}
	return s.withImpact(ctx, u)
}

// ────────────────────── List ──────────────────────

// List 教师只能查看自己的申报
func (s *unavailabilityService) List(ctx context.Context, scope Scope, req *dto.UnavailabilityListRequest) ([]dto.UnavailabilityResponse, int64, error) {
	filter := repository.UnavailabilityFilter{
		TeacherID: req.TeacherID,
		Status:    req.Status,
	}
	if scope.IsTeacher() {
		filter.TeacherID = scope.UserID
	}
	if req.From != "" {
		from, err := time.Parse(dateLayout, req.From)
		if err != nil {
			return nil, 0, ErrUnavailabilityDate
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := time.Parse(dateLayout, req.To)
		if err != nil {
			return nil, 0, ErrUnavailabilityDate
		}
		filter.To = &to
	}

	list, total, err := s.repo.Unavailability.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出不可用申报失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.UnavailabilityResponse, 0, len(list))
	for i := range list {
		resp, err := s.withImpact(ctx, &list[i])
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *resp)
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

// Update 仅申报人可在待审批状态下修改
func (s *unavailabilityService) Update(ctx context.Context, scope Scope, id string, req *dto.UpdateUnavailabilityRequest) (*dto.UnavailabilityResponse, error) {
	u, err := s.loadOwnPending(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if req.Date != nil {
		date, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			return nil, ErrUnavailabilityDate
		}
		u.Date = date
	}
	if req.StartTime != nil {
		u.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		u.EndTime = *req.EndTime
	}
	if req.Reason != nil {
		u.Reason = *req.Reason
	}
	if err := checkUnavailabilityWindow(u.StartTime, u.EndTime); err != nil {
		return nil, err
	}
	u.Version = req.Version
	u.UpdatedBy = &scope.UserID

	if err := s.repo.Unavailability.Update(ctx, u); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新不可用申报失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	return s.withImpact(ctx, u)
}

// ────────────────────── Delete ──────────────────────

func (s *unavailabilityService) Delete(ctx context.Context, scope Scope, id string) error {
	if _, err := s.loadOwnPending(ctx, scope, id); err != nil {
		return err
	}

	if err := s.repo.Unavailability.Delete(ctx, id, scope.UserID); err != nil {
		s.logger.Error("撤回不可用申报失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Review ──────────────────────

// Review 审批申报；通过时在同一事务内取消重叠课次并通知受影响班级
func (s *unavailabilityService) Review(ctx context.Context, scope Scope, id string, req *dto.ReviewUnavailabilityRequest) (*dto.ReviewUnavailabilityResponse, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Status != model.UnavailabilityPending {
		return nil, ErrUnavailabilityNotPending
	}

	now := time.Now()
	u.Status = req.Decision
	u.ReviewedBy = &scope.UserID
	u.ReviewedAt = &now
	u.ReviewComment = req.Comment
	u.Version = req.Version
	u.UpdatedBy = &scope.UserID

	var propagation *PropagationResult
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Unavailability.TransitionStatus(ctx, u, model.UnavailabilityPending); err != nil {
			return err
		}
		if u.Status != model.UnavailabilityApproved {
			return nil
		}
		result, err := NewUnavailabilityPropagator(txRepo, s.logger).OnApproved(ctx, u)
		if err != nil {
			return err
		}
		propagation = result
		return nil
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrStateChanged) {
			return nil, ErrUnavailabilityNotPending
		}
		s.logger.Error("审批不可用申报失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.notifyDeclarant(ctx, u)

	fields := []zap.Field{
		zap.String("id", id),
		zap.String("decision", u.Status),
		zap.String("reviewer", scope.UserID),
	}
	resp := &dto.ReviewUnavailabilityResponse{Unavailability: toUnavailabilityResponse(u)}
	if propagation != nil {
		resp.Propagation = &dto.PropagationResponse{
			CancelledPlacementIDs: propagation.CancelledPlacementIDs,
			NotifiedClassIDs:      propagation.NotifiedClassIDs,
		}
		fields = append(fields, zap.Int("cancelled", len(propagation.CancelledPlacementIDs)))
	}
	s.logger.Info("不可用申报已审批", fields...)
	return resp, nil
}

// ── 内部辅助方法 ──

// withImpact 附带申报获批后将被取消的课次，与审批传播使用同一查询
func (s *unavailabilityService) withImpact(ctx context.Context, u *model.Unavailability) (*dto.UnavailabilityResponse, error) {
	matches, err := s.repo.Placement.ListActiveByTeacherOverlap(ctx, u.TeacherID, int(u.Date.Weekday()), u.StartTime, u.EndTime)
	if err != nil {
		s.logger.Error("查询受影响课次失败", zap.String("id", u.UnavailabilityID), zap.Error(err))
		return nil, err
	}
	resp := toUnavailabilityResponse(u)
	resp.ImpactedPlacements = make([]dto.ImpactedPlacement, 0, len(matches))
	for i := range matches {
		p := &matches[i]
		item := dto.ImpactedPlacement{
			ID:         p.PlacementID,
			DayOfWeek:  p.DayOfWeek,
			StartTime:  p.StartTime,
			EndTime:    p.EndTime,
			WeekNumber: p.WeekNumber,
			ClassID:    p.ClassID(),
			ClassName:  p.ClassName(),
		}
		if p.Subject != nil {
			item.SubjectName = p.Subject.Name
		}
		resp.ImpactedPlacements = append(resp.ImpactedPlacements, item)
	}
	return resp, nil
}

func (s *unavailabilityService) notifyDeclarant(ctx context.Context, u *model.Unavailability) {
	title, verdict := "不可用申报已通过", "已通过"
	if u.Status == model.UnavailabilityRejected {
		title, verdict = "不可用申报被驳回", "被驳回"
	}
	content := fmt.Sprintf("您 %s %s-%s 的不可用申报%s", u.Date.Format(dateLayout), u.StartTime, u.EndTime, verdict)
	if u.ReviewComment != "" {
		content += "：" + u.ReviewComment
	}
	s.notifier.toUsers(ctx, []string{u.TeacherID}, notice{
		Type:        model.NotificationUnavailability,
		Title:       title,
		Content:     content,
		RelatedType: "unavailability",
		RelatedID:   u.UnavailabilityID,
	})
}

func (s *unavailabilityService) load(ctx context.Context, id string) (*model.Unavailability, error) {
	u, err := s.repo.Unavailability.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnavailabilityNotFound
		}
		s.logger.Error("查询不可用申报失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return u, nil
}

func (s *unavailabilityService) loadOwnPending(ctx context.Context, scope Scope, id string) (*model.Unavailability, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.TeacherID != scope.UserID {
		return nil, ErrUnavailabilityNotOwner
	}
	if u.Status != model.UnavailabilityPending {
		return nil, ErrUnavailabilityNotPending
	}
	return u, nil
}

func checkUnavailabilityWindow(start, end string) error {
	w := TimeWindow{Start: start, End: end}
	if !w.Valid() {
		return ErrUnavailabilityWindow
	}
	return nil
}

func toUnavailabilityResponse(u *model.Unavailability) *dto.UnavailabilityResponse {
	resp := &dto.UnavailabilityResponse{
		ID:            u.UnavailabilityID,
		TeacherID:     u.TeacherID,
		Date:          u.Date.Format(dateLayout),
		StartTime:     u.StartTime,
		EndTime:       u.EndTime,
		Reason:        u.Reason,
		Status:        u.Status,
		ReviewedBy:    u.ReviewedBy,
		ReviewedAt:    formatTimePtr(u.ReviewedAt),
		ReviewComment: u.ReviewComment,
		Version:       u.Version,
		CreatedAt:     formatTime(u.CreatedAt),
	}
	if u.Teacher != nil {
		resp.TeacherName = u.Teacher.Name
	}
	return resp
}
