package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Dountche/esi-edt-backend/internal/dto"
	"github.com/Dountche/esi-edt-backend/internal/model"
	"github.com/Dountche/esi-edt-backend/internal/repository"
)

// ── 通知模块业务错误 ──

var (
	ErrNotificationNotFound = errors.New("通知不存在")
)

// NotificationService 通知业务接口
type NotificationService interface {
	List(ctx context.Context, userID string, req *dto.NotificationListRequest) (*dto.NotificationListResponse, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
	// PurgeReadBefore 清理 before 之前的已读通知，由定时任务调用
	PurgeReadBefore(ctx context.Context, before time.Time) (int64, error)
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *notificationService) List(ctx context.Context, userID string, req *dto.NotificationListRequest) (*dto.NotificationListResponse, error) {
	list, total, err := s.repo.Notification.ListByUser(ctx, userID, req.UnreadOnly, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询通知列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	unread, err := s.repo.Notification.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("统计未读通知失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	items := make([]dto.NotificationResponse, 0, len(list))
	for i := range list {
		items = append(items, toNotificationResponse(&list[i]))
	}

	return &dto.NotificationListResponse{
		List:     items,
		Total:    total,
		Unread:   unread,
		Page:     req.GetPage(),
		PageSize: req.GetPageSize(),
	}, nil
}

// ────────────────────── MarkRead ──────────────────────

func (s *notificationService) MarkRead(ctx context.Context, userID, id string) error {
	n, err := s.repo.Notification.MarkRead(ctx, id, userID)
	if err != nil {
		s.logger.Error("标记通知已读失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.Notification.MarkAllRead(ctx, userID)
	if err != nil {
		s.logger.Error("全部标记已读失败", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}
	return n, nil
}

// ────────────────────── Delete ──────────────────────

func (s *notificationService) Delete(ctx context.Context, userID, id string) error {
	n, err := s.repo.Notification.Delete(ctx, id, userID)
	if err != nil {
		s.logger.Error("删除通知失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// ────────────────────── PurgeReadBefore ──────────────────────

func (s *notificationService) PurgeReadBefore(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.repo.Notification.PurgeReadBefore(ctx, before)
	if err != nil {
		s.logger.Error("清理已读通知失败", zap.Error(err))
		return 0, err
	}
	s.logger.Info("已读通知已清理", zap.Time("before", before), zap.Int64("deleted", n))
	return n, nil
}

// ── 站内通知发送 ──

// notice 待发送的一条通知内容
type notice struct {
	Type        string
	Title       string
	Content     string
	RelatedType string
	RelatedID   string
}

// notifier 业务事件的站内通知发送者
//
// 发送失败只记录告警，不影响触发通知的主业务。
type notifier struct {
	repo   *repository.Repository
	logger *zap.Logger
}

func newNotifier(repo *repository.Repository, logger *zap.Logger) *notifier {
	return &notifier{repo: repo, logger: logger}
}

// toUsers 向指定用户发送同一条通知
func (n *notifier) toUsers(ctx context.Context, userIDs []string, msg notice) {
	if len(userIDs) == 0 {
		return
	}

	list := make([]model.Notification, 0, len(userIDs))
	for _, uid := range userIDs {
		item := model.Notification{
			UserID:  uid,
			Type:    msg.Type,
			Title:   msg.Title,
			Content: msg.Content,
		}
		if msg.RelatedType != "" {
			relatedType, relatedID := msg.RelatedType, msg.RelatedID
			item.RelatedType = &relatedType
			item.RelatedID = &relatedID
		}
		list = append(list, item)
	}

	if err := n.repo.Notification.BatchCreate(ctx, list); err != nil {
		n.logger.Warn("发送站内通知失败",
			zap.String("type", msg.Type),
			zap.Int("recipients", len(userIDs)),
			zap.Error(err),
		)
	}
}

// toClass 向班级全部学生发送通知
func (n *notifier) toClass(ctx context.Context, classID string, msg notice) {
	students, err := n.repo.User.ListStudentIDsByClass(ctx, classID)
	if err != nil {
		n.logger.Warn("查询班级学生失败，跳过通知", zap.String("class_id", classID), zap.Error(err))
		return
	}
	n.toUsers(ctx, students, msg)
}

func toNotificationResponse(n *model.Notification) dto.NotificationResponse {
	resp := dto.NotificationResponse{
		ID:          n.NotificationID,
		Type:        n.Type,
		Title:       n.Title,
		Content:     n.Content,
		IsRead:      n.IsRead,
		RelatedType: n.RelatedType,
		RelatedID:   n.RelatedID,
		CreatedAt:   formatTime(n.CreatedAt),
	}
	if len(n.Payload) > 0 {
		resp.Payload = json.RawMessage(n.Payload)
	}
	return resp
}
