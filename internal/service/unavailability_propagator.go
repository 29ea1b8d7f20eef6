package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Dountche/esi-edt-backend/internal/model"
	"github.com/Dountche/esi-edt-backend/internal/repository"
)

// 课次取消通知文案
const (
	cancelNoticeTitle   = "Session cancelled"
	cancelNoticeMessage = "The %s session scheduled on %s is cancelled because the teacher is unavailable."
)

// PropagationResult 不可用审批传播结果
type PropagationResult struct {
	CancelledPlacementIDs []string `json:"cancelled_placement_ids"`
	NotifiedClassIDs      []string `json:"notified_class_ids"`
}

// cancelPayload 取消通知的结构化负载
type cancelPayload struct {
	UnavailabilityID string   `json:"unavailability_id"`
	ClassID          string   `json:"class_id"`
	Date             string   `json:"date"`
	PlacementIDs     []string `json:"placement_ids"`
}

// UnavailabilityPropagator 审批通过后取消重叠课次并通知受影响班级
//
// 不开启事务，由调用方在同一事务中传入事务仓储。
type UnavailabilityPropagator struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUnavailabilityPropagator 创建传播器
func NewUnavailabilityPropagator(repo *repository.Repository, logger *zap.Logger) *UnavailabilityPropagator {
	return &UnavailabilityPropagator{repo: repo, logger: logger}
}

type classHit struct {
	classID      string
	subjectName  string
	placementIDs []string
}

// OnApproved 按申报日期所在星期取消该教师全部重叠课次（不限周次），每个班级发送一条通知
//
// 冲突检测按星期与周次匹配，这里只按星期匹配：申报日期不映射到周次。
func (p *UnavailabilityPropagator) OnApproved(ctx context.Context, decl *model.Unavailability) (*PropagationResult, error) {
	result := &PropagationResult{CancelledPlacementIDs: []string{}, NotifiedClassIDs: []string{}}

	weekday := int(decl.Date.Weekday())
	matches, err := p.repo.Placement.ListActiveByTeacherOverlap(ctx, decl.TeacherID, weekday, decl.StartTime, decl.EndTime)
	if err != nil {
		return nil, fmt.Errorf("查询受影响课次失败: %w", err)
	}
	if len(matches) == 0 {
		return result, nil
	}

	// 按班级分组，保持首次出现的顺序
	var order []*classHit
	byClass := make(map[string]*classHit)
	for i := range matches {
		pl := &matches[i]
		result.CancelledPlacementIDs = append(result.CancelledPlacementIDs, pl.PlacementID)

		classID := pl.ClassID()
		hit, ok := byClass[classID]
		if !ok {
			hit = &classHit{classID: classID}
			if pl.Subject != nil {
				hit.subjectName = pl.Subject.Name
			}
			byClass[classID] = hit
			order = append(order, hit)
		}
		hit.placementIDs = append(hit.placementIDs, pl.PlacementID)
	}

	if _, err := p.repo.Placement.CancelByIDs(ctx, result.CancelledPlacementIDs); err != nil {
		return nil, fmt.Errorf("批量取消课次失败: %w", err)
	}

	date := decl.Date.Format("2006-01-02")
	relatedType := "unavailability"
	var notifications []model.Notification
	for _, hit := range order {
		students, err := p.repo.User.ListStudentIDsByClass(ctx, hit.classID)
		if err != nil {
			return nil, fmt.Errorf("查询班级学生失败: %w", err)
		}

		payload, err := json.Marshal(cancelPayload{
			UnavailabilityID: decl.UnavailabilityID,
			ClassID:          hit.classID,
			Date:             date,
			PlacementIDs:     hit.placementIDs,
		})
		if err != nil {
			return nil, err
		}

		content := fmt.Sprintf(cancelNoticeMessage, hit.subjectName, date)
		for _, uid := range students {
			notifications = append(notifications, model.Notification{
				UserID:      uid,
				Type:        model.NotificationUnavailability,
				Title:       cancelNoticeTitle,
				Content:     content,
				RelatedType: &relatedType,
				RelatedID:   &decl.UnavailabilityID,
				Payload:     datatypes.JSON(payload),
			})
		}
		result.NotifiedClassIDs = append(result.NotifiedClassIDs, hit.classID)
	}

	if err := p.repo.Notification.BatchCreate(ctx, notifications); err != nil {
		return nil, fmt.Errorf("写入取消通知失败: %w", err)
	}

	p.logger.Info("不可用申报已传播",
		zap.String("unavailability_id", decl.UnavailabilityID),
		zap.Int("cancelled", len(result.CancelledPlacementIDs)),
		zap.Int("classes", len(result.NotifiedClassIDs)),
		zap.Int("notifications", len(notifications)),
	)
	return result, nil
}
