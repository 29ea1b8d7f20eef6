package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Dountche/esi-edt-backend/internal/model"
	pkgerrors "github.com/Dountche/esi-edt-backend/pkg/errors"
)

// UnavailabilityFilter 不可用申报查询条件
type UnavailabilityFilter struct {
	TeacherID string
	Status    string
	From      *time.Time // date >= From
	To        *time.Time // date <= To
}

// UnavailabilityRepository 不可用申报数据访问接口
type UnavailabilityRepository interface {
	Create(ctx context.Context, u *model.Unavailability) error
	GetByID(ctx context.Context, id string) (*model.Unavailability, error)
	List(ctx context.Context, filter UnavailabilityFilter, offset, limit int) ([]model.Unavailability, int64, error)
	Update(ctx context.Context, u *model.Unavailability) error
	// TransitionStatus 条件更新审批状态：仅当当前状态为 from 且版本一致时生效
	TransitionStatus(ctx context.Context, u *model.Unavailability, from string) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type unavailabilityRepo struct {
	db *gorm.DB
}

// NewUnavailabilityRepo 创建 UnavailabilityRepository 实例
func NewUnavailabilityRepo(db *gorm.DB) UnavailabilityRepository {
	return &unavailabilityRepo{db: db}
}

func (r *unavailabilityRepo) Create(ctx context.Context, u *model.Unavailability) error {
	return r.db.WithContext(ctx).Omit("Teacher").Create(u).Error
}

func (r *unavailabilityRepo) GetByID(ctx context.Context, id string) (*model.Unavailability, error) {
	var u model.Unavailability
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		Where("unavailability_id = ?", id).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *unavailabilityRepo) List(ctx context.Context, filter UnavailabilityFilter, offset, limit int) ([]model.Unavailability, int64, error) {
	var list []model.Unavailability
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Unavailability{})
	if filter.TeacherID != "" {
		db = db.Where("teacher_id = ?", filter.TeacherID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		db = db.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("date <= ?", *filter.To)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Teacher").
		Offset(offset).Limit(limit).
		Order("date DESC, start_time ASC").
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Update 乐观锁更新申报内容，仅待审批记录可改
func (r *unavailabilityRepo) Update(ctx context.Context, u *model.Unavailability) error {
	oldVersion := u.Version
	result := r.db.WithContext(ctx).
		Model(&model.Unavailability{}).
		Where("unavailability_id = ? AND version = ? AND status = ?",
			u.UnavailabilityID, oldVersion, model.UnavailabilityPending).
		Updates(map[string]interface{}{
			"date":       u.Date,
			"start_time": u.StartTime,
			"end_time":   u.EndTime,
			"reason":     u.Reason,
			"updated_by": u.UpdatedBy,
			"updated_at": time.Now(),
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	u.Version = oldVersion + 1
	return nil
}

func (r *unavailabilityRepo) TransitionStatus(ctx context.Context, u *model.Unavailability, from string) error {
	oldVersion := u.Version
	result := r.db.WithContext(ctx).
		Model(&model.Unavailability{}).
		Where("unavailability_id = ? AND status = ? AND version = ?", u.UnavailabilityID, from, oldVersion).
		Updates(map[string]interface{}{
			"status":         u.Status,
			"reviewed_by":    u.ReviewedBy,
			"reviewed_at":    u.ReviewedAt,
			"review_comment": u.ReviewComment,
			"updated_by":     u.UpdatedBy,
			"updated_at":     time.Now(),
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStateChanged
	}
	u.Version = oldVersion + 1
	return nil
}

func (r *unavailabilityRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Unavailability{}).
		Where("unavailability_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": time.Now(),
		}).Error
}
