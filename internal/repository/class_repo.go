package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Dountche/esi-edt-backend/internal/model"
	pkgerrors "github.com/Dountche/esi-edt-backend/pkg/errors"
)

// ClassFilter 班级列表查询条件
type ClassFilter struct {
	ManagerID    string
	AcademicYear string
}

// ClassRepository 班级数据访问接口
type ClassRepository interface {
	Create(ctx context.Context, class *model.Class) error
	GetByID(ctx context.Context, id string) (*model.Class, error)
	List(ctx context.Context, filter ClassFilter) ([]model.Class, error)
	Update(ctx context.Context, class *model.Class) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type classRepo struct {
	db *gorm.DB
}

// NewClassRepo 创建 ClassRepository 实例
func NewClassRepo(db *gorm.DB) ClassRepository {
	return &classRepo{db: db}
}

func (r *classRepo) Create(ctx context.Context, class *model.Class) error {
	return r.db.WithContext(ctx).Omit("Manager", "MainRoom").Create(class).Error
}

func (r *classRepo) GetByID(ctx context.Context, id string) (*model.Class, error) {
	var class model.Class
	err := r.db.WithContext(ctx).
		Preload("Manager").
		Preload("MainRoom").
		Where("class_id = ?", id).
		First(&class).Error
	if err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *classRepo) List(ctx context.Context, filter ClassFilter) ([]model.Class, error) {
	var classes []model.Class
	db := r.db.WithContext(ctx).Preload("Manager").Preload("MainRoom")
	if filter.ManagerID != "" {
		db = db.Where("manager_id = ?", filter.ManagerID)
	}
	if filter.AcademicYear != "" {
		db = db.Where("academic_year = ?", filter.AcademicYear)
	}
	err := db.Order("name ASC").Find(&classes).Error
	return classes, err
}

// Update 乐观锁更新（包含固定周课配置）
func (r *classRepo) Update(ctx context.Context, class *model.Class) error {
	oldVersion := class.Version
	result := r.db.WithContext(ctx).
		Model(&model.Class{}).
		Where("class_id = ? AND version = ?", class.ClassID, oldVersion).
		Updates(map[string]interface{}{
			"name":                 class.Name,
			"academic_year":        class.AcademicYear,
			"level":                class.Level,
			"manager_id":           class.ManagerID,
			"main_room_id":         class.MainRoomID,
			"recurring_day":        class.RecurringDay,
			"recurring_start":      class.RecurringStart,
			"recurring_end":        class.RecurringEnd,
			"recurring_subject_id": class.RecurringSubjectID,
			"updated_by":           class.UpdatedBy,
			"updated_at":           time.Now(),
			"version":              oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	class.Version = oldVersion + 1
	return nil
}

func (r *classRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Class{}).
		Where("class_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": time.Now(),
		}).Error
}
