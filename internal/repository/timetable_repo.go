package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Dountche/esi-edt-backend/internal/model"
	pkgerrors "github.com/Dountche/esi-edt-backend/pkg/errors"
)

// TimetableFilter 课表列表查询条件
type TimetableFilter struct {
	ClassID    string
	SemesterID string
	Status     string
	ManagerID  string // 仅返回该负责人名下班级的课表
}

// TimetableRepository 课表数据访问接口
type TimetableRepository interface {
	Create(ctx context.Context, tt *model.Timetable) error
	GetByID(ctx context.Context, id string) (*model.Timetable, error)
	GetByClassAndSemester(ctx context.Context, classID, semesterID string) (*model.Timetable, error)
	List(ctx context.Context, filter TimetableFilter) ([]model.Timetable, error)
	ListDraftByClass(ctx context.Context, classID string) ([]model.Timetable, error)
	Update(ctx context.Context, tt *model.Timetable) error
	Delete(ctx context.Context, id string) error
}

type timetableRepo struct {
	db *gorm.DB
}

// NewTimetableRepo 创建 TimetableRepository 实例
func NewTimetableRepo(db *gorm.DB) TimetableRepository {
	return &timetableRepo{db: db}
}

func (r *timetableRepo) Create(ctx context.Context, tt *model.Timetable) error {
	return r.db.WithContext(ctx).
		Omit("Class", "Semester", "Placements").
		Create(tt).Error
}

func (r *timetableRepo) GetByID(ctx context.Context, id string) (*model.Timetable, error) {
	var tt model.Timetable
	err := r.db.WithContext(ctx).
		Preload("Class").
		Preload("Semester").
		Where("timetable_id = ?", id).
		First(&tt).Error
	if err != nil {
		return nil, err
	}
	return &tt, nil
}

func (r *timetableRepo) GetByClassAndSemester(ctx context.Context, classID, semesterID string) (*model.Timetable, error) {
	var tt model.Timetable
	err := r.db.WithContext(ctx).
		Where("class_id = ? AND semester_id = ?", classID, semesterID).
		First(&tt).Error
	if err != nil {
		return nil, err
	}
	return &tt, nil
}

func (r *timetableRepo) List(ctx context.Context, filter TimetableFilter) ([]model.Timetable, error) {
	var list []model.Timetable
	db := r.db.WithContext(ctx).
		Preload("Class").
		Preload("Semester")
	if filter.ClassID != "" {
		db = db.Where("timetables.class_id = ?", filter.ClassID)
	}
	if filter.SemesterID != "" {
		db = db.Where("timetables.semester_id = ?", filter.SemesterID)
	}
	if filter.Status != "" {
		db = db.Where("timetables.status = ?", filter.Status)
	}
	if filter.ManagerID != "" {
		db = db.Where("timetables.class_id IN (?)",
			r.db.Model(&model.Class{}).Select("class_id").Where("manager_id = ?", filter.ManagerID))
	}
	err := db.Order("timetables.created_at DESC").Find(&list).Error
	return list, err
}

func (r *timetableRepo) ListDraftByClass(ctx context.Context, classID string) ([]model.Timetable, error) {
	var list []model.Timetable
	err := r.db.WithContext(ctx).
		Where("class_id = ? AND status = ?", classID, model.TimetableDraft).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

// Update 乐观锁更新状态字段
func (r *timetableRepo) Update(ctx context.Context, tt *model.Timetable) error {
	oldVersion := tt.Version
	result := r.db.WithContext(ctx).
		Model(&model.Timetable{}).
		Where("timetable_id = ? AND version = ?", tt.TimetableID, oldVersion).
		Updates(map[string]interface{}{
			"status":       tt.Status,
			"published_at": tt.PublishedAt,
			"updated_by":   tt.UpdatedBy,
			"updated_at":   time.Now(),
			"version":      oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	tt.Version = oldVersion + 1
	return nil
}

// Delete 物理删除，课次随外键级联删除
func (r *timetableRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("timetable_id = ?", id).
		Delete(&model.Timetable{}).Error
}
