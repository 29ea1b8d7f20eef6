package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Dountche/esi-edt-backend/internal/model"
	pkgerrors "github.com/Dountche/esi-edt-backend/pkg/errors"
)

// SlotQuery 同一星期、周次内按资源查找课次的条件
//
// 周次是全局编号，不按学期区分：学期日期可以重叠，同一周次视为同一物理周。
//
// TeacherID 与 RoomID 之间为 OR 关系，均为空时不查询。
// Start/End 非空时追加严格重叠条件 start_time < End AND end_time > Start。
type SlotQuery struct {
	DayOfWeek  int
	WeekNumber int
	TeacherID  *string
	RoomID     *string
	Start      string
	End        string
	ExcludeID  *string
}

// PlacementRepository 课次数据访问接口
type PlacementRepository interface {
	Create(ctx context.Context, p *model.Placement) error
	BatchCreate(ctx context.Context, list []model.Placement) error
	GetByID(ctx context.Context, id string) (*model.Placement, error)
	Update(ctx context.Context, p *model.Placement) error
	Delete(ctx context.Context, id string) error

	ListByTimetable(ctx context.Context, timetableID string) ([]model.Placement, error)
	ListByTeacher(ctx context.Context, teacherID, semesterID string) ([]model.Placement, error)
	ListByClass(ctx context.Context, classID, semesterID string) ([]model.Placement, error)

	// ListBySlot 同一时段内占用指定教师或教室的未取消课次
	ListBySlot(ctx context.Context, q SlotQuery) ([]model.Placement, error)
	// ListActiveByTeacherOverlap 教师在某星期与时间段重叠的全部未取消课次（不限周次、学期）
	ListActiveByTeacherOverlap(ctx context.Context, teacherID string, weekday int, start, end string) ([]model.Placement, error)
	// CancelByIDs 批量标记取消，返回受影响行数
	CancelByIDs(ctx context.Context, ids []string) (int64, error)
	// DeleteByTimetableAndSubject 删除课表内指定课程的全部课次
	DeleteByTimetableAndSubject(ctx context.Context, timetableID, subjectID string) (int64, error)
}

type placementRepo struct {
	db *gorm.DB
}

// NewPlacementRepo 创建 PlacementRepository 实例
func NewPlacementRepo(db *gorm.DB) PlacementRepository {
	return &placementRepo{db: db}
}

// withDetail 预加载冲突信息与展示所需的关联
func withDetail(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Timetable").Preload("Timetable.Class").
		Preload("Subject").
		Preload("Teacher").
		Preload("Room")
}

func (r *placementRepo) Create(ctx context.Context, p *model.Placement) error {
	return r.db.WithContext(ctx).
		Omit("Timetable", "Subject", "Teacher", "Room").
		Create(p).Error
}

func (r *placementRepo) BatchCreate(ctx context.Context, list []model.Placement) error {
	if len(list) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Omit("Timetable", "Subject", "Teacher", "Room").
		Create(&list).Error
}

func (r *placementRepo) GetByID(ctx context.Context, id string) (*model.Placement, error) {
	var p model.Placement
	err := withDetail(r.db.WithContext(ctx)).
		Where("placement_id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update 乐观锁更新
func (r *placementRepo) Update(ctx context.Context, p *model.Placement) error {
	oldVersion := p.Version
	result := r.db.WithContext(ctx).
		Model(&model.Placement{}).
		Where("placement_id = ? AND version = ?", p.PlacementID, oldVersion).
		Updates(map[string]interface{}{
			"day_of_week": p.DayOfWeek,
			"start_time":  p.StartTime,
			"end_time":    p.EndTime,
			"week_number": p.WeekNumber,
			"subject_id":  p.SubjectID,
			"teacher_id":  p.TeacherID,
			"room_id":     p.RoomID,
			"kind":        p.Kind,
			"cancelled":   p.Cancelled,
			"updated_by":  p.UpdatedBy,
			"updated_at":  time.Now(),
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	p.Version = oldVersion + 1
	return nil
}

func (r *placementRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("placement_id = ?", id).
		Delete(&model.Placement{}).Error
}

// ── 列表查询 ──

func (r *placementRepo) ListByTimetable(ctx context.Context, timetableID string) ([]model.Placement, error) {
	var list []model.Placement
	err := r.db.WithContext(ctx).
		Preload("Subject").Preload("Teacher").Preload("Room").
		Where("timetable_id = ?", timetableID).
		Order("week_number ASC, day_of_week ASC, start_time ASC").
		Find(&list).Error
	return list, err
}

func (r *placementRepo) ListByTeacher(ctx context.Context, teacherID, semesterID string) ([]model.Placement, error) {
	var list []model.Placement
	db := withDetail(r.db.WithContext(ctx)).Where("teacher_id = ?", teacherID)
	if semesterID != "" {
		db = db.Where("semester_id = ?", semesterID)
	}
	err := db.Order("week_number ASC, day_of_week ASC, start_time ASC").Find(&list).Error
	return list, err
}

func (r *placementRepo) ListByClass(ctx context.Context, classID, semesterID string) ([]model.Placement, error) {
	var list []model.Placement
	sub := r.db.Model(&model.Timetable{}).Select("timetable_id").Where("class_id = ?", classID)
	if semesterID != "" {
		sub = sub.Where("semester_id = ?", semesterID)
	}
	err := withDetail(r.db.WithContext(ctx)).
		Where("timetable_id IN (?)", sub).
		Order("week_number ASC, day_of_week ASC, start_time ASC").
		Find(&list).Error
	return list, err
}

// ── 冲突检测 ──

func (r *placementRepo) ListBySlot(ctx context.Context, q SlotQuery) ([]model.Placement, error) {
	if q.TeacherID == nil && q.RoomID == nil {
		return nil, nil
	}

	db := withDetail(r.db.WithContext(ctx)).
		Where("day_of_week = ? AND week_number = ? AND cancelled = ?", q.DayOfWeek, q.WeekNumber, false)

	switch {
	case q.TeacherID != nil && q.RoomID != nil:
		db = db.Where("(teacher_id = ? OR room_id = ?)", *q.TeacherID, *q.RoomID)
	case q.TeacherID != nil:
		db = db.Where("teacher_id = ?", *q.TeacherID)
	default:
		db = db.Where("room_id = ?", *q.RoomID)
	}

	if q.Start != "" && q.End != "" {
		db = db.Where("start_time < ? AND end_time > ?", q.End, q.Start)
	}
	if q.ExcludeID != nil && *q.ExcludeID != "" {
		db = db.Where("placement_id <> ?", *q.ExcludeID)
	}

	var list []model.Placement
	err := db.Order("start_time ASC, placement_id ASC").Find(&list).Error
	return list, err
}

func (r *placementRepo) ListActiveByTeacherOverlap(ctx context.Context, teacherID string, weekday int, start, end string) ([]model.Placement, error) {
	var list []model.Placement
	err := withDetail(r.db.WithContext(ctx)).
		Where("teacher_id = ? AND day_of_week = ? AND cancelled = ?", teacherID, weekday, false).
		Where("start_time < ? AND end_time > ?", end, start).
		Order("week_number ASC, start_time ASC, placement_id ASC").
		Find(&list).Error
	return list, err
}

func (r *placementRepo) CancelByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&model.Placement{}).
		Where("placement_id IN ?", ids).
		Updates(map[string]interface{}{
			"cancelled":  true,
			"updated_at": time.Now(),
			"version":    gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

func (r *placementRepo) DeleteByTimetableAndSubject(ctx context.Context, timetableID, subjectID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("timetable_id = ? AND subject_id = ?", timetableID, subjectID).
		Delete(&model.Placement{})
	return result.RowsAffected, result.Error
}
