package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Dountche/esi-edt-backend/internal/model"
)

// AssignmentFilter 授课分配查询条件，空字段不参与过滤
type AssignmentFilter struct {
	TeacherID  string
	SubjectID  string
	ClassID    string
	SemesterID string
}

// AssignmentRepository 授课分配数据访问接口
type AssignmentRepository interface {
	Create(ctx context.Context, a *model.Assignment) error
	GetByID(ctx context.Context, id string) (*model.Assignment, error)
	List(ctx context.Context, filter AssignmentFilter) ([]model.Assignment, error)
	// CountByTuple 统计 (教师, 课程, 班级, 学期) 完全匹配的分配数量
	CountByTuple(ctx context.Context, teacherID, subjectID, classID, semesterID string) (int64, error)
	Delete(ctx context.Context, id string) error
}

type assignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepo 创建 AssignmentRepository 实例
func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) Create(ctx context.Context, a *model.Assignment) error {
	return r.db.WithContext(ctx).
		Omit("Teacher", "Subject", "Class", "Semester").
		Create(a).Error
}

func (r *assignmentRepo) GetByID(ctx context.Context, id string) (*model.Assignment, error) {
	var a model.Assignment
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		Preload("Subject").
		Preload("Class").
		Preload("Semester").
		Where("assignment_id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepo) List(ctx context.Context, filter AssignmentFilter) ([]model.Assignment, error) {
	var list []model.Assignment
	db := r.db.WithContext(ctx).
		Preload("Teacher").
		Preload("Subject").
		Preload("Class")
	if filter.TeacherID != "" {
		db = db.Where("teacher_id = ?", filter.TeacherID)
	}
	if filter.SubjectID != "" {
		db = db.Where("subject_id = ?", filter.SubjectID)
	}
	if filter.ClassID != "" {
		db = db.Where("class_id = ?", filter.ClassID)
	}
	if filter.SemesterID != "" {
		db = db.Where("semester_id = ?", filter.SemesterID)
	}
	err := db.Order("created_at ASC").Find(&list).Error
	return list, err
}

func (r *assignmentRepo) CountByTuple(ctx context.Context, teacherID, subjectID, classID, semesterID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("teacher_id = ? AND subject_id = ? AND class_id = ? AND semester_id = ?",
			teacherID, subjectID, classID, semesterID).
		Count(&count).Error
	return count, err
}

func (r *assignmentRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("assignment_id = ?", id).
		Delete(&model.Assignment{}).Error
}
