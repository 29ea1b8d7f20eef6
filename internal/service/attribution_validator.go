package service

import (
	"context"
	"fmt"

	"github.com/Dountche/esi-edt-backend/internal/repository"
)

// ReasonNoAssignment 教师未被分配该班级该学期的该课程
const ReasonNoAssignment = "NoAssignment"

// AttributionResult 授课资格校验结果
type AttributionResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// AttributionValidator 校验 (课程, 教师, 班级, 学期) 是否存在唯一的授课分配
type AttributionValidator struct {
	assignments repository.AssignmentRepository
}

// NewAttributionValidator 创建授课资格校验器
func NewAttributionValidator(assignments repository.AssignmentRepository) *AttributionValidator {
	return &AttributionValidator{assignments: assignments}
}

// Validate 恰好存在一条分配时通过
func (v *AttributionValidator) Validate(ctx context.Context, subjectID, teacherID, classID, semesterID string) (*AttributionResult, error) {
	n, err := v.assignments.CountByTuple(ctx, teacherID, subjectID, classID, semesterID)
	if err != nil {
		return nil, fmt.Errorf("查询授课分配失败: %w", err)
	}
	if n != 1 {
		return &AttributionResult{Valid: false, Reason: ReasonNoAssignment}, nil
	}
	return &AttributionResult{Valid: true}, nil
}
