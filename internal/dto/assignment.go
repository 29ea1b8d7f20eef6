package dto

// ── 授课分配模块 DTO ──

// CreateAssignmentRequest 创建授课分配请求
type CreateAssignmentRequest struct {
	TeacherID  string `json:"teacher_id"  binding:"required,uuid"`
	SubjectID  string `json:"subject_id"  binding:"required,uuid"`
	ClassID    string `json:"class_id"    binding:"required,uuid"`
	SemesterID string `json:"semester_id" binding:"required,uuid"`
}

// AssignmentListRequest 授课分配查询参数
type AssignmentListRequest struct {
	TeacherID  string `form:"teacher_id"  binding:"omitempty,uuid"`
	SubjectID  string `form:"subject_id"  binding:"omitempty,uuid"`
	ClassID    string `form:"class_id"    binding:"omitempty,uuid"`
	SemesterID string `form:"semester_id" binding:"omitempty,uuid"`
}

// AssignmentResponse 授课分配响应
type AssignmentResponse struct {
	ID          string `json:"id"`
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name,omitempty"`
	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subject_name,omitempty"`
	ClassID     string `json:"class_id"`
	ClassName   string `json:"class_name,omitempty"`
	SemesterID  string `json:"semester_id"`
	CreatedAt   string `json:"created_at"`
}
