package dto

// ── 学期模块 DTO ──

// CreateSemesterRequest 创建学期请求
type CreateSemesterRequest struct {
	Name         string `json:"name"          binding:"required,min=2,max=100"`
	AcademicYear string `json:"academic_year" binding:"required,max=20"` // "2025-2026"
	StartDate    string `json:"start_date"    binding:"required"`        // "2025-09-01"
	EndDate      string `json:"end_date"      binding:"required"`
}

// UpdateSemesterRequest 更新学期请求
type UpdateSemesterRequest struct {
	Name         *string `json:"name"          binding:"omitempty,min=2,max=100"`
	AcademicYear *string `json:"academic_year" binding:"omitempty,max=20"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
}

// SemesterResponse 学期信息响应
type SemesterResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	AcademicYear string `json:"academic_year"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	IsActive     bool   `json:"is_active"`
	Version      int    `json:"version"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}
