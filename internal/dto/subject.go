package dto

// ── 课程模块 DTO ──

// CreateSubjectRequest 创建课程请求
type CreateSubjectRequest struct {
	Name    string  `json:"name"     binding:"required,min=2,max=150"`
	Code    string  `json:"code"     binding:"required,max=30"`
	Hours   int     `json:"hours"    binding:"omitempty,min=0"`
	ClassID *string `json:"class_id" binding:"omitempty,uuid"`
}

// UpdateSubjectRequest 更新课程请求
type UpdateSubjectRequest struct {
	Name    *string `json:"name"     binding:"omitempty,min=2,max=150"`
	Code    *string `json:"code"     binding:"omitempty,max=30"`
	Hours   *int    `json:"hours"    binding:"omitempty,min=0"`
	ClassID *string `json:"class_id" binding:"omitempty,uuid"`
}

// SubjectListRequest 课程列表查询参数
type SubjectListRequest struct {
	ClassID string `form:"class_id" binding:"omitempty,uuid"`
	Keyword string `form:"keyword"  binding:"omitempty,max=50"`
}

// SubjectResponse 课程信息响应
type SubjectResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Code      string  `json:"code"`
	Hours     int     `json:"hours"`
	ClassID   *string `json:"class_id,omitempty"`
	CreatedAt string  `json:"created_at"`
}
