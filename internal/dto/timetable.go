package dto

// ── 课表模块 DTO ──

// CreateTimetableRequest 创建课表请求
type CreateTimetableRequest struct {
	ClassID    string `json:"class_id"    binding:"required,uuid"`
	SemesterID string `json:"semester_id" binding:"required,uuid"`
}

// TimetableListRequest 课表列表查询参数
type TimetableListRequest struct {
	ClassID    string `form:"class_id"    binding:"omitempty,uuid"`
	SemesterID string `form:"semester_id" binding:"omitempty,uuid"`
	Status     string `form:"status"      binding:"omitempty,oneof=draft published"`
}

// UpdateTimetableStatusRequest 发布或撤回课表
type UpdateTimetableStatusRequest struct {
	Status  string `json:"status"  binding:"required,oneof=draft published"`
	Version int    `json:"version" binding:"required,min=1"`
}

// DuplicateTimetableRequest 复制课表到另一学期
type DuplicateTimetableRequest struct {
	SemesterID string `json:"semester_id" binding:"required,uuid"`
}

// TimetableResponse 课表响应
type TimetableResponse struct {
	ID           string              `json:"id"`
	ClassID      string              `json:"class_id"`
	ClassName    string              `json:"class_name,omitempty"`
	SemesterID   string              `json:"semester_id"`
	SemesterName string              `json:"semester_name,omitempty"`
	Status       string              `json:"status"`
	PublishedAt  *string             `json:"published_at,omitempty"`
	Version      int                 `json:"version"`
	CreatedAt    string              `json:"created_at"`
	Placements   []PlacementResponse `json:"placements,omitempty"`
}

// CreateTimetableResponse 创建课表响应（含固定周课同步结果）
type CreateTimetableResponse struct {
	Timetable *TimetableResponse     `json:"timetable"`
	Sync      *TimetableSyncResponse `json:"sync,omitempty"`
}
