package dto

// ── 班级模块 DTO ──

// CreateClassRequest 创建班级请求
type CreateClassRequest struct {
	Name         string  `json:"name"          binding:"required,min=2,max=100"`
	AcademicYear string  `json:"academic_year" binding:"required,max=20"`
	Level        string  `json:"level"         binding:"omitempty,max=50"`
	ManagerID    *string `json:"manager_id"    binding:"omitempty,uuid"`
	MainRoomID   *string `json:"main_room_id"  binding:"omitempty,uuid"`
}

// UpdateClassRequest 更新班级请求
type UpdateClassRequest struct {
	Name         *string `json:"name"          binding:"omitempty,min=2,max=100"`
	AcademicYear *string `json:"academic_year" binding:"omitempty,max=20"`
	Level        *string `json:"level"         binding:"omitempty,max=50"`
	ManagerID    *string `json:"manager_id"    binding:"omitempty,uuid"`
	MainRoomID   *string `json:"main_room_id"  binding:"omitempty,uuid"`
	Version      int     `json:"version"       binding:"required,min=1"`
}

// ClassListRequest 班级列表查询参数
type ClassListRequest struct {
	AcademicYear string `form:"academic_year" binding:"omitempty,max=20"`
}

// SetRecurringSlotRequest 设置或清除固定周课
//
// Clear 为 true 时忽略其他字段并清除配置；否则星期与起止时间必填。
type SetRecurringSlotRequest struct {
	Clear     bool    `json:"clear"`
	DayOfWeek int     `json:"day_of_week" binding:"omitempty,weekday"`
	StartTime string  `json:"start_time"  binding:"omitempty,clock"`
	EndTime   string  `json:"end_time"    binding:"omitempty,clock"`
	SubjectID *string `json:"subject_id"  binding:"omitempty,uuid"` // 为空时按名称关键字查找
	Version   int     `json:"version"     binding:"required,min=1"`
}

// RecurringSlotResponse 固定周课配置
type RecurringSlotResponse struct {
	DayOfWeek int     `json:"day_of_week"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	SubjectID *string `json:"subject_id,omitempty"`
}

// ClassResponse 班级信息响应
type ClassResponse struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	AcademicYear  string                 `json:"academic_year"`
	Level         string                 `json:"level,omitempty"`
	ManagerID     *string                `json:"manager_id,omitempty"`
	ManagerName   string                 `json:"manager_name,omitempty"`
	MainRoomID    *string                `json:"main_room_id,omitempty"`
	MainRoomName  string                 `json:"main_room_name,omitempty"`
	RecurringSlot *RecurringSlotResponse `json:"recurring_slot,omitempty"`
	Version       int                    `json:"version"`
	CreatedAt     string                 `json:"created_at"`
}

// TimetableSyncResponse 单个课表的固定周课同步结果
type TimetableSyncResponse struct {
	TimetableID string `json:"timetable_id"`
	Created     int    `json:"created"`
	Deleted     int64  `json:"deleted"`
	Skipped     bool   `json:"skipped"`
	Reason      string `json:"reason,omitempty"`
}

// SetRecurringSlotResponse 设置固定周课响应
type SetRecurringSlotResponse struct {
	Class  *ClassResponse          `json:"class"`
	Synced []TimetableSyncResponse `json:"synced"`
}
