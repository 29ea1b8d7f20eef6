package dto

// ── 课次模块 DTO ──

// CreatePlacementRequest 新增课次请求
type CreatePlacementRequest struct {
	DayOfWeek  int     `json:"day_of_week" binding:"required,weekday"`
	StartTime  string  `json:"start_time"  binding:"required,clock"`
	EndTime    string  `json:"end_time"    binding:"required,clock"`
	WeekNumber int     `json:"week_number" binding:"required,week"`
	SubjectID  string  `json:"subject_id"  binding:"required,uuid"`
	TeacherID  *string `json:"teacher_id"  binding:"omitempty,uuid"`
	RoomID     *string `json:"room_id"     binding:"omitempty,uuid"`
	Kind       string  `json:"kind"        binding:"omitempty,oneof=lecture tutorial lab"`
}

// UpdatePlacementRequest 更新课次请求，nil 字段保持不变
//
// ClearTeacher / ClearRoom 用于显式解除教师或教室。
type UpdatePlacementRequest struct {
	DayOfWeek    *int    `json:"day_of_week"   binding:"omitempty,weekday"`
	StartTime    *string `json:"start_time"    binding:"omitempty,clock"`
	EndTime      *string `json:"end_time"      binding:"omitempty,clock"`
	WeekNumber   *int    `json:"week_number"   binding:"omitempty,week"`
	SubjectID    *string `json:"subject_id"    binding:"omitempty,uuid"`
	TeacherID    *string `json:"teacher_id"    binding:"omitempty,uuid"`
	RoomID       *string `json:"room_id"       binding:"omitempty,uuid"`
	ClearTeacher bool    `json:"clear_teacher"`
	ClearRoom    bool    `json:"clear_room"`
	Kind         *string `json:"kind"          binding:"omitempty,oneof=lecture tutorial lab"`
	Cancelled    *bool   `json:"cancelled"`
	Version      int     `json:"version"       binding:"required,min=1"`
}

// CheckPlacementRequest 仅校验不写入
type CheckPlacementRequest struct {
	TimetableID string  `json:"timetable_id" binding:"required,uuid"`
	DayOfWeek   int     `json:"day_of_week"  binding:"min=0,max=6"`
	StartTime   string  `json:"start_time"   binding:"required"`
	EndTime     string  `json:"end_time"     binding:"required"`
	WeekNumber  int     `json:"week_number"  binding:"required"`
	SubjectID   string  `json:"subject_id"   binding:"required,uuid"`
	TeacherID   *string `json:"teacher_id"   binding:"omitempty,uuid"`
	RoomID      *string `json:"room_id"      binding:"omitempty,uuid"`
	ExcludeID   *string `json:"exclude_id"   binding:"omitempty,uuid"`
}

// MyPlacementsRequest 我的课次查询参数
type MyPlacementsRequest struct {
	SemesterID string `form:"semester_id" binding:"required,uuid"`
}

// PlacementResponse 课次响应
type PlacementResponse struct {
	ID          string  `json:"id"`
	TimetableID string  `json:"timetable_id"`
	ClassID     string  `json:"class_id,omitempty"`
	ClassName   string  `json:"class_name,omitempty"`
	DayOfWeek   int     `json:"day_of_week"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	WeekNumber  int     `json:"week_number"`
	SubjectID   string  `json:"subject_id"`
	SubjectName string  `json:"subject_name,omitempty"`
	TeacherID   *string `json:"teacher_id,omitempty"`
	TeacherName string  `json:"teacher_name,omitempty"`
	RoomID      *string `json:"room_id,omitempty"`
	RoomName    string  `json:"room_name,omitempty"`
	Kind        string  `json:"kind"`
	Cancelled   bool    `json:"cancelled"`
	Version     int     `json:"version"`
}
