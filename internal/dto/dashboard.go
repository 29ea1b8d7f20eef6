package dto

// ── 仪表盘模块 DTO ──

// DashboardResponse 按角色返回的首页概览，仅填充与调用者角色对应的一项
type DashboardResponse struct {
	Role     string            `json:"role"`
	Semester *SemesterResponse `json:"semester,omitempty"` // 无当前学期时为空
	Manager  *ManagerDashboard `json:"manager,omitempty"`
	Teacher  *TeacherDashboard `json:"teacher,omitempty"`
	Student  *StudentDashboard `json:"student,omitempty"`
}

// TimetableStats 课表状态计数
type TimetableStats struct {
	Draft     int `json:"draft"`
	Published int `json:"published"`
}

// ManagerDashboard 管理员与专业负责人概览
type ManagerDashboard struct {
	ClassCount              int            `json:"class_count"`
	StudentCount            int            `json:"student_count"`
	SubjectCount            int            `json:"subject_count"`
	Timetables              TimetableStats `json:"timetables"`
	PendingUnavailabilities int64          `json:"pending_unavailabilities"`
}

// TeacherDashboard 教师概览
type TeacherDashboard struct {
	ClassCount              int               `json:"class_count"`
	SubjectCount            int               `json:"subject_count"`
	TotalHours              float64           `json:"total_hours"` // 本学期未取消课次合计
	PendingUnavailabilities int64             `json:"pending_unavailabilities"`
	UpcomingSessions        []UpcomingSession `json:"upcoming_sessions"`
}

// StudentDashboard 学生概览
type StudentDashboard struct {
	ClassID            string            `json:"class_id"`
	ClassName          string            `json:"class_name"`
	SubjectCount       int               `json:"subject_count"`
	TimetablePublished bool              `json:"timetable_published"`
	UpcomingSessions   []UpcomingSession `json:"upcoming_sessions"`
}

// UpcomingSession 即将开始的课次
type UpcomingSession struct {
	PlacementID string `json:"placement_id"`
	Date        string `json:"date"`
	WeekNumber  int    `json:"week_number"`
	DayOfWeek   int    `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	SubjectName string `json:"subject_name"`
	ClassName   string `json:"class_name,omitempty"`
	RoomName    string `json:"room_name,omitempty"`
}
