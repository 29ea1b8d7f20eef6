package model

import "time"

// Semester 学期表 — 对应 semesters
type Semester struct {
	SemesterID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"semester_id"`
	Name         string    `gorm:"type:varchar(100);not null"                     json:"name"`
	AcademicYear string    `gorm:"type:varchar(20);not null"                      json:"academic_year"`
	StartDate    time.Time `gorm:"type:date;not null"                             json:"start_date"` // 第 1 周所在的周一
	EndDate      time.Time `gorm:"type:date;not null"                             json:"end_date"`
	IsActive     bool      `gorm:"not null;default:false"                         json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (Semester) TableName() string { return "semesters" }

// DateOf 返回第 week 周星期 weekday 的日期（以 StartDate 所在周的周一为第 1 周起点）
func (s *Semester) DateOf(week, weekday int) time.Time {
	start := s.StartDate
	offset := (int(start.Weekday()) + 6) % 7 // 距本周一的天数
	monday := start.AddDate(0, 0, -offset)
	return monday.AddDate(0, 0, (week-1)*7+(weekday-1))
}
