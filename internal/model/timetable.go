package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 课表状态
const (
	TimetableDraft     = "draft"
	TimetablePublished = "published"
)

// 课次类型
const (
	KindLecture  = "lecture"  // CM
	KindTutorial = "tutorial" // TD
	KindLab      = "lab"      // TP
)

// Timetable 班级学期课表 — 对应 timetables，(class_id, semester_id) 唯一
type Timetable struct {
	TimetableID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"timetable_id"`
	ClassID     string     `gorm:"type:uuid;not null"                             json:"class_id"`
	SemesterID  string     `gorm:"type:uuid;not null"                             json:"semester_id"`
	Status      string     `gorm:"type:varchar(20);not null;default:'draft'"      json:"status"` // draft | published
	PublishedAt *time.Time `json:"published_at,omitempty"`
	LockedModel

	// 关联
	Class      *Class      `gorm:"foreignKey:ClassID;references:ClassID"       json:"class,omitempty"`
	Semester   *Semester   `gorm:"foreignKey:SemesterID;references:SemesterID" json:"semester,omitempty"`
	Placements []Placement `gorm:"foreignKey:TimetableID"                      json:"placements,omitempty"`
}

// TableName 指定表名
func (Timetable) TableName() string { return "timetables" }

// Placement 课次 — 对应 placements
//
// semester_id 冗余自所属课表，用于按学期导出与查询教师课次；冲突检测不按学期区分。
// 固定周课生成的课次 teacher_id / room_id 为空。
type Placement struct {
	PlacementID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"placement_id"`
	TimetableID string  `gorm:"type:uuid;not null"                             json:"timetable_id"`
	SemesterID  string  `gorm:"type:uuid;not null"                             json:"semester_id"`
	DayOfWeek   int     `gorm:"type:smallint;not null"                         json:"day_of_week"` // 1-6
	StartTime   string  `gorm:"type:varchar(5);not null"                       json:"start_time"`
	EndTime     string  `gorm:"type:varchar(5);not null"                       json:"end_time"`
	WeekNumber  int     `gorm:"type:smallint;not null"                         json:"week_number"`
	SubjectID   string  `gorm:"type:uuid;not null"                             json:"subject_id"`
	TeacherID   *string `gorm:"type:uuid"                                      json:"teacher_id,omitempty"`
	RoomID      *string `gorm:"type:uuid"                                      json:"room_id,omitempty"`
	Kind        string  `gorm:"type:varchar(20);not null;default:'lecture'"    json:"kind"`
	Cancelled   bool    `gorm:"not null;default:false"                         json:"cancelled"`
	LockedModel

	// 关联
	Timetable *Timetable `gorm:"foreignKey:TimetableID;references:TimetableID" json:"timetable,omitempty"`
	Subject   *Subject   `gorm:"foreignKey:SubjectID;references:SubjectID"     json:"subject,omitempty"`
	Teacher   *User      `gorm:"foreignKey:TeacherID;references:UserID"        json:"teacher,omitempty"`
	Room      *Room      `gorm:"foreignKey:RoomID;references:RoomID"           json:"room,omitempty"`
}

// TableName 指定表名
func (Placement) TableName() string { return "placements" }

// BeforeCreate 批量写入时在应用侧生成主键，保证返回的 ID 可用
func (p *Placement) BeforeCreate(_ *gorm.DB) error {
	if p.PlacementID == "" {
		p.PlacementID = uuid.NewString()
	}
	return nil
}

// ClassID 返回课次所属班级（需预加载 Timetable）
func (p *Placement) ClassID() string {
	if p.Timetable == nil {
		return ""
	}
	return p.Timetable.ClassID
}

// ClassName 返回课次所属班级名称（需预加载 Timetable.Class）
func (p *Placement) ClassName() string {
	if p.Timetable == nil || p.Timetable.Class == nil {
		return ""
	}
	return p.Timetable.Class.Name
}
