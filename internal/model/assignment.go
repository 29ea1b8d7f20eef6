package model

// Assignment 授课分配表 — 对应 assignments
// (teacher_id, subject_id, class_id, semester_id) 唯一
type Assignment struct {
	AssignmentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assignment_id"`
	TeacherID    string `gorm:"type:uuid;not null"                             json:"teacher_id"`
	SubjectID    string `gorm:"type:uuid;not null"                             json:"subject_id"`
	ClassID      string `gorm:"type:uuid;not null"                             json:"class_id"`
	SemesterID   string `gorm:"type:uuid;not null"                             json:"semester_id"`
	BaseModel

	// 关联
	Teacher  *User     `gorm:"foreignKey:TeacherID;references:UserID"      json:"teacher,omitempty"`
	Subject  *Subject  `gorm:"foreignKey:SubjectID;references:SubjectID"   json:"subject,omitempty"`
	Class    *Class    `gorm:"foreignKey:ClassID;references:ClassID"       json:"class,omitempty"`
	Semester *Semester `gorm:"foreignKey:SemesterID;references:SemesterID" json:"semester,omitempty"`
}

// TableName 指定表名
func (Assignment) TableName() string { return "assignments" }
