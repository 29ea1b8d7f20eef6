package model

// Subject 课程表 — 对应 subjects
type Subject struct {
	SubjectID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"subject_id"`
	Name      string  `gorm:"type:varchar(150);not null"                     json:"name"`
	Code      string  `gorm:"type:varchar(30);not null"                      json:"code"`
	Hours     int     `gorm:"not null;default:0"                             json:"hours"`    // 总学时
	ClassID   *string `gorm:"type:uuid"                                      json:"class_id"` // 为空表示公共课程
	SoftDeleteModel

	// 关联
	Class *Class `gorm:"foreignKey:ClassID;references:ClassID" json:"class,omitempty"`
}

// TableName 指定表名
func (Subject) TableName() string { return "subjects" }
