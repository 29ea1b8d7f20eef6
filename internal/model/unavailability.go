package model

import "time"

// 不可用申报状态
const (
	UnavailabilityPending  = "pending"
	UnavailabilityApproved = "approved"
	UnavailabilityRejected = "rejected"
)

// Unavailability 教师不可用申报 — 对应 unavailabilities
// 审批通过时取消该教师在对应星期、时间段内的全部课次
type Unavailability struct {
	UnavailabilityID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"unavailability_id"`
	TeacherID        string     `gorm:"type:uuid;not null"                             json:"teacher_id"`
	Date             time.Time  `gorm:"type:date;not null"                             json:"date"`
	StartTime        string     `gorm:"type:varchar(5);not null"                       json:"start_time"`
	EndTime          string     `gorm:"type:varchar(5);not null"                       json:"end_time"`
	Reason           string     `gorm:"type:varchar(500)"                              json:"reason,omitempty"`
	Status           string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	ReviewedBy       *string    `gorm:"type:uuid"                                      json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	ReviewComment    string     `gorm:"type:varchar(500)"                              json:"review_comment,omitempty"`
	VersionedModel

	// 关联
	Teacher *User `gorm:"foreignKey:TeacherID;references:UserID" json:"teacher,omitempty"`
}

// TableName 指定表名
func (Unavailability) TableName() string { return "unavailabilities" }
