package model

// Class 班级表 — 对应 classes
//
// recurring_* 四列构成班级的固定周课（如体育课）配置：
// 星期、起止时间、课程；任一时间字段为空视为未配置。
type Class struct {
	ClassID      string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"class_id"`
	Name         string  `gorm:"type:varchar(100);not null"                     json:"name"`
	AcademicYear string  `gorm:"type:varchar(20);not null"                      json:"academic_year"`
	Level        string  `gorm:"type:varchar(50)"                               json:"level,omitempty"`
	ManagerID    *string `gorm:"type:uuid"                                      json:"manager_id,omitempty"`
	MainRoomID   *string `gorm:"type:uuid"                                      json:"main_room_id,omitempty"`

	RecurringDay       *int    `gorm:"type:smallint"   json:"recurring_day,omitempty"`
	RecurringStart     *string `gorm:"type:varchar(5)" json:"recurring_start,omitempty"`
	RecurringEnd       *string `gorm:"type:varchar(5)" json:"recurring_end,omitempty"`
	RecurringSubjectID *string `gorm:"type:uuid"       json:"recurring_subject_id,omitempty"`
	VersionedModel

	// 关联
	Manager  *User `gorm:"foreignKey:ManagerID;references:UserID"  json:"manager,omitempty"`
	MainRoom *Room `gorm:"foreignKey:MainRoomID;references:RoomID" json:"main_room,omitempty"`
}

// TableName 指定表名
func (Class) TableName() string { return "classes" }

// HasRecurringSlot 固定周课的星期与时间是否已完整配置
func (c *Class) HasRecurringSlot() bool {
	return c.RecurringDay != nil && c.RecurringStart != nil && c.RecurringEnd != nil &&
		*c.RecurringStart != "" && *c.RecurringEnd != ""
}
