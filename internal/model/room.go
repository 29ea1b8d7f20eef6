package model

// Room 教室表 — 对应 rooms
type Room struct {
	RoomID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"room_id"`
	Name     string `gorm:"type:varchar(100);not null"                     json:"name"`
	Building string `gorm:"type:varchar(100)"                              json:"building,omitempty"`
	Capacity int    `gorm:"not null;default:0"                             json:"capacity"`
	Kind     string `gorm:"type:varchar(20);not null;default:'classroom'"  json:"kind"` // classroom | amphitheatre | lab
	IsActive bool   `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel
}

// TableName 指定表名
func (Room) TableName() string { return "rooms" }
