package dto

// ── 教室模块 DTO ──

// CreateRoomRequest 创建教室请求
type CreateRoomRequest struct {
	Name     string `json:"name"     binding:"required,min=1,max=100"`
	Building string `json:"building" binding:"omitempty,max=100"`
	Capacity int    `json:"capacity" binding:"omitempty,min=0"`
	Kind     string `json:"kind"     binding:"omitempty,oneof=classroom amphitheatre lab"`
}

// UpdateRoomRequest 更新教室请求
type UpdateRoomRequest struct {
	Name     *string `json:"name"      binding:"omitempty,min=1,max=100"`
	Building *string `json:"building"  binding:"omitempty,max=100"`
	Capacity *int    `json:"capacity"  binding:"omitempty,min=0"`
	Kind     *string `json:"kind"      binding:"omitempty,oneof=classroom amphitheatre lab"`
	IsActive *bool   `json:"is_active"`
}

// RoomListRequest 教室列表查询参数
type RoomListRequest struct {
	Kind            string `form:"kind"     binding:"omitempty,oneof=classroom amphitheatre lab"`
	Building        string `form:"building" binding:"omitempty,max=100"`
	Keyword         string `form:"keyword"  binding:"omitempty,max=50"`
	IncludeInactive bool   `form:"include_inactive"`
}

// RoomResponse 教室信息响应
type RoomResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Building  string `json:"building,omitempty"`
	Capacity  int    `json:"capacity"`
	Kind      string `json:"kind"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
