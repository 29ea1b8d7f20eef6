package dto

// ── 用户模块 DTO ──

// CreateUserRequest 管理员创建用户请求
type CreateUserRequest struct {
	Name    string  `json:"name"     binding:"required,min=2,max=100"`
	Email   string  `json:"email"    binding:"required,email"`
	Role    string  `json:"role"     binding:"required,oneof=admin rup teacher student"`
	Phone   string  `json:"phone"    binding:"omitempty,max=30"`
	ClassID *string `json:"class_id" binding:"omitempty,uuid"` // 学生必填
}

// CreateUserResponse 创建用户响应（含一次性临时密码）
type CreateUserResponse struct {
	User         *UserResponse `json:"user"`
	TempPassword string        `json:"temp_password"`
}

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role    string `form:"role"     binding:"omitempty,oneof=admin rup teacher student"`
	ClassID string `form:"class_id" binding:"omitempty,uuid"`
	Keyword string `form:"keyword"  binding:"omitempty,max=50"`
}

// UpdateUserRequest 更新用户信息请求
type UpdateUserRequest struct {
	Name     *string `json:"name"      binding:"omitempty,min=2,max=100"`
	Email    *string `json:"email"     binding:"omitempty,email"`
	Phone    *string `json:"phone"     binding:"omitempty,max=30"`
	Role     *string `json:"role"      binding:"omitempty,oneof=admin rup teacher student"`
	ClassID  *string `json:"class_id"  binding:"omitempty,uuid"`
	IsActive *bool   `json:"is_active"`
}

// ResetPasswordResponse 重置密码响应
type ResetPasswordResponse struct {
	TempPassword string `json:"temp_password"`
}

// ImportUserResponse 批量导入学生响应
type ImportUserResponse struct {
	Total    int               `json:"total"`
	Success  int               `json:"success"`
	Failed   int               `json:"failed"`
	Errors   []ImportUserError `json:"errors,omitempty"`
	Accounts []ImportedAccount `json:"accounts,omitempty"`
}

// ImportedAccount 导入成功的账号及其一次性临时密码
type ImportedAccount struct {
	Row          int    `json:"row"`
	Email        string `json:"email"`
	TempPassword string `json:"temp_password"`
}

// ImportUserError 导入错误详情
type ImportUserError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
