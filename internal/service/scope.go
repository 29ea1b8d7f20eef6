package service

import (
	"errors"

	"github.com/Dountche/esi-edt-backend/internal/model"
)

// ErrForbidden 调用者无权操作该资源
var ErrForbidden = errors.New("无权操作该资源")

// Scope 调用者身份，由处理器从 JWT 中取出后显式传入
type Scope struct {
	UserID  string
	Role    string
	ClassID string // 学生所属班级
}

// IsAdmin 是否为管理员
func (s Scope) IsAdmin() bool { return s.Role == model.RoleAdmin }

// IsManager 是否为专业负责人
func (s Scope) IsManager() bool { return s.Role == model.RoleManager }

// IsTeacher 是否为教师
func (s Scope) IsTeacher() bool { return s.Role == model.RoleTeacher }

// IsStudent 是否为学生
func (s Scope) IsStudent() bool { return s.Role == model.RoleStudent }

// CanManageClass 管理员可管理全部班级，负责人仅限名下班级
func (s Scope) CanManageClass(class *model.Class) bool {
	switch {
	case s.IsAdmin():
		return true
	case s.IsManager():
		return class != nil && class.ManagerID != nil && *class.ManagerID == s.UserID
	default:
		return false
	}
}

// CanViewClass 在可管理基础上，学生可查看本班
func (s Scope) CanViewClass(class *model.Class) bool {
	if s.CanManageClass(class) {
		return true
	}
	return s.IsStudent() && class != nil && s.ClassID == class.ClassID
}
