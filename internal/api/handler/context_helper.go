package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Dountche/esi-edt-backend/internal/service"
	apperrors "github.com/Dountche/esi-edt-backend/pkg/errors"
	"github.com/Dountche/esi-edt-backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get("role")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetScope 组装调用者身份。class_id 仅学生 Token 携带，缺失时为空串。
func MustGetScope(c *gin.Context) (service.Scope, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return service.Scope{}, false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return service.Scope{}, false
	}
	classID, _ := c.Get("class_id")
	s, _ := classID.(string)
	return service.Scope{UserID: userID, Role: role, ClassID: s}, true
}

// handleCommonError 处理跨模块共享的错误，其余一律按 500 返回
func handleCommonError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 10003, "无权操作该资源")
	case errors.Is(err, apperrors.ErrOptimisticLock):
		response.Conflict(c, 10006, "数据已被其他操作修改，请刷新后重试")
	case errors.Is(err, apperrors.ErrStateChanged):
		response.Conflict(c, 10007, "记录状态已变更，请刷新后重试")
	case errors.Is(err, service.ErrRecurringSyncBusy):
		response.Error(c, http.StatusTooManyRequests, 10008, "固定周课正在同步，请稍后重试")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
