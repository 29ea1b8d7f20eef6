package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Dountche/esi-edt-backend/internal/dto"
	"github.com/Dountche/esi-edt-backend/internal/model"
	"github.com/Dountche/esi-edt-backend/internal/service"
	"github.com/Dountche/esi-edt-backend/pkg/response"
)

// UserHandler 用户模块 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// CreateUser 创建账号，响应中返回一次性临时密码
// POST /api/v1/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	resp, err := h.userSvc.CreateUser(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.Created(c, resp)
}

// ListUsers 用户列表；负责人只能查看教师
// GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}
	if role == model.RoleManager {
		req.Role = model.RoleTeacher
	}

	users, total, err := h.userSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OKPage(c, users, total, req.GetPage(), req.GetPageSize())
}

// GetUser 用户详情
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// UpdateUser 更新用户
// PUT /api/v1/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	user, err := h.userSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// DeleteUser 删除用户
// DELETE /api/v1/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.userSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, nil)
}

// ResetPassword 重置密码
// POST /api/v1/users/:id/reset-password
func (h *UserHandler) ResetPassword(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.userSvc.ResetPassword(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, resp)
}

// ImportStudents 从 Excel 批量导入学生到指定班级
// POST /api/v1/users/import  (multipart: file, class_id)
func (h *UserHandler) ImportStudents(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	classID := c.PostForm("class_id")
	if classID == "" {
		response.BadRequest(c, 12001, "class_id 不能为空")
		return
	}
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 12002, "请上传 Excel 文件")
		return
	}
	defer file.Close()

	rows, err := h.userSvc.ParseImportFile(file)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	resp, err := h.userSvc.ImportStudents(c.Request.Context(), classID, rows, callerID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, resp)
}

func (h *UserHandler) handleUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12101, "用户不存在")
	case errors.Is(err, service.ErrEmailExists):
		response.Conflict(c, 12102, "邮箱已被注册")
	case errors.Is(err, service.ErrUserSelfDelete):
		response.BadRequest(c, 12103, "不能删除自己")
	case errors.Is(err, service.ErrUserSelfRoleChange):
		response.BadRequest(c, 12104, "不能修改自己的角色")
	case errors.Is(err, service.ErrStudentClassRequired):
		response.BadRequest(c, 12105, "学生账号必须指定所属班级")
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 12106, "班级不存在")
	case errors.Is(err, service.ErrImportBadHeader):
		response.BadRequest(c, 12107, err.Error())
	case errors.Is(err, service.ErrImportNoData):
		response.BadRequest(c, 12108, err.Error())
	case errors.Is(err, service.ErrImportBadFile):
		response.BadRequest(c, 12110, "无法解析Excel文件")
	case errors.Is(err, service.ErrImportTooManyRows):
		response.BadRequest(c, 12109, err.Error())
	default:
		handleCommonError(c, err)
	}
}
