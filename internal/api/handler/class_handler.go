package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Dountche/esi-edt-backend/internal/dto"
	"github.com/Dountche/esi-edt-backend/internal/service"
	"github.com/Dountche/esi-edt-backend/pkg/response"
)

// ClassHandler 班级模块 HTTP 处理器
type ClassHandler struct {
	classSvc service.ClassService
}

// NewClassHandler 创建 ClassHandler
func NewClassHandler(classSvc service.ClassService) *ClassHandler {
	return &ClassHandler{classSvc: classSvc}
}

// ListClasses 班级列表，按调用者角色收窄
// GET /api/v1/classes
func (h *ClassHandler) ListClasses(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	var req dto.ClassListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 16001, "参数校验失败")
		return
	}

	list, err := h.classSvc.List(c.Request.Context(), scope, &req)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, list)
}

// GetClass 班级详情
// GET /api/v1/classes/:id
func (h *ClassHandler) GetClass(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	class, err := h.classSvc.GetByID(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, class)
}

// CreateClass 创建班级
// POST /api/v1/classes
func (h *ClassHandler) CreateClass(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 16001, "参数校验失败")
		return
	}

	class, err := h.classSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.Created(c, class)
}

// UpdateClass 更新班级；负责人变更仅限管理员
// PUT /api/v1/classes/:id
func (h *ClassHandler) UpdateClass(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	var req dto.UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 16001, "参数校验失败")
		return
	}

	class, err := h.classSvc.Update(c.Request.Context(), scope, c.Param("id"), &req)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, class)
}

// DeleteClass 删除班级
// DELETE /api/v1/classes/:id
func (h *ClassHandler) DeleteClass(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.classSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListMembers 班级学生名单
// GET /api/v1/classes/:id/members
func (h *ClassHandler) ListMembers(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 16001, "参数校验失败")
		return
	}

	members, total, err := h.classSvc.Members(c.Request.Context(), scope, c.Param("id"), &page)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OKPage(c, members, total, page.GetPage(), page.GetPageSize())
}

// SetRecurringSlot 设置或清除固定周课，并重新同步该班级所有草稿课表
// PUT /api/v1/classes/:id/recurring-slot
func (h *ClassHandler) SetRecurringSlot(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	var req dto.SetRecurringSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 16001, "参数校验失败")
		return
	}

	resp, err := h.classSvc.SetRecurringSlot(c.Request.Context(), scope, c.Param("id"), &req)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, resp)
}

func (h *ClassHandler) handleClassError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 16101, "班级不存在")
	case errors.Is(err, service.ErrManagerInvalid):
		response.BadRequest(c, 16102, "负责人必须是 rup 角色的用户")
	case errors.Is(err, service.ErrRecurringSlotIncomplete):
		response.BadRequest(c, 16103, "固定周课必须同时指定星期、开始时间与结束时间")
	case errors.Is(err, service.ErrRecurringSlotInvalid):
		response.BadRequest(c, 16104, "固定周课时段不在可选时段内")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 16105, "课程不存在")
	case errors.Is(err, service.ErrRoomNotFound):
		response.NotFound(c, 16106, "教室不存在")
	default:
		handleCommonError(c, err)
	}
}
