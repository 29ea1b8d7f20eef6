package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Dountche/esi-edt-backend/internal/dto"
	"github.com/Dountche/esi-edt-backend/internal/service"
	"github.com/Dountche/esi-edt-backend/pkg/response"
)

// UnavailabilityHandler 不可用申报模块 HTTP 处理器
type UnavailabilityHandler struct {
	unavailabilitySvc service.UnavailabilityService
}

// NewUnavailabilityHandler 创建 UnavailabilityHandler
func NewUnavailabilityHandler(unavailabilitySvc service.UnavailabilityService) *UnavailabilityHandler {
	return &UnavailabilityHandler{unavailabilitySvc: unavailabilitySvc}
}

// Declare 教师申报某日时段不可用
// POST /api/v1/unavailabilities
func (h *UnavailabilityHandler) Declare(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	var req dto.CreateUnavailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	resp, err := h.unavailabilitySvc.Declare(c.Request.Context(), scope, &req)
	if err != nil {
		h.handleUnavailabilityError(c, err)
		return
	}

	response.Created(c, resp)
}

// List 申报列表；教师只能看到自己的申报
// GET /api/v1/unavailabilities
func (h *UnavailabilityHandler) List(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	var req dto.UnavailabilityListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	list, total, err := h.unavailabilitySvc.List(c.Request.Context(), scope, &req)
	if err != nil {
		h.handleUnavailabilityError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 申报详情
// GET /api/v1/unavailabilities/:id
func (h *UnavailabilityHandler) Get(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	resp, err := h.unavailabilitySvc.GetByID(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		h.handleUnavailabilityError(c, err)
		return
	}

	response.OK(c, resp)
}

// Update 修改待审批的申报
// PUT /api/v1/unavailabilities/:id
func (h *UnavailabilityHandler) Update(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	var req dto.UpdateUnavailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	resp, err := h.unavailabilitySvc.Update(c.Request.Context(), scope, c.Param("id"), &req)
	if err != nil {
		h.handleUnavailabilityError(c, err)
		return
	}

	response.OK(c, resp)
}

// Delete 撤回待审批的申报
// DELETE /api/v1/unavailabilities/:id
func (h *UnavailabilityHandler) Delete(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	if err := h.unavailabilitySvc.Delete(c.Request.Context(), scope, c.Param("id")); err != nil {
		h.handleUnavailabilityError(c, err)
		return
	}

	response.OK(c, nil)
}

// Review 审批申报；通过时在同一事务内取消受影响课次
// PUT /api/v1/unavailabilities/:id/review
func (h *UnavailabilityHandler) Review(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	var req dto.ReviewUnavailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	resp, err := h.unavailabilitySvc.Review(c.Request.Context(), scope, c.Param("id"), &req)
	if err != nil {
		h.handleUnavailabilityError(c, err)
		return
	}

	response.OK(c, resp)
}

func (h *UnavailabilityHandler) handleUnavailabilityError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnavailabilityNotFound):
		response.NotFound(c, 20101, "不可用申报不存在")
	case errors.Is(err, service.ErrUnavailabilityNotPending):
		response.Conflict(c, 20102, "申报已被审批，不能再修改")
	case errors.Is(err, service.ErrUnavailabilityNotOwner):
		response.Forbidden(c, 20103, "只能操作自己的申报")
	case errors.Is(err, service.ErrUnavailabilityWindow):
		response.BadRequest(c, 20104, "结束时间必须晚于开始时间")
	case errors.Is(err, service.ErrUnavailabilityDate):
		response.BadRequest(c, 20105, "日期格式错误")
	default:
		handleCommonError(c, err)
	}
}
