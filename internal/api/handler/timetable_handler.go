package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Dountche/esi-edt-backend/internal/dto"
	"github.com/Dountche/esi-edt-backend/internal/service"
	"github.com/Dountche/esi-edt-backend/pkg/response"
)

// TimetableHandler 课表模块 HTTP 处理器
type TimetableHandler struct {
	timetableSvc service.TimetableService
}

// NewTimetableHandler 创建 TimetableHandler
func NewTimetableHandler(timetableSvc service.TimetableService) *TimetableHandler {
	return &TimetableHandler{timetableSvc: timetableSvc}
}

// CreateTimetable 为班级创建学期课表（草稿），同时生成固定周课
// POST /api/v1/timetables
func (h *TimetableHandler) CreateTimetable(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	var req dto.CreateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 18001, "参数校验失败")
		return
	}

	resp, err := h.timetableSvc.Create(c.Request.Context(), scope, &req)
	if err != nil {
		h.handleTimetableError(c, err)
		return
	}

	response.Created(c, resp)
}

// ListTimetables 课表列表
// GET /api/v1/timetables
func (h *TimetableHandler) ListTimetables(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	var req dto.TimetableListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 18001, "参数校验失败")
		return
	}

	list, err := h.timetableSvc.List(c.Request.Context(), scope, &req)
	if err != nil {
		h.handleTimetableError(c, err)
		return
	}

	response.OK(c, list)
}

// GetTimetable 课表详情（含课次）
// GET /api/v1/timetables/:id
func (h *TimetableHandler) GetTimetable(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	timetable, err := h.timetableSvc.GetByID(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		h.handleTimetableError(c, err)
		return
	}

	response.OK(c, timetable)
}

// UpdateStatus 发布或撤回课表；发布后通知班级学生
// PUT /api/v1/timetables/:id/status
func (h *TimetableHandler) UpdateStatus(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	var req dto.UpdateTimetableStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 18001, "参数校验失败")
		return
	}

	timetable, err := h.timetableSvc.UpdateStatus(c.Request.Context(), scope, c.Param("id"), &req)
	if err != nil {
		h.handleTimetableError(c, err)
		return
	}

	response.OK(c, timetable)
}

// DeleteTimetable 删除课表及其全部课次
// DELETE /api/v1/timetables/:id
func (h *TimetableHandler) DeleteTimetable(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	if err := h.timetableSvc.Delete(c.Request.Context(), scope, c.Param("id")); err != nil {
		h.handleTimetableError(c, err)
		return
	}

	response.OK(c, nil)
}

// DuplicateTimetable 复制课表到另一学期
// POST /api/v1/timetables/:id/duplicate
func (h *TimetableHandler) DuplicateTimetable(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	var req dto.DuplicateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 18001, "参数校验失败")
		return
	}

	resp, err := h.timetableSvc.Duplicate(c.Request.Context(), scope, c.Param("id"), &req)
	if err != nil {
		h.handleTimetableError(c, err)
		return
	}

	response.Created(c, resp)
}

// SyncTimetable 手动重新同步固定周课
// POST /api/v1/timetables/:id/sync
func (h *TimetableHandler) SyncTimetable(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	resp, err := h.timetableSvc.Sync(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		h.handleTimetableError(c, err)
		return
	}

	response.OK(c, resp)
}

func (h *TimetableHandler) handleTimetableError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTimetableNotFound):
		response.NotFound(c, 18101, "课表不存在")
	case errors.Is(err, service.ErrTimetableExists):
		response.Conflict(c, 18102, "该班级在此学期已有课表")
	case errors.Is(err, service.ErrTimetableSameSemester):
		response.BadRequest(c, 18103, "目标学期与源课表学期相同")
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 18105, "班级不存在")
	case errors.Is(err, service.ErrSemesterNotFound):
		response.NotFound(c, 18106, "学期不存在")
	default:
		handleCommonError(c, err)
	}
}
