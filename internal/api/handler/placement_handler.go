package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Dountche/esi-edt-backend/internal/dto"
	"github.com/Dountche/esi-edt-backend/internal/service"
	"github.com/Dountche/esi-edt-backend/pkg/response"
)

// PlacementHandler 课次模块 HTTP 处理器
type PlacementHandler struct {
	placementSvc service.PlacementService
}

// NewPlacementHandler 创建 PlacementHandler
func NewPlacementHandler(placementSvc service.PlacementService) *PlacementHandler {
	return &PlacementHandler{placementSvc: placementSvc}
}

// CreatePlacement 在课表中新增课次，冲突校验与写入在同一事务内完成
// POST /api/v1/timetables/:id/placements
func (h *PlacementHandler) CreatePlacement(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	var req dto.CreatePlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 19001, "参数校验失败")
		return
	}

	placement, err := h.placementSvc.Create(c.Request.Context(), scope, c.Param("id"), &req)
	if err != nil {
		h.handlePlacementError(c, err)
		return
	}

	response.Created(c, placement)
}

// ListByTimetable 课表下的全部课次
// GET /api/v1/timetables/:id/placements
func (h *PlacementHandler) ListByTimetable(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	list, err := h.placementSvc.ListByTimetable(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		h.handlePlacementError(c, err)
		return
	}

	response.OK(c, list)
}

// UpdatePlacement 修改课次
// PUT /api/v1/placements/:id
func (h *PlacementHandler) UpdatePlacement(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	var req dto.UpdatePlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 19001, "参数校验失败")
		return
	}

	placement, err := h.placementSvc.Update(c.Request.Context(), scope, c.Param("id"), &req)
	if err != nil {
		h.handlePlacementError(c, err)
		return
	}

	response.OK(c, placement)
}

// DeletePlacement 删除课次
// DELETE /api/v1/placements/:id
func (h *PlacementHandler) DeletePlacement(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	if err := h.placementSvc.Delete(c.Request.Context(), scope, c.Param("id")); err != nil {
		h.handlePlacementError(c, err)
		return
	}

	response.OK(c, nil)
}

// CheckPlacement 只校验不写入，返回冲突与授课归属结果
// POST /api/v1/placements/check
func (h *PlacementHandler) CheckPlacement(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	var req dto.CheckPlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 19001, "参数校验失败")
		return
	}

	result, err := h.placementSvc.Check(c.Request.Context(), scope, &req)
	if err != nil {
		h.handlePlacementError(c, err)
		return
	}

	response.OK(c, result)
}

// ListMine 我的课次：教师为本人授课，学生为本班课表
// GET /api/v1/placements/me?semester_id=xxx
func (h *PlacementHandler) ListMine(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	var req dto.MyPlacementsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 19001, "参数校验失败")
		return
	}

	list, err := h.placementSvc.ListMine(c.Request.Context(), scope, &req)
	if err != nil {
		h.handlePlacementError(c, err)
		return
	}

	response.OK(c, list)
}

// Slots 可选时段目录
// GET /api/v1/slots
func (h *PlacementHandler) Slots(c *gin.Context) {
	response.OK(c, h.placementSvc.Slots())
}

func (h *PlacementHandler) handlePlacementError(c *gin.Context, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		response.ErrorWithData(c, http.StatusUnprocessableEntity, 19100, verr.Error(), verr.Result)
		return
	}

	switch {
	case errors.Is(err, service.ErrPlacementNotFound):
		response.NotFound(c, 19101, "课次不存在")
	case errors.Is(err, service.ErrNoAssignment):
		response.Error(c, http.StatusUnprocessableEntity, 19102, "教师未被分配该班级本学期的该课程")
	case errors.Is(err, service.ErrPlacementConflict):
		response.Conflict(c, 19103, "同一时段已有相同教师或教室的课次")
	case errors.Is(err, service.ErrWeekOutOfRange):
		response.BadRequest(c, 19104, "周次超出学期范围")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 19105, "课程不存在")
	case errors.Is(err, service.ErrTimetableNotFound):
		response.NotFound(c, 19106, "课表不存在")
	default:
		handleCommonError(c, err)
	}
}
