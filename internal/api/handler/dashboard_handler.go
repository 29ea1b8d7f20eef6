package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Dountche/esi-edt-backend/internal/service"
	"github.com/Dountche/esi-edt-backend/pkg/response"
)

// DashboardHandler 首页概览 HTTP 处理器
type DashboardHandler struct {
	dashboardSvc service.DashboardService
}

// NewDashboardHandler 创建 DashboardHandler
func NewDashboardHandler(dashboardSvc service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardSvc: dashboardSvc}
}

// Summary 当前学期概览
// GET /api/v1/dashboard
func (h *DashboardHandler) Summary(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	resp, err := h.dashboardSvc.Summary(c.Request.Context(), scope)
	if err != nil {
		h.handleDashboardError(c, err)
		return
	}

	response.OK(c, resp)
}

func (h *DashboardHandler) handleDashboardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 23101, "班级不存在")
	default:
		handleCommonError(c, err)
	}
}
