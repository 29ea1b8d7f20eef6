package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Dountche/esi-edt-backend/internal/service"
	"github.com/Dountche/esi-edt-backend/pkg/response"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	icsContentType  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// TimetableExcel 导出课表 Excel 网格
// GET /api/v1/export/timetables/:id/xlsx
func (h *ExportHandler) TimetableExcel(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.TimetableExcel(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	setAttachment(c, filename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// TimetableICS 导出课表 iCalendar
// GET /api/v1/export/timetables/:id/ics
func (h *ExportHandler) TimetableICS(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	body, filename, err := h.exportSvc.TimetableICS(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	setAttachment(c, filename)
	c.Data(http.StatusOK, icsContentType, []byte(body))
}

// TeacherICS 导出教师学期课次 iCalendar
// GET /api/v1/export/teachers/:id/ics?semester_id=xxx
func (h *ExportHandler) TeacherICS(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	semesterID := c.Query("semester_id")
	if semesterID == "" {
		response.BadRequest(c, 22001, "semester_id 不能为空")
		return
	}

	body, filename, err := h.exportSvc.TeacherICS(c.Request.Context(), scope, c.Param("id"), semesterID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	setAttachment(c, filename)
	c.Data(http.StatusOK, icsContentType, []byte(body))
}

// setAttachment 设置下载响应头，文件名按 RFC 5987 编码
func setAttachment(c *gin.Context, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTimetableNotFound):
		response.NotFound(c, 22101, "课表不存在")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 22102, "教师不存在")
	case errors.Is(err, service.ErrSemesterNotFound):
		response.NotFound(c, 22103, "学期不存在")
	default:
		handleCommonError(c, err)
	}
}
