package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Dountche/esi-edt-backend/internal/dto"
	"github.com/Dountche/esi-edt-backend/internal/service"
	"github.com/Dountche/esi-edt-backend/pkg/response"
)

// AssignmentHandler 授课分配模块 HTTP 处理器
type AssignmentHandler struct {
	assignmentSvc service.AssignmentService
}

// NewAssignmentHandler 创建 AssignmentHandler
func NewAssignmentHandler(assignmentSvc service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentSvc: assignmentSvc}
}

// CreateAssignment 分配教师到班级的课程，并通知该教师
// POST /api/v1/assignments
func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	var req dto.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 17001, "参数校验失败")
		return
	}

	assignment, err := h.assignmentSvc.Create(c.Request.Context(), scope, &req)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.Created(c, assignment)
}

// ListAssignments 授课分配列表；教师只能看到自己的分配
// GET /api/v1/assignments
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	var req dto.AssignmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 17001, "参数校验失败")
		return
	}

	list, err := h.assignmentSvc.List(c.Request.Context(), scope, &req)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, list)
}

// GetAssignment 授课分配详情
// GET /api/v1/assignments/:id
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	assignment, err := h.assignmentSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, assignment)
}

// DeleteAssignment 删除授课分配
// DELETE /api/v1/assignments/:id
func (h *AssignmentHandler) DeleteAssignment(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	if err := h.assignmentSvc.Delete(c.Request.Context(), scope, c.Param("id")); err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *AssignmentHandler) handleAssignmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 17101, "授课分配不存在")
	case errors.Is(err, service.ErrAssignmentExists):
		response.Conflict(c, 17102, "该教师已被分配此班级本学期的该课程")
	case errors.Is(err, service.ErrAssignmentNotTeacher):
		response.BadRequest(c, 17103, "授课分配只能指定教师角色的用户")
	case errors.Is(err, service.ErrAssignmentSubjectScope):
		response.BadRequest(c, 17104, "课程不属于该班级")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 17105, "教师不存在")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 17106, "课程不存在")
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 17107, "班级不存在")
	case errors.Is(err, service.ErrSemesterNotFound):
		response.NotFound(c, 17108, "学期不存在")
	default:
		handleCommonError(c, err)
	}
}
