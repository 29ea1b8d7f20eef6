package dto

// ── 不可用申报模块 DTO ──

// CreateUnavailabilityRequest 教师申报不可用
type CreateUnavailabilityRequest struct {
	Date      string `json:"date"       binding:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" binding:"required,clock"`
	EndTime   string `json:"end_time"   binding:"required,clock"`
	Reason    string `json:"reason"     binding:"omitempty,max=500"`
}

// UpdateUnavailabilityRequest 修改待审批的申报
type UpdateUnavailabilityRequest struct {
	Date      *string `json:"date"       binding:"omitempty,datetime=2006-01-02"`
	StartTime *string `json:"start_time" binding:"omitempty,clock"`
	EndTime   *string `json:"end_time"   binding:"omitempty,clock"`
	Reason    *string `json:"reason"     binding:"omitempty,max=500"`
	Version   int     `json:"version"    binding:"required,min=1"`
}

// ReviewUnavailabilityRequest 审批请求
type ReviewUnavailabilityRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approved rejected"`
	Comment  string `json:"comment"  binding:"omitempty,max=500"`
	Version  int    `json:"version"  binding:"required,min=1"`
}

// UnavailabilityListRequest 申报列表查询参数
type UnavailabilityListRequest struct {
	PaginationRequest
	TeacherID string `form:"teacher_id" binding:"omitempty,uuid"`
	Status    string `form:"status"     binding:"omitempty,oneof=pending approved rejected"`
	From      string `form:"from"       binding:"omitempty,datetime=2006-01-02"`
	To        string `form:"to"         binding:"omitempty,datetime=2006-01-02"`
}

// UnavailabilityResponse 申报响应
type UnavailabilityResponse struct {
	ID            string  `json:"id"`
	TeacherID     string  `json:"teacher_id"`
	TeacherName   string  `json:"teacher_name,omitempty"`
	Date          string  `json:"date"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	Reason        string  `json:"reason,omitempty"`
	Status        string  `json:"status"`
	ReviewedBy    *string `json:"reviewed_by,omitempty"`
	ReviewedAt    *string `json:"reviewed_at,omitempty"`
	ReviewComment string  `json:"review_comment,omitempty"`
	Version       int     `json:"version"`
	CreatedAt     string  `json:"created_at"`

	ImpactedPlacements []ImpactedPlacement `json:"impacted_placements,omitempty"`
}

// ImpactedPlacement 申报获批后将被取消的课次
type ImpactedPlacement struct {
	ID          string `json:"id"`
	DayOfWeek   int    `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	WeekNumber  int    `json:"week_number"`
	ClassID     string `json:"class_id"`
	ClassName   string `json:"class_name"`
	SubjectName string `json:"subject_name"`
}

// PropagationResponse 审批通过后的取消结果
type PropagationResponse struct {
	CancelledPlacementIDs []string `json:"cancelled_placement_ids"`
	NotifiedClassIDs      []string `json:"notified_class_ids"`
}

// ReviewUnavailabilityResponse 审批响应
type ReviewUnavailabilityResponse struct {
	Unavailability *UnavailabilityResponse `json:"unavailability"`
	Propagation    *PropagationResponse    `json:"propagation,omitempty"`
}
