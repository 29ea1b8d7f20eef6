package handler

import "github.com/Dountche/esi-edt-backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth           *AuthHandler
	User           *UserHandler
	Semester       *SemesterHandler
	Room           *RoomHandler
	Subject        *SubjectHandler
	Class          *ClassHandler
	Assignment     *AssignmentHandler
	Timetable      *TimetableHandler
	Placement      *PlacementHandler
	Unavailability *UnavailabilityHandler
	Notification   *NotificationHandler
	Export         *ExportHandler
	Dashboard      *DashboardHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:           NewAuthHandler(svc.Auth),
		User:           NewUserHandler(svc.User),
		Semester:       NewSemesterHandler(svc.Semester),
		Room:           NewRoomHandler(svc.Room),
		Subject:        NewSubjectHandler(svc.Subject),
		Class:          NewClassHandler(svc.Class),
		Assignment:     NewAssignmentHandler(svc.Assignment),
		Timetable:      NewTimetableHandler(svc.Timetable),
		Placement:      NewPlacementHandler(svc.Placement),
		Unavailability: NewUnavailabilityHandler(svc.Unavailability),
		Notification:   NewNotificationHandler(svc.Notification),
		Export:         NewExportHandler(svc.Export),
		Dashboard:      NewDashboardHandler(svc.Dashboard),
	}
}
