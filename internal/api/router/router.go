package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Dountche/esi-edt-backend/config"
	"github.com/Dountche/esi-edt-backend/internal/api/handler"
	"github.com/Dountche/esi-edt-backend/internal/api/middleware"
	"github.com/Dountche/esi-edt-backend/internal/model"
	"github.com/Dountche/esi-edt-backend/pkg/jwt"
	"github.com/Dountche/esi-edt-backend/pkg/redis"
)

const (
	admin   = model.RoleAdmin
	manager = model.RoleManager
	teacher = model.RoleTeacher
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit(rdb, 10, time.Minute))
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("", middleware.RoleAuth(admin, manager), h.User.ListUsers)
				users.GET("/:id", middleware.RoleAuth(admin, manager), h.User.GetUser)
				users.POST("", middleware.RoleAuth(admin), h.User.CreateUser)
				users.PUT("/:id", middleware.RoleAuth(admin), h.User.UpdateUser)
				users.DELETE("/:id", middleware.RoleAuth(admin), h.User.DeleteUser)
				users.POST("/:id/reset-password", middleware.RoleAuth(admin), h.User.ResetPassword)
				users.POST("/import", middleware.RoleAuth(admin), h.User.ImportStudents)
			}

			// 学期模块
			semesters := authorized.Group("/semesters")
			{
				semesters.GET("", h.Semester.ListSemesters)
				semesters.GET("/current", h.Semester.GetCurrentSemester)
				semesters.GET("/:id", h.Semester.GetSemester)
				semesters.POST("", middleware.RoleAuth(admin), h.Semester.CreateSemester)
				semesters.PUT("/:id", middleware.RoleAuth(admin), h.Semester.UpdateSemester)
				semesters.PUT("/:id/activate", middleware.RoleAuth(admin), h.Semester.ActivateSemester)
				semesters.DELETE("/:id", middleware.RoleAuth(admin), h.Semester.DeleteSemester)
			}

			// 教室模块
			rooms := authorized.Group("/rooms")
			{
				rooms.GET("", h.Room.ListRooms)
				rooms.GET("/:id", h.Room.GetRoom)
				rooms.POST("", middleware.RoleAuth(admin), h.Room.CreateRoom)
				rooms.PUT("/:id", middleware.RoleAuth(admin), h.Room.UpdateRoom)
				rooms.DELETE("/:id", middleware.RoleAuth(admin), h.Room.DeleteRoom)
			}

			// 课程模块
			subjects := authorized.Group("/subjects")
			{
				subjects.GET("", h.Subject.ListSubjects)
				subjects.GET("/:id", h.Subject.GetSubject)
				subjects.POST("", middleware.RoleAuth(admin, manager), h.Subject.CreateSubject)
				subjects.PUT("/:id", middleware.RoleAuth(admin, manager), h.Subject.UpdateSubject)
				subjects.DELETE("/:id", middleware.RoleAuth(admin), h.Subject.DeleteSubject)
			}

			// 班级模块
			classes := authorized.Group("/classes")
			{
				classes.GET("", h.Class.ListClasses)
				classes.GET("/:id", h.Class.GetClass)
				classes.GET("/:id/members", h.Class.ListMembers)
				classes.POST("", middleware.RoleAuth(admin), h.Class.CreateClass)
				classes.PUT("/:id", middleware.RoleAuth(admin, manager), h.Class.UpdateClass)
				classes.PUT("/:id/recurring-slot", middleware.RoleAuth(admin, manager), h.Class.SetRecurringSlot)
				classes.DELETE("/:id", middleware.RoleAuth(admin), h.Class.DeleteClass)
			}

			// 授课分配模块
			assignments := authorized.Group("/assignments")
			{
				assignments.GET("", middleware.RoleAuth(admin, manager, teacher), h.Assignment.ListAssignments)
				assignments.GET("/:id", middleware.RoleAuth(admin, manager, teacher), h.Assignment.GetAssignment)
				assignments.POST("", middleware.RoleAuth(admin, manager), h.Assignment.CreateAssignment)
				assignments.DELETE("/:id", middleware.RoleAuth(admin, manager), h.Assignment.DeleteAssignment)
			}

			// 课表模块
			timetables := authorized.Group("/timetables")
			{
				timetables.GET("", h.Timetable.ListTimetables)
				timetables.GET("/:id", h.Timetable.GetTimetable)
				timetables.GET("/:id/placements", h.Placement.ListByTimetable)
				timetables.POST("", middleware.RoleAuth(admin, manager), h.Timetable.CreateTimetable)
				timetables.PUT("/:id/status", middleware.RoleAuth(admin, manager), h.Timetable.UpdateStatus)
				timetables.DELETE("/:id", middleware.RoleAuth(admin, manager), h.Timetable.DeleteTimetable)
				timetables.POST("/:id/duplicate", middleware.RoleAuth(admin, manager), h.Timetable.DuplicateTimetable)
				timetables.POST("/:id/sync", middleware.RoleAuth(admin, manager), h.Timetable.SyncTimetable)
				timetables.POST("/:id/placements", middleware.RoleAuth(admin, manager), h.Placement.CreatePlacement)
			}

			// 课次模块
			placements := authorized.Group("/placements")
			{
				placements.GET("/me", h.Placement.ListMine)
				placements.POST("/check", middleware.RoleAuth(admin, manager), h.Placement.CheckPlacement)
				placements.PUT("/:id", middleware.RoleAuth(admin, manager), h.Placement.UpdatePlacement)
				placements.DELETE("/:id", middleware.RoleAuth(admin, manager), h.Placement.DeletePlacement)
			}
			authorized.GET("/slots", h.Placement.Slots)

			// 不可用申报模块
			unavailabilities := authorized.Group("/unavailabilities")
			unavailabilities.Use(middleware.RoleAuth(admin, manager, teacher))
			{
				unavailabilities.GET("", h.Unavailability.List)
				unavailabilities.GET("/:id", h.Unavailability.Get)
				unavailabilities.POST("", middleware.RoleAuth(teacher), h.Unavailability.Declare)
				unavailabilities.PUT("/:id", middleware.RoleAuth(teacher), h.Unavailability.Update)
				unavailabilities.DELETE("/:id", middleware.RoleAuth(teacher), h.Unavailability.Delete)
				unavailabilities.PUT("/:id/review", middleware.RoleAuth(admin, manager), h.Unavailability.Review)
			}

			// 通知模块
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
				notifications.DELETE("/:id", h.Notification.Delete)
			}

			// 导出模块（权限由 Service 层按课表与教师判定）
			export := authorized.Group("/export")
			{
				export.GET("/timetables/:id/xlsx", h.Export.TimetableExcel)
				export.GET("/timetables/:id/ics", h.Export.TimetableICS)
				export.GET("/teachers/:id/ics", h.Export.TeacherICS)
			}

			// 首页概览（内容按角色区分）
			authorized.GET("/dashboard", h.Dashboard.Summary)
		}
	}

	return r
}
