//go:build integration

package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Dountche/esi-edt-backend/internal/dto"
	"github.com/Dountche/esi-edt-backend/internal/model"
	"github.com/Dountche/esi-edt-backend/internal/repository"
	"github.com/Dountche/esi-edt-backend/pkg/database"
)

var errNotificationsDown = errors.New("notifications unavailable")

func openIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=postgres password=postgres dbname=esi_edt_test sslmode=disable TimeZone=UTC"
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("无法连接测试数据库: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取 sql.DB 失败: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		t.Fatalf("执行迁移失败: %v", err)
	}
	return db
}

// TestReview_NotificationFailureRollsBackCancellations 通知写入失败时，取消课次与状态变更一并回滚
func TestReview_NotificationFailureRollsBackCancellations(t *testing.T) {
	db := openIntegrationDB(t)
	ctx := context.Background()
	n := time.Now().UnixNano()

	semester := &model.Semester{
		Name:         fmt.Sprintf("S1-%d", n),
		AcademicYear: "2025-2026",
		StartDate:    time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC),
	}
	teacher := &model.User{
		Name: "Enseignant", Email: fmt.Sprintf("t%d@esi.ci", n),
		PasswordHash: "$2a$10$placeholder", Role: model.RoleTeacher, IsActive: true,
	}
	for _, v := range []interface{}{semester, teacher} {
		if err := db.WithContext(ctx).Create(v).Error; err != nil {
			t.Fatalf("写入基础数据失败: %v", err)
		}
	}
	class := &model.Class{Name: fmt.Sprintf("ING1-%d", n), AcademicYear: "2025-2026"}
	if err := db.WithContext(ctx).Omit("Manager", "MainRoom").Create(class).Error; err != nil {
		t.Fatalf("创建班级失败: %v", err)
	}
	student := &model.User{
		Name: "Etudiant", Email: fmt.Sprintf("s%d@esi.ci", n),
		PasswordHash: "$2a$10$placeholder", Role: model.RoleStudent, ClassID: &class.ClassID, IsActive: true,
	}
	if err := db.WithContext(ctx).Create(student).Error; err != nil {
		t.Fatalf("创建学生失败: %v", err)
	}
	subject := &model.Subject{Name: "Analyse", Code: fmt.Sprintf("MAT-%d", n)}
	if err := db.WithContext(ctx).Omit("Class").Create(subject).Error; err != nil {
		t.Fatalf("创建课程失败: %v", err)
	}

	repo := repository.NewRepository(db)
	tt := &model.Timetable{ClassID: class.ClassID, SemesterID: semester.SemesterID, Status: model.TimetableDraft}
	if err := repo.Timetable.Create(ctx, tt); err != nil {
		t.Fatalf("创建课表失败: %v", err)
	}
	p := &model.Placement{
		TimetableID: tt.TimetableID, SemesterID: semester.SemesterID,
		DayOfWeek: 1, StartTime: "07:30", EndTime: "09:30", WeekNumber: 1,
		SubjectID: subject.SubjectID, TeacherID: &teacher.UserID, Kind: model.KindLecture,
	}
	if err := repo.Placement.Create(ctx, p); err != nil {
		t.Fatalf("创建课次失败: %v", err)
	}
	u := &model.Unavailability{
		TeacherID: teacher.UserID,
		Date:      time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC), // 周一
		StartTime: "07:30",
		EndTime:   "11:45",
		Status:    model.UnavailabilityPending,
	}
	if err := repo.Unavailability.Create(ctx, u); err != nil {
		t.Fatalf("创建申报失败: %v", err)
	}

	t.Cleanup(func() {
		db.Where("timetable_id = ?", tt.TimetableID).Delete(&model.Timetable{})
		db.Unscoped().Where("subject_id = ?", subject.SubjectID).Delete(&model.Subject{})
		db.Unscoped().Where("user_id IN ?", []string{teacher.UserID, student.UserID}).Delete(&model.User{})
		db.Unscoped().Where("class_id = ?", class.ClassID).Delete(&model.Class{})
		db.Unscoped().Where("semester_id = ?", semester.SemesterID).Delete(&model.Semester{})
	})

	// 独立连接上注册回调，使通知写入失败
	failing := openIntegrationDB(t)
	if err := failing.Callback().Create().Before("gorm:create").Register("test:fail_notifications", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "notifications" {
			_ = tx.AddError(errNotificationsDown)
		}
	}); err != nil {
		t.Fatalf("注册回调失败: %v", err)
	}
	failingRepo := repository.NewRepository(failing, repository.WithSerializable(true))
	svc := NewUnavailabilityService(failingRepo, newNotifier(failingRepo, zap.NewNop()), zap.NewNop())

	reviewer := Scope{UserID: uuid.NewString(), Role: model.RoleAdmin}
	_, err := svc.Review(ctx, reviewer, u.UnavailabilityID, &dto.ReviewUnavailabilityRequest{
		Decision: model.UnavailabilityApproved,
		Version:  u.Version,
	})
	if !errors.Is(err, errNotificationsDown) {
		t.Fatalf("期望通知写入错误，得到: %v", err)
	}

	got, err := repo.Placement.GetByID(ctx, p.PlacementID)
	if err != nil {
		t.Fatalf("查询课次失败: %v", err)
	}
	if got.Cancelled {
		t.Error("通知失败后课次取消应回滚")
	}
	decl, err := repo.Unavailability.GetByID(ctx, u.UnavailabilityID)
	if err != nil {
		t.Fatalf("查询申报失败: %v", err)
	}
	if decl.Status != model.UnavailabilityPending {
		t.Errorf("通知失败后申报应保持待审批，实际 %s", decl.Status)
	}
}
