package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dountche/esi-edt-backend/internal/dto"
	"github.com/Dountche/esi-edt-backend/internal/model"
	pkgerrors "github.com/Dountche/esi-edt-backend/pkg/errors"
)

const semID2 = "sem-2"

func setupTimetableService(t *testing.T) (TimetableService, *fixture) {
	f := newFixture(t)
	f.store.semesters[semID2] = &model.Semester{
		SemesterID:     semID2,
		Name:           "S2 2025-2026",
		AcademicYear:   "2025-2026",
		StartDate:      time.Date(2026, 2, 2, 0, 0, 0, 0, time.Local),
		EndDate:        time.Date(2026, 6, 26, 0, 0, 0, 0, time.Local),
		VersionedModel: model.VersionedModel{Version: 1},
	}
	return NewTimetableService(f.repo, f.syncer(), f.notifier(), f.logger), f
}

// ── Create 测试 ──

func TestTimetableService_Create_SyncsRecurringSlot(t *testing.T) {
	svc, f := setupTimetableService(t)
	withRecurringSlot(f, classA, 3, "14:00", "18:15")

	resp, err := svc.Create(context.Background(), rupScope, &dto.CreateTimetableRequest{ClassID: classA, SemesterID: semID2})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.Timetable.Status != model.TimetableDraft {
		t.Errorf("新课表应为草稿，实际 %s", resp.Timetable.Status)
	}
	if resp.Sync == nil || resp.Sync.Created != 16 {
		t.Errorf("期望同步生成 16 个课次，实际 %+v", resp.Sync)
	}
	if countSubject(f, resp.Timetable.ID, subjEPS) != 16 {
		t.Error("新课表中应有 16 个 EPS 课次")
	}
}

func TestTimetableService_Create_Exists(t *testing.T) {
	svc, _ := setupTimetableService(t)

	_, err := svc.Create(context.Background(), adminScope, &dto.CreateTimetableRequest{ClassID: classA, SemesterID: semID})
	if !errors.Is(err, ErrTimetableExists) {
		t.Errorf("期望 ErrTimetableExists，实际: %v", err)
	}
}

func TestTimetableService_Create_Forbidden(t *testing.T) {
	svc, _ := setupTimetableService(t)

	_, err := svc.Create(context.Background(), rupScope, &dto.CreateTimetableRequest{ClassID: classB, SemesterID: semID2})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("期望 ErrForbidden，实际: %v", err)
	}
}

// ── 可见性测试 ──

func TestTimetableService_GetByID_Visibility(t *testing.T) {
	svc, f := setupTimetableService(t)
	f.seedPlacement("pl-a", timetableA, 1, "07:30", "09:30", 1, strPtr(teacher1), nil)
	ctx := context.Background()

	resp, err := svc.GetByID(ctx, rupScope, timetableA)
	if err != nil {
		t.Fatalf("负责人应可查看草稿: %v", err)
	}
	if len(resp.Placements) != 1 || resp.ClassName != "ING1-A" {
		t.Errorf("响应内容错误: %+v", resp)
	}

	if _, err := svc.GetByID(ctx, studentScope, timetableA); !errors.Is(err, ErrForbidden) {
		t.Errorf("学生查看草稿期望 ErrForbidden，实际: %v", err)
	}
	if _, err := svc.GetByID(ctx, teacherScope, timetableA); !errors.Is(err, ErrForbidden) {
		t.Errorf("教师查看草稿期望 ErrForbidden，实际: %v", err)
	}

	f.store.timetables[timetableA].Status = model.TimetablePublished
	if _, err := svc.GetByID(ctx, studentScope, timetableA); err != nil {
		t.Errorf("学生应可查看本班已发布课表: %v", err)
	}
	f.store.timetables[timetableB].Status = model.TimetablePublished
	if _, err := svc.GetByID(ctx, studentScope, timetableB); !errors.Is(err, ErrForbidden) {
		t.Errorf("学生查看其他班级课表期望 ErrForbidden，实际: %v", err)
	}
}

func TestTimetableService_List_ScopedByRole(t *testing.T) {
	svc, f := setupTimetableService(t)
	f.store.timetables[timetableB].Status = model.TimetablePublished
	ctx := context.Background()

	all, _ := svc.List(ctx, adminScope, &dto.TimetableListRequest{})
	if len(all) != 2 {
		t.Errorf("管理员期望 2 个课表，实际 %d", len(all))
	}

	managed, _ := svc.List(ctx, rupScope, &dto.TimetableListRequest{})
	if len(managed) != 1 || managed[0].ClassID != classA {
		t.Errorf("负责人仅应看到名下班级，实际 %+v", managed)
	}

	published, _ := svc.List(ctx, teacherScope, &dto.TimetableListRequest{})
	if len(published) != 1 || published[0].ID != timetableB {
		t.Errorf("教师仅应看到已发布课表，实际 %+v", published)
	}

	own, _ := svc.List(ctx, studentScope, &dto.TimetableListRequest{ClassID: classB})
	if len(own) != 0 {
		t.Errorf("学生不能通过参数查看其他班级，实际 %+v", own)
	}
}

// ── UpdateStatus 测试 ──

func TestTimetableService_Publish_NotifiesClass(t *testing.T) {
	svc, f := setupTimetableService(t)

	resp, err := svc.UpdateStatus(context.Background(), rupScope, timetableA, &dto.UpdateTimetableStatusRequest{
		Status:  model.TimetablePublished,
		Version: 1,
	})
	if err != nil {
		t.Fatalf("发布应成功: %v", err)
	}
	if resp.Status != model.TimetablePublished || resp.PublishedAt == nil || resp.Version != 2 {
		t.Errorf("发布后状态错误: %+v", resp)
	}

	for _, uid := range []string{studentA1, studentA2} {
		list := f.store.notificationsFor(uid)
		if len(list) != 1 || list[0].Type != model.NotificationTimetable {
			t.Errorf("学生 %s 应收到一条课表通知，实际 %+v", uid, list)
		}
	}
	if len(f.store.notificationsFor(studentB1)) != 0 {
		t.Error("其他班级学生不应收到通知")
	}
}

func TestTimetableService_Unpublish_ClearsPublishedAt(t *testing.T) {
	svc, f := setupTimetableService(t)
	now := time.Now()
	f.store.timetables[timetableA].Status = model.TimetablePublished
	f.store.timetables[timetableA].PublishedAt = &now

	resp, err := svc.UpdateStatus(context.Background(), adminScope, timetableA, &dto.UpdateTimetableStatusRequest{
		Status:  model.TimetableDraft,
		Version: 1,
	})
	if err != nil {
		t.Fatalf("撤回应成功: %v", err)
	}
	if resp.PublishedAt != nil {
		t.Error("撤回后发布时间应清空")
	}
	if len(f.store.notifications) != 0 {
		t.Error("撤回不应发送通知")
	}
}

func TestTimetableService_UpdateStatus_StaleVersion(t *testing.T) {
	svc, _ := setupTimetableService(t)

	_, err := svc.UpdateStatus(context.Background(), adminScope, timetableA, &dto.UpdateTimetableStatusRequest{
		Status:  model.TimetablePublished,
		Version: 7,
	})
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}
}

// ── Duplicate 测试 ──

func TestTimetableService_Duplicate(t *testing.T) {
	svc, f := setupTimetableService(t)
	f.seedPlacement("pl-1", timetableA, 1, "07:30", "09:30", 1, strPtr(teacher1), strPtr(room101))
	f.seedPlacement("pl-2", timetableA, 2, "14:00", "18:15", 3, strPtr(teacher1), nil)
	cancelled := f.seedPlacement("pl-3", timetableA, 5, "07:30", "11:45", 4, nil, nil)
	cancelled.Cancelled = true

	resp, err := svc.Duplicate(context.Background(), adminScope, timetableA, &dto.DuplicateTimetableRequest{SemesterID: semID2})
	if err != nil {
		t.Fatalf("Duplicate 应成功: %v", err)
	}

	var copied []*model.Placement
	for _, p := range f.store.placements {
		if p.TimetableID == resp.Timetable.ID {
			copied = append(copied, p)
		}
	}
	if len(copied) != 2 {
		t.Fatalf("期望复制 2 个未取消课次，实际 %d", len(copied))
	}
	for _, p := range copied {
		if p.SemesterID != semID2 {
			t.Errorf("复制的课次应归属目标学期，实际 %s", p.SemesterID)
		}
		if p.TeacherID != nil || p.RoomID != nil {
			t.Errorf("复制的课次不应保留教师与教室: %+v", p)
		}
	}
}

func TestTimetableService_Duplicate_SameSemester(t *testing.T) {
	svc, _ := setupTimetableService(t)

	_, err := svc.Duplicate(context.Background(), adminScope, timetableA, &dto.DuplicateTimetableRequest{SemesterID: semID})
	if !errors.Is(err, ErrTimetableSameSemester) {
		t.Errorf("期望 ErrTimetableSameSemester，实际: %v", err)
	}
}

// ── Delete / Sync 测试 ──

func TestTimetableService_Delete_CascadesPlacements(t *testing.T) {
	svc, f := setupTimetableService(t)
	f.seedPlacement("pl-a", timetableA, 1, "07:30", "09:30", 1, nil, nil)

	if err := svc.Delete(context.Background(), adminScope, timetableA); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if _, ok := f.store.timetables[timetableA]; ok {
		t.Error("课表应被删除")
	}
	if len(f.store.placements) != 0 {
		t.Error("课次应随课表删除")
	}
}

func TestTimetableService_Sync_NotFound(t *testing.T) {
	svc, _ := setupTimetableService(t)

	if _, err := svc.Sync(context.Background(), adminScope, "tt-missing"); !errors.Is(err, ErrTimetableNotFound) {
		t.Errorf("期望 ErrTimetableNotFound，实际: %v", err)
	}
}
