package service

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgredis "github.com/Dountche/esi-edt-backend/pkg/redis"
)

func withRecurringSlot(f *fixture, classID string, day int, start, end string) {
	c := f.store.classes[classID]
	c.RecurringDay = intPtr(day)
	c.RecurringStart = strPtr(start)
	c.RecurringEnd = strPtr(end)
}

func countSubject(f *fixture, timetableID, subjectID string) int {
	n := 0
	for _, p := range f.store.placements {
		if p.TimetableID == timetableID && p.SubjectID == subjectID {
			n++
		}
	}
	return n
}

func TestRecurringSync_GeneratesEveryWeek(t *testing.T) {
	f := newFixture(t)
	withRecurringSlot(f, classA, 4, "14:00", "16:00")

	result, err := f.syncer().Sync(context.Background(), timetableA)
	if err != nil {
		t.Fatalf("Sync 应成功: %v", err)
	}
	if result.Skipped || result.Created != 16 || result.Deleted != 0 {
		t.Errorf("期望生成 16 个课次，实际 %+v", result)
	}
	if got := countSubject(f, timetableA, subjEPS); got != 16 {
		t.Fatalf("期望 16 个 EPS 课次，实际 %d", got)
	}
	for _, p := range f.store.placements {
		if p.DayOfWeek != 4 || p.StartTime != "14:00" || p.EndTime != "16:00" {
			t.Errorf("生成课次时段错误: %+v", p)
		}
		if p.TeacherID != nil || p.RoomID != nil {
			t.Error("生成课次不应指定教师或教室")
		}
	}
}

func TestRecurringSync_Idempotent(t *testing.T) {
	f := newFixture(t)
	withRecurringSlot(f, classA, 4, "14:00", "16:00")
	ctx := context.Background()

	if _, err := f.syncer().Sync(ctx, timetableA); err != nil {
		t.Fatalf("首次 Sync 应成功: %v", err)
	}
	result, err := f.syncer().Sync(ctx, timetableA)
	if err != nil {
		t.Fatalf("再次 Sync 应成功: %v", err)
	}
	if result.Deleted != 16 || result.Created != 16 {
		t.Errorf("再次同步应删除并重建 16 个课次，实际 %+v", result)
	}
	if got := countSubject(f, timetableA, subjEPS); got != 16 {
		t.Errorf("重复同步后仍应只有 16 个课次，实际 %d", got)
	}
}

func TestRecurringSync_PrefersConfiguredSubject(t *testing.T) {
	f := newFixture(t)
	withRecurringSlot(f, classA, 2, "16:15", "18:15")
	f.store.classes[classA].RecurringSubjectID = strPtr(subjPhys)

	if _, err := f.syncer().Sync(context.Background(), timetableA); err != nil {
		t.Fatalf("Sync 应成功: %v", err)
	}
	if countSubject(f, timetableA, subjPhys) != 16 || countSubject(f, timetableA, subjEPS) != 0 {
		t.Error("应使用班级配置的课程而非名称匹配")
	}
}

func TestRecurringSync_SkipsWithoutSlot(t *testing.T) {
	f := newFixture(t)

	result, err := f.syncer().Sync(context.Background(), timetableA)
	if err != nil {
		t.Fatalf("Sync 应成功: %v", err)
	}
	if !result.Skipped || result.Reason != SyncSkipNoSlot {
		t.Errorf("期望跳过（未配置），实际 %+v", result)
	}
}

func TestRecurringSync_SkipsWithoutSubject(t *testing.T) {
	f := newFixture(t)
	withRecurringSlot(f, classA, 4, "14:00", "16:00")
	delete(f.store.subjects, subjEPS)

	result, err := f.syncer().Sync(context.Background(), timetableA)
	if err != nil {
		t.Fatalf("Sync 应成功: %v", err)
	}
	if !result.Skipped || result.Reason != SyncSkipNoSubject {
		t.Errorf("期望跳过（课程不存在），实际 %+v", result)
	}
	if len(f.store.placements) != 0 {
		t.Error("跳过时不应写入课次")
	}
}

func TestRecurringSync_KeepsOtherSubjects(t *testing.T) {
	f := newFixture(t)
	withRecurringSlot(f, classA, 4, "14:00", "16:00")
	f.seedPlacement("pl-math", timetableA, 1, "07:30", "09:30", 1, strPtr(teacher1), nil)

	if _, err := f.syncer().Sync(context.Background(), timetableA); err != nil {
		t.Fatalf("Sync 应成功: %v", err)
	}
	if _, ok := f.store.placements["pl-math"]; !ok {
		t.Error("同步不应删除其他课程的课次")
	}
}

func TestRecurringSync_Remove(t *testing.T) {
	f := newFixture(t)
	withRecurringSlot(f, classA, 4, "14:00", "16:00")
	ctx := context.Background()
	if _, err := f.syncer().Sync(ctx, timetableA); err != nil {
		t.Fatalf("Sync 应成功: %v", err)
	}

	deleted, err := f.syncer().Remove(ctx, timetableA, subjEPS)
	if err != nil {
		t.Fatalf("Remove 应成功: %v", err)
	}
	if deleted != 16 || countSubject(f, timetableA, subjEPS) != 0 {
		t.Errorf("期望删除 16 个课次，实际删除 %d，剩余 %d", deleted, countSubject(f, timetableA, subjEPS))
	}
}

func TestRecurringSync_NotFound(t *testing.T) {
	f := newFixture(t)

	if _, err := f.syncer().Sync(context.Background(), "tt-missing"); !errors.Is(err, ErrTimetableNotFound) {
		t.Errorf("期望 ErrTimetableNotFound，实际: %v", err)
	}
}

// busyLocker 始终返回锁已被占用
type busyLocker struct{ attempts int }

func (l *busyLocker) TryLock(_ context.Context, _ string, _ time.Duration) (string, error) {
	l.attempts++
	return "", pkgredis.ErrLockNotAcquired
}

func (l *busyLocker) Unlock(_ context.Context, _, _ string) error { return nil }

func TestRecurringSync_Busy(t *testing.T) {
	f := newFixture(t)
	withRecurringSlot(f, classA, 4, "14:00", "16:00")
	locker := &busyLocker{}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := NewRecurringSlotSynchronizer(f.repo, locker, f.cfg, f.logger).Sync(ctx, timetableA)
	if !errors.Is(err, ErrRecurringSyncBusy) {
		t.Errorf("期望 ErrRecurringSyncBusy，实际: %v", err)
	}
	if locker.attempts != syncLockAttempts {
		t.Errorf("期望重试 %d 次，实际 %d", syncLockAttempts, locker.attempts)
	}
}

// failingLocker 模拟 Redis 故障
type failingLocker struct{}

func (failingLocker) TryLock(_ context.Context, _ string, _ time.Duration) (string, error) {
	return "", errors.New("connection refused")
}

func (failingLocker) Unlock(_ context.Context, _, _ string) error { return nil }

func TestRecurringSync_LockerDownDegrades(t *testing.T) {
	f := newFixture(t)
	withRecurringSlot(f, classA, 4, "14:00", "16:00")

	result, err := NewRecurringSlotSynchronizer(f.repo, failingLocker{}, f.cfg, f.logger).Sync(context.Background(), timetableA)
	if err != nil {
		t.Fatalf("Redis 故障时应降级为无锁同步: %v", err)
	}
	if result.Created != 16 {
		t.Errorf("期望生成 16 个课次，实际 %+v", result)
	}
}
