package service

import (
	"context"
	"testing"

	"github.com/Dountche/esi-edt-backend/internal/model"
)

func candidate(day int, start, end string, week int, teacherID, roomID *string) Candidate {
	return Candidate{
		TimetableID: timetableA,
		ClassID:     classA,
		DayOfWeek:   day,
		Window:      TimeWindow{Start: start, End: end},
		WeekNumber:  week,
		TeacherID:   teacherID,
		RoomID:      roomID,
		SubjectID:   subjMath,
	}
}

func validate(t *testing.T, f *fixture, c Candidate) *ValidationResult {
	t.Helper()
	result, err := NewConflictDetector(f.repo.Placement, f.catalog).Validate(context.Background(), c)
	if err != nil {
		t.Fatalf("Validate 不应返回错误: %v", err)
	}
	return result
}

func TestConflictDetector_Valid(t *testing.T) {
	f := newFixture(t)

	result := validate(t, f, candidate(1, "07:30", "09:30", 1, strPtr(teacher1), strPtr(room101)))
	if !result.OK || len(result.Violations) != 0 {
		t.Errorf("空课表中的候选应通过，实际: %+v", result)
	}
}

func TestConflictDetector_InvalidWindow(t *testing.T) {
	f := newFixture(t)

	f.seedPlacement("pl-any", timetableB, 1, "07:30", "09:30", 1, strPtr(teacher1), strPtr(room101))

	result := validate(t, f, candidate(1, "09:30", "07:30", 1, strPtr(teacher1), strPtr(room101)))
	if result.OK || len(result.Violations) != 1 || result.Violations[0].Kind != ViolationInvalidWindow {
		t.Errorf("期望仅 InvalidWindow，实际: %+v", result)
	}
	if f.store.slotQueries != 0 {
		t.Errorf("非法时段应在查询前返回，实际查询 %d 次", f.store.slotQueries)
	}

	// 起止相同同样非法
	result = validate(t, f, candidate(1, "07:30", "07:30", 1, strPtr(teacher1), nil))
	if result.OK || result.Violations[0].Kind != ViolationInvalidWindow {
		t.Errorf("起止相同期望 InvalidWindow，实际: %+v", result)
	}
	if f.store.slotQueries != 0 {
		t.Errorf("非法时段应在查询前返回，实际查询 %d 次", f.store.slotQueries)
	}
}

func TestConflictDetector_SlotNotAllowed(t *testing.T) {
	f := newFixture(t)

	result := validate(t, f, candidate(2, "08:00", "10:00", 1, nil, nil))
	if result.OK || result.Violations[0].Kind != ViolationSlotNotAllowed {
		t.Fatalf("期望 SlotNotAllowed，实际: %+v", result)
	}
	if len(result.Violations[0].Allowed) != 6 {
		t.Errorf("SlotNotAllowed 应携带全部可选时段，实际 %d 个", len(result.Violations[0].Allowed))
	}

	// 周日不可排课
	result = validate(t, f, candidate(0, "07:30", "09:30", 1, nil, nil))
	if result.OK || result.Violations[0].Kind != ViolationSlotNotAllowed {
		t.Errorf("周日期望 SlotNotAllowed，实际: %+v", result)
	}
}

func TestConflictDetector_GroupIncompatible(t *testing.T) {
	f := newFixture(t)
	// 教师已在 B 班上午长时段上课
	f.seedPlacement("pl-long", timetableB, 1, "07:30", "11:45", 1, strPtr(teacher1), nil)

	result := validate(t, f, candidate(1, "09:45", "11:45", 1, strPtr(teacher1), nil))
	if result.OK {
		t.Fatal("短时段与同教师的长时段应互斥")
	}
	v := result.Violations[0]
	if v.Kind != ViolationGroupIncompatible {
		t.Fatalf("期望 GroupIncompatible，实际 %s", v.Kind)
	}
	if v.Conflict == nil || v.Conflict.PlacementID != "pl-long" || v.Conflict.ClassName != "ING1-B" {
		t.Errorf("冲突引用错误: %+v", v.Conflict)
	}
}

func TestConflictDetector_GroupIncompatible_LongAfterShort(t *testing.T) {
	f := newFixture(t)
	// 教室已被 B 班下午第一个短时段占用
	f.seedPlacement("pl-short", timetableB, 2, "14:00", "16:00", 3, strPtr(teacher2), strPtr(room101))

	result := validate(t, f, candidate(2, "14:00", "18:15", 3, strPtr(teacher1), strPtr(room101)))
	if result.OK || len(result.Violations) != 1 {
		t.Fatalf("长时段与同教室的短时段应互斥，实际: %+v", result)
	}
	v := result.Violations[0]
	if v.Kind != ViolationGroupIncompatible {
		t.Fatalf("期望 GroupIncompatible，实际 %s", v.Kind)
	}
	if v.Conflict == nil || v.Conflict.PlacementID != "pl-short" {
		t.Errorf("冲突引用错误: %+v", v.Conflict)
	}
}

func TestConflictDetector_TwoShortWindowsCoexist(t *testing.T) {
	f := newFixture(t)
	f.seedPlacement("pl-first", timetableB, 1, "07:30", "09:30", 1, strPtr(teacher1), strPtr(room101))

	// 同一教师与教室的第二个短时段与第一个不重叠
	result := validate(t, f, candidate(1, "09:45", "11:45", 1, strPtr(teacher1), strPtr(room101)))
	if !result.OK || len(result.Violations) != 0 {
		t.Errorf("同组两个短时段应可共存，实际: %+v", result)
	}
}

func TestConflictDetector_AcrossSemesters(t *testing.T) {
	f := newFixture(t)
	// 并行学期的课表：周次编号相同即为同一周
	f.store.timetables["tt-s3"] = &model.Timetable{
		TimetableID: "tt-s3", ClassID: classB, SemesterID: "sem-concurrent", Status: model.TimetableDraft,
		LockedModel: model.LockedModel{Version: 1},
	}
	p := f.seedPlacement("pl-s3", "tt-s3", 1, "07:30", "09:30", 3, strPtr(teacher1), strPtr(room101))
	p.SemesterID = "sem-concurrent"

	result := validate(t, f, candidate(1, "07:30", "09:30", 3, strPtr(teacher1), strPtr(room101)))
	if result.OK || len(result.Violations) != 2 {
		t.Fatalf("其他学期同周的教师与教室占用应报冲突，实际: %+v", result)
	}
	if result.Violations[0].Kind != ViolationTeacherConflict || result.Violations[1].Kind != ViolationRoomConflict {
		t.Errorf("期望教师与教室冲突，实际: %+v", result.Violations)
	}
}

func TestConflictDetector_GroupIgnoresOtherResources(t *testing.T) {
	f := newFixture(t)
	// 其他教师与教室的长时段不影响
	f.seedPlacement("pl-long", timetableB, 1, "07:30", "11:45", 1, strPtr(teacher2), strPtr(room102))

	result := validate(t, f, candidate(1, "07:30", "09:30", 1, strPtr(teacher1), strPtr(room101)))
	if !result.OK {
		t.Errorf("不同教师与教室的课次不应冲突，实际: %+v", result)
	}
}

func TestConflictDetector_TeacherAndRoomConflictsAccumulate(t *testing.T) {
	f := newFixture(t)
	f.seedPlacement("pl-t", timetableB, 3, "14:00", "16:00", 2, strPtr(teacher1), strPtr(room102))
	f.seedPlacement("pl-r", timetableB, 3, "14:00", "16:00", 2, strPtr(teacher2), strPtr(room101))

	result := validate(t, f, candidate(3, "14:00", "16:00", 2, strPtr(teacher1), strPtr(room101)))
	if result.OK {
		t.Fatal("应检测到冲突")
	}
	if len(result.Violations) != 2 {
		t.Fatalf("期望教师与教室两条冲突，实际 %d: %+v", len(result.Violations), result.Violations)
	}
	if result.Violations[0].Kind != ViolationTeacherConflict || result.Violations[1].Kind != ViolationRoomConflict {
		t.Errorf("冲突顺序应为教师在前教室在后: %+v", result.Violations)
	}
}

func TestConflictDetector_OtherWeekOrCancelledIsFree(t *testing.T) {
	f := newFixture(t)
	f.seedPlacement("pl-w2", timetableB, 1, "07:30", "09:30", 2, strPtr(teacher1), nil)
	cancelled := f.seedPlacement("pl-c", timetableB, 1, "07:30", "09:30", 1, strPtr(teacher1), nil)
	cancelled.Cancelled = true

	result := validate(t, f, candidate(1, "07:30", "09:30", 1, strPtr(teacher1), nil))
	if !result.OK {
		t.Errorf("其他周次与已取消课次不应冲突，实际: %+v", result)
	}
}

func TestConflictDetector_ExcludeSelf(t *testing.T) {
	f := newFixture(t)
	f.seedPlacement("pl-self", timetableA, 4, "16:15", "18:15", 5, strPtr(teacher1), strPtr(room101))

	c := candidate(4, "16:15", "18:15", 5, strPtr(teacher1), strPtr(room101))
	c.ExcludeID = strPtr("pl-self")
	if result := validate(t, f, c); !result.OK {
		t.Errorf("更新时应排除自身，实际: %+v", result)
	}
}

func TestConflictDetector_NoResourcesSkipsQueries(t *testing.T) {
	f := newFixture(t)
	f.seedPlacement("pl-any", timetableB, 1, "07:30", "11:45", 1, strPtr(teacher1), strPtr(room101))

	// 未指定教师与教室的候选只做时段校验
	if result := validate(t, f, candidate(1, "07:30", "09:30", 1, nil, nil)); !result.OK {
		t.Errorf("无资源候选应通过，实际: %+v", result)
	}
}
