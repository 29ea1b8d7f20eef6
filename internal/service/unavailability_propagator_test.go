package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Dountche/esi-edt-backend/internal/model"
)

func declaration(date time.Time, start, end string) *model.Unavailability {
	return &model.Unavailability{
		UnavailabilityID: "unav-1",
		TeacherID:        teacher1,
		Date:             date,
		StartTime:        start,
		EndTime:          end,
		Status:           model.UnavailabilityApproved,
	}
}

func TestUnavailabilityPropagator_CancelsOverlappingAllWeeks(t *testing.T) {
	f := newFixture(t)
	// 2025-09-17 为周三
	f.seedPlacement("pl-a1", timetableA, 3, "07:30", "09:30", 1, strPtr(teacher1), nil)
	f.seedPlacement("pl-a9", timetableA, 3, "09:45", "11:45", 9, strPtr(teacher1), nil)
	f.seedPlacement("pl-b2", timetableB, 3, "07:30", "11:45", 2, strPtr(teacher1), nil)
	f.seedPlacement("pl-pm", timetableA, 3, "14:00", "16:00", 1, strPtr(teacher1), nil)
	f.seedPlacement("pl-other", timetableA, 3, "07:30", "09:30", 3, strPtr(teacher2), nil)

	decl := declaration(time.Date(2025, 9, 17, 0, 0, 0, 0, time.Local), "08:00", "11:00")
	result, err := NewUnavailabilityPropagator(f.repo, f.logger).OnApproved(context.Background(), decl)
	if err != nil {
		t.Fatalf("OnApproved 应成功: %v", err)
	}

	if len(result.CancelledPlacementIDs) != 3 {
		t.Fatalf("期望取消 3 个课次，实际 %v", result.CancelledPlacementIDs)
	}
	for _, id := range []string{"pl-a1", "pl-a9", "pl-b2"} {
		if !f.store.placements[id].Cancelled {
			t.Errorf("%s 应被取消", id)
		}
	}
	for _, id := range []string{"pl-pm", "pl-other"} {
		if f.store.placements[id].Cancelled {
			t.Errorf("%s 不应被取消", id)
		}
	}

	if len(result.NotifiedClassIDs) != 2 || result.NotifiedClassIDs[0] != classA || result.NotifiedClassIDs[1] != classB {
		t.Errorf("期望按首次出现顺序通知 A、B 两班，实际 %v", result.NotifiedClassIDs)
	}

	// A 班两名学生各收到一条通知，B 班一名
	for _, uid := range []string{studentA1, studentA2, studentB1} {
		if got := len(f.store.notificationsFor(uid)); got != 1 {
			t.Errorf("学生 %s 期望 1 条通知，实际 %d", uid, got)
		}
	}

	n := f.store.notificationsFor(studentA1)[0]
	if n.Type != model.NotificationUnavailability || n.RelatedID == nil || *n.RelatedID != "unav-1" {
		t.Errorf("通知字段错误: %+v", n)
	}
	var payload cancelPayload
	if err := json.Unmarshal(n.Payload, &payload); err != nil {
		t.Fatalf("负载应为合法 JSON: %v", err)
	}
	if payload.ClassID != classA || len(payload.PlacementIDs) != 2 || payload.Date != "2025-09-17" {
		t.Errorf("负载内容错误: %+v", payload)
	}
}

func TestUnavailabilityPropagator_NoMatch(t *testing.T) {
	f := newFixture(t)
	f.seedPlacement("pl-a1", timetableA, 1, "07:30", "09:30", 1, strPtr(teacher1), nil)

	// 周二无课
	decl := declaration(time.Date(2025, 9, 16, 0, 0, 0, 0, time.Local), "07:30", "18:15")
	result, err := NewUnavailabilityPropagator(f.repo, f.logger).OnApproved(context.Background(), decl)
	if err != nil {
		t.Fatalf("OnApproved 应成功: %v", err)
	}
	if len(result.CancelledPlacementIDs) != 0 || len(result.NotifiedClassIDs) != 0 {
		t.Errorf("期望无影响，实际 %+v", result)
	}
	if len(f.store.notifications) != 0 {
		t.Errorf("不应产生通知，实际 %d 条", len(f.store.notifications))
	}
}

func TestUnavailabilityPropagator_TouchingWindowIsNotOverlap(t *testing.T) {
	f := newFixture(t)
	f.seedPlacement("pl-a1", timetableA, 1, "07:30", "09:30", 1, strPtr(teacher1), nil)

	decl := declaration(time.Date(2025, 9, 15, 0, 0, 0, 0, time.Local), "09:30", "09:45")
	result, err := NewUnavailabilityPropagator(f.repo, f.logger).OnApproved(context.Background(), decl)
	if err != nil {
		t.Fatalf("OnApproved 应成功: %v", err)
	}
	if len(result.CancelledPlacementIDs) != 0 {
		t.Errorf("端点相接不应取消，实际 %v", result.CancelledPlacementIDs)
	}
}
