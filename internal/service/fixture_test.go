package service

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Dountche/esi-edt-backend/config"
	"github.com/Dountche/esi-edt-backend/internal/model"
	"github.com/Dountche/esi-edt-backend/internal/repository"
)

// ── 测试数据 ──
//
// 两个班级共用一个学期：class-a 由 rup-1 负责，class-b 无负责人。
// teacher-1 被分配在两个班讲授数学；teacher-2 没有任何分配。

const (
	semID      = "sem-1"
	classA     = "class-a"
	classB     = "class-b"
	adminID    = "admin-1"
	rupID      = "rup-1"
	teacher1   = "teacher-1"
	teacher2   = "teacher-2"
	studentA1  = "student-a1"
	studentA2  = "student-a2"
	studentB1  = "student-b1"
	subjMath   = "subject-math"
	subjPhys   = "subject-phys"
	subjEPS    = "subject-eps"
	room101    = "room-101"
	room102    = "room-102"
	timetableA = "tt-a"
	timetableB = "tt-b"
)

var (
	adminScope   = Scope{UserID: adminID, Role: model.RoleAdmin}
	rupScope     = Scope{UserID: rupID, Role: model.RoleManager}
	teacherScope = Scope{UserID: teacher1, Role: model.RoleTeacher}
	studentScope = Scope{UserID: studentA1, Role: model.RoleStudent, ClassID: classA}
)

type fixture struct {
	repo    *repository.Repository
	store   *mockStore
	catalog *SlotCatalog
	cfg     config.TimetableConfig
	logger  *zap.Logger
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, store := newMockRepository()

	store.semesters[semID] = &model.Semester{
		SemesterID:     semID,
		Name:           "S1 2025-2026",
		AcademicYear:   "2025-2026",
		StartDate:      time.Date(2025, 9, 15, 0, 0, 0, 0, time.Local), // 周一
		EndDate:        time.Date(2026, 1, 9, 0, 0, 0, 0, time.Local),
		IsActive:       true,
		VersionedModel: model.VersionedModel{Version: 1},
	}

	store.classes[classA] = &model.Class{
		ClassID: classA, Name: "ING1-A", AcademicYear: "2025-2026",
		ManagerID:      strPtr(rupID),
		VersionedModel: model.VersionedModel{Version: 1},
	}
	store.classes[classB] = &model.Class{
		ClassID: classB, Name: "ING1-B", AcademicYear: "2025-2026",
		VersionedModel: model.VersionedModel{Version: 1},
	}

	users := []model.User{
		{UserID: adminID, Name: "Admin", Email: "admin@esi.test", Role: model.RoleAdmin, IsActive: true},
		{UserID: rupID, Name: "Koné", Email: "rup@esi.test", Role: model.RoleManager, IsActive: true},
		{UserID: teacher1, Name: "Traoré", Email: "t1@esi.test", Role: model.RoleTeacher, IsActive: true},
		{UserID: teacher2, Name: "Yao", Email: "t2@esi.test", Role: model.RoleTeacher, IsActive: true},
		{UserID: studentA1, Name: "Awa", Email: "a1@esi.test", Role: model.RoleStudent, ClassID: strPtr(classA), IsActive: true},
		{UserID: studentA2, Name: "Bakary", Email: "a2@esi.test", Role: model.RoleStudent, ClassID: strPtr(classA), IsActive: true},
		{UserID: studentB1, Name: "Chantal", Email: "b1@esi.test", Role: model.RoleStudent, ClassID: strPtr(classB), IsActive: true},
	}
	for i := range users {
		u := users[i]
		store.users[u.UserID] = &u
	}

	store.subjects[subjMath] = &model.Subject{SubjectID: subjMath, Name: "Mathématiques", Code: "MATH1"}
	store.subjects[subjPhys] = &model.Subject{SubjectID: subjPhys, Name: "Physique", Code: "PHYS1", ClassID: strPtr(classA)}
	store.subjects[subjEPS] = &model.Subject{SubjectID: subjEPS, Name: "EPS", Code: "EPS"}

	store.rooms[room101] = &model.Room{RoomID: room101, Name: "A101", Capacity: 40, Kind: "classroom", IsActive: true}
	store.rooms[room102] = &model.Room{RoomID: room102, Name: "A102", Capacity: 40, Kind: "classroom", IsActive: true}

	store.assignments["assign-a"] = &model.Assignment{
		AssignmentID: "assign-a", TeacherID: teacher1, SubjectID: subjMath, ClassID: classA, SemesterID: semID,
	}
	store.assignments["assign-b"] = &model.Assignment{
		AssignmentID: "assign-b", TeacherID: teacher1, SubjectID: subjMath, ClassID: classB, SemesterID: semID,
	}

	store.timetables[timetableA] = &model.Timetable{
		TimetableID: timetableA, ClassID: classA, SemesterID: semID, Status: model.TimetableDraft,
		LockedModel: model.LockedModel{Version: 1},
	}
	store.timetables[timetableB] = &model.Timetable{
		TimetableID: timetableB, ClassID: classB, SemesterID: semID, Status: model.TimetableDraft,
		LockedModel: model.LockedModel{Version: 1},
	}

	return &fixture{
		repo:    repo,
		store:   store,
		catalog: DefaultSlotCatalog(),
		cfg: config.TimetableConfig{
			WeekCount:             16,
			SpecialSubjectPattern: "EPS",
			RecurringKind:         model.KindLecture,
		},
		logger: zap.NewNop(),
	}
}

// seedPlacement 直接写入一条课次，绕过校验
func (f *fixture) seedPlacement(id, timetableID string, day int, start, end string, week int, teacherID, roomID *string) *model.Placement {
	p := &model.Placement{
		PlacementID: id,
		TimetableID: timetableID,
		SemesterID:  semID,
		DayOfWeek:   day,
		StartTime:   start,
		EndTime:     end,
		WeekNumber:  week,
		SubjectID:   subjMath,
		TeacherID:   teacherID,
		RoomID:      roomID,
		Kind:        model.KindLecture,
		LockedModel: model.LockedModel{Version: 1},
	}
	f.store.placements[id] = p
	return p
}

func (f *fixture) notifier() *notifier {
	return newNotifier(f.repo, f.logger)
}

func (f *fixture) syncer() *RecurringSlotSynchronizer {
	return NewRecurringSlotSynchronizer(f.repo, nil, f.cfg, f.logger)
}
