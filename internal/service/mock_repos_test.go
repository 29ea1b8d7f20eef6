package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Dountche/esi-edt-backend/internal/model"
	"github.com/Dountche/esi-edt-backend/internal/repository"
	pkgerrors "github.com/Dountche/esi-edt-backend/pkg/errors"
)

// ── 内存数据集 ──
//
// 所有 mock 仓储共享同一个 mockStore，以便模拟预加载关联。
// 读取返回副本，避免服务层修改后绕过乐观锁检查。

type mockStore struct {
	seq int

	slotQueries int // ListBySlot 调用次数

	users            map[string]*model.User
	classes          map[string]*model.Class
	rooms            map[string]*model.Room
	semesters        map[string]*model.Semester
	subjects         map[string]*model.Subject
	assignments      map[string]*model.Assignment
	timetables       map[string]*model.Timetable
	placements       map[string]*model.Placement
	unavailabilities map[string]*model.Unavailability
	notifications    map[string]*model.Notification
}

func newMockStore() *mockStore {
	return &mockStore{
		users:            make(map[string]*model.User),
		classes:          make(map[string]*model.Class),
		rooms:            make(map[string]*model.Room),
		semesters:        make(map[string]*model.Semester),
		subjects:         make(map[string]*model.Subject),
		assignments:      make(map[string]*model.Assignment),
		timetables:       make(map[string]*model.Timetable),
		placements:       make(map[string]*model.Placement),
		unavailabilities: make(map[string]*model.Unavailability),
		notifications:    make(map[string]*model.Notification),
	}
}

func (s *mockStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%03d", prefix, s.seq)
}

// newMockRepository 构建全部由 mock 组成的 Repository（db 为 nil，Transaction 直接执行）
func newMockRepository() (*repository.Repository, *mockStore) {
	s := newMockStore()
	return &repository.Repository{
		User:           &mockUserRepo{s},
		Class:          &mockClassRepo{s},
		Room:           &mockRoomRepo{s},
		Semester:       &mockSemesterRepo{s},
		Subject:        &mockSubjectRepo{s},
		Assignment:     &mockAssignmentRepo{s},
		Timetable:      &mockTimetableRepo{s},
		Placement:      &mockPlacementRepo{s},
		Unavailability: &mockUnavailabilityRepo{s},
		Notification:   &mockNotificationRepo{s},
	}, s
}

// ── Mock UserRepository ──

type mockUserRepo struct{ s *mockStore }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.s.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		user.UserID = m.s.nextID("user")
	}
	cp := *user
	m.s.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	if cp.ClassID != nil {
		if c, ok := m.s.classes[*cp.ClassID]; ok {
			cc := *c
			cp.Class = &cc
		}
	}
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := m.s.users[user.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	cp.Class = nil
	m.s.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.s.users, id)
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserFilter, offset, limit int) ([]model.User, int64, error) {
	var result []model.User
	for _, u := range m.s.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.ClassID != "" && (u.ClassID == nil || *u.ClassID != filter.ClassID) {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(u.Name, filter.Keyword) && !strings.Contains(u.Email, filter.Keyword) {
			continue
		}
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return page(result, offset, limit), int64(len(result)), nil
}

func (m *mockUserRepo) ListStudentIDsByClass(_ context.Context, classID string) ([]string, error) {
	var ids []string
	for _, u := range m.s.users {
		if u.Role == model.RoleStudent && u.ClassID != nil && *u.ClassID == classID {
			ids = append(ids, u.UserID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ── Mock ClassRepository ──

type mockClassRepo struct{ s *mockStore }

func (m *mockClassRepo) Create(_ context.Context, class *model.Class) error {
	if class.ClassID == "" {
		class.ClassID = m.s.nextID("class")
	}
	if class.Version == 0 {
		class.Version = 1
	}
	cp := *class
	m.s.classes[class.ClassID] = &cp
	return nil
}

func (m *mockClassRepo) GetByID(_ context.Context, id string) (*model.Class, error) {
	c, ok := m.s.classes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockClassRepo) List(_ context.Context, filter repository.ClassFilter) ([]model.Class, error) {
	var result []model.Class
	for _, c := range m.s.classes {
		if filter.ManagerID != "" && (c.ManagerID == nil || *c.ManagerID != filter.ManagerID) {
			continue
		}
		if filter.AcademicYear != "" && c.AcademicYear != filter.AcademicYear {
			continue
		}
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockClassRepo) Update(_ context.Context, class *model.Class) error {
	stored, ok := m.s.classes[class.ClassID]
	if !ok || stored.Version != class.Version {
		return pkgerrors.ErrOptimisticLock
	}
	class.Version++
	cp := *class
	m.s.classes[class.ClassID] = &cp
	return nil
}

func (m *mockClassRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.s.classes, id)
	return nil
}

// ── Mock RoomRepository ──

type mockRoomRepo struct{ s *mockStore }

func (m *mockRoomRepo) Create(_ context.Context, room *model.Room) error {
	for _, r := range m.s.rooms {
		if r.Name == room.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	if room.RoomID == "" {
		room.RoomID = m.s.nextID("room")
	}
	cp := *room
	m.s.rooms[room.RoomID] = &cp
	return nil
}

func (m *mockRoomRepo) GetByID(_ context.Context, id string) (*model.Room, error) {
	r, ok := m.s.rooms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRoomRepo) List(_ context.Context, filter repository.RoomFilter) ([]model.Room, error) {
	var result []model.Room
	for _, r := range m.s.rooms {
		if filter.ActiveOnly && !r.IsActive {
			continue
		}
		if filter.Kind != "" && r.Kind != filter.Kind {
			continue
		}
		if filter.Building != "" && r.Building != filter.Building {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(r.Name, filter.Keyword) {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockRoomRepo) Update(_ context.Context, room *model.Room) error {
	for id, r := range m.s.rooms {
		if id != room.RoomID && r.Name == room.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	cp := *room
	m.s.rooms[room.RoomID] = &cp
	return nil
}

func (m *mockRoomRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.s.rooms, id)
	return nil
}

// ── Mock SemesterRepository ──

type mockSemesterRepo struct{ s *mockStore }

func (m *mockSemesterRepo) Create(_ context.Context, semester *model.Semester) error {
	if semester.SemesterID == "" {
		semester.SemesterID = m.s.nextID("sem")
	}
	if semester.Version == 0 {
		semester.Version = 1
	}
	cp := *semester
	m.s.semesters[semester.SemesterID] = &cp
	return nil
}

func (m *mockSemesterRepo) GetByID(_ context.Context, id string) (*model.Semester, error) {
	s, ok := m.s.semesters[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockSemesterRepo) GetCurrent(_ context.Context) (*model.Semester, error) {
	for _, s := range m.s.semesters {
		if s.IsActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSemesterRepo) List(_ context.Context) ([]model.Semester, error) {
	var result []model.Semester
	for _, s := range m.s.semesters {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.After(result[j].StartDate) })
	return result, nil
}

func (m *mockSemesterRepo) Update(_ context.Context, semester *model.Semester) error {
	stored, ok := m.s.semesters[semester.SemesterID]
	if !ok || stored.Version != semester.Version {
		return pkgerrors.ErrOptimisticLock
	}
	semester.Version++
	cp := *semester
	m.s.semesters[semester.SemesterID] = &cp
	return nil
}

func (m *mockSemesterRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.s.semesters, id)
	return nil
}

func (m *mockSemesterRepo) ClearActive(_ context.Context) error {
	for _, s := range m.s.semesters {
		s.IsActive = false
	}
	return nil
}

// ── Mock SubjectRepository ──

type mockSubjectRepo struct{ s *mockStore }

func (m *mockSubjectRepo) Create(_ context.Context, subject *model.Subject) error {
	for _, sub := range m.s.subjects {
		if sub.Code == subject.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	if subject.SubjectID == "" {
		subject.SubjectID = m.s.nextID("subject")
	}
	cp := *subject
	m.s.subjects[subject.SubjectID] = &cp
	return nil
}

func (m *mockSubjectRepo) GetByID(_ context.Context, id string) (*model.Subject, error) {
	sub, ok := m.s.subjects[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *sub
	return &cp, nil
}

func (m *mockSubjectRepo) List(_ context.Context, filter repository.SubjectFilter) ([]model.Subject, error) {
	var result []model.Subject
	for _, sub := range m.s.subjects {
		if filter.ClassID != "" && (sub.ClassID == nil || *sub.ClassID != filter.ClassID) {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(sub.Name, filter.Keyword) {
			continue
		}
		result = append(result, *sub)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (m *mockSubjectRepo) FindByNamePattern(_ context.Context, pattern string) (*model.Subject, error) {
	ids := make([]string, 0, len(m.s.subjects))
	for id := range m.s.subjects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		sub := m.s.subjects[id]
		if strings.Contains(strings.ToLower(sub.Name), strings.ToLower(pattern)) {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) Update(_ context.Context, subject *model.Subject) error {
	cp := *subject
	m.s.subjects[subject.SubjectID] = &cp
	return nil
}

func (m *mockSubjectRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.s.subjects, id)
	return nil
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct{ s *mockStore }

func (m *mockAssignmentRepo) Create(_ context.Context, a *model.Assignment) error {
	if a.AssignmentID == "" {
		a.AssignmentID = m.s.nextID("assign")
	}
	cp := *a
	cp.Teacher, cp.Subject, cp.Class, cp.Semester = nil, nil, nil, nil
	m.s.assignments[a.AssignmentID] = &cp
	return nil
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id string) (*model.Assignment, error) {
	a, ok := m.s.assignments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	if c, ok := m.s.classes[cp.ClassID]; ok {
		cc := *c
		cp.Class = &cc
	}
	return &cp, nil
}

func (m *mockAssignmentRepo) List(_ context.Context, filter repository.AssignmentFilter) ([]model.Assignment, error) {
	var result []model.Assignment
	for _, a := range m.s.assignments {
		if filter.TeacherID != "" && a.TeacherID != filter.TeacherID {
			continue
		}
		if filter.SubjectID != "" && a.SubjectID != filter.SubjectID {
			continue
		}
		if filter.ClassID != "" && a.ClassID != filter.ClassID {
			continue
		}
		if filter.SemesterID != "" && a.SemesterID != filter.SemesterID {
			continue
		}
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AssignmentID < result[j].AssignmentID })
	return result, nil
}

func (m *mockAssignmentRepo) CountByTuple(_ context.Context, teacherID, subjectID, classID, semesterID string) (int64, error) {
	var n int64
	for _, a := range m.s.assignments {
		if a.TeacherID == teacherID && a.SubjectID == subjectID && a.ClassID == classID && a.SemesterID == semesterID {
			n++
		}
	}
	return n, nil
}

func (m *mockAssignmentRepo) Delete(_ context.Context, id string) error {
	delete(m.s.assignments, id)
	return nil
}

// ── Mock TimetableRepository ──

type mockTimetableRepo struct{ s *mockStore }

func (m *mockTimetableRepo) Create(_ context.Context, tt *model.Timetable) error {
	for _, t := range m.s.timetables {
		if t.ClassID == tt.ClassID && t.SemesterID == tt.SemesterID {
			return gorm.ErrDuplicatedKey
		}
	}
	if tt.TimetableID == "" {
		tt.TimetableID = m.s.nextID("tt")
	}
	if tt.Version == 0 {
		tt.Version = 1
	}
	cp := *tt
	cp.Class, cp.Semester, cp.Placements = nil, nil, nil
	m.s.timetables[tt.TimetableID] = &cp
	return nil
}

// detail 模拟预加载 Class 与 Semester
func (m *mockTimetableRepo) detail(t *model.Timetable) *model.Timetable {
	cp := *t
	if c, ok := m.s.classes[cp.ClassID]; ok {
		cc := *c
		cp.Class = &cc
	}
	if s, ok := m.s.semesters[cp.SemesterID]; ok {
		sc := *s
		cp.Semester = &sc
	}
	return &cp
}

func (m *mockTimetableRepo) GetByID(_ context.Context, id string) (*model.Timetable, error) {
	t, ok := m.s.timetables[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.detail(t), nil
}

func (m *mockTimetableRepo) GetByClassAndSemester(_ context.Context, classID, semesterID string) (*model.Timetable, error) {
	for _, t := range m.s.timetables {
		if t.ClassID == classID && t.SemesterID == semesterID {
			return m.detail(t), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTimetableRepo) List(_ context.Context, filter repository.TimetableFilter) ([]model.Timetable, error) {
	var result []model.Timetable
	for _, t := range m.s.timetables {
		if filter.ClassID != "" && t.ClassID != filter.ClassID {
			continue
		}
		if filter.SemesterID != "" && t.SemesterID != filter.SemesterID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.ManagerID != "" {
			c, ok := m.s.classes[t.ClassID]
			if !ok || c.ManagerID == nil || *c.ManagerID != filter.ManagerID {
				continue
			}
		}
		result = append(result, *m.detail(t))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TimetableID < result[j].TimetableID })
	return result, nil
}

func (m *mockTimetableRepo) ListDraftByClass(_ context.Context, classID string) ([]model.Timetable, error) {
	var result []model.Timetable
	for _, t := range m.s.timetables {
		if t.ClassID == classID && t.Status == model.TimetableDraft {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TimetableID < result[j].TimetableID })
	return result, nil
}

func (m *mockTimetableRepo) Update(_ context.Context, tt *model.Timetable) error {
	stored, ok := m.s.timetables[tt.TimetableID]
	if !ok || stored.Version != tt.Version {
		return pkgerrors.ErrOptimisticLock
	}
	tt.Version++
	cp := *tt
	cp.Class, cp.Semester, cp.Placements = nil, nil, nil
	m.s.timetables[tt.TimetableID] = &cp
	return nil
}

func (m *mockTimetableRepo) Delete(_ context.Context, id string) error {
	delete(m.s.timetables, id)
	for pid, p := range m.s.placements {
		if p.TimetableID == id {
			delete(m.s.placements, pid)
		}
	}
	return nil
}

// ── Mock PlacementRepository ──

type mockPlacementRepo struct{ s *mockStore }

// detail 模拟 withDetail 预加载
func (m *mockPlacementRepo) detail(p *model.Placement) model.Placement {
	cp := *p
	if t, ok := m.s.timetables[cp.TimetableID]; ok {
		tc := *t
		if c, ok := m.s.classes[tc.ClassID]; ok {
			cc := *c
			tc.Class = &cc
		}
		cp.Timetable = &tc
	}
	if sub, ok := m.s.subjects[cp.SubjectID]; ok {
		sc := *sub
		cp.Subject = &sc
	}
	if cp.TeacherID != nil {
		if u, ok := m.s.users[*cp.TeacherID]; ok {
			uc := *u
			cp.Teacher = &uc
		}
	}
	if cp.RoomID != nil {
		if r, ok := m.s.rooms[*cp.RoomID]; ok {
			rc := *r
			cp.Room = &rc
		}
	}
	return cp
}

// store 唯一索引兜底：同周同星期同开始时间的教师或教室不可重复（不分学期）
func (m *mockPlacementRepo) store(p *model.Placement) error {
	for id, e := range m.s.placements {
		if id == p.PlacementID || e.Cancelled || p.Cancelled {
			continue
		}
		if e.WeekNumber != p.WeekNumber ||
			e.DayOfWeek != p.DayOfWeek || e.StartTime != p.StartTime {
			continue
		}
		if (p.TeacherID != nil && sameRef(e.TeacherID, p.TeacherID)) ||
			(p.RoomID != nil && sameRef(e.RoomID, p.RoomID)) {
			return gorm.ErrDuplicatedKey
		}
	}
	cp := *p
	cp.Timetable, cp.Subject, cp.Teacher, cp.Room = nil, nil, nil, nil
	m.s.placements[p.PlacementID] = &cp
	return nil
}

func (m *mockPlacementRepo) sorted(keep func(*model.Placement) bool) []model.Placement {
	var result []model.Placement
	for _, p := range m.s.placements {
		if keep(p) {
			result = append(result, m.detail(p))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.WeekNumber != b.WeekNumber {
			return a.WeekNumber < b.WeekNumber
		}
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.PlacementID < b.PlacementID
	})
	return result
}

func (m *mockPlacementRepo) Create(_ context.Context, p *model.Placement) error {
	if p.PlacementID == "" {
		p.PlacementID = m.s.nextID("pl")
	}
	if p.Version == 0 {
		p.Version = 1
	}
	return m.store(p)
}

func (m *mockPlacementRepo) BatchCreate(ctx context.Context, list []model.Placement) error {
	for i := range list {
		if err := m.Create(ctx, &list[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockPlacementRepo) GetByID(_ context.Context, id string) (*model.Placement, error) {
	p, ok := m.s.placements[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := m.detail(p)
	return &cp, nil
}

func (m *mockPlacementRepo) Update(_ context.Context, p *model.Placement) error {
	stored, ok := m.s.placements[p.PlacementID]
	if !ok || stored.Version != p.Version {
		return pkgerrors.ErrOptimisticLock
	}
	p.Version++
	if err := m.store(p); err != nil {
		p.Version--
		return err
	}
	return nil
}

func (m *mockPlacementRepo) Delete(_ context.Context, id string) error {
	delete(m.s.placements, id)
	return nil
}

func (m *mockPlacementRepo) ListByTimetable(_ context.Context, timetableID string) ([]model.Placement, error) {
	list := m.sorted(func(p *model.Placement) bool { return p.TimetableID == timetableID })
	// 真实实现不预加载 Timetable
	for i := range list {
		list[i].Timetable = nil
	}
	return list, nil
}

func (m *mockPlacementRepo) ListByTeacher(_ context.Context, teacherID, semesterID string) ([]model.Placement, error) {
	return m.sorted(func(p *model.Placement) bool {
		return p.TeacherID != nil && *p.TeacherID == teacherID && p.SemesterID == semesterID
	}), nil
}

func (m *mockPlacementRepo) ListByClass(_ context.Context, classID, semesterID string) ([]model.Placement, error) {
	return m.sorted(func(p *model.Placement) bool {
		t, ok := m.s.timetables[p.TimetableID]
		return ok && t.ClassID == classID && p.SemesterID == semesterID
	}), nil
}

func (m *mockPlacementRepo) ListBySlot(_ context.Context, q repository.SlotQuery) ([]model.Placement, error) {
	m.s.slotQueries++
	if q.TeacherID == nil && q.RoomID == nil {
		return nil, nil
	}
	window := TimeWindow{Start: q.Start, End: q.End}
	return m.sorted(func(p *model.Placement) bool {
		if p.Cancelled || p.DayOfWeek != q.DayOfWeek || p.WeekNumber != q.WeekNumber {
			return false
		}
		if q.ExcludeID != nil && p.PlacementID == *q.ExcludeID {
			return false
		}
		hit := (q.TeacherID != nil && sameRef(p.TeacherID, q.TeacherID)) ||
			(q.RoomID != nil && sameRef(p.RoomID, q.RoomID))
		if !hit {
			return false
		}
		if q.Start != "" && q.End != "" {
			return Overlaps(window, TimeWindow{Start: p.StartTime, End: p.EndTime})
		}
		return true
	}), nil
}

func (m *mockPlacementRepo) ListActiveByTeacherOverlap(_ context.Context, teacherID string, weekday int, start, end string) ([]model.Placement, error) {
	window := TimeWindow{Start: start, End: end}
	return m.sorted(func(p *model.Placement) bool {
		return !p.Cancelled && p.TeacherID != nil && *p.TeacherID == teacherID && p.DayOfWeek == weekday &&
			Overlaps(window, TimeWindow{Start: p.StartTime, End: p.EndTime})
	}), nil
}

func (m *mockPlacementRepo) CancelByIDs(_ context.Context, ids []string) (int64, error) {
	var n int64
	for _, id := range ids {
		if p, ok := m.s.placements[id]; ok {
			p.Cancelled = true
			p.Version++
			n++
		}
	}
	return n, nil
}

func (m *mockPlacementRepo) DeleteByTimetableAndSubject(_ context.Context, timetableID, subjectID string) (int64, error) {
	var n int64
	for id, p := range m.s.placements {
		if p.TimetableID == timetableID && p.SubjectID == subjectID {
			delete(m.s.placements, id)
			n++
		}
	}
	return n, nil
}

// ── Mock UnavailabilityRepository ──

type mockUnavailabilityRepo struct{ s *mockStore }

func (m *mockUnavailabilityRepo) Create(_ context.Context, u *model.Unavailability) error {
	if u.UnavailabilityID == "" {
		u.UnavailabilityID = m.s.nextID("unav")
	}
	if u.Version == 0 {
		u.Version = 1
	}
	cp := *u
	m.s.unavailabilities[u.UnavailabilityID] = &cp
	return nil
}

func (m *mockUnavailabilityRepo) GetByID(_ context.Context, id string) (*model.Unavailability, error) {
	u, ok := m.s.unavailabilities[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	if t, ok := m.s.users[cp.TeacherID]; ok {
		tc := *t
		cp.Teacher = &tc
	}
	return &cp, nil
}

func (m *mockUnavailabilityRepo) List(_ context.Context, filter repository.UnavailabilityFilter, offset, limit int) ([]model.Unavailability, int64, error) {
	var result []model.Unavailability
	for _, u := range m.s.unavailabilities {
		if filter.TeacherID != "" && u.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		if filter.From != nil && u.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && u.Date.After(*filter.To) {
			continue
		}
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	return page(result, offset, limit), int64(len(result)), nil
}

func (m *mockUnavailabilityRepo) Update(_ context.Context, u *model.Unavailability) error {
	stored, ok := m.s.unavailabilities[u.UnavailabilityID]
	if !ok || stored.Version != u.Version || stored.Status != model.UnavailabilityPending {
		return pkgerrors.ErrOptimisticLock
	}
	u.Version++
	cp := *u
	cp.Teacher = nil
	m.s.unavailabilities[u.UnavailabilityID] = &cp
	return nil
}

func (m *mockUnavailabilityRepo) TransitionStatus(_ context.Context, u *model.Unavailability, from string) error {
	stored, ok := m.s.unavailabilities[u.UnavailabilityID]
	if !ok || stored.Status != from || stored.Version != u.Version {
		return pkgerrors.ErrStateChanged
	}
	u.Version++
	cp := *u
	cp.Teacher = nil
	m.s.unavailabilities[u.UnavailabilityID] = &cp
	return nil
}

func (m *mockUnavailabilityRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.s.unavailabilities, id)
	return nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct{ s *mockStore }

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if n.NotificationID == "" {
		n.NotificationID = m.s.nextID("notif")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	cp := *n
	m.s.notifications[n.NotificationID] = &cp
	return nil
}

func (m *mockNotificationRepo) BatchCreate(ctx context.Context, list []model.Notification) error {
	for i := range list {
		if err := m.Create(ctx, &list[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockNotificationRepo) GetByID(_ context.Context, id string) (*model.Notification, error) {
	n, ok := m.s.notifications[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	var result []model.Notification
	for _, n := range m.s.notifications {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		result = append(result, *n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].NotificationID > result[j].NotificationID })
	return page(result, offset, limit), int64(len(result)), nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, item := range m.s.notifications {
		if item.UserID == userID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id, userID string) (int64, error) {
	n, ok := m.s.notifications[id]
	if !ok || n.UserID != userID {
		return 0, nil
	}
	n.IsRead = true
	return 1, nil
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	var count int64
	for _, n := range m.s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) Delete(_ context.Context, id, userID string) (int64, error) {
	n, ok := m.s.notifications[id]
	if !ok || n.UserID != userID {
		return 0, nil
	}
	delete(m.s.notifications, id)
	return 1, nil
}

func (m *mockNotificationRepo) PurgeReadBefore(_ context.Context, before time.Time) (int64, error) {
	var count int64
	for id, n := range m.s.notifications {
		if n.IsRead && n.CreatedAt.Before(before) {
			delete(m.s.notifications, id)
			count++
		}
	}
	return count, nil
}

// ── 通用辅助 ──

func page[T any](list []T, offset, limit int) []T {
	if offset >= len(list) {
		return []T{}
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end]
}

// notificationsFor 返回某用户收到的通知（按 ID 排序）
func (s *mockStore) notificationsFor(userID string) []model.Notification {
	var result []model.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			result = append(result, *n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].NotificationID < result[j].NotificationID })
	return result
}
