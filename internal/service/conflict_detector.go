package service

import (
	"context"
	"fmt"

	"github.com/Dountche/esi-edt-backend/internal/model"
	"github.com/Dountche/esi-edt-backend/internal/repository"
)

// 违规类型
const (
	ViolationInvalidWindow     = "InvalidWindow"
	ViolationSlotNotAllowed    = "SlotNotAllowed"
	ViolationGroupIncompatible = "GroupIncompatible"
	ViolationTeacherConflict   = "TeacherConflict"
	ViolationRoomConflict      = "RoomConflict"
)

// ConflictRef 与候选课次冲突的已有课次
type ConflictRef struct {
	PlacementID string     `json:"placement_id"`
	DayOfWeek   int        `json:"day_of_week"`
	Window      TimeWindow `json:"window"`
	WeekNumber  int        `json:"week_number"`
	ClassID     string     `json:"class_id"`
	ClassName   string     `json:"class_name"`
}

// Violation 单条校验违规
type Violation struct {
	Kind     string       `json:"kind"`
	Message  string       `json:"message"`
	Conflict *ConflictRef `json:"conflict,omitempty"`
	Allowed  []TimeWindow `json:"allowed,omitempty"` // 仅 SlotNotAllowed 携带
}

// ValidationResult 校验结果
type ValidationResult struct {
	OK         bool        `json:"ok"`
	Violations []Violation `json:"violations"`
}

// Candidate 待校验的课次
type Candidate struct {
	TimetableID string
	ClassID     string
	DayOfWeek   int
	Window      TimeWindow
	WeekNumber  int
	TeacherID   *string
	RoomID      *string
	SubjectID   string
	ExcludeID   *string // 更新时排除自身
}

// ConflictDetector 课次冲突检测器
//
// 校验顺序：时段合法性、目录匹配、互斥组依次短路返回；
// 教师冲突与教室冲突全部累积后一并返回。
type ConflictDetector struct {
	placements repository.PlacementRepository
	catalog    *SlotCatalog
}

// NewConflictDetector 创建冲突检测器；事务内调用时传入事务仓储
func NewConflictDetector(placements repository.PlacementRepository, catalog *SlotCatalog) *ConflictDetector {
	return &ConflictDetector{placements: placements, catalog: catalog}
}

// Validate 校验候选课次
func (d *ConflictDetector) Validate(ctx context.Context, c Candidate) (*ValidationResult, error) {
	// 1. 时段自身合法
	if !c.Window.Valid() {
		return fail(Violation{
			Kind:    ViolationInvalidWindow,
			Message: fmt.Sprintf("结束时间必须晚于开始时间: %s", c.Window),
		}), nil
	}

	// 2. 必须是目录中的时段
	if !d.catalog.IsLegalWindow(c.DayOfWeek, c.Window) {
		return fail(Violation{
			Kind:    ViolationSlotNotAllowed,
			Message: fmt.Sprintf("时段 %s 不在可选时段内（星期 %d），可选: %s", c.Window, c.DayOfWeek, d.catalog.describe()),
			Allowed: d.catalog.Windows(),
		}), nil
	}

	// 3. 互斥组
	groups := d.catalog.GroupsOf(c.Window)
	if len(groups) > 0 && (c.TeacherID != nil || c.RoomID != nil) {
		sameSlot, err := d.placements.ListBySlot(ctx, repository.SlotQuery{
			DayOfWeek:  c.DayOfWeek,
			WeekNumber: c.WeekNumber,
			TeacherID:  c.TeacherID,
			RoomID:     c.RoomID,
			ExcludeID:  c.ExcludeID,
		})
		if err != nil {
			return nil, fmt.Errorf("查询同时段课次失败: %w", err)
		}
		if v := d.groupViolation(groups, c.Window, sameSlot); v != nil {
			return fail(*v), nil
		}
	}

	result := &ValidationResult{OK: true, Violations: []Violation{}}

	// 4. 教师冲突
	if c.TeacherID != nil {
		list, err := d.placements.ListBySlot(ctx, repository.SlotQuery{
			DayOfWeek:  c.DayOfWeek,
			WeekNumber: c.WeekNumber,
			TeacherID:  c.TeacherID,
			Start:      c.Window.Start,
			End:        c.Window.End,
			ExcludeID:  c.ExcludeID,
		})
		if err != nil {
			return nil, fmt.Errorf("查询教师冲突失败: %w", err)
		}
		for i := range list {
			ref := toConflictRef(&list[i])
			result.Violations = append(result.Violations, Violation{
				Kind: ViolationTeacherConflict,
				Message: fmt.Sprintf("教师在第 %d 周星期 %d %s 已有 %s 班的课次",
					ref.WeekNumber, ref.DayOfWeek, ref.Window, ref.ClassName),
				Conflict: ref,
			})
		}
	}

	// 5. 教室冲突
	if c.RoomID != nil {
		list, err := d.placements.ListBySlot(ctx, repository.SlotQuery{
			DayOfWeek:  c.DayOfWeek,
			WeekNumber: c.WeekNumber,
			RoomID:     c.RoomID,
			Start:      c.Window.Start,
			End:        c.Window.End,
			ExcludeID:  c.ExcludeID,
		})
		if err != nil {
			return nil, fmt.Errorf("查询教室冲突失败: %w", err)
		}
		for i := range list {
			ref := toConflictRef(&list[i])
			result.Violations = append(result.Violations, Violation{
				Kind: ViolationRoomConflict,
				Message: fmt.Sprintf("教室在第 %d 周星期 %d %s 已被 %s 班占用",
					ref.WeekNumber, ref.DayOfWeek, ref.Window, ref.ClassName),
				Conflict: ref,
			})
		}
	}

	result.OK = len(result.Violations) == 0
	return result, nil
}

// groupViolation 候选为长时段时不得与同组短时段共存，反之亦然
func (d *ConflictDetector) groupViolation(groups []SlotGroup, w TimeWindow, existing []model.Placement) *Violation {
	for _, g := range groups {
		for i := range existing {
			ew := TimeWindow{Start: existing[i].StartTime, End: existing[i].EndTime}
			if (g.IsLong(w) && g.IsShort(ew)) || (g.IsShort(w) && g.IsLong(ew)) {
				ref := toConflictRef(&existing[i])
				return &Violation{
					Kind: ViolationGroupIncompatible,
					Message: fmt.Sprintf("时段 %s 与同一教师或教室的 %s（%s 班）互斥",
						w, ew, ref.ClassName),
					Conflict: ref,
				}
			}
		}
	}
	return nil
}

func toConflictRef(p *model.Placement) *ConflictRef {
	return &ConflictRef{
		PlacementID: p.PlacementID,
		DayOfWeek:   p.DayOfWeek,
		Window:      TimeWindow{Start: p.StartTime, End: p.EndTime},
		WeekNumber:  p.WeekNumber,
		ClassID:     p.ClassID(),
		ClassName:   p.ClassName(),
	}
}

func fail(v Violation) *ValidationResult {
	return &ValidationResult{OK: false, Violations: []Violation{v}}
}
