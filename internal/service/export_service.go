package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Dountche/esi-edt-backend/config"
	"github.com/Dountche/esi-edt-backend/internal/model"
	"github.com/Dountche/esi-edt-backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

const icsProductID = "-//ESI//Emploi du temps//FR"

// ExportService 导出业务接口
//
// Excel 以 bytes.Buffer 返回，由 Handler 层设置响应头后写入 Response；
// iCalendar 以字符串返回。
type ExportService interface {
	// TimetableExcel 导出课表为 Excel 网格
	TimetableExcel(ctx context.Context, scope Scope, timetableID string) (*bytes.Buffer, string, error)
	// TimetableICS 导出课表为 iCalendar
	TimetableICS(ctx context.Context, scope Scope, timetableID string) (string, string, error)
	// TeacherICS 导出教师在某学期的全部课次为 iCalendar
	TeacherICS(ctx context.Context, scope Scope, teacherID, semesterID string) (string, string, error)
}

type exportService struct {
	repo    *repository.Repository
	catalog *SlotCatalog
	cfg     config.TimetableConfig
	logger  *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, catalog *SlotCatalog, cfg config.TimetableConfig, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, catalog: catalog, cfg: cfg, logger: logger}
}

var dayNames = map[int]string{1: "周一", 2: "周二", 3: "周三", 4: "周四", 5: "周五", 6: "周六"}

// ═══════════════════════════════════════════════════════════
// TimetableExcel — 导出课表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 行：星期 × 半天（上午 / 下午）
//   - 列：星期 | 半天 | 时间 | S01 … Sn
//   - 单元格：课程 / 教师 / 教室，已取消的课次加 [取消] 前缀
//   - 班级固定周课所在的半天，时间列显示固定周课时段

func (s *exportService) TimetableExcel(ctx context.Context, scope Scope, timetableID string) (*bytes.Buffer, string, error) {
	tt, placements, err := s.loadTimetable(ctx, scope, timetableID)
	if err != nil {
		return nil, "", err
	}

	halves := s.halfDays()
	// "week:day:half" → 单元格文本行
	cells := make(map[string][]string)
	for i := range placements {
		p := &placements[i]
		half := halfOf(halves, p.StartTime)
		key := fmt.Sprintf("%d:%d:%d", p.WeekNumber, p.DayOfWeek, half)
		cells[key] = append(cells[key], placementLabel(p))
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "课表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	weeks := s.cfg.WeekCount
	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "B", 8)
	f.SetColWidth(sheetName, "C", "C", 14)
	f.SetColWidth(sheetName, colName(3), colName(2+weeks), 24)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	bodyStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})

	title := timetableTitle(tt)
	f.SetCellValue(sheetName, "A1", title)
	f.MergeCell(sheetName, "A1", cell(colName(2+weeks), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	row := 2
	f.SetCellValue(sheetName, cell("A", row), "星期")
	f.SetCellValue(sheetName, cell("B", row), "半天")
	f.SetCellValue(sheetName, cell("C", row), "时间")
	for w := 1; w <= weeks; w++ {
		f.SetCellValue(sheetName, cell(colName(2+w), row), fmt.Sprintf("S%02d", w))
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(colName(2+weeks), row), headerStyle)

	row = 3
	for day := 1; day <= 6; day++ {
		for half, window := range halves {
			f.SetCellValue(sheetName, cell("A", row), dayNames[day])
			f.SetCellValue(sheetName, cell("B", row), halfName(half))
			f.SetCellValue(sheetName, cell("C", row), s.hoursFor(tt.Class, day, half, halves, window))

			for w := 1; w <= weeks; w++ {
				text := "-"
				if lines, ok := cells[fmt.Sprintf("%d:%d:%d", w, day, half)]; ok {
					text = strings.Join(lines, "\n")
				}
				f.SetCellValue(sheetName, cell(colName(2+w), row), text)
			}
			row++
		}
	}
	f.SetCellStyle(sheetName, "A3", cell(colName(2+weeks), row-1), bodyStyle)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("timetable_id", timetableID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("%s.xlsx", title), nil
}

// ═══════════════════════════════════════════════════════════
// iCalendar 导出
// ═══════════════════════════════════════════════════════════
//
// 课次日期 = 学期起始周周一 + (周次-1)·7 天，再对齐到星期几；
// 已取消课次输出 STATUS:CANCELLED。

func (s *exportService) TimetableICS(ctx context.Context, scope Scope, timetableID string) (string, string, error) {
	tt, placements, err := s.loadTimetable(ctx, scope, timetableID)
	if err != nil {
		return "", "", err
	}
	if tt.Semester == nil {
		if tt.Semester, err = s.loadSemester(ctx, tt.SemesterID); err != nil {
			return "", "", err
		}
	}

	title := timetableTitle(tt)
	return buildCalendar(title, tt.Semester, placements), title + ".ics", nil
}

// TeacherICS 教师只能导出本人课次
func (s *exportService) TeacherICS(ctx context.Context, scope Scope, teacherID, semesterID string) (string, string, error) {
	if scope.IsTeacher() && scope.UserID != teacherID {
		return "", "", ErrForbidden
	}
	if scope.IsStudent() {
		return "", "", ErrForbidden
	}

	teacher, err := s.repo.User.GetByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", ErrUserNotFound
		}
		return "", "", err
	}
	semester, err := s.loadSemester(ctx, semesterID)
	if err != nil {
		return "", "", err
	}

	placements, err := s.repo.Placement.ListByTeacher(ctx, teacherID, semesterID)
	if err != nil {
		s.logger.Error("查询教师课次失败", zap.String("teacher_id", teacherID), zap.Error(err))
		return "", "", err
	}

	title := fmt.Sprintf("%s_%s", teacher.Name, semester.Name)
	return buildCalendar(title, semester, placements), title + ".ics", nil
}

func buildCalendar(name string, semester *model.Semester, placements []model.Placement) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName(name)

	stamp := time.Now()
	for i := range placements {
		p := &placements[i]
		day := semester.DateOf(p.WeekNumber, p.DayOfWeek)
		start, err := atClock(day, p.StartTime)
		if err != nil {
			continue
		}
		end, err := atClock(day, p.EndTime)
		if err != nil {
			continue
		}

		evt := cal.AddEvent(p.PlacementID + "@esi-edt")
		evt.SetDtStampTime(stamp)
		evt.SetStartAt(start)
		evt.SetEndAt(end)
		evt.SetSummary(eventSummary(p))
		if p.Room != nil {
			evt.SetLocation(p.Room.Name)
		}
		if desc := eventDescription(p); desc != "" {
			evt.SetDescription(desc)
		}
		if p.Cancelled {
			evt.SetStatus(ics.ObjectStatusCancelled)
		} else {
			evt.SetStatus(ics.ObjectStatusConfirmed)
		}
	}
	return cal.Serialize()
}

// ── 内部辅助方法 ──

// loadTimetable 读取课表与课次并校验可见性
func (s *exportService) loadTimetable(ctx context.Context, scope Scope, id string) (*model.Timetable, []model.Placement, error) {
	tt, err := s.repo.Timetable.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrTimetableNotFound
		}
		s.logger.Error("查询课表失败", zap.String("id", id), zap.Error(err))
		return nil, nil, err
	}
	if !canViewTimetable(scope, tt) {
		return nil, nil, ErrForbidden
	}

	placements, err := s.repo.Placement.ListByTimetable(ctx, id)
	if err != nil {
		s.logger.Error("查询课次失败", zap.String("timetable_id", id), zap.Error(err))
		return nil, nil, err
	}
	for i := range placements {
		placements[i].Timetable = tt
	}
	sort.SliceStable(placements, func(i, j int) bool {
		return placements[i].StartTime < placements[j].StartTime
	})
	return tt, placements, nil
}

func (s *exportService) loadSemester(ctx context.Context, id string) (*model.Semester, error) {
	semester, err := s.repo.Semester.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		return nil, err
	}
	return semester, nil
}

// halfDays 目录中的长时段即上午与下午
func (s *exportService) halfDays() []TimeWindow {
	var halves []TimeWindow
	for _, g := range s.catalog.Groups() {
		halves = append(halves, g.Long)
	}
	sort.Slice(halves, func(i, j int) bool { return halves[i].Start < halves[j].Start })
	return halves
}

// hoursFor 班级固定周课落在该半天时，以固定周课时段代替半天时段
func (s *exportService) hoursFor(class *model.Class, day, half int, halves []TimeWindow, window TimeWindow) string {
	if class != nil && class.HasRecurringSlot() && *class.RecurringDay == day &&
		halfOf(halves, *class.RecurringStart) == half {
		return *class.RecurringStart + "-" + *class.RecurringEnd
	}
	return window.Start + "-" + window.End
}

// halfOf 返回开始时间所在的半天序号，落在两个半天之间时归入后一个
func halfOf(halves []TimeWindow, start string) int {
	for i := len(halves) - 1; i > 0; i-- {
		if start >= halves[i].Start {
			return i
		}
	}
	return 0
}

func halfName(half int) string {
	if half == 0 {
		return "上午"
	}
	return "下午"
}

func placementLabel(p *model.Placement) string {
	parts := []string{"?", "-", "-"}
	if p.Subject != nil {
		parts[0] = p.Subject.Name
	}
	if p.Teacher != nil {
		parts[1] = p.Teacher.Name
	}
	if p.Room != nil {
		parts[2] = p.Room.Name
	}
	label := strings.Join(parts, " / ")
	if p.Cancelled {
		label = "[取消] " + label
	}
	return label
}

func eventSummary(p *model.Placement) string {
	summary := "课次"
	if p.Subject != nil {
		summary = p.Subject.Name
	}
	if name := p.ClassName(); name != "" {
		summary += " - " + name
	}
	return summary
}

func eventDescription(p *model.Placement) string {
	var lines []string
	if p.Teacher != nil {
		lines = append(lines, "教师: "+p.Teacher.Name)
	}
	lines = append(lines, "类型: "+p.Kind, fmt.Sprintf("周次: S%02d", p.WeekNumber))
	return strings.Join(lines, "\n")
}

func timetableTitle(tt *model.Timetable) string {
	className, semesterName := tt.ClassID, tt.SemesterID
	if tt.Class != nil {
		className = tt.Class.Name
	}
	if tt.Semester != nil {
		semesterName = tt.Semester.Name
	}
	return fmt.Sprintf("课表_%s_%s", className, semesterName)
}

func atClock(day time.Time, clock string) (time.Time, error) {
	minutes, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, time.Local), nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
