package service

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidClock 时间格式不是 HH:MM
var ErrInvalidClock = errors.New("时间格式必须为 HH:MM")

// ParseClock 将 "HH:MM" 解析为当天分钟数
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrInvalidClock
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || h < 0 || h > 23 {
		return 0, ErrInvalidClock
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || m < 0 || m > 59 {
		return 0, ErrInvalidClock
	}
	return h*60 + m, nil
}

// TimeWindow 当天的起止时间段，Start/End 为补零的 "HH:MM"
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (w TimeWindow) String() string {
	return w.Start + "-" + w.End
}

// Valid 两端格式正确且 End 晚于 Start
func (w TimeWindow) Valid() bool {
	start, err := ParseClock(w.Start)
	if err != nil {
		return false
	}
	end, err := ParseClock(w.End)
	if err != nil {
		return false
	}
	return end > start
}

// contains w 完整落在 other 之内
func (w TimeWindow) contains(other TimeWindow) bool {
	return w.Start <= other.Start && other.End <= w.End
}

// Overlaps 严格重叠：a.Start < b.End 且 a.End > b.Start，端点相接不算重叠。
// "HH:MM" 补零格式下字典序与时间先后一致，与仓储层 SQL 条件完全相同。
func Overlaps(a, b TimeWindow) bool {
	return a.Start < b.End && a.End > b.Start
}

// SlotGroup 互斥组：长时段与其拆分出的短时段不能被同一教师或教室同时占用
type SlotGroup struct {
	Long   TimeWindow   `json:"long"`
	Shorts []TimeWindow `json:"shorts"`
}

// IsLong window 是否为该组的长时段
func (g SlotGroup) IsLong(w TimeWindow) bool {
	return g.Long == w
}

// IsShort window 是否为该组的某个短时段
func (g SlotGroup) IsShort(w TimeWindow) bool {
	for _, s := range g.Shorts {
		if s == w {
			return true
		}
	}
	return false
}

// SlotCatalog 固定时段目录，周一至周六相同
type SlotCatalog struct {
	windows []TimeWindow
	groups  []SlotGroup
}

// DefaultWindows 上午、下午各一个长时段及其两个短时段
func DefaultWindows() []TimeWindow {
	return []TimeWindow{
		{Start: "07:30", End: "11:45"},
		{Start: "07:30", End: "09:30"},
		{Start: "09:45", End: "11:45"},
		{Start: "14:00", End: "18:15"},
		{Start: "14:00", End: "16:00"},
		{Start: "16:15", End: "18:15"},
	}
}

// NewSlotCatalog 根据时段列表构建目录并推导互斥组
func NewSlotCatalog(windows []TimeWindow) (*SlotCatalog, error) {
	seen := make(map[TimeWindow]bool, len(windows))
	list := make([]TimeWindow, 0, len(windows))
	for _, w := range windows {
		if !w.Valid() {
			return nil, fmt.Errorf("时段 %s 无效: %w", w, ErrInvalidClock)
		}
		if seen[w] {
			continue
		}
		seen[w] = true
		list = append(list, w)
	}
	return &SlotCatalog{windows: list, groups: deriveGroups(list)}, nil
}

// DefaultSlotCatalog 返回默认目录
func DefaultSlotCatalog() *SlotCatalog {
	c, err := NewSlotCatalog(DefaultWindows())
	if err != nil {
		panic(err)
	}
	return c
}

// deriveGroups 对每个时段 L，收集严格位于其内的时段；
// 当它们至少两个、两两不重叠、首个从 L.Start 开始且末个在 L.End 结束时构成一组（允许课间休息）。
func deriveGroups(windows []TimeWindow) []SlotGroup {
	var groups []SlotGroup
	for _, long := range windows {
		var inner []TimeWindow
		for _, w := range windows {
			if w != long && long.contains(w) {
				inner = append(inner, w)
			}
		}
		if len(inner) < 2 {
			continue
		}
		sort.Slice(inner, func(i, j int) bool { return inner[i].Start < inner[j].Start })

		ok := inner[0].Start == long.Start && inner[len(inner)-1].End == long.End
		for i := 1; ok && i < len(inner); i++ {
			if inner[i].Start < inner[i-1].End {
				ok = false
			}
		}
		if ok {
			groups = append(groups, SlotGroup{Long: long, Shorts: inner})
		}
	}
	return groups
}

// Windows 返回目录副本
func (c *SlotCatalog) Windows() []TimeWindow {
	out := make([]TimeWindow, len(c.windows))
	copy(out, c.windows)
	return out
}

// Groups 返回互斥组副本
func (c *SlotCatalog) Groups() []SlotGroup {
	out := make([]SlotGroup, len(c.groups))
	copy(out, c.groups)
	return out
}

// IsSchedulableDay 仅周一(1)至周六(6)排课
func IsSchedulableDay(weekday int) bool {
	return weekday >= 1 && weekday <= 6
}

// IsLegalWindow 时段必须与目录中的某一项完全一致
func (c *SlotCatalog) IsLegalWindow(weekday int, w TimeWindow) bool {
	if !IsSchedulableDay(weekday) {
		return false
	}
	for _, cw := range c.windows {
		if cw == w {
			return true
		}
	}
	return false
}

// FindIncompatibleGroup 查找以 w 为长时段或短时段的互斥组
func (c *SlotCatalog) FindIncompatibleGroup(w TimeWindow) (SlotGroup, bool) {
	for _, g := range c.groups {
		if g.IsLong(w) || g.IsShort(w) {
			return g, true
		}
	}
	return SlotGroup{}, false
}

// GroupsOf 返回包含 w 的全部互斥组（目录扩展后一个时段可能同时是某组的长时段与另一组的短时段）
func (c *SlotCatalog) GroupsOf(w TimeWindow) []SlotGroup {
	var out []SlotGroup
	for _, g := range c.groups {
		if g.IsLong(w) || g.IsShort(w) {
			out = append(out, g)
		}
	}
	return out
}

// describe 目录的可读形式，用于违规提示
func (c *SlotCatalog) describe() string {
	parts := make([]string, 0, len(c.windows))
	for _, w := range c.windows {
		parts = append(parts, w.String())
	}
	return strings.Join(parts, ", ")
}
