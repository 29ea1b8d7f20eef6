package service

import (
	"errors"
	"testing"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"07:30", 450, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{"7:30", 0, true},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidClock) {
				t.Errorf("ParseClock(%q) 期望 ErrInvalidClock，实际: %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseClock(%q) = %d, %v；期望 %d", tt.in, got, err, tt.want)
		}
	}
}

func TestOverlaps_TouchingEndpointsDoNotOverlap(t *testing.T) {
	a := TimeWindow{Start: "07:30", End: "09:30"}
	b := TimeWindow{Start: "09:30", End: "11:45"}
	if Overlaps(a, b) || Overlaps(b, a) {
		t.Error("端点相接不应视为重叠")
	}

	c := TimeWindow{Start: "09:00", End: "10:00"}
	if !Overlaps(a, c) || !Overlaps(c, a) {
		t.Error("部分相交应视为重叠")
	}
}

func TestTimeWindow_Valid(t *testing.T) {
	if !(TimeWindow{Start: "07:30", End: "09:30"}).Valid() {
		t.Error("07:30-09:30 应合法")
	}
	if (TimeWindow{Start: "09:30", End: "09:30"}).Valid() {
		t.Error("起止相同应不合法")
	}
	if (TimeWindow{Start: "11:00", End: "09:30"}).Valid() {
		t.Error("结束早于开始应不合法")
	}
}

func TestDefaultSlotCatalog_Groups(t *testing.T) {
	c := DefaultSlotCatalog()

	if got := len(c.Windows()); got != 6 {
		t.Fatalf("期望 6 个时段，实际 %d", got)
	}
	groups := c.Groups()
	if len(groups) != 2 {
		t.Fatalf("期望 2 个互斥组，实际 %d", len(groups))
	}

	morning := groups[0]
	if morning.Long != (TimeWindow{Start: "07:30", End: "11:45"}) {
		t.Errorf("上午长时段错误: %s", morning.Long)
	}
	if len(morning.Shorts) != 2 ||
		morning.Shorts[0] != (TimeWindow{Start: "07:30", End: "09:30"}) ||
		morning.Shorts[1] != (TimeWindow{Start: "09:45", End: "11:45"}) {
		t.Errorf("上午短时段错误: %v", morning.Shorts)
	}
}

func TestSlotCatalog_IsLegalWindow(t *testing.T) {
	c := DefaultSlotCatalog()
	tests := []struct {
		name string
		day  int
		w    TimeWindow
		want bool
	}{
		{"周一长时段", 1, TimeWindow{Start: "07:30", End: "11:45"}, true},
		{"周六短时段", 6, TimeWindow{Start: "16:15", End: "18:15"}, true},
		{"周日不排课", 0, TimeWindow{Start: "07:30", End: "09:30"}, false},
		{"星期越界", 7, TimeWindow{Start: "07:30", End: "09:30"}, false},
		{"不在目录中", 2, TimeWindow{Start: "08:00", End: "10:00"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsLegalWindow(tt.day, tt.w); got != tt.want {
				t.Errorf("IsLegalWindow(%d, %s) = %v，期望 %v", tt.day, tt.w, got, tt.want)
			}
		})
	}
}

func TestSlotCatalog_FindIncompatibleGroup(t *testing.T) {
	c := DefaultSlotCatalog()

	g, ok := c.FindIncompatibleGroup(TimeWindow{Start: "14:00", End: "16:00"})
	if !ok {
		t.Fatal("下午短时段应属于某个互斥组")
	}
	if g.Long != (TimeWindow{Start: "14:00", End: "18:15"}) {
		t.Errorf("期望下午长时段，实际 %s", g.Long)
	}

	if _, ok := c.FindIncompatibleGroup(TimeWindow{Start: "12:00", End: "13:00"}); ok {
		t.Error("目录外时段不应属于任何互斥组")
	}
}

func TestNewSlotCatalog_GapBreaksGroup(t *testing.T) {
	// 两个短时段未覆盖到长时段的结束时间，不构成互斥组
	c, err := NewSlotCatalog([]TimeWindow{
		{Start: "08:00", End: "12:00"},
		{Start: "08:00", End: "09:00"},
		{Start: "09:00", End: "11:00"},
	})
	if err != nil {
		t.Fatalf("NewSlotCatalog 应成功: %v", err)
	}
	if len(c.Groups()) != 0 {
		t.Errorf("期望无互斥组，实际 %v", c.Groups())
	}
}

func TestNewSlotCatalog_RejectsInvalidWindow(t *testing.T) {
	_, err := NewSlotCatalog([]TimeWindow{{Start: "10:00", End: "09:00"}})
	if !errors.Is(err, ErrInvalidClock) {
		t.Errorf("期望 ErrInvalidClock，实际: %v", err)
	}
}
