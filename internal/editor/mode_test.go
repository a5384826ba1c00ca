package editor

import "testing"

func TestMode_AutoActivate(t *testing.T) {
	tests := []struct {
		mode  Mode
		ticks []int
		want  []bool
	}{
		{ModeCreate, []int{0, 9, 10, 11, 12, 13, 16}, []bool{false, false, true, false, false, true, true}},
		{ModeDelete, []int{0, 10, 13, 16, 22}, []bool{false, true, false, true, true}},
		{ModePosition, []int{0, 1, 2, 100}, []bool{true, true, true, true}},
		{ModeOrientation, []int{0, 7}, []bool{true, true}},
		{ModeDisabled, []int{0, 1, 10}, []bool{false, false, false}},
	}
	for _, tt := range tests {
		for i, tick := range tt.ticks {
			if got := tt.mode.AutoActivate(tick); got != tt.want[i] {
				t.Errorf("%s.AutoActivate(%d) = %v, want %v", tt.mode, tick, got, tt.want[i])
			}
		}
	}
}

func TestTiming_ZeroIntervalRepeatsEveryTick(t *testing.T) {
	tm := Timing{Delay: 2, Interval: 0}
	if tm.Activate(1) {
		t.Error("Activate(1) = true, want false")
	}
	for tick := 2; tick < 6; tick++ {
		if !tm.Activate(tick) {
			t.Errorf("Activate(%d) = false, want true", tick)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"CREATE", ModeCreate, true},
		{"delete", ModeDelete, true},
		{"Change Orientation", ModeOrientation, true},
		{" position ", ModePosition, true},
		{"bogus", ModeDisabled, false},
		{"", ModeDisabled, false},
	}
	for _, tt := range tests {
		got, ok := ParseMode(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseMode(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
