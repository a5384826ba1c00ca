package pathfind

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type adj map[string][]string

func (a adj) neighbors(n string) []string { return a[n] }

func TestShortest(t *testing.T) {
	// a - b - c - d
	//     |       |
	//     e ----- f
	g := adj{
		"a": {"b"},
		"b": {"a", "c", "e"},
		"c": {"b", "d"},
		"d": {"c", "f"},
		"e": {"b", "f"},
		"f": {"e", "d"},
		"x": {},
	}

	tests := []struct {
		name    string
		start   string
		targets []string
		want    []string
		wantOK  bool
	}{
		{"direct neighbor", "a", []string{"b"}, []string{"a", "b"}, true},
		{"chain", "a", []string{"d"}, []string{"a", "b", "c", "d"}, true},
		{"nearest of two", "a", []string{"f", "c"}, []string{"a", "b", "c"}, true},
		{"start not a target", "a", []string{"a"}, nil, false},
		{"disconnected", "a", []string{"x"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets := map[string]bool{}
			for _, s := range tt.targets {
				targets[s] = true
			}
			got, ok := Shortest(tt.start, func(n string) bool { return targets[n] }, g.neighbors)
			if ok != tt.wantOK {
				t.Fatalf("Shortest() ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Shortest() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReachable(t *testing.T) {
	g := adj{
		"a": {"b"},
		"b": {"a", "c"},
		"c": {"b"},
		"d": {},
	}

	got := Reachable("a", g.neighbors)
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Errorf("Reachable() mismatch (-want +got):\n%s", diff)
	}

	if got := Reachable("d", g.neighbors); len(got) != 1 {
		t.Errorf("Reachable(d) = %v, want [d]", got)
	}
}
