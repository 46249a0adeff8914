package slots

import "testing"

func TestWindowHours(t *testing.T) {
	tests := []struct {
		name     string
		window   Window
		expected int
		first    int
		last     int
	}{
		{name: "default business hours", window: Window{Start: 9, End: 18}, expected: 9, first: 9, last: 17},
		{name: "single hour", window: Window{Start: 12, End: 13}, expected: 1, first: 12, last: 12},
		{name: "full day", window: Window{Start: 0, End: 24}, expected: 24, first: 0, last: 23},
		{name: "empty window", window: Window{Start: 10, End: 10}, expected: 0},
		{name: "inverted window", window: Window{Start: 18, End: 9}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hours := tt.window.Hours()
			if len(hours) != tt.expected {
				t.Fatalf("expected %d hours, got %d", tt.expected, len(hours))
			}
			if tt.expected == 0 {
				return
			}
			if hours[0] != tt.first {
				t.Errorf("first hour: expected %d, got %d", tt.first, hours[0])
			}
			if hours[len(hours)-1] != tt.last {
				t.Errorf("last hour: expected %d, got %d", tt.last, hours[len(hours)-1])
			}
			for i := 1; i < len(hours); i++ {
				if hours[i] <= hours[i-1] {
					t.Errorf("hours not strictly increasing at index %d: %v", i, hours)
				}
			}
		})
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{Start: 9, End: 18}

	if !w.Contains(9) {
		t.Error("start hour should be inside the window")
	}
	if !w.Contains(17) {
		t.Error("last hour should be inside the window")
	}
	if w.Contains(18) {
		t.Error("end hour is exclusive")
	}
	if w.Contains(8) {
		t.Error("hour before start should be outside")
	}
}

func TestGenerate(t *testing.T) {
	w := Window{Start: 9, End: 18}
	generated := w.Generate("2026-09-01", 1)

	if len(generated) != 9 {
		t.Fatalf("expected 9 slots, got %d", len(generated))
	}

	seen := make(map[int]bool)
	for i, s := range generated {
		if s.Date != "2026-09-01" {
			t.Errorf("slot %d: unexpected date %s", i, s.Date)
		}
		if s.Capacity != 1 {
			t.Errorf("slot %d: unexpected capacity %d", i, s.Capacity)
		}
		if seen[s.Hour] {
			t.Errorf("duplicate hour %d", s.Hour)
		}
		seen[s.Hour] = true
	}

	// Determinism: two invocations produce identical output.
	again := w.Generate("2026-09-01", 1)
	if len(again) != len(generated) {
		t.Fatalf("non-deterministic slot count")
	}
	for i := range again {
		if again[i] != generated[i] {
			t.Errorf("slot %d differs between invocations", i)
		}
	}
}
