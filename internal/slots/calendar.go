package slots

// Window is a business-hours window [Start, End) at one-hour granularity.
type Window struct {
	Start int // first bookable hour, e.g. 9
	End   int // first non-bookable hour, e.g. 18
}

// Slot is a single bookable hour within a day.
type Slot struct {
	Date     string // YYYY-MM-DD
	Hour     int    // 0-23
	Capacity int
}

// Hours returns the ordered hours of the window. A degenerate window
// returns nil.
func (w Window) Hours() []int {
	if w.End <= w.Start {
		return nil
	}
	hours := make([]int, 0, w.End-w.Start)
	for h := w.Start; h < w.End; h++ {
		hours = append(hours, h)
	}
	return hours
}

// Contains reports whether the hour falls inside the window.
func (w Window) Contains(hour int) bool {
	return hour >= w.Start && hour < w.End
}

// Generate produces the canonical ordered slot list for one date.
// Pure and total: same output for the same inputs, no error conditions.
func (w Window) Generate(date string, capacity int) []Slot {
	hours := w.Hours()
	out := make([]Slot, 0, len(hours))
	for _, h := range hours {
		out = append(out, Slot{Date: date, Hour: h, Capacity: capacity})
	}
	return out
}
