package cases

import (
	"testing"
	"time"
)

func Test_CaseNumberAt_Format(t *testing.T) {
	n := caseNumberAt(time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC))
	if len(n) != 7 {
		t.Fatalf("want 7 chars, got %d: %q", len(n), n)
	}
	for _, r := range n {
		if r < '0' || r > '9' {
			t.Fatalf("non-digit in case number: %q", n)
		}
	}
}

func Test_CaseNumberAt_WeekAndMonth(t *testing.T) {
	cases := []struct {
		date time.Time
		want string // WWMM prefix
	}{
		// Mon 1 Jan 2024: day 1, weekday 1 -> ceil(2/7) = 1
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "0101"},
		// Sun 31 Mar 2024: day 31, weekday 0 -> ceil(31/7) = 5
		{time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), "0503"},
		// Sat 7 Dec 2024: day 7, weekday 6 -> ceil(13/7) = 2
		{time.Date(2024, 12, 7, 0, 0, 0, 0, time.UTC), "0212"},
		// Tue 15 Oct 2024: day 15, weekday 2 -> ceil(17/7) = 3
		{time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC), "0310"},
	}
	for _, tc := range cases {
		got := caseNumberAt(tc.date)[:4]
		if got != tc.want {
			t.Errorf("%s: want prefix %q, got %q", tc.date.Format("2006-01-02"), tc.want, got)
		}
	}
}

func Test_CaseNumberAt_SequenceRange(t *testing.T) {
	// The trailing sequence is always three digits, never starting with 0.
	now := time.Now()
	for i := 0; i < 200; i++ {
		n := caseNumberAt(now)
		if n[4] == '0' {
			t.Fatalf("sequence below 100: %q", n)
		}
	}
}
