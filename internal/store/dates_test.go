package store

import (
	"testing"
	"time"
)

func TestParseDueDateRelative(t *testing.T) {
	now := time.Date(2026, 8, 31, 15, 30, 0, 0, time.UTC) // a Monday

	cases := []struct {
		in   string
		want time.Time
	}{
		{"今天要交報告", time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)},
		{"明天要開會", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
		{"後天去看牙醫", time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)},
		{"remind me tomorrow", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
		{"day after tomorrow dentist", time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		got := ParseDueDate(tc.in, now)
		if got == nil {
			t.Errorf("ParseDueDate(%q) = nil, want %v", tc.in, tc.want)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("ParseDueDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseDueDateWeeks(t *testing.T) {
	now := time.Date(2026, 8, 31, 15, 30, 0, 0, time.UTC) // Monday

	thisWeek := ParseDueDate("這週要交作業", now)
	if thisWeek == nil || !thisWeek.Equal(time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("這週 should resolve to the coming Sunday, got %v", thisWeek)
	}

	nextWeek := ParseDueDate("下週出差", now)
	if nextWeek == nil || !nextWeek.Equal(time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("下週 should resolve to next Monday, got %v", nextWeek)
	}
}

func TestParseDueDateExplicit(t *testing.T) {
	now := time.Date(2026, 8, 31, 15, 30, 0, 0, time.UTC)

	got := ParseDueDate("12/25 聖誕聚餐", now)
	if got == nil || !got.Equal(time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("12/25 should resolve within this year, got %v", got)
	}

	got = ParseDueDate("3/1 回診", now)
	if got == nil || !got.Equal(time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("A past bare M/D should roll to next year, got %v", got)
	}

	got = ParseDueDate("meeting on 1/15/2027", now)
	if got == nil || !got.Equal(time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Explicit M/D/Y should be honored, got %v", got)
	}
}

func TestParseDueDateUnparseable(t *testing.T) {
	now := time.Date(2026, 8, 31, 15, 30, 0, 0, time.UTC)

	for _, in := range []string{"買牛奶", "sometime soon", "13/45 nonsense"} {
		if got := ParseDueDate(in, now); got != nil {
			t.Errorf("ParseDueDate(%q) = %v, want nil", in, got)
		}
	}
}
