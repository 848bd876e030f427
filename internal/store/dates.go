package store

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// relativeDays maps date phrases to day offsets from today
var relativeDays = map[string]int{
	"今天": 0, "今日": 0, "today": 0,
	"明天": 1, "明日": 1, "tomorrow": 1,
	"後天": 2, "后天": 2, "day after tomorrow": 2,
}

var weekPhrases = []struct {
	phrase string
	next   bool
}{
	{"下週", true}, {"下周", true}, {"next week", true},
	{"這週", false}, {"这周", false}, {"這周", false}, {"this week", false},
}

// explicit M/D or M/D/Y ("8/31", "12/25/2026")
var explicitDate = regexp.MustCompile(`(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?`)

// ParseDueDate extracts a due date from free-text to-do content, best-effort.
// Returns nil when no date phrase is recognized. Relative phrases resolve
// against now's calendar day; "this week" means the coming Sunday and "next
// week" the Monday after it.
func ParseDueDate(content string, now time.Time) *time.Time {
	text := strings.ToLower(content)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// Longest phrase wins so 明天 inside "day after tomorrow"-style composites
	// cannot shadow the fuller match
	bestLen := -1
	bestOffset := 0
	for phrase, offset := range relativeDays {
		if strings.Contains(text, phrase) && len(phrase) > bestLen {
			bestLen = len(phrase)
			bestOffset = offset
		}
	}
	if bestLen >= 0 {
		d := today.AddDate(0, 0, bestOffset)
		return &d
	}

	for _, wp := range weekPhrases {
		if strings.Contains(text, wp.phrase) {
			d := endOfWeek(today)
			if wp.next {
				d = d.AddDate(0, 0, 1) // Monday after the coming Sunday
			}
			return &d
		}
	}

	if m := explicitDate.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year := now.Year()
		if m[3] != "" {
			y, _ := strconv.Atoi(m[3])
			if y < 100 {
				y += 2000
			}
			year = y
		}
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
			// A bare M/D already past this year means next year
			if m[3] == "" && d.Before(today) {
				d = d.AddDate(1, 0, 0)
			}
			return &d
		}
	}

	return nil
}

// endOfWeek returns the coming Sunday (or today when today is Sunday)
func endOfWeek(today time.Time) time.Time {
	days := (7 - int(today.Weekday())) % 7
	return today.AddDate(0, 0, days)
}
