package nlu

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Normalizers reject malformed values instead of guessing: a slot that fails
// normalization stays unset and the turn asks for clarification.

var (
	isoDatePattern   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashDatePattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	monthDayPattern  = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?\b`)
	dayMonthPattern  = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\b`)
	clockPattern     = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)
	meridiemPattern  = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)
	emailPattern     = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern     = regexp.MustCompile(`\+?\d[\d ().\-]{4,}\d`)
	nonDigitPattern  = regexp.MustCompile(`\D`)
)

var monthsByName = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var weekdaysByName = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// NormalizeDate turns a free-text date into YYYY-MM-DD. Relative words
// resolve against now so tests can pin the clock.
func NormalizeDate(raw string, now time.Time) (string, bool) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return "", false
	}

	switch text {
	case "today":
		return now.Format("2006-01-02"), true
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format("2006-01-02"), true
	}

	if day, ok := weekdaysByName[strings.TrimPrefix(text, "next ")]; ok {
		delta := (int(day) - int(now.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		return now.AddDate(0, 0, delta).Format("2006-01-02"), true
	}

	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		return buildDate(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]))
	}
	if m := monthDayPattern.FindStringSubmatch(text); m != nil {
		year := now.Year()
		if m[3] != "" {
			year = atoi(m[3])
		}
		return upcomingDate(year, monthsByName[m[1]], atoi(m[2]), m[3] == "", now)
	}
	if m := dayMonthPattern.FindStringSubmatch(text); m != nil {
		return upcomingDate(now.Year(), monthsByName[m[2]], atoi(m[1]), true, now)
	}
	if m := slashDatePattern.FindStringSubmatch(text); m != nil {
		year := now.Year()
		explicit := false
		if m[3] != "" {
			year = atoi(m[3])
			if year < 100 {
				year += 2000
			}
			explicit = true
		}
		return upcomingDate(year, time.Month(atoi(m[1])), atoi(m[2]), !explicit, now)
	}
	return "", false
}

func buildDate(year int, month time.Month, day int) (string, bool) {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (month 13, day 32); reject those.
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return "", false
	}
	return d.Format("2006-01-02"), true
}

// upcomingDate rolls a year-less date into next year once it has passed.
func upcomingDate(year int, month time.Month, day int, inferred bool, now time.Time) (string, bool) {
	out, ok := buildDate(year, month, day)
	if !ok {
		return "", false
	}
	if inferred {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if d, _ := time.Parse("2006-01-02", out); d.Before(today) {
			return buildDate(year+1, month, day)
		}
	}
	return out, true
}

// NormalizeTime turns a clock expression into 24-hour HH:MM.
func NormalizeTime(raw string) (string, bool) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return "", false
	}

	if m := clockPattern.FindStringSubmatch(text); m != nil {
		return buildTime(atoi(m[1]), atoi(m[2]), m[3])
	}
	if m := meridiemPattern.FindStringSubmatch(text); m != nil {
		return buildTime(atoi(m[1]), 0, m[2])
	}
	return "", false
}

func buildTime(hour, minute int, meridiem string) (string, bool) {
	if minute < 0 || minute > 59 {
		return "", false
	}
	switch meridiem {
	case "am":
		if hour < 1 || hour > 12 {
			return "", false
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return "", false
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour < 0 || hour > 23 {
			return "", false
		}
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

// NormalizePhone strips formatting and keeps digits only.
func NormalizePhone(raw string) (string, bool) {
	digits := nonDigitPattern.ReplaceAllString(raw, "")
	if len(digits) < 7 || len(digits) > 15 {
		return "", false
	}
	return digits, true
}

// NormalizeEmail lower-cases and checks the overall shape.
func NormalizeEmail(raw string) (string, bool) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if !emailPattern.MatchString(text) || strings.Count(text, "@") != 1 {
		return "", false
	}
	return text, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
