package utils

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var dayNames = map[time.Weekday]string{
	time.Sunday:    "Domingo",
	time.Monday:    "Lunes",
	time.Tuesday:   "Martes",
	time.Wednesday: "Miércoles",
	time.Thursday:  "Jueves",
	time.Friday:    "Viernes",
	time.Saturday:  "Sábado",
}

// dayLookup is keyed by the normalized (lowercase, no accents) day name.
var dayLookup = map[string]time.Weekday{
	"domingo":   time.Sunday,
	"lunes":     time.Monday,
	"martes":    time.Tuesday,
	"miercoles": time.Wednesday,
	"jueves":    time.Thursday,
	"viernes":   time.Friday,
	"sabado":    time.Saturday,
}

// GetDayName returns the Spanish day name from time.Weekday
func GetDayName(weekday time.Weekday) string {
	return dayNames[weekday]
}

// ParseWeekday accepts Spanish day names regardless of case and accents.
func ParseWeekday(s string) (time.Weekday, bool) {
	wd, ok := dayLookup[Normalize(s)]
	return wd, ok
}

// NormalizeTime turns "9:00" or "09:00" into "09:00".
func NormalizeTime(s string) (string, error) {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("hora inválida %q, use HH:MM", s)
	}
	return t.Format(TimeLayout), nil
}

// ParseSlotLabel splits a "Weekday HH:MM" label.
func ParseSlotLabel(label string) (time.Weekday, string, error) {
	parts := strings.Fields(label)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("formato de turno inválido %q, use 'Día HH:MM'", label)
	}
	wd, ok := ParseWeekday(parts[0])
	if !ok {
		return 0, "", fmt.Errorf("día inválido en el turno %q", label)
	}
	hhmm, err := NormalizeTime(parts[1])
	if err != nil {
		return 0, "", err
	}
	return wd, hhmm, nil
}

func SlotLabel(weekday time.Weekday, startTime string) string {
	return GetDayName(weekday) + " " + startTime
}

// DateOnly truncates t to its civil date at midnight UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("fecha inválida %q, use AAAA-MM-DD", s)
	}
	return t, nil
}

// WalkToWeekday returns the first date on or after from that falls on weekday.
func WalkToWeekday(from time.Time, weekday time.Weekday) time.Time {
	from = DateOnly(from)
	days := (int(weekday) - int(from.Weekday()) + 7) % 7
	return from.AddDate(0, 0, days)
}

// NextOccurrence returns the next date strictly after from falling on weekday.
// When from already is that weekday the result is one week later.
func NextOccurrence(from time.Time, weekday time.Weekday) time.Time {
	return WalkToWeekday(DateOnly(from).AddDate(0, 0, 1), weekday)
}

// PreviousOccurrence returns the most recent date on or before from falling on weekday.
func PreviousOccurrence(from time.Time, weekday time.Weekday) time.Time {
	from = DateOnly(from)
	days := (int(from.Weekday()) - int(weekday) + 7) % 7
	return from.AddDate(0, 0, -days)
}

// WeekStart returns the Monday of the week containing t.
func WeekStart(t time.Time) time.Time {
	return PreviousOccurrence(t, time.Monday)
}
