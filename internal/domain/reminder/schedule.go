package reminder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var startTimeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ParseStartTime validates and splits a strict 24h "HH:MM" string.
// Out-of-range or loosely formatted values ("7:30", "24:00") are
// rejected.
func ParseStartTime(s string) (hour, minute int, err error) {
	if !startTimeRe.MatchString(s) {
		return 0, 0, fmt.Errorf("invalid start time %q: want HH:MM in 24h form", s)
	}
	parts := strings.SplitN(s, ":", 2)
	hour, _ = strconv.Atoi(parts[0])
	minute, _ = strconv.Atoi(parts[1])
	return hour, minute, nil
}

// DoseTime is one daily dose slot on the civil clock.
type DoseTime struct {
	Hour   int
	Minute int
}

// DoseTimes spreads frequency doses over the day starting at the given
// clock time. The interval is 24/frequency hours applied to the hour
// only: each step floors the accumulated fractional hours and the
// minute never moves. Five doses from 00:00 land on hours 0, 4, 9, 14
// and 19.
func DoseTimes(startHour, startMinute, frequency int) []DoseTime {
	if frequency < 1 {
		return nil
	}

	interval := 24.0 / float64(frequency)
	times := make([]DoseTime, 0, frequency)
	for i := 0; i < frequency; i++ {
		hour := (startHour + int(float64(i)*interval)) % 24
		times = append(times, DoseTime{Hour: hour, Minute: startMinute})
	}
	return times
}

// DueAt reports whether the reminder has a dose at now's civil hour and
// minute. A reminder whose treatment window has elapsed is never due;
// the window is counted in whole 24h days from CreatedAt.
func (r Reminder) DueAt(now time.Time) bool {
	daysElapsed := int(now.Sub(r.CreatedAt).Hours() / 24)
	if daysElapsed >= r.DurationDays {
		return false
	}

	hour, minute, err := ParseStartTime(r.StartTime)
	if err != nil {
		return false
	}

	for _, dt := range DoseTimes(hour, minute, r.DailyFrequency) {
		if dt.Hour == now.Hour() && dt.Minute == now.Minute() {
			return true
		}
	}
	return false
}
