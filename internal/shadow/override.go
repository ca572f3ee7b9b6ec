package shadow

import (
	"math"
	"strconv"
	"strings"
)

// Shortcut is a preset override duration.
type Shortcut struct {
	Key     string
	Label   string
	Minutes int
	// After and Until bound the minutes-left window, (After, Until], in
	// which the shortcut is shown as active.
	After  float64
	Until  float64
	Cancel bool
}

// CancelMinutes sets the override expiry one minute in the past.
const CancelMinutes = -1

// Shortcuts lists the override presets in display order.
var Shortcuts = []Shortcut{
	{Key: "30m", Label: "30 min", Minutes: 30, After: 0, Until: 30},
	{Key: "1h", Label: "1 hr", Minutes: 60, After: 30, Until: 60},
	{Key: "2h", Label: "2 hrs", Minutes: 120, After: 60, Until: 120},
	{Key: "4h", Label: "4 hrs", Minutes: 240, After: 120, Until: 240},
	{Key: "cancel", Label: "Cancel", Minutes: CancelMinutes, Cancel: true},
}

// MinutesLeft is the fractional number of minutes between now and expiry.
func MinutesLeft(now, expiry int64) float64 {
	return float64(expiry-now) / 60
}

// ShortcutActive reports whether the minutes left until expiry fall in
// (lower, upper].
func ShortcutActive(now, expiry int64, lower, upper float64) bool {
	left := MinutesLeft(now, expiry)
	return left > lower && left <= upper
}

// Expiry is the override_ex value for an override of the given length.
func Expiry(now int64, minutes int) int64 {
	return now + int64(minutes)*60
}

// Active reports whether the shortcut matches the remaining override time.
// Cancel is never active.
func (s Shortcut) Active(now, expiry int64) bool {
	if s.Cancel {
		return false
	}
	return ShortcutActive(now, expiry, s.After, s.Until)
}

// LookupShortcut finds a shortcut by key or label, case-insensitively.
func LookupShortcut(name string) (Shortcut, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range Shortcuts {
		if name == s.Key || name == strings.ToLower(s.Label) {
			return s, true
		}
	}
	return Shortcut{}, false
}

// FormatTemperature renders a temperature with one decimal place, rounding
// like a browser's toFixed(1): exact ties (x.25, x.75) go away from zero,
// everything else to the nearest tenth of its binary value.
func FormatTemperature(value float64) string {
	abs := math.Abs(value)
	if frac := abs - math.Floor(abs); frac == 0.25 || frac == 0.75 {
		return strconv.FormatFloat(math.Copysign(math.Floor(abs*10+0.5)/10, value), 'f', 1, 64)
	}
	return strconv.FormatFloat(value, 'f', 1, 64)
}
