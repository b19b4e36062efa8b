package chat

import (
	"fmt"
	"time"
)

// timeChunks are ordered largest first. Months and years use the calendar
// approximations common to human-relative formatting.
var timeChunks = []struct {
	seconds int64
	name    string
}{
	{60 * 60 * 24 * 365, "year"},
	{60 * 60 * 24 * 30, "month"},
	{60 * 60 * 24 * 7, "week"},
	{60 * 60 * 24, "day"},
	{60 * 60, "hour"},
	{60, "minute"},
}

// TimeSince formats the elapsed time between t and now as a human-relative
// string: "0 minutes", "2 hours", "1 day, 3 hours". The largest unit is
// shown, with the adjacent smaller unit appended when it is non-zero.
func TimeSince(t, now time.Time) string {
	seconds := int64(now.Sub(t).Seconds())
	if seconds < 60 {
		return "0 minutes"
	}

	for i, chunk := range timeChunks {
		count := seconds / chunk.seconds
		if count == 0 {
			continue
		}
		result := pluralize(count, chunk.name)
		if i+1 < len(timeChunks) {
			rest := (seconds - count*chunk.seconds) / timeChunks[i+1].seconds
			if rest > 0 {
				result += ", " + pluralize(rest, timeChunks[i+1].name)
			}
		}
		return result
	}

	return "0 minutes"
}

func pluralize(count int64, unit string) string {
	if count == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", count, unit)
}
