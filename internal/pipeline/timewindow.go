package pipeline

import (
	"time"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
)

// Zone is the civil calendar every time window and rendered timestamp uses.
var Zone = time.FixedZone("UTC+8", 8*60*60)

// Window is a closed interval of epoch seconds.
type Window struct {
	Start int64
	End   int64
}

// Contains reports whether ts lies in w, both ends included.
func (w Window) Contains(ts int64) bool {
	return ts >= w.Start && ts <= w.End
}

// ResolveWindow turns the time fields of q into a window relative to now.
// It reports false when no time filter applies.
func ResolveWindow(q domain.SearchQuery, now time.Time) (Window, bool) {
	local := now.In(Zone)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Zone)

	switch q.Time {
	case domain.TimeModeYesterday:
		start := today.AddDate(0, 0, -1)
		return Window{Start: start.Unix(), End: today.Unix() - 1}, true
	case domain.TimeModeToday:
		return Window{Start: today.Unix(), End: local.Unix()}, true
	case domain.TimeModeLastDays:
		n := q.N
		if n < 1 {
			n = 1
		}
		start := today.AddDate(0, 0, -(n - 1))
		return Window{Start: start.Unix(), End: local.Unix()}, true
	case domain.TimeModeRange:
		if q.Range == nil {
			return Window{}, false
		}
		return Window{Start: q.Range.Start, End: q.Range.End}, true
	}
	return Window{}, false
}

// FilterByTime keeps the records whose timestamp lies in w. Records without
// a timestamp are dropped.
func FilterByTime(records []domain.ContentRecord, w Window) []domain.ContentRecord {
	out := make([]domain.ContentRecord, 0, len(records))
	for _, r := range records {
		if r.Timestamp != nil && w.Contains(*r.Timestamp) {
			out = append(out, r)
		}
	}
	return out
}

// FormatTime renders an epoch timestamp in Zone. Nil renders empty.
func FormatTime(ts *int64) string {
	if ts == nil {
		return ""
	}
	return time.Unix(*ts, 0).In(Zone).Format(time.DateTime)
}
