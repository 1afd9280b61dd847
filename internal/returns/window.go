package returns

import "time"

// windowFormat is the timestamp layout OCC expects for date filters.
const windowFormat = "2006-01-02T15:04:05"

// Window is the lookback range for the returns-list query.
type Window struct {
	From string
	To   string
}

// NewWindow builds the lookback window ending at now. The end boundary is
// now itself, not now plus a day: the query filters on creation dates, which
// cannot lie in the future.
func NewWindow(now time.Time, lookbackDays int) Window {
	return Window{
		From: now.AddDate(0, 0, -lookbackDays).Format(windowFormat),
		To:   now.Format(windowFormat),
	}
}
