package scope

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Interval names accepted by the admin thread list.
const (
	IntervalAllDates  = "all_dates"
	IntervalToday     = "today"
	IntervalThisWeek  = "this_week"
	IntervalThisMonth = "this_month"
)

// Sort modes for thread lists.
const (
	SortActivity   = ""
	SortThreadDate = "thread_date"
)

var ErrUnknownInterval = errors.New("unknown interval")

const lastComment = "(SELECT MAX(c.created_at) FROM comments c WHERE c.thread_id = threads.id)"

// ByActivity orders threads by their most recent comment, newest first.
// Threads without comments come last, newest thread first.
func ByActivity(q *gorm.DB) *gorm.DB {
	return q.Order(lastComment + " IS NULL").
		Order(lastComment + " DESC").
		Order("threads.created_at DESC").
		Order("threads.id DESC")
}

func ByThreadDate(q *gorm.DB) *gorm.DB {
	return q.Order("threads.created_at DESC").Order("threads.id DESC")
}

// Sorted applies the named sort mode; unknown modes fall back to activity.
func Sorted(q *gorm.DB, sortBy string) *gorm.DB {
	if sortBy == SortThreadDate {
		return ByThreadDate(q)
	}
	return ByActivity(q)
}

// Since returns the start of the named interval in now's location.
// The second value is false when no filter applies.
func Since(interval string, now time.Time) (time.Time, bool, error) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch interval {
	case "", IntervalAllDates:
		return time.Time{}, false, nil
	case IntervalToday:
		return today, true, nil
	case IntervalThisWeek:
		// weeks start on Monday
		offset := (int(today.Weekday()) + 6) % 7
		return today.AddDate(0, 0, -offset), true, nil
	case IntervalThisMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location()), true, nil
	default:
		return time.Time{}, false, ErrUnknownInterval
	}
}

// CreatedSince filters threads created at or after the interval start.
func CreatedSince(q *gorm.DB, interval string, now time.Time) (*gorm.DB, error) {
	since, ok, err := Since(interval, now)
	if err != nil {
		return nil, err
	}
	if ok {
		q = q.Where("threads.created_at >= ?", since)
	}
	return q, nil
}
