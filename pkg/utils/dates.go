package utils

import "time"

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DueDate returns the due date of installment index (1-based) for a purchase
// made on baseDate by a customer paying on payDay of each month. The installment
// always lands in the index-th following month; a payDay past the end of that
// month is clamped to its last day.
func DueDate(baseDate time.Time, index, payDay int) time.Time {
	y, m, _ := baseDate.Date()
	month := time.Date(y, m+time.Month(index), 1, 0, 0, 0, 0, time.UTC)
	day := min(payDay, DaysInMonth(month.Year(), month.Month()))
	return time.Date(month.Year(), month.Month(), day, 0, 0, 0, 0, time.UTC)
}

// IsDateOverdue reports whether dueDate is strictly before today (date-only comparison).
func IsDateOverdue(dueDate, today time.Time) bool {
	return DateOnly(dueDate).Before(DateOnly(today))
}

// DaysOverdue returns whole days between dueDate and today, or 0 when not yet overdue.
func DaysOverdue(dueDate, today time.Time) int {
	if !IsDateOverdue(dueDate, today) {
		return 0
	}
	return int(DateOnly(today).Sub(DateOnly(dueDate)).Hours() / 24)
}
