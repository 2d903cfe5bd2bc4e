package mess

import (
	"fmt"

	"hostelmess/internal/calendar"
)

// MealMarks is what the attendance grid shows for one student on one day.
type MealMarks struct {
	Morning bool `json:"morning"`
	Evening bool `json:"evening"`
}

// IndexKey identifies one student's day.
type IndexKey struct {
	StudentID string
	Date      calendar.Date
}

// Index maps (student, date) to the marks recorded for that day.
type Index map[IndexKey]MealMarks

// BuildIndex indexes records by student and date. When two records share a
// key the later one in input order wins.
func BuildIndex(records []AttendanceRecord) Index {
	idx := make(Index, len(records))
	for _, r := range records {
		idx[IndexKey{StudentID: r.StudentID, Date: r.Date}] = MealMarks{Morning: r.Morning, Evening: r.Evening}
	}
	return idx
}

// BuildIndexStrict is BuildIndex but fails on the first duplicate key.
func BuildIndexStrict(records []AttendanceRecord) (Index, error) {
	idx := make(Index, len(records))
	for _, r := range records {
		k := IndexKey{StudentID: r.StudentID, Date: r.Date}
		if _, dup := idx[k]; dup {
			return nil, fmt.Errorf("student %s on %s: %w", r.StudentID, r.Date, ErrDuplicateAttendanceRecord)
		}
		idx[k] = MealMarks{Morning: r.Morning, Evening: r.Evening}
	}
	return idx, nil
}

// Lookup returns the marks for a student's day; absent means nothing taken.
func (idx Index) Lookup(studentID string, d calendar.Date) MealMarks {
	return idx[IndexKey{StudentID: studentID, Date: d}]
}

// ForStudent returns one student's marks keyed by ISO date.
func (idx Index) ForStudent(studentID string) map[string]MealMarks {
	out := make(map[string]MealMarks)
	for k, v := range idx {
		if k.StudentID == studentID {
			out[k.Date.String()] = v
		}
	}
	return out
}
