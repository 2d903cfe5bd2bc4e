package mess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostelmess/internal/calendar"
)

var d = calendar.MustParse

func newStudent(id string, status Status, start, end string) Student {
	return Student{
		ID:            id,
		Name:          "Student " + id,
		RollNumber:    "R-" + id,
		MessStartDate: d(start),
		MessEndDate:   d(end),
		Status:        status,
	}
}

func TestEvaluate(t *testing.T) {
	today := d("2024-03-10")
	tests := []struct {
		name      string
		end       calendar.Date
		want      SubscriptionStatus
		wantLabel string
	}{
		{name: "expires today", end: today, want: SubscriptionExpiringSoon, wantLabel: "Expires in 0 day(s)"},
		{name: "expired yesterday", end: today.AddDays(-1), want: SubscriptionExpired, wantLabel: "Expired on 09/03/2024"},
		{name: "seven days out", end: today.AddDays(7), want: SubscriptionExpiringSoon, wantLabel: "Expires in 7 day(s)"},
		{name: "eight days out", end: today.AddDays(8), want: SubscriptionActive, wantLabel: "Expires on 18/03/2024"},
		{name: "no end date", end: calendar.Date{}, want: SubscriptionActive, wantLabel: "Active"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(today, tt.end)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, tt.wantLabel, got.Label)
		})
	}
}

func TestEvaluateBoundariesAcrossYear(t *testing.T) {
	for _, end := range []string{"2023-12-31", "2024-01-01", "2024-02-29", "2024-12-31"} {
		e := d(end)
		assert.Equal(t, SubscriptionExpiringSoon, Evaluate(e, e).Status, end)
		assert.Equal(t, SubscriptionExpired, Evaluate(e.AddDays(1), e).Status, end)
		assert.Equal(t, SubscriptionExpiringSoon, Evaluate(e.AddDays(-7), e).Status, end)
		assert.Equal(t, SubscriptionActive, Evaluate(e.AddDays(-8), e).Status, end)
	}
}

func TestSuggestedRenewal(t *testing.T) {
	today := d("2024-03-10")
	assert.Equal(t, d("2024-04-19"), SuggestedRenewal(today, d("2024-03-20")))
	assert.Equal(t, d("2024-04-09"), SuggestedRenewal(today, d("2024-02-01")))
}

func TestComputeLedgerLeaveExcluded(t *testing.T) {
	s := newStudent("s1", StatusOnLeave, "2024-01-01", "2024-01-10")
	s.LeaveStartDate = d("2024-01-05")
	s.LeaveEndDate = d("2024-01-06")

	l, err := ComputeLedger(s, nil, d("2024-02-01"))
	require.NoError(t, err)
	assert.Equal(t, 8, l.EligibleDays)
	assert.Equal(t, 16, l.TotalAllotted)
	assert.Equal(t, 16, l.Remaining)
}

func TestComputeLedgerPastLeaves(t *testing.T) {
	s := newStudent("s1", StatusActive, "2024-01-01", "2024-01-10")
	past := []LeavePeriod{
		{Start: d("2024-01-02"), End: d("2024-01-03")},
		{Start: d("2024-01-03"), End: d("2024-01-04")}, // overlapping days count once
	}
	l, err := ComputeLedger(s, nil, d("2024-01-31"), past...)
	require.NoError(t, err)
	assert.Equal(t, 7, l.EligibleDays)
	assert.Equal(t, 14, l.TotalAllotted)
}

func TestComputeLedgerConsumption(t *testing.T) {
	s := newStudent("s1", StatusOnLeave, "2024-01-01", "2024-01-10")
	s.LeaveStartDate = d("2024-01-05")
	s.LeaveEndDate = d("2024-01-06")
	records := []AttendanceRecord{
		{StudentID: "s1", Date: d("2023-12-31"), Morning: true, Evening: true}, // before start
		{StudentID: "s1", Date: d("2024-01-01"), Morning: true, Evening: true},
		{StudentID: "s1", Date: d("2024-01-02"), Morning: true},
		{StudentID: "s1", Date: d("2024-01-05"), Evening: true}, // on leave
		{StudentID: "s1", Date: d("2024-01-08"), Evening: true}, // after asOf
		{StudentID: "s2", Date: d("2024-01-03"), Morning: true}, // someone else
	}
	l, err := ComputeLedger(s, records, d("2024-01-07"))
	require.NoError(t, err)
	assert.Equal(t, 5, l.EligibleDays)
	assert.Equal(t, 10, l.TotalAllotted)
	assert.Equal(t, 2, l.ConsumedMorning)
	assert.Equal(t, 1, l.ConsumedEvening)
	assert.Equal(t, l.ConsumedMorning+l.ConsumedEvening, l.TotalConsumed)
	assert.Equal(t, 7, l.Remaining)
}

func TestComputeLedgerNotClamped(t *testing.T) {
	s := newStudent("s1", StatusActive, "2024-01-01", "2024-01-01")
	records := []AttendanceRecord{
		{StudentID: "s1", Date: d("2024-01-01"), Morning: true, Evening: true},
		{StudentID: "s1", Date: d("2024-01-01"), Morning: true, Evening: true},
		{StudentID: "s1", Date: d("2024-01-01"), Morning: true},
	}
	l, err := ComputeLedger(s, records, d("2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, 2, l.TotalAllotted)
	assert.Equal(t, 5, l.TotalConsumed)
	assert.Equal(t, -3, l.Remaining)
}

func TestComputeLedgerBeforeStart(t *testing.T) {
	s := newStudent("s1", StatusActive, "2024-01-10", "2024-01-20")
	l, err := ComputeLedger(s, nil, d("2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, Ledger{}, l)
}

func TestComputeLedgerTerminated(t *testing.T) {
	s := newStudent("s1", StatusTerminated, "2024-01-01", "2024-01-10")
	records := []AttendanceRecord{{StudentID: "s1", Date: d("2024-01-02"), Morning: true}}
	l, err := ComputeLedger(s, records, d("2024-01-10"))
	require.NoError(t, err)
	assert.Equal(t, Ledger{}, l)
}

func TestComputeLedgerErrors(t *testing.T) {
	noStart := newStudent("s1", StatusActive, "2024-01-01", "2024-01-10")
	noStart.MessStartDate = calendar.Date{}
	_, err := ComputeLedger(noStart, nil, d("2024-01-10"))
	assert.ErrorIs(t, err, ErrMissingSubscriptionWindow)

	inverted := newStudent("s1", StatusActive, "2024-01-10", "2024-01-01")
	_, err = ComputeLedger(inverted, nil, d("2024-01-10"))
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	badLeave := newStudent("s1", StatusOnLeave, "2024-01-01", "2024-01-10")
	badLeave.LeaveStartDate = d("2024-01-06")
	badLeave.LeaveEndDate = d("2024-01-05")
	_, err = ComputeLedger(badLeave, nil, d("2024-01-10"))
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	ok := newStudent("s1", StatusActive, "2024-01-01", "2024-01-10")
	_, err = ComputeLedger(ok, nil, d("2024-01-10"), LeavePeriod{Start: d("2024-01-03")})
	assert.ErrorIs(t, err, ErrMissingLeaveDates)
}

func TestComputeLedgerIdempotent(t *testing.T) {
	s := newStudent("s1", StatusOnLeave, "2024-01-01", "2024-01-31")
	s.LeaveStartDate = d("2024-01-10")
	s.LeaveEndDate = d("2024-01-12")
	records := []AttendanceRecord{
		{StudentID: "s1", Date: d("2024-01-02"), Morning: true},
		{StudentID: "s1", Date: d("2024-01-03"), Evening: true},
	}
	snapshot := append([]AttendanceRecord(nil), records...)

	first, err := ComputeLedger(s, records, d("2024-01-20"))
	require.NoError(t, err)
	second, err := ComputeLedger(s, records, d("2024-01-20"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, records)
}

func TestBuildIndexLastWins(t *testing.T) {
	records := []AttendanceRecord{
		{StudentID: "s1", Date: d("2024-01-01"), Morning: true, Evening: false},
		{StudentID: "s2", Date: d("2024-01-01"), Evening: true},
		{StudentID: "s1", Date: d("2024-01-01"), Morning: false, Evening: true},
	}
	idx := BuildIndex(records)
	assert.Len(t, idx, 2)
	assert.Equal(t, MealMarks{Morning: false, Evening: true}, idx.Lookup("s1", d("2024-01-01")))
	assert.Equal(t, MealMarks{Evening: true}, idx.Lookup("s2", d("2024-01-01")))
	assert.Equal(t, MealMarks{}, idx.Lookup("s3", d("2024-01-01")))

	_, err := BuildIndexStrict(records)
	assert.ErrorIs(t, err, ErrDuplicateAttendanceRecord)

	strict, err := BuildIndexStrict(records[:2])
	require.NoError(t, err)
	assert.Len(t, strict, 2)
}

func TestIndexForStudent(t *testing.T) {
	idx := BuildIndex([]AttendanceRecord{
		{StudentID: "s1", Date: d("2024-01-01"), Morning: true},
		{StudentID: "s1", Date: d("2024-01-02"), Evening: true},
		{StudentID: "s2", Date: d("2024-01-01"), Evening: true},
	})
	assert.Equal(t, map[string]MealMarks{
		"2024-01-01": {Morning: true},
		"2024-01-02": {Evening: true},
	}, idx.ForStudent("s1"))
}

func TestFilter(t *testing.T) {
	today := d("2024-03-10")
	roster := []Student{
		newStudent("active", StatusActive, "2024-01-01", "2024-06-30"),
		newStudent("lapsed", StatusActive, "2024-01-01", "2024-03-01"),
		newStudent("soon", StatusActive, "2024-01-01", "2024-03-12"),
		newStudent("leave", StatusOnLeave, "2024-01-01", "2024-06-30"),
		newStudent("gone", StatusTerminated, "2024-01-01", "2024-02-01"),
		newStudent("leave-lapsed", StatusOnLeave, "2024-01-01", "2024-03-01"),
	}
	ids := func(ss []Student) []string {
		out := make([]string, 0, len(ss))
		for _, s := range ss {
			out = append(out, s.ID)
		}
		return out
	}

	tests := []struct {
		tag  FilterTag
		want []string
	}{
		{FilterActive, []string{"active", "soon"}},
		{FilterExpired, []string{"lapsed", "leave-lapsed"}},
		{FilterExpiringSoon, []string{"soon"}},
		{FilterOnLeave, []string{"leave", "leave-lapsed"}},
		{FilterTerminated, []string{"gone"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.tag), func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(roster, tt.tag, "", today)))
		})
	}

	counts := Tally(roster, today)
	assert.Equal(t, 2, counts[FilterActive])
	assert.Equal(t, 2, counts[FilterExpired])
	assert.Equal(t, 1, counts[FilterTerminated])
}

func TestFilterComposesWithSearch(t *testing.T) {
	today := d("2024-03-10")
	a := newStudent("1", StatusActive, "2024-01-01", "2024-06-30")
	a.Name, a.RollNumber = "Asha Verma", "CS-101"
	b := newStudent("2", StatusActive, "2024-01-01", "2024-06-30")
	b.Name, b.RollNumber = "Ravi Kumar", "EE-202"
	c := newStudent("3", StatusTerminated, "2024-01-01", "2024-06-30")
	c.Name, c.RollNumber = "Asha Singh", "ME-303"
	roster := []Student{a, b, c}

	assert.Equal(t, []Student{a}, Filter(roster, FilterActive, "asha", today))
	assert.Equal(t, []Student{b}, Filter(roster, FilterActive, "ee-2", today))
	assert.Equal(t, []Student{a, c}, Search(roster, "ASHA"))
	assert.Len(t, Filter(roster, FilterActive, "  ", today), 2)
	assert.Empty(t, Filter(roster, FilterActive, "nobody", today))
}

func TestParsers(t *testing.T) {
	for _, s := range []string{"Active", "OnLeave", "Terminated"} {
		got, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), got)
	}
	_, err := ParseStatus("active")
	assert.ErrorIs(t, err, ErrUnknownStatus)

	_, err = ParseMeal("lunch")
	assert.ErrorIs(t, err, ErrUnknownMeal)

	_, err = ParseFilterTag("Everyone")
	assert.ErrorIs(t, err, ErrUnknownFilter)
}

func TestStudentValidate(t *testing.T) {
	ok := newStudent("s1", StatusActive, "2024-01-01", "2024-01-31")
	assert.NoError(t, ok.Validate())

	noName := ok
	noName.Name = " "
	assert.ErrorIs(t, noName.Validate(), ErrNameRequired)

	leave := ok
	leave.Status = StatusOnLeave
	assert.ErrorIs(t, leave.Validate(), ErrMissingLeaveDates)

	leave.LeaveStartDate, leave.LeaveEndDate = d("2024-01-05"), d("2024-01-06")
	assert.NoError(t, leave.Validate())
}

func TestAttendanceRecordWith(t *testing.T) {
	r := AttendanceRecord{StudentID: "s1", Date: d("2024-01-01")}
	r = r.With(MealMorning, true)
	assert.True(t, r.Took(MealMorning))
	assert.False(t, r.Took(MealEvening))
	r = r.With(MealEvening, true).With(MealMorning, false)
	assert.False(t, r.Morning)
	assert.True(t, r.Evening)
}
