package mess

import (
	"fmt"
	"strings"

	"hostelmess/internal/calendar"
)

// FilterTag selects one of the admin roster views.
type FilterTag string

const (
	FilterActive       FilterTag = "Active"
	FilterOnLeave      FilterTag = "OnLeave"
	FilterExpiringSoon FilterTag = "ExpiringSoon"
	FilterExpired      FilterTag = "Expired"
	FilterTerminated   FilterTag = "Terminated"
)

// FilterTags lists every tag in display order.
var FilterTags = []FilterTag{FilterActive, FilterOnLeave, FilterExpiringSoon, FilterExpired, FilterTerminated}

// ParseFilterTag accepts the wire spelling of a tag.
func ParseFilterTag(s string) (FilterTag, error) {
	for _, t := range FilterTags {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFilter, s)
}

// Matches reports whether s belongs in the tag's view on today.
//
// Active students whose subscription has expired are left out of the
// Active view and shown under Expired instead.
func Matches(s Student, tag FilterTag, today calendar.Date) bool {
	switch tag {
	case FilterActive:
		return s.Status == StatusActive && Evaluate(today, s.MessEndDate).Status != SubscriptionExpired
	case FilterExpiringSoon:
		return s.Status != StatusTerminated && Evaluate(today, s.MessEndDate).Status == SubscriptionExpiringSoon
	case FilterExpired:
		return s.Status != StatusTerminated && Evaluate(today, s.MessEndDate).Status == SubscriptionExpired
	case FilterOnLeave:
		return s.Status == StatusOnLeave
	case FilterTerminated:
		return s.Status == StatusTerminated
	}
	return false
}

// MatchesSearch reports whether term is a case-insensitive substring of
// the name or roll number. An empty term matches everyone.
func MatchesSearch(s Student, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s.Name), term) ||
		strings.Contains(strings.ToLower(s.RollNumber), term)
}

// Filter returns, in roster order, the students matching both tag and term.
func Filter(roster []Student, tag FilterTag, term string, today calendar.Date) []Student {
	out := make([]Student, 0, len(roster))
	for _, s := range roster {
		if Matches(s, tag, today) && MatchesSearch(s, term) {
			out = append(out, s)
		}
	}
	return out
}

// Search returns the students matching term regardless of status.
func Search(roster []Student, term string) []Student {
	out := make([]Student, 0, len(roster))
	for _, s := range roster {
		if MatchesSearch(s, term) {
			out = append(out, s)
		}
	}
	return out
}

// Tally counts the roster per tag. A student may count under several tags
// (an Active student expiring soon is in both Active and ExpiringSoon).
func Tally(roster []Student, today calendar.Date) map[FilterTag]int {
	counts := make(map[FilterTag]int, len(FilterTags))
	for _, t := range FilterTags {
		counts[t] = 0
	}
	for _, s := range roster {
		for _, t := range FilterTags {
			if Matches(s, t, today) {
				counts[t]++
			}
		}
	}
	return counts
}
