package mess

import (
	"fmt"

	"hostelmess/internal/calendar"
)

// ExpiringSoonDays is how many days before the end date a subscription is
// flagged as expiring soon. The end date itself counts as day 0.
const ExpiringSoonDays = 7

// RenewalDays is the default extension offered when renewing.
const RenewalDays = 30

// SubscriptionStatus is derived from the mess end date; it is distinct from
// the lifecycle Status.
type SubscriptionStatus string

const (
	SubscriptionActive       SubscriptionStatus = "active"
	SubscriptionExpiringSoon SubscriptionStatus = "expiring_soon"
	SubscriptionExpired      SubscriptionStatus = "expired"
)

// SubscriptionInfo is the evaluated status plus a display label.
type SubscriptionInfo struct {
	Status   SubscriptionStatus `json:"status"`
	Label    string             `json:"label"`
	DaysLeft int                `json:"daysLeft"`
}

// Evaluate classifies a subscription ending on end as seen on today.
// A missing end date is reported as active.
func Evaluate(today, end calendar.Date) SubscriptionInfo {
	if end.IsZero() {
		return SubscriptionInfo{Status: SubscriptionActive, Label: "Active"}
	}
	diff := today.DaysUntil(end)
	switch {
	case diff < 0:
		return SubscriptionInfo{
			Status:   SubscriptionExpired,
			Label:    "Expired on " + end.Label(),
			DaysLeft: diff,
		}
	case diff <= ExpiringSoonDays:
		return SubscriptionInfo{
			Status:   SubscriptionExpiringSoon,
			Label:    fmt.Sprintf("Expires in %d day(s)", diff),
			DaysLeft: diff,
		}
	default:
		return SubscriptionInfo{
			Status:   SubscriptionActive,
			Label:    "Expires on " + end.Label(),
			DaysLeft: diff,
		}
	}
}

// SuggestedRenewal is the end date offered when renewing: RenewalDays past
// the current end, or past today when the subscription already lapsed.
func SuggestedRenewal(today, end calendar.Date) calendar.Date {
	return calendar.Max(end, today).AddDays(RenewalDays)
}
