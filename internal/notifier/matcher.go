package notifier

import "warnbot/internal/domain"

// Matches reports whether the warning should be delivered for the given
// subscriptions. A subscription fires when its category equals the warning's
// and its level threshold lies at or below the warning's severity rank.
// Warnings with an unclassified severity never fire, regardless of threshold.
func Matches(subs domain.SubscriptionSet, w domain.Warning) bool {
	rank := w.Severity.Rank()
	if rank == 0 {
		return false
	}
	for _, byCategory := range subs {
		if level, ok := byCategory[w.Category]; ok && level <= rank {
			return true
		}
	}
	return false
}
