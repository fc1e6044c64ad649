package entitlements

import "time"

// MaxReviewCompensationDays caps how many bonus days a single review delay
// can earn.
const MaxReviewCompensationDays = 60

// ReviewCompensationDays converts the time a listing spent in the review
// queue into bonus days, clamped to [0, MaxReviewCompensationDays]. Clock
// anomalies (decision before submission) yield 0.
func ReviewCompensationDays(submittedAt, firstDecisionAt time.Time) int {
	if submittedAt.IsZero() || firstDecisionAt.IsZero() {
		return 0
	}
	days := int(firstDecisionAt.Sub(submittedAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	if days > MaxReviewCompensationDays {
		return MaxReviewCompensationDays
	}
	return days
}

// RemainingCompensation burns the original compensation down against wall
// clock time since slot activation. It is recomputed on demand at every
// renewal or plan change rather than stored as a running balance, which
// keeps it idempotent under billing event replay.
func RemainingCompensation(originalDays int, activatedAt, now time.Time) int {
	if originalDays <= 0 {
		return 0
	}
	elapsed := int(now.Sub(activatedAt).Hours() / 24)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := originalDays - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
