// Package quota gates free estimate consumption and runs the
// payment-confirmation cooldown. State transitions are pure functions over
// models.QuotaState so they can be persisted and replayed by any store.
package quota

import (
	"time"

	"github.com/ajayprojects/portal/pkg/models"
)

const (
	// FreeLimit is the number of estimates a guest may request.
	FreeLimit = 3

	// CooldownDuration is how long an upgrade request stays pending before
	// the client may submit another.
	CooldownDuration = 2 * time.Minute
)

// CanRequest reports whether the client may start another estimate.
// Upgraded clients are never limited.
func CanRequest(s models.QuotaState, limit int) bool {
	if s.Upgraded {
		return true
	}
	return s.ConsumedCount < limit
}

// Remaining returns how many free estimates are left, never negative.
func Remaining(s models.QuotaState, limit int) int {
	if s.Upgraded {
		return limit
	}
	if s.ConsumedCount >= limit {
		return 0
	}
	return limit - s.ConsumedCount
}

// RecordConsumption returns the state after one successful estimate.
// Consumption is not tracked once a client has upgraded.
func RecordConsumption(s models.QuotaState) models.QuotaState {
	if s.Upgraded {
		return s
	}
	s.ConsumedCount++
	return s
}

// BeginCooldown arms the payment-confirmation window. Re-arming replaces
// any earlier deadline.
func BeginCooldown(s models.QuotaState, now time.Time, d time.Duration) models.QuotaState {
	deadline := now.Add(d)
	s.CooldownDeadline = &deadline
	return s
}

// ClearCooldown removes the deadline, if any.
func ClearCooldown(s models.QuotaState) models.QuotaState {
	s.CooldownDeadline = nil
	return s
}

// Upgrade marks the client premium and drops any pending cooldown.
func Upgrade(s models.QuotaState) models.QuotaState {
	s.Upgraded = true
	s.CooldownDeadline = nil
	return s
}

// CooldownActive reports whether a deadline is set and still in the future.
func CooldownActive(s models.QuotaState, now time.Time) bool {
	return s.CooldownDeadline != nil && s.CooldownDeadline.After(now)
}

// RemainingCooldown returns the time left on the cooldown, clamped to zero.
func RemainingCooldown(s models.QuotaState, now time.Time) time.Duration {
	if s.CooldownDeadline == nil {
		return 0
	}
	left := s.CooldownDeadline.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
