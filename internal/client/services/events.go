// Package services contains the access-control controllers of the VeilChat
// client: the session guard, the conversation access controller, the
// per-message lock controller, and the duress mode controller. The UI layer
// drives them through their action methods and observes them through the
// Events sink; no rendering logic lives here.
package services

import "time"

// Events is the notification surface the UI subscribes to. Every failure
// path either returns an error (retry affordance) or ends in one of these
// terminal notifications; controllers never go silent.
//
// Implementations must be fast and non-blocking: callbacks run on controller
// goroutines.
type Events interface {
	// SessionWarning fires when the session enters its trailing warning
	// window. The UI renders a live countdown from the remaining duration.
	SessionWarning(remaining time.Duration)

	// ForcedLogout fires exactly once per logout cascade with a
	// user-presentable reason.
	ForcedLogout(reason string)

	// MessageRelocked fires when the TTL sweep or a manual relock hides a
	// previously unlocked message.
	MessageRelocked(conversationID, messageID string)

	// DuressTimedOut fires when the duress hard timeout forces a logout.
	DuressTimedOut()
}

// NopEvents discards all notifications. Useful for tests and headless runs.
type NopEvents struct{}

func (NopEvents) SessionWarning(time.Duration) {}
func (NopEvents) ForcedLogout(string) {}
func (NopEvents) MessageRelocked(string, string) {}
func (NopEvents) DuressTimedOut() {}
