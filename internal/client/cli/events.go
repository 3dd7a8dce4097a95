package cli

import (
	"fmt"
	"sync"
	"time"
)

// notifier prints controller notifications to the terminal. While a disguise
// owns the screen every notification is swallowed: a session warning popping
// up over a fake calculator would defeat the disguise.
type notifier struct {
	mu        sync.Mutex
	disguised func() bool
}

// setDisguiseCheck installs the duress-active probe. The notifier is created
// before the controllers it observes, so the probe is bound late.
func (n *notifier) setDisguiseCheck(fn func() bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disguised = fn
}

func (n *notifier) quiet() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.disguised != nil && n.disguised()
}

func (n *notifier) SessionWarning(remaining time.Duration) {
	if n.quiet() {
		return
	}
	fmt.Printf("\nYour session expires in %s.\n", remaining.Round(time.Second))
}

func (n *notifier) ForcedLogout(reason string) {
	if n.quiet() {
		return
	}
	fmt.Printf("\nYou have been logged out: %s.\n", reason)
}

func (n *notifier) MessageRelocked(conversationID, messageID string) {
	if n.quiet() {
		return
	}
	fmt.Printf("\nMessage %s locked again.\n", messageID)
}

func (n *notifier) DuressTimedOut() {
	// The disguise is already gone when this fires; the forced-logout
	// notification that follows tells the user everything they may know.
}
