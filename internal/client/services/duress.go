package services

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/veilchat/veilchat/internal/client/disguise"
	"github.com/veilchat/veilchat/internal/client/models"
	"github.com/veilchat/veilchat/internal/logging"
	"github.com/veilchat/veilchat/internal/scheduler"
)

// DuressMaxDuration caps how long a disguise may stay up before the client
// gives up on the user and destroys the session.
const DuressMaxDuration = 30 * time.Minute

const duressTimeoutTask = "duress_timeout"

// Duress swaps the whole UI for a disguise while the real session survives
// untouched underneath. While it is active, auth-driven navigation (forced
// redirects on logout/expiry) is suppressed: the disguise owns the screen.
type Duress struct {
	mu       sync.Mutex
	sessions *SessionGuard
	sched    *scheduler.Scheduler
	log      logging.Logger
	events   Events

	maxDuration time.Duration
	now         func() time.Time
	pick        func() models.Disguise

	state    models.DuressSession
	detector disguise.ExitDetector
}

func NewDuress(sessions *SessionGuard, sched *scheduler.Scheduler, log logging.Logger, events Events) *Duress {
	return &Duress{
		sessions:    sessions,
		sched:       sched,
		log:         log,
		events:      events,
		maxDuration: DuressMaxDuration,
		now:         time.Now,
		pick:        pickDisguise,
	}
}

func pickDisguise() models.Disguise {
	return models.Disguises[rand.IntN(len(models.Disguises))]
}

// Enter activates duress mode. Activation is idempotent and sticky: a repeat
// trigger neither resets the activation time nor re-rolls the disguise, so
// hammering the trigger cannot push the hard timeout out.
func (d *Duress) Enter(ctx context.Context) models.Disguise {
	d.mu.Lock()
	if d.state.Active {
		selected := d.state.SelectedDisguise
		d.mu.Unlock()
		return selected
	}

	now := d.now()
	d.state = models.DuressSession{
		Active:           true,
		ActivatedAt:      &now,
		SelectedDisguise: d.pick(),
	}
	d.detector = disguise.ForDisguise(d.state.SelectedDisguise)
	selected := d.state.SelectedDisguise
	d.mu.Unlock()

	d.sched.After(duressTimeoutTask, d.maxDuration, d.timeoutFired)

	d.log.Warn(ctx, "duress mode activated", "disguise", selected)
	return selected
}

// timeoutFired runs on the scheduler goroutine when the hard timeout
// elapses. Deactivation happens before the forced logout so the logout
// cascade's Reset sees an inactive controller and does not try to stop the
// very task that is running it.
func (d *Duress) timeoutFired(ctx context.Context) {
	d.mu.Lock()
	if !d.state.Active {
		d.mu.Unlock()
		return
	}
	d.deactivateLocked()
	d.mu.Unlock()

	d.log.Warn(ctx, "duress session timed out")
	d.events.DuressTimedOut()
	d.sessions.ForceLogout(ctx, "duress session timed out")
}

// Observe feeds one raw UI input to the active disguise's exit detector and
// reports whether the covert exit gesture completed. The caller then asks
// the user to confirm before calling ConfirmExit.
func (d *Duress) Observe(in disguise.Input) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.state.Active || d.detector == nil {
		return false
	}
	return d.detector.Observe(in)
}

// ConfirmExit completes the deliberate exit sequence: duress state is
// cleared, the hard timeout cancelled, and the preserved session resumes.
func (d *Duress) ConfirmExit(ctx context.Context) {
	d.mu.Lock()
	if !d.state.Active {
		d.mu.Unlock()
		return
	}
	d.deactivateLocked()
	d.mu.Unlock()

	d.sched.Stop(duressTimeoutTask)
	d.log.Info(ctx, "duress mode exited")
}

// DeclineExit is called when the user does not confirm a recognized exit
// gesture; the partial gesture state is discarded and the disguise stays up.
func (d *Duress) DeclineExit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.detector != nil {
		d.detector.Reset()
	}
}

// Reset clears duress state without touching the session. Registered as a
// logout hook; also safe to call when duress is inactive.
func (d *Duress) Reset() {
	d.mu.Lock()
	wasActive := d.state.Active
	d.deactivateLocked()
	d.mu.Unlock()

	if wasActive {
		d.sched.Stop(duressTimeoutTask)
	}
}

func (d *Duress) deactivateLocked() {
	d.state = models.DuressSession{}
	d.detector = nil
}

// Active reports whether a disguise currently owns the UI.
func (d *Duress) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Active
}

// Session returns a snapshot of the duress state.
func (d *Duress) Session() models.DuressSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.state
	if d.state.ActivatedAt != nil {
		at := *d.state.ActivatedAt
		s.ActivatedAt = &at
	}
	return s
}
