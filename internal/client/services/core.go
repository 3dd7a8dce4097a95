package services

import (
	"context"
	"time"

	"github.com/veilchat/veilchat/internal/client/api"
	"github.com/veilchat/veilchat/internal/client/vault"
	"github.com/veilchat/veilchat/internal/logging"
	"github.com/veilchat/veilchat/internal/scheduler"
)

const (
	sessionPollTask = "session_poll"
	relockSweepTask = "relock_sweep"
)

// Options tunes the controllers. Zero values fall back to the policy
// constants; tests shrink the intervals.
type Options struct {
	SessionDuration      time.Duration
	SessionWarningWindow time.Duration
	SessionPollInterval  time.Duration
	UnlockTTL            time.Duration
	RelockSweepInterval  time.Duration
	MaxSecondaryAttempts int
	DuressMaxDuration    time.Duration
}

func (o *Options) applyDefaults() {
	if o.SessionDuration == 0 {
		o.SessionDuration = SessionDuration
	}
	if o.SessionWarningWindow == 0 {
		o.SessionWarningWindow = SessionWarningWindow
	}
	if o.SessionPollInterval == 0 {
		o.SessionPollInterval = SessionPollInterval
	}
	if o.UnlockTTL == 0 {
		o.UnlockTTL = UnlockTTL
	}
	if o.RelockSweepInterval == 0 {
		o.RelockSweepInterval = RelockSweepInterval
	}
	if o.MaxSecondaryAttempts == 0 {
		o.MaxSecondaryAttempts = MaxSecondaryAttempts
	}
	if o.DuressMaxDuration == 0 {
		o.DuressMaxDuration = DuressMaxDuration
	}
}

// Core owns the four controllers and the timers that drive them. The session
// poll and the relock sweep run only while a session exists: they start on
// login/restore and stop on logout, so no ticker outlives the session it
// serves.
type Core struct {
	Sessions      *SessionGuard
	Conversations *ConversationAccess
	Messages      *MessageLocks
	Duress        *Duress

	client api.Client
	sched  *scheduler.Scheduler
	log    logging.Logger
	opts   Options
}

func NewCore(client api.Client, vlt vault.Vault, log logging.Logger, events Events, opts Options) *Core {
	opts.applyDefaults()

	sched := scheduler.New()

	sessions := NewSessionGuard(client, vlt, log, events)
	sessions.duration = opts.SessionDuration
	sessions.warningWindow = opts.SessionWarningWindow

	conversations := NewConversationAccess(client, sessions, log)

	messages := NewMessageLocks(client, conversations, sessions, log, events)
	messages.ttl = opts.UnlockTTL
	messages.maxAttempts = opts.MaxSecondaryAttempts

	duress := NewDuress(sessions, sched, log, events)
	duress.maxDuration = opts.DuressMaxDuration

	c := &Core{
		Sessions:      sessions,
		Conversations: conversations,
		Messages:      messages,
		Duress:        duress,
		client:        client,
		sched:         sched,
		log:           log,
		opts:          opts,
	}

	// The logout cascade: one synchronization point resets every
	// controller's in-memory state, then the session-scoped timers die.
	// Cancel rather than Stop: the expiry poll itself can be the caller,
	// and waiting for it here would deadlock. Cancel also releases the
	// task names before the hook returns, so timers registered by a later
	// login cannot be hit by this teardown.
	sessions.OnLogout(conversations.Reset)
	sessions.OnLogout(messages.Reset)
	sessions.OnLogout(duress.Reset)
	sessions.OnLogout(func() {
		sched.Cancel(sessionPollTask)
		sched.Cancel(relockSweepTask)
	})

	return c
}

// Login authenticates and starts the session plus its timers.
func (c *Core) Login(ctx context.Context, username, password string) error {
	res, err := c.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := c.Sessions.Start(ctx, res.Token, res.User); err != nil {
		return err
	}
	c.startTimers()
	return nil
}

// Register creates an account; it does not log in.
func (c *Core) Register(ctx context.Context, username, password string) error {
	return c.client.Register(ctx, username, password)
}

// Restore picks up a persisted session after a restart. Returns false when
// the vault holds none.
func (c *Core) Restore(ctx context.Context) (bool, error) {
	ok, err := c.Sessions.Restore(ctx)
	if err != nil || !ok {
		return ok, err
	}
	c.startTimers()
	return true, nil
}

// Logout tears the session down explicitly.
func (c *Core) Logout(ctx context.Context) {
	c.Sessions.Logout(ctx)
}

func (c *Core) startTimers() {
	c.sched.Every(sessionPollTask, c.opts.SessionPollInterval, c.Sessions.CheckExpiry)
	c.sched.Every(relockSweepTask, c.opts.RelockSweepInterval, c.Messages.Sweep)
}

// Close releases every background task and the API client.
func (c *Core) Close() error {
	c.sched.StopAll()
	return c.client.Close()
}
