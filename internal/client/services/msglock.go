package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/veilchat/veilchat/internal/client/api"
	"github.com/veilchat/veilchat/internal/common"
	"github.com/veilchat/veilchat/internal/logging"
)

// Message lock policy. The attempt limit and its consequence are applied
// uniformly: the third consecutive rejection of a secondary code forces a
// logout.
const (
	UnlockTTL            = 60 * time.Second
	RelockSweepInterval  = 10 * time.Second
	MaxSecondaryAttempts = 3
)

// msgLock is the per-message lock record. generation increments on every
// relock so a fetch that resolves after a relock can tell it is stale.
type msgLock struct {
	conversationID string
	attempts       int
	verified       bool
	unlockedAt     *time.Time
	generation     uint64

	// codeOK records that the latest VerifySecondary round-trip succeeded.
	// Required for the cache-skip path below; cleared on relock.
	codeOK bool

	// Decrypted content cached for the rest of the session. Survives
	// relocks; re-unlocking a relocked message skips the network fetch.
	cached *api.UnlockedContent
}

// MessageLocks manages per-message secondary-code verification, unlock
// expiry, and the attempts lockout. Primary codes always come from the
// conversation access controller's cache; this controller never accepts one
// from the caller.
type MessageLocks struct {
	mu       sync.Mutex
	client   api.Client
	conv     *ConversationAccess
	sessions *SessionGuard
	log      logging.Logger
	events   Events

	ttl         time.Duration
	maxAttempts int
	now         func() time.Time

	locks map[string]*msgLock
}

func NewMessageLocks(client api.Client, conv *ConversationAccess, sessions *SessionGuard, log logging.Logger, events Events) *MessageLocks {
	return &MessageLocks{
		client:      client,
		conv:        conv,
		sessions:    sessions,
		log:         log,
		events:      events,
		ttl:         UnlockTTL,
		maxAttempts: MaxSecondaryAttempts,
		now:         time.Now,
		locks:       make(map[string]*msgLock),
	}
}

// Reset drops all unlock state and cached content. Registered as a logout
// hook.
func (m *MessageLocks) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks = make(map[string]*msgLock)
}

func (m *MessageLocks) lockFor(conversationID, messageID string) *msgLock {
	l, ok := m.locks[messageID]
	if !ok {
		l = &msgLock{conversationID: conversationID}
		m.locks[messageID] = l
	}
	return l
}

// Unlocked reports whether the message's content is currently viewable.
func (m *MessageLocks) Unlocked(messageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[messageID]
	return ok && l.verified
}

// Attempts returns the consecutive failed verification count for a message.
func (m *MessageLocks) Attempts(messageID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.locks[messageID]; ok {
		return l.attempts
	}
	return 0
}

// VerifySecondary checks a secondary code against the backend. The primary
// code is taken from the conversation cache; its absence is a local
// precondition failure that never reaches the network. A rejected code
// increments the message's attempt counter; reaching the limit triggers
// exactly one forced logout.
func (m *MessageLocks) VerifySecondary(ctx context.Context, conversationID, messageID, secondaryCode string) error {
	primary, ok := m.conv.PrimaryCode(conversationID)
	if !ok {
		return common.ErrMissingPrimaryContext
	}

	valid, err := m.client.VerifySecondaryCode(ctx, conversationID, messageID, primary, secondaryCode)
	if err != nil {
		return m.escalate(ctx, err)
	}
	if valid {
		m.mu.Lock()
		m.lockFor(conversationID, messageID).codeOK = true
		m.mu.Unlock()
		return nil
	}

	m.mu.Lock()
	l := m.lockFor(conversationID, messageID)
	l.attempts++
	attempts := l.attempts
	m.mu.Unlock()

	m.log.Warn(ctx, "secondary code rejected",
		"conversation", conversationID, "message", messageID, "attempts", attempts)

	if attempts >= m.maxAttempts {
		m.sessions.ForceLogout(ctx, "too many failed verification attempts")
	}
	return common.ErrInvalidCode
}

// FetchUnlocked retrieves the decrypted content after a successful
// verification. On success the message becomes Unlocked: the TTL clock
// starts, the attempt counter resets, and the content is cached for the
// session. If the session cache already holds the content (a re-unlock
// after a relock), the network fetch is skipped.
//
// A fetch that resolves after the message was relocked is discarded: the
// result is matched against the lock generation captured at call time, not
// against completion order.
func (m *MessageLocks) FetchUnlocked(ctx context.Context, conversationID, messageID, secondaryCode string) (*api.UnlockedContent, error) {
	primary, ok := m.conv.PrimaryCode(conversationID)
	if !ok {
		return nil, common.ErrMissingPrimaryContext
	}

	m.mu.Lock()
	l := m.lockFor(conversationID, messageID)
	gen := l.generation
	if l.cached != nil && l.codeOK {
		content := l.cached
		m.unlockLocked(l)
		m.mu.Unlock()
		return content, nil
	}
	m.mu.Unlock()

	content, err := m.client.FetchUnlockedMessage(ctx, conversationID, messageID, primary, secondaryCode)
	if err != nil {
		return nil, m.escalate(ctx, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok = m.locks[messageID]
	if !ok || l.generation != gen {
		// Relocked (or reset) while the fetch was in flight; drop the result.
		m.log.Info(ctx, "discarding stale unlock result", "message", messageID)
		return nil, common.ErrInvalidState
	}
	l.cached = content
	m.unlockLocked(l)
	return content, nil
}

func (m *MessageLocks) unlockLocked(l *msgLock) {
	now := m.now()
	l.verified = true
	l.unlockedAt = &now
	l.attempts = 0
}

// Sweep relocks every message whose unlock window has elapsed. Run on a
// fixed interval; also safe to call directly. Cached content is retained, so
// a later re-unlock needs re-verification but no re-fetch.
func (m *MessageLocks) Sweep(ctx context.Context) {
	now := m.now()

	m.mu.Lock()
	var relocked [][2]string
	for id, l := range m.locks {
		if l.verified && l.unlockedAt != nil && now.Sub(*l.unlockedAt) > m.ttl {
			m.relockLocked(l)
			relocked = append(relocked, [2]string{l.conversationID, id})
		}
	}
	m.mu.Unlock()

	for _, r := range relocked {
		m.log.Info(ctx, "message relocked by ttl", "conversation", r[0], "message", r[1])
		m.events.MessageRelocked(r[0], r[1])
	}
}

// ManualRelock immediately relocks a message, with the same effect as TTL
// expiry. Relocking an already-locked message is a no-op.
func (m *MessageLocks) ManualRelock(ctx context.Context, messageID string) {
	m.mu.Lock()
	l, ok := m.locks[messageID]
	if !ok || !l.verified {
		m.mu.Unlock()
		return
	}
	m.relockLocked(l)
	conv := l.conversationID
	m.mu.Unlock()

	m.log.Info(ctx, "message relocked manually", "message", messageID)
	m.events.MessageRelocked(conv, messageID)
}

func (m *MessageLocks) relockLocked(l *msgLock) {
	l.verified = false
	l.unlockedAt = nil
	l.codeOK = false
	l.generation++
}

// Decorate applies current lock state to a fetched message list so the UI
// can render unlocked content without consulting the controller per message.
func (m *MessageLocks) Decorate(msgs []MessageView) []MessageView {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range msgs {
		l, ok := m.locks[msgs[i].ID]
		if !ok {
			continue
		}
		msgs[i].Unlocked = l.verified
		msgs[i].Attempts = l.attempts
		if l.verified && l.cached != nil {
			msgs[i].Content = l.cached.Content
		}
	}
	return msgs
}

// MessageView is the UI-facing projection of a message plus its lock state.
type MessageView struct {
	ID       string
	Content  string
	Locked   bool
	Unlocked bool
	Attempts int
}

func (m *MessageLocks) escalate(ctx context.Context, err error) error {
	if errors.Is(err, common.ErrAuthExpired) {
		m.sessions.ForceLogout(ctx, "authentication expired")
	}
	return err
}
