package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/veilchat/veilchat/internal/client/api"
	"github.com/veilchat/veilchat/internal/client/models"
	"github.com/veilchat/veilchat/internal/common"
	"github.com/veilchat/veilchat/internal/logging"
)

// ConvState is the unlock state of one conversation.
type ConvState int

const (
	ConvLocked ConvState = iota
	ConvVerifying
	ConvUnlocked
)

// ConversationAccess manages the primary-code unlock of whole conversations.
// Verified codes are cached in memory only, keyed by conversation, and only
// for the active conversation; they are never written to the vault and are
// dropped when the active conversation changes or the session ends.
type ConversationAccess struct {
	mu       sync.Mutex
	client   api.Client
	sessions *SessionGuard
	log      logging.Logger

	active    string
	codes     map[string]string
	verifying map[string]bool
	attempts  map[string]int // display only; no client-side lockout for primary codes
	convs     map[string]models.Conversation
	requested map[string]string // targetUserID -> conversation id, advisory dedupe
}

func NewConversationAccess(client api.Client, sessions *SessionGuard, log logging.Logger) *ConversationAccess {
	c := &ConversationAccess{
		client:   client,
		sessions: sessions,
		log:      log,
	}
	c.resetLocked()
	return c
}

// Reset drops every cached code and all per-session bookkeeping. Registered
// as a logout hook.
func (c *ConversationAccess) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *ConversationAccess) resetLocked() {
	c.active = ""
	c.codes = make(map[string]string)
	c.verifying = make(map[string]bool)
	c.attempts = make(map[string]int)
	c.convs = make(map[string]models.Conversation)
	c.requested = make(map[string]string)
}

// RefreshList loads the conversation list from the backend and caches the
// records. Plumbing only: no retry logic, no unlock state changes.
func (c *ConversationAccess) RefreshList(ctx context.Context) ([]models.Conversation, error) {
	convs, err := c.client.ListConversations(ctx)
	if err != nil {
		return nil, c.escalate(ctx, err)
	}

	c.mu.Lock()
	for _, conv := range convs {
		if _, unlocked := c.codes[conv.ID]; unlocked {
			conv.PrimaryCodeVerified = true
		}
		c.convs[conv.ID] = conv
	}
	c.mu.Unlock()
	return convs, nil
}

// SetActive declares which conversation is open. Switching away from a
// conversation clears its cached primary code and returns it to Locked:
// codes are never shared across conversations.
func (c *ConversationAccess) SetActive(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == conversationID {
		return
	}
	if c.active != "" {
		delete(c.codes, c.active)
		delete(c.attempts, c.active)
		if conv, ok := c.convs[c.active]; ok {
			conv.PrimaryCodeVerified = false
			c.convs[c.active] = conv
		}
	}
	c.active = conversationID
}

// State reports the unlock state of a conversation.
func (c *ConversationAccess) State(conversationID string) ConvState {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.verifying[conversationID]:
		return ConvVerifying
	case c.codes[conversationID] != "":
		return ConvUnlocked
	default:
		return ConvLocked
	}
}

// PrimaryCode returns the cached code for a conversation. The message lock
// controller uses this; it never re-derives or re-prompts for primary codes.
func (c *ConversationAccess) PrimaryCode(conversationID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	code, ok := c.codes[conversationID]
	return code, ok
}

// Attempts returns the failed primary-code attempt count for display.
func (c *ConversationAccess) Attempts(conversationID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts[conversationID]
}

// VerifyPrimaryCode sends the code to the backend for validation only (the
// message fetch is a separate call). Success caches the code in memory and
// moves the conversation to Unlocked. A wrong code returns ErrInvalidCode
// and leaves the conversation Locked. A second submission while one is in
// flight is a caller error.
func (c *ConversationAccess) VerifyPrimaryCode(ctx context.Context, conversationID, code string) error {
	c.mu.Lock()
	if c.verifying[conversationID] {
		c.mu.Unlock()
		return common.ErrVerificationInFlight
	}
	c.verifying[conversationID] = true
	c.mu.Unlock()

	valid, err := c.client.VerifyPrimaryCode(ctx, conversationID, code)

	c.mu.Lock()
	delete(c.verifying, conversationID)
	if err == nil && valid {
		c.codes[conversationID] = code
		c.attempts[conversationID] = 0
		if conv, ok := c.convs[conversationID]; ok {
			conv.PrimaryCodeVerified = true
			c.convs[conversationID] = conv
		}
	} else if err == nil {
		c.attempts[conversationID]++
	}
	c.mu.Unlock()

	if err != nil {
		return c.escalate(ctx, err)
	}
	if !valid {
		return common.ErrInvalidCode
	}

	c.log.Info(ctx, "conversation unlocked", "conversation", conversationID)
	return nil
}

// FetchMessages retrieves the message list using the cached primary code.
// It requires the Unlocked state: without a cached code it fails locally
// with ErrMissingPrimaryContext. A 403/404 response revokes the cached code
// (the conversation returns to Locked); a 401 escalates to forced logout.
func (c *ConversationAccess) FetchMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	c.mu.Lock()
	code, ok := c.codes[conversationID]
	c.mu.Unlock()
	if !ok {
		return nil, common.ErrMissingPrimaryContext
	}

	msgs, err := c.client.FetchMessages(ctx, conversationID, code)
	if err != nil {
		if errors.Is(err, common.ErrInvalidAccess) {
			c.mu.Lock()
			delete(c.codes, conversationID)
			c.mu.Unlock()
		}
		return nil, c.escalate(ctx, err)
	}
	return msgs, nil
}

// Approve accepts a pending conversation with a newly chosen primary code.
// The confirmation equality check is purely client-side: on mismatch the
// call fails with ErrCodeMismatch before any network traffic.
func (c *ConversationAccess) Approve(ctx context.Context, conversationID, newCode, confirmCode string) error {
	if newCode != confirmCode {
		return common.ErrCodeMismatch
	}

	c.mu.Lock()
	conv, ok := c.convs[conversationID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: conversation %s", common.ErrNotFound, conversationID)
	}
	if conv.Status != models.StatusPendingApproval {
		return fmt.Errorf("%w: conversation %s is %s, not pending approval",
			common.ErrInvalidState, conversationID, conv.Status)
	}

	if err := c.client.ApproveConversation(ctx, conversationID, newCode); err != nil {
		return c.escalate(ctx, err)
	}

	c.mu.Lock()
	conv.Status = models.StatusApproved
	c.convs[conversationID] = conv
	c.mu.Unlock()

	c.log.Info(ctx, "conversation approved", "conversation", conversationID)
	return nil
}

// Reject declines a pending conversation.
func (c *ConversationAccess) Reject(ctx context.Context, conversationID string) error {
	c.mu.Lock()
	conv, ok := c.convs[conversationID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: conversation %s", common.ErrNotFound, conversationID)
	}
	if conv.Status != models.StatusPendingApproval {
		return fmt.Errorf("%w: conversation %s is %s, not pending approval",
			common.ErrInvalidState, conversationID, conv.Status)
	}

	if err := c.client.RejectConversation(ctx, conversationID); err != nil {
		return c.escalate(ctx, err)
	}

	c.mu.Lock()
	conv.Status = models.StatusRejected
	c.convs[conversationID] = conv
	c.mu.Unlock()
	return nil
}

// Request asks another user for a conversation. De-duplication is advisory
// and per session: a repeat request for the same target returns the already
// created conversation without hitting the backend again.
func (c *ConversationAccess) Request(ctx context.Context, targetUserID string) (*models.Conversation, error) {
	c.mu.Lock()
	if id, ok := c.requested[targetUserID]; ok {
		conv := c.convs[id]
		c.mu.Unlock()
		return &conv, nil
	}
	c.mu.Unlock()

	conv, err := c.client.RequestConversation(ctx, targetUserID)
	if err != nil {
		return nil, c.escalate(ctx, err)
	}

	c.mu.Lock()
	c.convs[conv.ID] = *conv
	c.requested[targetUserID] = conv.ID
	c.mu.Unlock()

	c.log.Info(ctx, "conversation requested", "target", targetUserID, "conversation", conv.ID)
	return conv, nil
}

// Conversation returns the cached record for an id.
func (c *ConversationAccess) Conversation(conversationID string) (models.Conversation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, ok := c.convs[conversationID]
	return conv, ok
}

// escalate routes ErrAuthExpired into the session guard's forced logout;
// every other error passes through for the caller to surface.
func (c *ConversationAccess) escalate(ctx context.Context, err error) error {
	if errors.Is(err, common.ErrAuthExpired) {
		c.sessions.ForceLogout(ctx, "authentication expired")
	}
	return err
}
