package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/veilchat/veilchat/internal/client/api"
	"github.com/veilchat/veilchat/internal/client/models"
	"github.com/veilchat/veilchat/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeClient implements api.Client for controller unit tests. Zero values
// mean "succeed"; tests set the error/return fields they care about.
type fakeClient struct {
	mu sync.Mutex

	Token string
	User  models.User

	LoginErr      error
	RegisterErr   error
	InvalidateErr error

	Conversations []models.Conversation
	ListErr       error

	RequestRet *models.Conversation
	RequestErr error
	ApproveErr error
	RejectErr  error

	VerifyPrimaryValid bool
	VerifyPrimaryErr   error

	Messages     []models.Message
	FetchMsgsErr error

	VerifySecondaryValid bool
	VerifySecondaryErr   error

	UnlockedRet *api.UnlockedContent
	UnlockedErr error
	// UnlockedHook runs inside FetchUnlockedMessage, before it returns.
	// Lets tests interleave relocks with an in-flight fetch.
	UnlockedHook func()

	// Call records.
	AccessTokens       []string
	InvalidateCalls    int
	ApproveCalls       int
	RequestCalls       int
	VerifyPrimaryCalls int
	FetchMsgsCalls     int
	VerifySecCalls     int
	UnlockedCalls      int

	LastPrimaryCode   string
	LastSecondaryCode string
	LastApproveCode   string
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) SetAccessToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AccessTokens = append(f.AccessTokens, token)
}

func (f *fakeClient) Register(ctx context.Context, username, password string) error {
	return f.RegisterErr
}

func (f *fakeClient) Login(ctx context.Context, username, password string) (*api.AuthResult, error) {
	if f.LoginErr != nil {
		return nil, f.LoginErr
	}
	return &api.AuthResult{Token: f.Token, User: f.User}, nil
}

func (f *fakeClient) InvalidateSession(ctx context.Context) error {
	f.mu.Lock()
	f.InvalidateCalls++
	f.mu.Unlock()
	return f.InvalidateErr
}

func (f *fakeClient) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	return f.Conversations, f.ListErr
}

func (f *fakeClient) RequestConversation(ctx context.Context, targetUserID string) (*models.Conversation, error) {
	f.mu.Lock()
	f.RequestCalls++
	f.mu.Unlock()
	if f.RequestErr != nil {
		return nil, f.RequestErr
	}
	return f.RequestRet, nil
}

func (f *fakeClient) ApproveConversation(ctx context.Context, conversationID, newCode string) error {
	f.mu.Lock()
	f.ApproveCalls++
	f.LastApproveCode = newCode
	f.mu.Unlock()
	return f.ApproveErr
}

func (f *fakeClient) RejectConversation(ctx context.Context, conversationID string) error {
	return f.RejectErr
}

func (f *fakeClient) VerifyPrimaryCode(ctx context.Context, conversationID, code string) (bool, error) {
	f.mu.Lock()
	f.VerifyPrimaryCalls++
	f.LastPrimaryCode = code
	f.mu.Unlock()
	return f.VerifyPrimaryValid, f.VerifyPrimaryErr
}

func (f *fakeClient) FetchMessages(ctx context.Context, conversationID, code string) ([]models.Message, error) {
	f.mu.Lock()
	f.FetchMsgsCalls++
	f.LastPrimaryCode = code
	f.mu.Unlock()
	return f.Messages, f.FetchMsgsErr
}

func (f *fakeClient) VerifySecondaryCode(ctx context.Context, conversationID, messageID, primaryCode, secondaryCode string) (bool, error) {
	f.mu.Lock()
	f.VerifySecCalls++
	f.LastPrimaryCode = primaryCode
	f.LastSecondaryCode = secondaryCode
	f.mu.Unlock()
	return f.VerifySecondaryValid, f.VerifySecondaryErr
}

func (f *fakeClient) FetchUnlockedMessage(ctx context.Context, conversationID, messageID, primaryCode, secondaryCode string) (*api.UnlockedContent, error) {
	f.mu.Lock()
	f.UnlockedCalls++
	f.mu.Unlock()
	if f.UnlockedHook != nil {
		f.UnlockedHook()
	}
	if f.UnlockedErr != nil {
		return nil, f.UnlockedErr
	}
	return f.UnlockedRet, nil
}

// recordingEvents captures controller notifications for assertions.
type recordingEvents struct {
	mu             sync.Mutex
	Warnings       []time.Duration
	ForcedLogouts  []string
	Relocked       [][2]string
	DuressTimeouts int
}

func (r *recordingEvents) SessionWarning(remaining time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, remaining)
}

func (r *recordingEvents) ForcedLogout(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ForcedLogouts = append(r.ForcedLogouts, reason)
}

func (r *recordingEvents) MessageRelocked(conversationID, messageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Relocked = append(r.Relocked, [2]string{conversationID, messageID})
}

func (r *recordingEvents) DuressTimedOut() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.DuressTimeouts++
}

func (r *recordingEvents) forcedLogoutCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ForcedLogouts)
}
