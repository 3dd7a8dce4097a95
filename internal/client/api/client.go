// Package api contains the backend client used by the controllers. The
// backend itself is an external collaborator: this package only knows the
// wire contract and how its failures map onto the core's error kinds.
package api

import (
	"context"

	"github.com/veilchat/veilchat/internal/client/models"
)

// AuthResult is returned by Login: the session token plus the user record
// the token was issued for.
type AuthResult struct {
	Token string
	User  models.User
}

// UnlockedContent is the decrypted payload of a secondary-locked message.
type UnlockedContent struct {
	Content           string `json:"content"`
	TranslatedContent string `json:"translated_content,omitempty"`
}

// Client is the backend surface the controllers depend on. Verification and
// content fetch are deliberately separate calls: verifying a code never
// returns content, and fetching content never doubles as verification.
//
// All methods honor context cancellation and map backend failures to the
// sentinel errors in internal/common.
type Client interface {
	Close() error

	// SetAccessToken installs (or, with an empty string, clears) the token
	// attached to subsequent requests. The session guard calls this on
	// restore and logout; Login sets it implicitly.
	SetAccessToken(token string)

	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (*AuthResult, error)
	// InvalidateSession is the best-effort server-side logout. Callers must
	// treat its failure as non-fatal.
	InvalidateSession(ctx context.Context) error

	ListConversations(ctx context.Context) ([]models.Conversation, error)
	RequestConversation(ctx context.Context, targetUserID string) (*models.Conversation, error)
	ApproveConversation(ctx context.Context, conversationID, newCode string) error
	RejectConversation(ctx context.Context, conversationID string) error

	VerifyPrimaryCode(ctx context.Context, conversationID, code string) (bool, error)
	FetchMessages(ctx context.Context, conversationID, code string) ([]models.Message, error)

	VerifySecondaryCode(ctx context.Context, conversationID, messageID, primaryCode, secondaryCode string) (bool, error)
	FetchUnlockedMessage(ctx context.Context, conversationID, messageID, primaryCode, secondaryCode string) (*UnlockedContent, error)
}
