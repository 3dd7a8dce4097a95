package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/veilchat/veilchat/internal/client/models"
	"github.com/veilchat/veilchat/internal/common"
)

// HTTPClient talks JSON over HTTP to the chat backend.
type HTTPClient struct {
	baseURL string
	hc      *http.Client

	// The token is written by login/logout and read by every request;
	// logout can arrive from the expiry poll goroutine.
	mu          sync.Mutex
	accessToken string
}

// NewHTTPClient builds a client for the given base URL. The timeout applies
// per request; it is surfaced as common.ErrNetworkTimeout, distinct from
// other transport failures.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Close() error {
	c.hc.CloseIdleConnections()
	c.SetAccessToken("")
	return nil
}

// SetAccessToken installs the token attached to subsequent requests.
func (c *HTTPClient) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

func (c *HTTPClient) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

type codeHeaders struct {
	primary   string
	secondary string
}

// do issues one JSON request and decodes the response into out (if non-nil).
// Backend status codes are translated here, in one place:
//
//	401        -> common.ErrAuthExpired
//	403, 404   -> common.ErrInvalidAccess
//	other >=400 -> common.ErrNetwork with status attached
func (c *HTTPClient) do(ctx context.Context, method, path string, codes codeHeaders, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(common.RequestIDHeaderName, uuid.NewString())
	if tok := c.token(); tok != "" {
		req.Header.Set(common.AccessTokenHeaderName, "Bearer "+tok)
	}
	if codes.primary != "" {
		req.Header.Set(common.PrimaryCodeHeaderName, codes.primary)
	}
	if codes.secondary != "" {
		req.Header.Set(common.SecondaryCodeHeaderName, codes.secondary)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return common.ErrAuthExpired
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusNotFound:
		return common.ErrInvalidAccess
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: unexpected status %d", common.ErrNetwork, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func mapTransportError(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %v", common.ErrNetworkTimeout, err)
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return fmt.Errorf("%w: %v", common.ErrNetworkTimeout, err)
	}
	return fmt.Errorf("%w: %v", common.ErrNetwork, err)
}

func (c *HTTPClient) Register(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	return c.do(ctx, http.MethodPost, "/api/auth/register", codeHeaders{}, body, nil)
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user,omitempty"`
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	body := map[string]string{"username": username, "password": password}
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", codeHeaders{}, body, &resp); err != nil {
		return nil, err
	}

	res := &AuthResult{Token: resp.Token}
	if resp.User != nil {
		res.User = *resp.User
	} else {
		// Older backends omit the user object; fall back to token claims.
		res.User = userFromToken(resp.Token, username)
	}

	c.SetAccessToken(resp.Token)
	return res, nil
}

// userFromToken extracts identity from the JWT's registered claims without
// verifying the signature (the key lives on the backend). Used only as a
// fallback when the login response carries no user object.
func userFromToken(token, fallbackName string) models.User {
	user := models.User{Username: fallbackName}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return user
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return user
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		user.ID = sub
	}
	if name, ok := claims["username"].(string); ok && name != "" {
		user.Username = name
	}
	return user
}

func (c *HTTPClient) InvalidateSession(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", codeHeaders{}, nil, nil)
}

func (c *HTTPClient) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var resp struct {
		Conversations []models.Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/conversations", codeHeaders{}, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

func (c *HTTPClient) RequestConversation(ctx context.Context, targetUserID string) (*models.Conversation, error) {
	body := map[string]string{"target_user_id": targetUserID}
	var conv models.Conversation
	if err := c.do(ctx, http.MethodPost, "/api/conversations", codeHeaders{}, body, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *HTTPClient) ApproveConversation(ctx context.Context, conversationID, newCode string) error {
	// Only the chosen code travels; confirmation is a client-side check.
	body := map[string]string{"code": newCode}
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/approve"
	return c.do(ctx, http.MethodPost, path, codeHeaders{}, body, nil)
}

func (c *HTTPClient) RejectConversation(ctx context.Context, conversationID string) error {
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/reject"
	return c.do(ctx, http.MethodPost, path, codeHeaders{}, nil, nil)
}

type validResponse struct {
	Valid bool `json:"valid"`
}

func (c *HTTPClient) VerifyPrimaryCode(ctx context.Context, conversationID, code string) (bool, error) {
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/verify"
	var resp validResponse
	if err := c.do(ctx, http.MethodPost, path, codeHeaders{primary: code}, nil, &resp); err != nil {
		return false, err
	}
	return resp.Valid, nil
}

type wireMessage struct {
	ID                string    `json:"id"`
	SenderID          string    `json:"sender_id"`
	Content           string    `json:"content"`
	TranslatedContent string    `json:"translated_content,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	SecondaryAuth     bool      `json:"secondary_auth"`
}

func (c *HTTPClient) FetchMessages(ctx context.Context, conversationID, code string) ([]models.Message, error) {
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/messages"
	var resp struct {
		Messages []wireMessage `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, path, codeHeaders{primary: code}, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		out = append(out, models.Message{
			ID:                    m.ID,
			ConversationID:        conversationID,
			SenderID:              m.SenderID,
			Content:               m.Content,
			OriginalContent:       m.TranslatedContent,
			Timestamp:             m.CreatedAt,
			SecondaryAuthRequired: m.SecondaryAuth,
		})
	}
	return out, nil
}

func (c *HTTPClient) VerifySecondaryCode(ctx context.Context, conversationID, messageID, primaryCode, secondaryCode string) (bool, error) {
	path := "/api/conversations/" + url.PathEscape(conversationID) +
		"/messages/" + url.PathEscape(messageID) + "/verify"
	var resp validResponse
	headers := codeHeaders{primary: primaryCode, secondary: secondaryCode}
	if err := c.do(ctx, http.MethodPost, path, headers, nil, &resp); err != nil {
		return false, err
	}
	return resp.Valid, nil
}

func (c *HTTPClient) FetchUnlockedMessage(ctx context.Context, conversationID, messageID, primaryCode, secondaryCode string) (*UnlockedContent, error) {
	path := "/api/conversations/" + url.PathEscape(conversationID) +
		"/messages/" + url.PathEscape(messageID) + "/unlocked"
	var resp UnlockedContent
	headers := codeHeaders{primary: primaryCode, secondary: secondaryCode}
	if err := c.do(ctx, http.MethodGet, path, headers, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
