package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/veilchat/veilchat/internal/client/api"
	"github.com/veilchat/veilchat/internal/client/models"
	"github.com/veilchat/veilchat/internal/client/vault"
	"github.com/veilchat/veilchat/internal/logging"
)

// Session lifetime policy. Expiry is absolute, computed once at login;
// activity never extends it.
const (
	SessionDuration      = 59*time.Minute + 59*time.Second
	SessionWarningWindow = 30 * time.Second
	SessionPollInterval  = 5 * time.Second
)

// SessionGuard tracks the login session: it persists credentials to the
// vault at login, answers expiry polls, and runs the logout cascade that
// every other controller observes as its single synchronization point.
type SessionGuard struct {
	mu     sync.Mutex
	client api.Client
	vlt    vault.Vault
	log    logging.Logger
	events Events

	duration      time.Duration
	warningWindow time.Duration
	now           func() time.Time

	session  *models.Session
	onLogout []func()
}

func NewSessionGuard(client api.Client, vlt vault.Vault, log logging.Logger, events Events) *SessionGuard {
	return &SessionGuard{
		client:        client,
		vlt:           vlt,
		log:           log,
		events:        events,
		duration:      SessionDuration,
		warningWindow: SessionWarningWindow,
		now:           time.Now,
	}
}

// OnLogout registers a hook run by every logout (explicit or forced) after
// the session has been torn down. Hooks must not call back into the guard.
func (g *SessionGuard) OnLogout(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onLogout = append(g.onLogout, fn)
}

// Start creates the session: it computes the absolute expiry, persists
// token, user, and expiry to the vault in one transaction, and only then
// installs the in-memory session. A vault failure is fatal to login.
func (g *SessionGuard) Start(ctx context.Context, token string, user models.User) error {
	expiresAt := g.now().Add(g.duration)

	userRaw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	err = g.vlt.SetAll(ctx, map[string][]byte{
		vault.KeyToken:     []byte(token),
		vault.KeyUser:      userRaw,
		vault.KeyExpiresAt: []byte(expiresAt.Format(time.RFC3339Nano)),
	})
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	g.client.SetAccessToken(token)

	g.mu.Lock()
	g.session = &models.Session{Token: token, User: user, ExpiresAt: expiresAt}
	g.mu.Unlock()

	g.log.Info(ctx, "session started", "user", user.Username, "expires_at", expiresAt)
	return nil
}

// Restore rebuilds the in-memory session from the vault after a process
// restart. It returns false when the vault holds no session. If the stored
// token carries an exp claim earlier than the stored expiry, the earlier
// instant wins.
func (g *SessionGuard) Restore(ctx context.Context) (bool, error) {
	token, err := g.vlt.Get(ctx, vault.KeyToken)
	if err != nil {
		return false, err
	}
	userRaw, err := g.vlt.Get(ctx, vault.KeyUser)
	if err != nil {
		return false, err
	}
	expiryRaw, err := g.vlt.Get(ctx, vault.KeyExpiresAt)
	if err != nil {
		return false, err
	}
	if token == nil || userRaw == nil || expiryRaw == nil {
		return false, nil
	}

	var user models.User
	if err := json.Unmarshal(userRaw, &user); err != nil {
		return false, fmt.Errorf("decode stored user: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, string(expiryRaw))
	if err != nil {
		return false, fmt.Errorf("parse stored expiry: %w", err)
	}

	if tokenExp, ok := tokenExpiry(string(token)); ok && tokenExp.Before(expiresAt) {
		expiresAt = tokenExp
	}

	if !expiresAt.After(g.now()) {
		// Stale session: clean it up rather than resurrect it.
		g.clearVault(ctx)
		return false, nil
	}

	g.client.SetAccessToken(string(token))

	g.mu.Lock()
	g.session = &models.Session{Token: string(token), User: user, ExpiresAt: expiresAt}
	g.mu.Unlock()

	g.log.Info(ctx, "session restored", "user", user.Username, "expires_at", expiresAt)
	return true, nil
}

func tokenExpiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// CheckExpiry evaluates the session against the clock. It is idempotent and
// safe to call from the poll task and on app-foreground transitions. An
// expired session forces a logout; a session inside the warning window sets
// WarningActive and notifies the UI once per entry into the window.
func (g *SessionGuard) CheckExpiry(ctx context.Context) {
	g.mu.Lock()
	s := g.session
	if s == nil {
		g.mu.Unlock()
		// Foreground transition before Restore ran: try the vault. A storage
		// failure here fails open; the next poll re-evaluates.
		if _, err := g.Restore(ctx); err != nil {
			g.log.Error(ctx, "expiry check could not read vault", "error", err)
			return
		}
		g.mu.Lock()
		s = g.session
		if s == nil {
			g.mu.Unlock()
			return
		}
	}

	remaining := s.Remaining(g.now())
	if remaining <= 0 {
		g.mu.Unlock()
		g.ForceLogout(ctx, "session expired")
		return
	}

	entered := false
	if remaining <= g.warningWindow {
		entered = !s.WarningActive
		s.WarningActive = true
	} else {
		s.WarningActive = false
	}
	g.mu.Unlock()

	if entered {
		g.log.Warn(ctx, "session expiring soon", "remaining", remaining)
		g.events.SessionWarning(remaining)
	}
}

// Logout destroys the session. It always succeeds locally: the vault is
// cleared, the in-memory session dropped, and the logout hooks run even if
// the best-effort backend invalidation fails. Calling Logout without an
// active session is a no-op.
func (g *SessionGuard) Logout(ctx context.Context) {
	g.mu.Lock()
	had := g.session != nil
	g.session = nil
	hooks := append([]func(){}, g.onLogout...)
	g.mu.Unlock()

	if !had {
		return
	}

	g.clearVault(ctx)
	g.client.SetAccessToken("")

	if err := g.client.InvalidateSession(ctx); err != nil {
		g.log.Warn(ctx, "backend session invalidation failed", "error", err)
	}

	for _, fn := range hooks {
		fn()
	}

	g.log.Info(ctx, "logged out")
}

// ForceLogout is Logout plus a terminal user notification. The notification
// fires at most once per session: repeated triggers after the session is
// gone are no-ops.
func (g *SessionGuard) ForceLogout(ctx context.Context, reason string) {
	g.mu.Lock()
	had := g.session != nil
	g.mu.Unlock()
	if !had {
		return
	}

	g.log.Warn(ctx, "forced logout", "reason", reason)
	g.Logout(ctx)
	g.events.ForcedLogout(reason)
}

func (g *SessionGuard) clearVault(ctx context.Context) {
	for _, key := range []string{vault.KeyToken, vault.KeyUser, vault.KeyExpiresAt} {
		if err := g.vlt.Delete(ctx, key); err != nil {
			g.log.Error(ctx, "failed to clear vault key", "key", key, "error", err)
		}
	}
}

// Session returns a snapshot of the current session, or nil when logged out.
func (g *SessionGuard) Session() *models.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return nil
	}
	s := *g.session
	return &s
}

func (g *SessionGuard) LoggedIn() bool {
	return g.Session() != nil
}
