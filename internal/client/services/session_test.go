package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veilchat/veilchat/internal/client/models"
	"github.com/veilchat/veilchat/internal/client/vault"
	"github.com/veilchat/veilchat/internal/common"
)

func newGuard(t *testing.T) (*SessionGuard, *fakeClient, *vault.Memory, *recordingEvents) {
	t.Helper()
	fc := &fakeClient{}
	v := vault.NewMemory()
	ev := &recordingEvents{}
	g := NewSessionGuard(fc, v, testLogger(), ev)
	return g, fc, v, ev
}

func TestStart_PersistsSessionToVault(t *testing.T) {
	g, _, v, _ := newGuard(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }

	err := g.Start(ctx, "tok123", models.User{ID: "u1", Username: "alice"})
	require.NoError(t, err)

	tok, err := v.Get(ctx, vault.KeyToken)
	require.NoError(t, err)
	require.Equal(t, []byte("tok123"), tok)

	expiryRaw, err := v.Get(ctx, vault.KeyExpiresAt)
	require.NoError(t, err)
	expiry, err := time.Parse(time.RFC3339Nano, string(expiryRaw))
	require.NoError(t, err)
	require.Equal(t, base.Add(59*time.Minute+59*time.Second), expiry)

	s := g.Session()
	require.NotNil(t, s)
	require.Equal(t, "alice", s.User.Username)
}

func TestStart_InstallsTokenOnClient(t *testing.T) {
	g, fc, _, _ := newGuard(t)

	err := g.Start(context.Background(), "tok123", models.User{Username: "alice"})
	require.NoError(t, err)
	require.Contains(t, fc.AccessTokens, "tok123")
}

func TestStart_VaultFailureIsFatal(t *testing.T) {
	g, _, v, _ := newGuard(t)
	v.FailWith = common.ErrStorage

	err := g.Start(context.Background(), "tok", models.User{})
	require.ErrorIs(t, err, common.ErrStorage)
	require.Nil(t, g.Session(), "session must not exist when persistence failed")
}

// Login at t0 sets expiry to t0+3599s; a poll at t0+3570s raises the warning
// and a poll at t0+3599s forces logout and clears the vault.
func TestCheckExpiry_WarningThenForcedLogout(t *testing.T) {
	g, _, v, ev := newGuard(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	now := base
	g.now = func() time.Time { return now }

	require.NoError(t, g.Start(ctx, "tok", models.User{Username: "alice"}))

	// Well before the window: no warning.
	now = base.Add(30 * time.Minute)
	g.CheckExpiry(ctx)
	require.Empty(t, ev.Warnings)
	require.False(t, g.Session().WarningActive)

	// 29s remaining: inside the 30s window.
	now = base.Add(3570 * time.Second)
	g.CheckExpiry(ctx)
	require.Len(t, ev.Warnings, 1)
	require.True(t, g.Session().WarningActive)

	// Repeated polls inside the window do not re-notify.
	now = base.Add(3580 * time.Second)
	g.CheckExpiry(ctx)
	require.Len(t, ev.Warnings, 1)

	// At expiry: forced logout, vault cleared.
	now = base.Add(3599 * time.Second)
	g.CheckExpiry(ctx)
	require.Nil(t, g.Session())
	require.Equal(t, 1, ev.forcedLogoutCount())

	for _, key := range []string{vault.KeyToken, vault.KeyUser, vault.KeyExpiresAt} {
		val, err := v.Get(ctx, key)
		require.NoError(t, err)
		require.Nil(t, val, "vault key %s must be cleared", key)
	}
}

func TestCheckExpiry_VaultFailureFailsOpen(t *testing.T) {
	g, _, v, ev := newGuard(t)
	v.FailWith = common.ErrStorage

	// No in-memory session and an unreadable vault: the check must neither
	// panic nor force a logout.
	g.CheckExpiry(context.Background())
	require.Equal(t, 0, ev.forcedLogoutCount())
}

func TestLogout_IsIdempotentAndRunsHooks(t *testing.T) {
	g, fc, _, ev := newGuard(t)
	ctx := context.Background()

	hooks := 0
	g.OnLogout(func() { hooks++ })

	require.NoError(t, g.Start(ctx, "tok", models.User{}))
	g.Logout(ctx)
	g.Logout(ctx)

	require.Equal(t, 1, hooks, "hooks run once per session")
	require.Equal(t, 1, fc.InvalidateCalls)
	require.Equal(t, 0, ev.forcedLogoutCount(), "explicit logout is not a forced one")
}

func TestLogout_SucceedsWhenBackendInvalidationFails(t *testing.T) {
	g, fc, v, _ := newGuard(t)
	ctx := context.Background()
	fc.InvalidateErr = common.ErrNetwork

	require.NoError(t, g.Start(ctx, "tok", models.User{}))
	g.Logout(ctx)

	require.Nil(t, g.Session())
	require.Equal(t, 0, v.Len(), "vault cleared despite backend failure")
}

func TestForceLogout_FiresAtMostOncePerSession(t *testing.T) {
	g, _, _, ev := newGuard(t)
	ctx := context.Background()

	require.NoError(t, g.Start(ctx, "tok", models.User{}))
	g.ForceLogout(ctx, "first")
	g.ForceLogout(ctx, "second")

	require.Equal(t, 1, ev.forcedLogoutCount())
	require.Equal(t, "first", ev.ForcedLogouts[0])
}

func TestRestore_RebuildsSessionFromVault(t *testing.T) {
	g, fc, v, _ := newGuard(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }
	require.NoError(t, g.Start(ctx, "tok123", models.User{ID: "u1", Username: "alice"}))

	// Simulate a restart with a fresh guard over the same vault.
	g2 := NewSessionGuard(fc, v, testLogger(), &recordingEvents{})
	g2.now = func() time.Time { return base.Add(time.Minute) }

	ok, err := g2.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	s := g2.Session()
	require.NotNil(t, s)
	require.Equal(t, "alice", s.User.Username)
	require.Contains(t, fc.AccessTokens, "tok123", "restore must rearm the API client")
}

func TestRestore_EmptyVaultReturnsFalse(t *testing.T) {
	g, _, _, _ := newGuard(t)

	ok, err := g.Restore(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRestore_StaleSessionIsDiscarded(t *testing.T) {
	g, _, v, _ := newGuard(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }
	require.NoError(t, g.Start(ctx, "tok", models.User{}))

	// Come back after the session has long expired.
	g2 := NewSessionGuard(&fakeClient{}, v, testLogger(), &recordingEvents{})
	g2.now = func() time.Time { return base.Add(2 * time.Hour) }

	ok, err := g2.Restore(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 0, v.Len(), "stale credentials must not linger")
}

func TestRestore_TokenExpClaimWins(t *testing.T) {
	g, _, v, _ := newGuard(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }

	// exp = 2026-08-26T12:10:00Z, earlier than the stored client-side expiry.
	tokenWithExp := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9." +
		"eyJleHAiOjE3ODc3NDYyMDB9." +
		"x"
	require.NoError(t, g.Start(ctx, tokenWithExp, models.User{}))

	g2 := NewSessionGuard(&fakeClient{}, v, testLogger(), &recordingEvents{})
	g2.now = func() time.Time { return base.Add(time.Minute) }
	ok, err := g2.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, time.Unix(1787746200, 0).UTC(), g2.Session().ExpiresAt.UTC(),
		"the earlier token exp claim must cap the stored expiry")
}
