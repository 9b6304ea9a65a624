package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racegrid/racegrid-go/internal/apierrors"
)

// countingTokenServer responds to every POST with the given token payload
// and counts exchanges.
type countingTokenServer struct {
	*httptest.Server
	calls    atomic.Int64
	lastForm atomic.Pointer[url.Values]
}

func newCountingTokenServer(t *testing.T, status int, response map[string]interface{}) *countingTokenServer {
	t.Helper()
	cts := &countingTokenServer{}

	cts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cts.calls.Add(1)
		require.NoError(t, r.ParseForm())
		form := r.PostForm
		cts.lastForm.Store(&form)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(response)
	}))

	return cts
}

func (cts *countingTokenServer) form() url.Values {
	if f := cts.lastForm.Load(); f != nil {
		return *f
	}
	return url.Values{}
}

func TestEnsureTokenClientCredentials(t *testing.T) {
	// Scenario: empty store, client-credentials manager. The first call
	// performs exactly one client_credentials exchange.
	server := newCountingTokenServer(t, http.StatusOK, map[string]interface{}{
		"access_token": "cc-token",
		"expires_in":   3600,
	})
	defer server.Close()

	m, err := NewManager(Config{
		ClientID:        "cid",
		ClientSecret:    "sec",
		IdentityBaseURL: server.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, FlowClientCredentials, m.Flow())

	token, err := m.EnsureToken(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "cc-token", token)
	assert.EqualValues(t, 1, server.calls.Load())
	assert.Equal(t, "client_credentials", server.form().Get("grant_type"))

	// A valid cached token short-circuits the next call.
	token, err = m.EnsureToken(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "cc-token", token)
	assert.EqualValues(t, 1, server.calls.Load())
}

func TestBuildAuthorizationURLConfidential(t *testing.T) {
	m, err := NewManager(Config{
		ClientID:     "cid",
		ClientSecret: "sec",
		RedirectURI:  "http://localhost:8080/callback",
	})
	require.NoError(t, err)

	authURL, state, err := m.BuildAuthorizationURL("openid profile", "state123")
	require.NoError(t, err)
	assert.Equal(t, "state123", state)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()

	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "http://localhost:8080/callback", q.Get("redirect_uri"))
	assert.Equal(t, "openid profile", q.Get("scope"))
	assert.Equal(t, "state123", q.Get("state"))
	assert.Empty(t, q.Get("code_challenge"))
	assert.Empty(t, q.Get("code_challenge_method"))
}

func TestBuildAuthorizationURLPKCE(t *testing.T) {
	m, err := NewManager(Config{
		ClientID:    "cid",
		RedirectURI: "http://localhost:8080/callback",
		SPA:         true,
	})
	require.NoError(t, err)

	authURL, _, err := m.BuildAuthorizationURL("openid profile", "")
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()

	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	require.NotEmpty(t, q.Get("code_challenge"))

	// The retained verifier derives exactly the challenge in the URL.
	verifier := m.PKCEVerifier()
	require.NotEmpty(t, verifier)
	assert.Equal(t, ComputeChallenge(verifier), q.Get("code_challenge"))

	// Generated state is a UUID, present in the URL.
	assert.NotEmpty(t, q.Get("state"))
}

func TestBuildAuthorizationURLStateGenerated(t *testing.T) {
	m, err := NewManager(Config{
		ClientID:     "cid",
		ClientSecret: "sec",
		RedirectURI:  "http://localhost:8080/callback",
	})
	require.NoError(t, err)

	_, s1, err := m.BuildAuthorizationURL("openid", "")
	require.NoError(t, err)
	_, s2, err := m.BuildAuthorizationURL("openid", "")
	require.NoError(t, err)

	assert.NotEmpty(t, s1)
	assert.NotEqual(t, s1, s2)
}

func TestBuildAuthorizationURLClientCredentialsRejected(t *testing.T) {
	m, err := NewManager(Config{ClientID: "cid", ClientSecret: "sec"})
	require.NoError(t, err)

	_, _, err = m.BuildAuthorizationURL("openid", "")
	assert.True(t, apierrors.IsKind(err, apierrors.Configuration))
}

func TestEnsureTokenExpiryIsAbsolute(t *testing.T) {
	// Scenario: a token issued at instant T with expires_in=3600 is valid at
	// T+3599s and expired at T+3601s.
	server := newCountingTokenServer(t, http.StatusOK, map[string]interface{}{
		"access_token": "abc",
		"expires_in":   3600,
	})
	defer server.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m, err := NewManager(Config{
		ClientID:        "cid",
		ClientSecret:    "sec",
		IdentityBaseURL: server.URL,
	}, WithNowTime(func() time.Time { return now }))
	require.NoError(t, err)

	token, err := m.EnsureToken(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	issued := now
	rec := m.TokenSnapshot()
	assert.False(t, rec.ExpiredAt(issued.Add(3599*time.Second)))
	assert.True(t, rec.ExpiredAt(issued.Add(3601*time.Second)))

	// Advancing the clock past expiry triggers a second exchange.
	now = issued.Add(3601 * time.Second)
	_, err = m.EnsureToken(context.Background(), "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, server.calls.Load())
}

func TestEnsureTokenNoFallbackOnFailure(t *testing.T) {
	// Scenario: the provider answers 401. EnsureToken must surface the
	// failure, not a stale or empty token.
	server := newCountingTokenServer(t, http.StatusUnauthorized, map[string]interface{}{
		"error": "invalid_client",
	})
	defer server.Close()

	m, err := NewManager(Config{
		ClientID:        "cid",
		ClientSecret:    "sec",
		IdentityBaseURL: server.URL,
	})
	require.NoError(t, err)

	token, err := m.EnsureToken(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apierrors.IsKind(err, apierrors.TokenExchange))
	assert.Empty(t, token)

	// The store stays empty; nothing was half-written.
	assert.Empty(t, m.TokenSnapshot().AccessToken)
}

func TestEnsureTokenOverrideBypassesEverything(t *testing.T) {
	server := newCountingTokenServer(t, http.StatusOK, map[string]interface{}{
		"access_token": "never-used",
		"expires_in":   3600,
	})
	defer server.Close()

	m, err := NewManager(Config{
		ClientID:        "cid",
		ClientSecret:    "sec",
		IdentityBaseURL: server.URL,
	})
	require.NoError(t, err)

	token, err := m.EnsureToken(context.Background(), "caller-token")
	require.NoError(t, err)
	assert.Equal(t, "caller-token", token)

	// No exchange happened and the store was not touched.
	assert.EqualValues(t, 0, server.calls.Load())
	assert.Empty(t, m.TokenSnapshot().AccessToken)
}

func TestEnsureTokenAuthorizationCodeFlow(t *testing.T) {
	server := newCountingTokenServer(t, http.StatusOK, map[string]interface{}{
		"access_token":  "user-token",
		"refresh_token": "user-refresh",
		"expires_in":    3600,
	})
	defer server.Close()

	m, err := NewManager(Config{
		ClientID:        "cid",
		ClientSecret:    "sec",
		RedirectURI:     "http://localhost:8080/callback",
		IdentityBaseURL: server.URL,
	})
	require.NoError(t, err)

	// Without a code the manager cannot exchange.
	_, err = m.EnsureToken(context.Background(), "")
	assert.True(t, apierrors.IsKind(err, apierrors.Configuration))
	assert.EqualValues(t, 0, server.calls.Load())

	m.SetAuthorizationCode("redeem-me")
	token, err := m.EnsureToken(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "user-token", token)
	assert.Equal(t, "authorization_code", server.form().Get("grant_type"))
	assert.Equal(t, "redeem-me", server.form().Get("code"))
}

func TestEnsureTokenRefreshPreferred(t *testing.T) {
	server := newCountingTokenServer(t, http.StatusOK, map[string]interface{}{
		"access_token":  "fresh",
		"refresh_token": "rotated",
		"expires_in":    3600,
	})
	defer server.Close()

	m, err := NewManager(Config{
		ClientID:        "cid",
		ClientSecret:    "sec",
		RedirectURI:     "http://localhost:8080/callback",
		IdentityBaseURL: server.URL,
	})
	require.NoError(t, err)

	// Seed an expired record that still holds a refresh token.
	m.RestoreToken(TokenRecord{
		AccessToken:  "stale",
		RefreshToken: "old-refresh",
		ExpiresAt:    time.Now().Add(-time.Second),
	})

	token, err := m.EnsureToken(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, "refresh_token", server.form().Get("grant_type"))
	assert.Equal(t, "old-refresh", server.form().Get("refresh_token"))

	// The rotated refresh token replaced the old one wholesale.
	assert.Equal(t, "rotated", m.TokenSnapshot().RefreshToken)
}

func TestEnsureTokenPKCERequiresVerifier(t *testing.T) {
	server := newCountingTokenServer(t, http.StatusOK, map[string]interface{}{
		"access_token": "x",
		"expires_in":   3600,
	})
	defer server.Close()

	m, err := NewManager(Config{
		ClientID:        "cid",
		RedirectURI:     "http://localhost:8080/callback",
		SPA:             true,
		IdentityBaseURL: server.URL,
	})
	require.NoError(t, err)

	m.SetAuthorizationCode("the-code")
	_, err = m.EnsureToken(context.Background(), "")
	assert.True(t, apierrors.IsKind(err, apierrors.Configuration))

	// Restoring the verifier (as after a redirect in a fresh process)
	// unblocks the exchange.
	m.SetPKCEVerifier("restored-verifier")
	_, err = m.EnsureToken(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "restored-verifier", server.form().Get("code_verifier"))
}

func TestManagerFlowIsolation(t *testing.T) {
	// Two managers for the same process: machine and user tokens live in
	// independent stores.
	server := newCountingTokenServer(t, http.StatusOK, map[string]interface{}{
		"access_token": "machine",
		"expires_in":   3600,
	})
	defer server.Close()

	machine, err := NewManager(Config{ClientID: "cid", ClientSecret: "sec", IdentityBaseURL: server.URL})
	require.NoError(t, err)

	user, err := NewManager(Config{ClientID: "cid", ClientSecret: "sec", RedirectURI: "http://localhost/cb", IdentityBaseURL: server.URL})
	require.NoError(t, err)

	_, err = machine.EnsureToken(context.Background(), "")
	require.NoError(t, err)

	assert.NotEmpty(t, machine.TokenSnapshot().AccessToken)
	assert.Empty(t, user.TokenSnapshot().AccessToken)
}
