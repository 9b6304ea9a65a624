// Package auth implements the RaceGrid authorization manager: OAuth2 flow
// selection, token caching with lazy expiry, PKCE, and the token endpoint
// exchanges for the client_credentials, authorization_code, and
// refresh_token grants.
//
// Tokens live in memory for the manager's lifetime. Persisting them across
// process restarts is the caller's job; see TokenSnapshot and RestoreToken.
package auth

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/racegrid/racegrid-go/internal/apierrors"
	"github.com/racegrid/racegrid-go/internal/httpclient"
)

// Manager orchestrates token acquisition for one client identity. Each
// instance is independent; multiple identities can coexist in one process.
type Manager struct {
	creds        Credentials
	flow         FlowKind
	store        *tokenStore
	exchanger    *exchanger
	authorizeURL string
	log          zerolog.Logger

	// mu serializes the check-exchange-store sequence so concurrent
	// EnsureToken calls cannot both exchange and have the second clobber the
	// first's refresh token.
	mu           sync.Mutex
	authCode     string
	pkceVerifier string

	nowTime func() time.Time
}

// Option modifies a Manager at construction.
type Option func(*Manager)

// WithNowTime sets the clock (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// NewManager validates the configuration, selects the flow kind, and returns
// a manager with an empty token store.
func NewManager(cfg Config, options ...Option) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log := cfg.logger()
	httpc := httpclient.New(&httpclient.Config{Timeout: cfg.timeout()})

	m := &Manager{
		creds: Credentials{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURI:  cfg.RedirectURI,
		},
		flow:         cfg.selectFlow(),
		store:        newTokenStore(),
		exchanger:    newExchanger(httpc, cfg.tokenURL(), log),
		authorizeURL: cfg.authorizeURL(),
		log:          log,
		nowTime:      time.Now,
	}

	for _, opt := range options {
		opt(m)
	}

	m.log.Debug().Stringer("flow", m.flow).Msg("authorization manager ready")
	return m, nil
}

// Flow returns the flow kind selected at construction.
func (m *Manager) Flow() FlowKind {
	return m.flow
}

// SetAuthorizationCode hands the manager the code captured at the redirect
// boundary. The code is consumed by the next exchange.
func (m *Manager) SetAuthorizationCode(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authCode = code
}

// PKCEVerifier returns the verifier generated by the last
// BuildAuthorizationURL call, so callers can persist it across the redirect.
func (m *Manager) PKCEVerifier() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pkceVerifier
}

// SetPKCEVerifier restores a verifier after the redirect returns, e.g. in a
// fresh process.
func (m *Manager) SetPKCEVerifier(verifier string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pkceVerifier = verifier
}

// TokenSnapshot returns a copy of the current record for the selected flow,
// for callers that persist tokens themselves.
func (m *Manager) TokenSnapshot() TokenRecord {
	return m.store.get(m.flow)
}

// RestoreToken seeds the store with a previously persisted record.
func (m *Manager) RestoreToken(rec TokenRecord) {
	m.store.put(m.flow, rec)
}

// EnsureToken returns a bearer token usable right now.
//
// A non-empty override is returned unchanged: caller-supplied tokens bypass
// the store and the network entirely. Otherwise a cached unexpired token is
// returned, and an expired or missing one triggers exactly one exchange for
// the selected flow: client credentials re-exchange, or — for the code
// flows — a refresh when a refresh token is held, else the code exchange
// using the code supplied via SetAuthorizationCode. A failed exchange
// propagates; the manager never substitutes a stale or empty token.
func (m *Manager) EnsureToken(ctx context.Context, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.store.get(m.flow)
	if !rec.ExpiredAt(m.nowTime()) {
		return rec.AccessToken, nil
	}

	result, err := m.exchange(ctx, rec)
	if err != nil {
		return "", err
	}

	fresh := result.record(m.nowTime())
	m.store.put(m.flow, fresh)
	m.authCode = "" // single use

	return fresh.AccessToken, nil
}

// exchange runs the one exchange attempt appropriate for the current state.
// Caller holds m.mu.
func (m *Manager) exchange(ctx context.Context, rec TokenRecord) (*TokenResult, error) {
	if m.flow == FlowClientCredentials {
		return m.exchanger.clientCredentials(ctx, m.creds)
	}

	if rec.RefreshToken != "" {
		return m.exchanger.refresh(ctx, m.creds, rec.RefreshToken)
	}

	if m.authCode == "" {
		return nil, apierrors.New(apierrors.Configuration,
			"no authorization code available; complete the authorization redirect and call SetAuthorizationCode first")
	}

	verifier := ""
	if m.flow == FlowAuthorizationCodePKCE {
		verifier = m.pkceVerifier
		if verifier == "" {
			return nil, apierrors.New(apierrors.Configuration,
				"PKCE code exchange requires the verifier from BuildAuthorizationURL (or SetPKCEVerifier)")
		}
	}

	return m.exchanger.authorizationCode(ctx, m.creds, m.authCode, verifier)
}

// BuildAuthorizationURL constructs the provider authorize URL for the code
// flows and returns it together with the CSRF state carried in it. When
// state is empty a version-4 UUID is generated. For the PKCE flow a fresh
// verifier/challenge pair is generated and the verifier retained for the
// later exchange.
//
// The caller is responsible for checking that the provider echoes the state
// back unchanged.
func (m *Manager) BuildAuthorizationURL(scope, state string) (string, string, error) {
	if !m.flow.usesAuthorizationCode() {
		return "", "", apierrors.New(apierrors.Configuration,
			"cannot build an authorization URL for the client credentials flow")
	}

	if state == "" {
		state = uuid.NewString()
	}

	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", m.creds.ClientID)
	params.Set("redirect_uri", m.creds.RedirectURI)
	params.Set("scope", scope)
	params.Set("state", state)

	if m.flow == FlowAuthorizationCodePKCE {
		pair, err := GeneratePair()
		if err != nil {
			return "", "", errors.Wrap(err, "generating PKCE pair")
		}
		m.mu.Lock()
		m.pkceVerifier = pair.Verifier
		m.mu.Unlock()

		params.Set("code_challenge", pair.Challenge)
		params.Set("code_challenge_method", "S256")
	}

	u, err := url.Parse(m.authorizeURL)
	if err != nil {
		return "", "", errors.Wrap(err, "invalid authorize endpoint")
	}
	u.RawQuery = params.Encode()

	m.log.Debug().Str("state", state).Stringer("flow", m.flow).Msg("authorization URL built")
	return u.String(), state, nil
}
