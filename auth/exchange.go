package auth

import (
	"context"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/racegrid/racegrid-go/internal/apierrors"
	"github.com/racegrid/racegrid-go/internal/httpclient"
)

// exchanger performs the token endpoint POST for the three grant types the
// provider supports. One network call per invocation, no retries; failures
// come back as typed errors so call sites stay uniform.
type exchanger struct {
	http     *httpclient.Client
	tokenURL string
	log      zerolog.Logger
}

func newExchanger(http *httpclient.Client, tokenURL string, log zerolog.Logger) *exchanger {
	return &exchanger{http: http, tokenURL: tokenURL, log: log}
}

// clientCredentials performs the client_credentials grant.
func (e *exchanger) clientCredentials(ctx context.Context, creds Credentials) (*TokenResult, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)

	return e.post(ctx, form)
}

// authorizationCode performs the authorization_code grant. The request
// carries either the client secret (confidential client) or the PKCE
// verifier (public client), never both.
func (e *exchanger) authorizationCode(ctx context.Context, creds Credentials, code, pkceVerifier string) (*TokenResult, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", creds.ClientID)
	form.Set("redirect_uri", creds.RedirectURI)
	form.Set("code", code)
	if pkceVerifier != "" {
		form.Set("code_verifier", pkceVerifier)
	} else {
		form.Set("client_secret", creds.ClientSecret)
	}

	return e.post(ctx, form)
}

// refresh performs the refresh_token grant.
func (e *exchanger) refresh(ctx context.Context, creds Credentials, refreshToken string) (*TokenResult, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", creds.ClientID)
	if creds.ClientSecret != "" {
		form.Set("client_secret", creds.ClientSecret)
	}

	return e.post(ctx, form)
}

func (e *exchanger) post(ctx context.Context, form url.Values) (*TokenResult, error) {
	grant := form.Get("grant_type")
	e.log.Debug().Str("grant_type", grant).Str("endpoint", e.tokenURL).Msg("token exchange")

	resp, err := e.http.PostForm(ctx, e.tokenURL, form, nil)
	if err != nil {
		return nil, apierrors.Wrap(err, apierrors.Transport, "token endpoint unreachable")
	}
	defer func() { _ = resp.SafeClose() }()

	if !resp.Success() {
		exchErr := apierrors.New(apierrors.TokenExchange, "provider rejected "+grant+" grant").
			WithStatus(resp.StatusCode)
		if pe, ok := apierrors.ParseProviderBody(resp.BodyBytes); ok {
			exchErr = exchErr.WithBody(pe.String())
		} else {
			exchErr = exchErr.WithBody(resp.String())
		}
		e.log.Warn().Int("status", resp.StatusCode).Str("grant_type", grant).Msg("token exchange rejected")
		return nil, exchErr
	}

	var result TokenResult
	if err := resp.JSON(&result); err != nil {
		return nil, apierrors.Wrap(err, apierrors.TokenExchange, "malformed token response")
	}
	if result.AccessToken == "" {
		return nil, apierrors.New(apierrors.TokenExchange, "token response missing access_token")
	}

	e.log.Debug().Str("grant_type", grant).Int("expires_in", result.ExpiresIn).Msg("token issued")
	return &result, nil
}
