package auth

import "time"

// FlowKind identifies the OAuth2 grant flow a manager operates under. It is
// selected once at construction and fixed for the manager's lifetime.
type FlowKind int

const (
	// FlowClientCredentials is the confidential machine-to-machine flow.
	FlowClientCredentials FlowKind = iota
	// FlowAuthorizationCode is the confidential redirect flow, authenticated
	// with a client secret.
	FlowAuthorizationCode
	// FlowAuthorizationCodePKCE is the public-client redirect flow (SPA and
	// native apps), authenticated with a PKCE verifier instead of a secret.
	FlowAuthorizationCodePKCE
)

func (f FlowKind) String() string {
	switch f {
	case FlowClientCredentials:
		return "client_credentials"
	case FlowAuthorizationCode:
		return "authorization_code"
	case FlowAuthorizationCodePKCE:
		return "authorization_code_pkce"
	default:
		return "unknown"
	}
}

// usesAuthorizationCode reports whether the flow obtains its first token via
// a browser redirect and code exchange.
func (f FlowKind) usesAuthorizationCode() bool {
	return f == FlowAuthorizationCode || f == FlowAuthorizationCodePKCE
}

// Credentials is the immutable client identity handed to the provider.
// ClientSecret is empty for public (PKCE) clients.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// TokenRecord is the cached authorization state for one flow kind. It is
// replaced wholesale on every successful exchange, never partially mutated.
// ExpiresAt is an absolute instant (issuance time plus the provider's
// expires_in), so the expiry check is always instant-against-instant.
type TokenRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ExpiredAt reports whether the record is unusable at the given instant. A
// zero record (never issued) is always expired.
func (r TokenRecord) ExpiredAt(now time.Time) bool {
	return r.AccessToken == "" || !now.Before(r.ExpiresAt)
}

// TokenResult is the token endpoint's JSON response.
type TokenResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type,omitempty"`
}

// record converts the exchange result into a TokenRecord issued at the given
// instant.
func (t *TokenResult) record(issuedAt time.Time) TokenRecord {
	return TokenRecord{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    issuedAt.Add(time.Duration(t.ExpiresIn) * time.Second),
	}
}

// PKCEPair is an RFC 7636 verifier/challenge pair. The challenge is a pure
// function of the verifier (S256 method).
type PKCEPair struct {
	Verifier  string
	Challenge string
}
