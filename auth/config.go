package auth

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/racegrid/racegrid-go/internal/apierrors"
)

// Production hosts. Both can be overridden per Config, which the tests rely
// on to point the manager at mock servers.
const (
	DefaultIdentityBaseURL = "https://id.racegrid.io"
	DefaultAPIBaseURL      = "https://api.racegrid.io/v2"

	tokenEndpointPath     = "/oauth2/access_token"
	authorizeEndpointPath = "/oauth2/authorize"
)

// Config is the constructor surface for a Manager (and for client.Client,
// which embeds one).
//
// The flow kind is derived from the fields once, at construction:
// no RedirectURI selects client credentials; RedirectURI plus SPA selects
// authorization code with PKCE; RedirectURI without SPA selects the
// confidential authorization code flow.
type Config struct {
	// ClientID is required for every flow.
	ClientID string
	// ClientSecret is required for the confidential flows and must be absent
	// for SPA/PKCE clients, which cannot keep a secret.
	ClientSecret string
	// RedirectURI enables the authorization code flows.
	RedirectURI string
	// SPA marks the client as public, switching the code flow to PKCE.
	SPA bool

	// IdentityBaseURL and APIBaseURL override the production hosts.
	IdentityBaseURL string
	APIBaseURL      string

	// Timeout bounds every network operation. Zero means the default.
	Timeout time.Duration

	// Verbose enables debug logging. Purely diagnostic; it never alters
	// control flow.
	Verbose bool
	// Logger overrides the default stderr logger.
	Logger *zerolog.Logger
}

// selectFlow derives the flow kind from the configuration.
func (c Config) selectFlow() FlowKind {
	switch {
	case c.RedirectURI == "":
		return FlowClientCredentials
	case c.SPA:
		return FlowAuthorizationCodePKCE
	default:
		return FlowAuthorizationCode
	}
}

// validate checks the configuration against the selected flow.
func (c Config) validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return apierrors.New(apierrors.Configuration, "client_id is required")
	}

	switch c.selectFlow() {
	case FlowClientCredentials:
		if c.ClientSecret == "" {
			return apierrors.New(apierrors.Configuration, "client_secret is required for the client credentials flow")
		}
	case FlowAuthorizationCode:
		if c.ClientSecret == "" {
			return apierrors.New(apierrors.Configuration, "client_secret is required for the confidential authorization code flow")
		}
	case FlowAuthorizationCodePKCE:
		if c.ClientSecret != "" {
			return apierrors.New(apierrors.Configuration, "PKCE clients must not carry a client_secret")
		}
	}

	return nil
}

func (c Config) identityBaseURL() string {
	if c.IdentityBaseURL != "" {
		return strings.TrimRight(c.IdentityBaseURL, "/")
	}
	return DefaultIdentityBaseURL
}

// APIBase returns the resource host base URL without a trailing slash.
func (c Config) APIBase() string {
	if c.APIBaseURL != "" {
		return strings.TrimRight(c.APIBaseURL, "/")
	}
	return DefaultAPIBaseURL
}

func (c Config) tokenURL() string {
	return c.identityBaseURL() + tokenEndpointPath
}

func (c Config) authorizeURL() string {
	return c.identityBaseURL() + authorizeEndpointPath
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 30 * time.Second
}

// logger resolves the configured logger, defaulting to stderr. Verbose
// drops the level to debug; otherwise only warnings and errors surface.
func (c Config) logger() zerolog.Logger {
	var log zerolog.Logger
	if c.Logger != nil {
		log = *c.Logger
	} else {
		log = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	if c.Verbose {
		return log.Level(zerolog.DebugLevel)
	}
	return log.Level(zerolog.WarnLevel)
}
