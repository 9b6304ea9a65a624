// Package client is the RaceGrid API gateway: it resolves a bearer token
// through the authorization manager, attaches it to resource calls, and
// exposes typed wrappers for the read endpoints.
package client

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/racegrid/racegrid-go/auth"
	"github.com/racegrid/racegrid-go/internal/apierrors"
	"github.com/racegrid/racegrid-go/internal/httpclient"
)

// Client calls the RaceGrid resource API. Resource responses are never
// cached; only tokens are (inside the authorization manager).
type Client struct {
	auth    *auth.Manager
	http    *httpclient.Client
	baseURL string
	log     zerolog.Logger
}

// New builds a client from the shared configuration, constructing the
// authorization manager internally.
func New(cfg auth.Config, options ...auth.Option) (*Client, error) {
	manager, err := auth.NewManager(cfg, options...)
	if err != nil {
		return nil, err
	}

	return &Client{
		auth:    manager,
		http:    httpclient.New(&httpclient.Config{Timeout: cfg.Timeout}),
		baseURL: cfg.APIBase(),
		log:     zerolog.Nop(),
	}, nil
}

// Auth exposes the underlying authorization manager, for driving the
// redirect flows (BuildAuthorizationURL, SetAuthorizationCode) or for
// persisting tokens between runs.
func (c *Client) Auth() *auth.Manager {
	return c.auth
}

// CallOption adjusts a single resource call.
type CallOption func(*callOptions)

type callOptions struct {
	token string
}

// WithToken supplies an explicit bearer token for one call, bypassing the
// manager's store and any token exchange. Used in multi-tenant setups where
// each caller holds its own token.
func WithToken(token string) CallOption {
	return func(o *callOptions) {
		o.token = token
	}
}

// Raw performs GET {apiBaseURL}/{path} with a bearer token attached and
// returns the JSON body undecoded.
func (c *Client) Raw(ctx context.Context, path string, options ...CallOption) (json.RawMessage, error) {
	var opts callOptions
	for _, opt := range options {
		opt(&opts)
	}

	token, err := c.auth.EnsureToken(ctx, opts.token)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Get(ctx, c.baseURL+"/"+path, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if err != nil {
		return nil, apierrors.Wrap(err, apierrors.Transport, "API endpoint unreachable")
	}
	defer func() { _ = resp.SafeClose() }()

	if !resp.Success() {
		reqErr := apierrors.New(apierrors.ResourceRequest, "request for "+path+" failed").
			WithStatus(resp.StatusCode)
		if pe, ok := apierrors.ParseProviderBody(resp.BodyBytes); ok {
			reqErr = reqErr.WithBody(pe.String())
		} else {
			reqErr = reqErr.WithBody(resp.String())
		}
		return nil, reqErr
	}

	return json.RawMessage(resp.BodyBytes), nil
}

// get decodes a resource response into v.
func (c *Client) get(ctx context.Context, path string, v interface{}, options ...CallOption) error {
	raw, err := c.Raw(ctx, path, options...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrapf(err, "decoding %s response", path)
	}
	return nil
}
