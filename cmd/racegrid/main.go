// Command racegrid is a small CLI for the RaceGrid API: it lists hosts and
// vehicle mods, shows account info, and drives the browser login flow for
// the authorization code grants.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog"

	"github.com/racegrid/racegrid-go/auth"
	"github.com/racegrid/racegrid-go/client"
	"github.com/racegrid/racegrid-go/internal/tokenfile"
	"github.com/racegrid/racegrid-go/lookup"
)

const loginTimeout = 5 * time.Minute

func main() {
	var (
		clientID     string
		clientSecret string
		redirectURI  string
		spa          bool
		scope        string
		identityURL  string
		apiURL       string
		token        string
		verbose      bool
	)

	flag.StringVar(&clientID, "client-id", os.Getenv("RACEGRID_CLIENT_ID"), "OAuth2 client ID")
	flag.StringVar(&clientSecret, "client-secret", os.Getenv("RACEGRID_CLIENT_SECRET"), "OAuth2 client secret (omit for SPA clients)")
	flag.StringVar(&redirectURI, "redirect-uri", "", "Redirect URI for the authorization code flows")
	flag.BoolVar(&spa, "spa", false, "Use the public-client PKCE flow")
	flag.StringVar(&scope, "scope", "openid profile", "Scopes requested during login")
	flag.StringVar(&identityURL, "id-url", "", "Override the identity host base URL")
	flag.StringVar(&apiURL, "api-url", "", "Override the API host base URL")
	flag.StringVar(&token, "token", "", "Explicit bearer token, bypassing token acquisition")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cfg := auth.Config{
		ClientID:        clientID,
		ClientSecret:    clientSecret,
		RedirectURI:     redirectURI,
		SPA:             spa,
		IdentityBaseURL: identityURL,
		APIBaseURL:      apiURL,
		Verbose:         verbose,
		Logger:          &logger,
	}

	c, err := client.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Seed the manager with state persisted by a previous run.
	if rec, err := tokenfile.Load(); err == nil && rec.AccessToken != "" {
		c.Auth().RestoreToken(rec)
	}
	if c.Auth().Flow() == auth.FlowAuthorizationCodePKCE {
		if verifier, err := tokenfile.LoadVerifier(); err == nil && verifier != "" {
			c.Auth().SetPKCEVerifier(verifier)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var callOpts []client.CallOption
	if token != "" {
		callOpts = append(callOpts, client.WithToken(token))
	}

	switch cmd := flag.Arg(0); cmd {
	case "login":
		err = runLogin(ctx, c, scope, redirectURI, logger)
	case "hosts":
		err = runHosts(ctx, c, callOpts)
	case "host":
		err = withID(func(id int) error { return runHost(ctx, c, id, callOpts) })
	case "vehiclemods":
		err = runVehicleMods(ctx, c, callOpts)
	case "vehiclemod":
		err = withID(func(id int) error { return runVehicleMod(ctx, c, id, callOpts) })
	case "userinfo":
		err = runUserInfo(ctx, c, callOpts)
	case "logout":
		err = tokenfile.Delete()
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		logger.Fatal().Err(err).Str("command", flag.Arg(0)).Msg("command failed")
	}

	// Persist whatever the manager holds now, so the next run can skip the
	// browser round trip.
	if c.Auth().Flow() != auth.FlowClientCredentials {
		if rec := c.Auth().TokenSnapshot(); rec.AccessToken != "" {
			if err := tokenfile.Save(rec); err != nil {
				logger.Warn().Err(err).Msg("failed to persist tokens")
			}
		}
	}
}

func usage() {
	fmt.Println("Usage: racegrid [flags] <login|hosts|host <id>|vehiclemods|vehiclemod <id>|userinfo|logout>")
	flag.PrintDefaults()
}

func withID(fn func(id int) error) error {
	if flag.NArg() < 2 {
		return fmt.Errorf("an ID argument is required")
	}
	id, err := strconv.Atoi(flag.Arg(1))
	if err != nil {
		return fmt.Errorf("invalid ID %q", flag.Arg(1))
	}
	return fn(id)
}

// runLogin drives the full authorization code round trip: authorize URL,
// browser, loopback callback, code exchange.
func runLogin(ctx context.Context, c *client.Client, scope, redirectURI string, logger zerolog.Logger) error {
	manager := c.Auth()
	if manager.Flow() == auth.FlowClientCredentials {
		return fmt.Errorf("login requires -redirect-uri (and -spa for public clients)")
	}

	authURL, state, err := manager.BuildAuthorizationURL(scope, "")
	if err != nil {
		return err
	}

	if manager.Flow() == auth.FlowAuthorizationCodePKCE {
		if err := tokenfile.SaveVerifier(manager.PKCEVerifier()); err != nil {
			logger.Warn().Err(err).Msg("failed to persist PKCE verifier")
		}
	}

	port, path, err := callbackAddress(redirectURI)
	if err != nil {
		return err
	}

	cs, err := auth.StartCallbackServer(port, path, state, logger)
	if err != nil {
		return err
	}
	defer func() { _ = cs.Close() }()

	fmt.Printf("Open the following URL to authorize:\n%s\n", authURL)
	if err := browser.OpenURL(authURL); err != nil {
		logger.Warn().Err(err).Msg("could not open browser; copy the URL manually")
	}

	code, err := cs.Wait(loginTimeout)
	if err != nil {
		return err
	}
	manager.SetAuthorizationCode(code)

	if _, err := manager.EnsureToken(ctx, ""); err != nil {
		return err
	}

	fmt.Println("Login successful.")
	return nil
}

// callbackAddress extracts the loopback port and path from the redirect URI.
func callbackAddress(redirectURI string) (int, string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return 0, "", fmt.Errorf("invalid redirect URI: %w", err)
	}

	port := 0
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return 0, "", fmt.Errorf("invalid redirect URI port: %w", err)
		}
	}

	path := u.Path
	if path == "" {
		path = "/callback"
	}
	return port, path, nil
}

func runHosts(ctx context.Context, c *client.Client, opts []client.CallOption) error {
	hosts, err := c.Hosts(ctx, opts...)
	if err != nil {
		return err
	}

	for _, h := range hosts {
		printHost(h)
	}
	return nil
}

func runHost(ctx context.Context, c *client.Client, id int, opts []client.CallOption) error {
	h, err := c.Host(ctx, id, opts...)
	if err != nil {
		return err
	}
	printHost(*h)
	return nil
}

func printHost(h client.Host) {
	fmt.Printf("#%d %s | %s (%s, %s) %s %d/%d\n",
		h.ID, h.Name, h.Track,
		lookup.Surface(h.Surface), lookup.GameMode(h.Mode),
		lookup.HostStatus(h.Status), h.Players, h.MaxPlayers)
}

func runVehicleMods(ctx context.Context, c *client.Client, opts []client.CallOption) error {
	mods, err := c.VehicleMods(ctx, opts...)
	if err != nil {
		return err
	}

	for _, m := range mods {
		printVehicleMod(m)
	}
	return nil
}

func runVehicleMod(ctx context.Context, c *client.Client, id int, opts []client.CallOption) error {
	m, err := c.VehicleMod(ctx, id, opts...)
	if err != nil {
		return err
	}
	printVehicleMod(*m)
	return nil
}

func printVehicleMod(m client.VehicleMod) {
	fmt.Printf("#%d %s v%s by %s (%s, %d downloads)\n",
		m.ID, m.Name, m.Version, m.Author,
		lookup.VehicleClass(m.VehicleClass), m.Downloads)
}

func runUserInfo(ctx context.Context, c *client.Client, opts []client.CallOption) error {
	info, err := c.UserInfo(ctx, opts...)
	if err != nil {
		return err
	}

	fmt.Printf("%s (#%d) %s\n", info.Username, info.ID, info.DisplayName)
	return nil
}
