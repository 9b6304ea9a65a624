package auth

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const callbackSuccessPage = `<!DOCTYPE html>
<html>
<head><title>Authorization Successful</title></head>
<body>
	<h1>Authorization Successful</h1>
	<p>You can close this window and return to the application.</p>
</body>
</html>
`

// CallbackServer is a loopback HTTP server that receives the provider's
// authorization redirect during the code flows. It verifies the echoed CSRF
// state before releasing the code.
type CallbackServer struct {
	srv      *http.Server
	port     int
	codeChan chan string
	log      zerolog.Logger
}

// StartCallbackServer binds a loopback listener and serves the redirect
// path. With port 0 (or an occupied port) it scans upward for a free one;
// Port reports the bound port so the redirect URI can be assembled from it.
// expectedState, when non-empty, must match the state echoed by the
// provider; mismatched redirects are rejected and the server keeps waiting.
func StartCallbackServer(port int, path, expectedState string, log zerolog.Logger) (*CallbackServer, error) {
	if path == "" {
		path = "/callback"
	}

	listener, boundPort, err := listenLoopback(port)
	if err != nil {
		return nil, err
	}

	cs := &CallbackServer{
		port:     boundPort,
		codeChan: make(chan string, 1),
		log:      log,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.GET(path, func(c *gin.Context) {
		if errParam := c.Query("error"); errParam != "" {
			cs.log.Warn().Str("error", errParam).Msg("authorization denied by provider")
			c.String(http.StatusBadRequest, "authorization failed: %s", errParam)
			return
		}

		code := c.Query("code")
		if code == "" {
			c.String(http.StatusBadRequest, "authorization code not found")
			return
		}

		if expectedState != "" && c.Query("state") != expectedState {
			cs.log.Warn().Msg("state mismatch on authorization callback")
			c.String(http.StatusBadRequest, "state mismatch")
			return
		}

		select {
		case cs.codeChan <- code:
			c.Header("Content-Type", "text/html")
			c.String(http.StatusOK, callbackSuccessPage)
		default:
			c.String(http.StatusBadRequest, "authorization flow not in progress")
		}
	})

	cs.srv = &http.Server{Handler: router}
	go func() {
		if err := cs.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cs.log.Error().Err(err).Msg("callback server error")
		}
	}()

	cs.log.Debug().Int("port", boundPort).Str("path", path).Msg("callback server listening")
	return cs, nil
}

// Port returns the bound loopback port.
func (cs *CallbackServer) Port() int {
	return cs.port
}

// Wait blocks until the provider redirects back with a code, or the timeout
// elapses.
func (cs *CallbackServer) Wait(timeout time.Duration) (string, error) {
	select {
	case code := <-cs.codeChan:
		return code, nil
	case <-time.After(timeout):
		return "", errors.New("timeout waiting for authorization code")
	}
}

// Close shuts the server down.
func (cs *CallbackServer) Close() error {
	return cs.srv.Close()
}

// listenLoopback binds 127.0.0.1 on the requested port, scanning upward
// when it is taken. Port 0 delegates the choice to the kernel.
func listenLoopback(port int) (net.Listener, int, error) {
	if port == 0 {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return nil, 0, fmt.Errorf("failed to bind callback listener: %w", err)
		}
		return listener, listener.Addr().(*net.TCPAddr).Port, nil
	}

	var lastErr error
	for i := 0; i < 100; i++ {
		candidate := port + i
		listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", candidate))
		if err == nil {
			return listener, candidate, nil
		}
		lastErr = err
	}
	return nil, 0, fmt.Errorf("no available callback port after 100 attempts: %w", lastErr)
}
