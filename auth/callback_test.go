package auth

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackServerReceivesCode(t *testing.T) {
	cs, err := StartCallbackServer(0, "/callback", "expected-state", zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = cs.Close() }()

	redirect := fmt.Sprintf("http://127.0.0.1:%d/callback?code=auth-code-1&state=expected-state", cs.Port())
	resp, err := http.Get(redirect)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	code, err := cs.Wait(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "auth-code-1", code)
}

func TestCallbackServerRejectsStateMismatch(t *testing.T) {
	cs, err := StartCallbackServer(0, "/callback", "expected-state", zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = cs.Close() }()

	redirect := fmt.Sprintf("http://127.0.0.1:%d/callback?code=auth-code-1&state=forged", cs.Port())
	resp, err := http.Get(redirect)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The forged redirect must not release a code.
	_, err = cs.Wait(200 * time.Millisecond)
	assert.Error(t, err)
}

func TestCallbackServerRejectsMissingCode(t *testing.T) {
	cs, err := StartCallbackServer(0, "/callback", "", zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = cs.Close() }()

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/callback", cs.Port()))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCallbackServerProviderError(t *testing.T) {
	cs, err := StartCallbackServer(0, "/callback", "", zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = cs.Close() }()

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/callback?error=access_denied", cs.Port()))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCallbackServerWaitTimeout(t *testing.T) {
	cs, err := StartCallbackServer(0, "/callback", "", zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = cs.Close() }()

	_, err = cs.Wait(100 * time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}
