package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "custom-value", r.Header.Get("X-Custom"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"monza"}`))
	}))
	defer server.Close()

	client := New(nil)
	resp, err := client.Get(context.Background(), server.URL, map[string]string{"X-Custom": "custom-value"})
	require.NoError(t, err)
	defer func() { _ = resp.SafeClose() }()

	assert.True(t, resp.Success())

	var body struct {
		Name string `json:"name"`
	}
	require.NoError(t, resp.JSON(&body))
	assert.Equal(t, "monza", body.Name)
}

func TestPostFormEncoding(t *testing.T) {
	var gotContentType string
	var gotForm url.Values

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", "cid")
	form.Set("client_secret", "s&cret=with specials")

	client := New(nil)
	resp, err := client.PostForm(context.Background(), server.URL, form, nil)
	require.NoError(t, err)
	defer func() { _ = resp.SafeClose() }()

	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "client_credentials", gotForm.Get("grant_type"))
	// Values with reserved characters must survive the round trip intact.
	assert.Equal(t, "s&cret=with specials", gotForm.Get("client_secret"))
}

func TestNon2xxIsNotATransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer server.Close()

	client := New(nil)
	resp, err := client.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	defer func() { _ = resp.SafeClose() }()

	assert.False(t, resp.Success())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.String(), "invalid_client")
}

func TestTransportError(t *testing.T) {
	client := New(&Config{Timeout: 500 * time.Millisecond})

	// Nothing listens here.
	_, err := client.Get(context.Background(), "http://127.0.0.1:1", nil)
	assert.Error(t, err)
}

func TestDefaultHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "racegrid-go", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(&Config{
		Timeout:        time.Second,
		DefaultHeaders: map[string]string{"User-Agent": "racegrid-go"},
	})

	resp, err := client.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	defer func() { _ = resp.SafeClose() }()
	assert.True(t, resp.Success())
}

func TestJSONEmptyBody(t *testing.T) {
	resp := &Response{BodyBytes: nil}
	var v map[string]interface{}
	assert.Error(t, resp.JSON(&v))
}
