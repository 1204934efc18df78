package forward

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-formbridge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardPostsRecordAsJSON(t *testing.T) {
	var received map[string]any
	var contentType, token string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		token = r.Header.Get("X-Bridge-Token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	forwarder, err := New(server.URL, WithHTTPClient(server.Client()), WithHeader("X-Bridge-Token", "abc"))
	require.NoError(t, err)

	err = forwarder.Forward(context.Background(), core.CanonicalRecord{FormID: "9", Email: "a@b.com", FirstName: "Amy"})
	require.NoError(t, err)
	assert.Contains(t, contentType, "application/json")
	assert.Equal(t, "abc", token)
	assert.Equal(t, "a@b.com", received["email"])
	assert.Equal(t, "Amy", received["first_name"])
	assert.Len(t, received, 13)
	assert.Equal(t, "", received["phone"])
}

func TestForwardDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	forwarder, err := New(server.URL, WithHTTPClient(server.Client()))
	require.NoError(t, err)

	err = forwarder.Forward(context.Background(), core.CanonicalRecord{FormID: "9"})
	require.Error(t, err)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryExternal))
	assert.Equal(t, int32(1), calls.Load())

	var rich *goerrors.Error
	require.True(t, goerrors.As(err, &rich))
	assert.Equal(t, http.StatusServiceUnavailable, rich.Metadata["status_code"])
}

func TestForwardHonoursTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	forwarder, err := New(server.URL, WithHTTPClient(server.Client()), WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	started := time.Now()
	err = forwarder.Forward(context.Background(), core.CanonicalRecord{})
	require.Error(t, err)
	assert.Less(t, time.Since(started), 2*time.Second)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryExternal))
}

func TestNewRequiresRouterURL(t *testing.T) {
	_, err := New("  ")
	require.Error(t, err)
	assert.Equal(t, core.ErrorNotConfigured, core.MapError(err).TextCode)

	var forwarder *Forwarder
	assert.Error(t, forwarder.Forward(context.Background(), core.CanonicalRecord{}))
}
