package helpers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sjsage522/vendingsearch/pkg/errors"

	"github.com/stretchr/testify/assert"
)

func TestFetchWithRandomHeaders(t *testing.T) {
	// Create a test server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check that headers are set and nothing identifying is sent
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("Accept-Language"))
		assert.Empty(t, r.Header.Get("Cookie"))
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "vending", r.URL.Query().Get("module"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>Loja do Zé</body></html>"))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(5 * time.Second)
	reader, err := fetcher.Fetch(context.Background(), server.URL+"/?module=vending&p=1")
	assert.NoError(t, err)

	body, err := io.ReadAll(reader)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "Loja do Zé")
}

func TestFetchWithRandomHeadersNonUTF8(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.WriteHeader(http.StatusOK)
		// "Poção" in ISO-8859-1
		w.Write([]byte("<html><body>Po\xe7\xe3o</body></html>"))
	}))
	defer server.Close()

	reader, err := NewHTTPFetcher(5*time.Second).Fetch(context.Background(), server.URL)
	assert.NoError(t, err)

	body, err := io.ReadAll(reader)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "Poção")
}

func TestFetchWithRandomHeadersError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(5 * time.Second)
	_, err := fetcher.Fetch(context.Background(), server.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 500")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNetwork))

	// Test with rate limiting
	serverRateLimited := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer serverRateLimited.Close()

	_, err = fetcher.Fetch(context.Background(), serverRateLimited.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.True(t, errors.IsType(err, errors.ErrorTypeRateLimit))
}

func TestFetchWithRandomHeadersCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPFetcher(5*time.Second).Fetch(ctx, server.URL)
	assert.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchWithRandomHeadersInvalidURL(t *testing.T) {
	_, err := NewHTTPFetcher(time.Second).Fetch(context.Background(), "http://invalid.url.that.does.not.exist")
	assert.Error(t, err)
}
