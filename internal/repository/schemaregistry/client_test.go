package schemaregistry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djaytech/twitter-to-kafka-service/internal/domain/topic"
)

func TestPing_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/vnd.schemaregistry.v1+json")
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	cl := New(Config{URL: srv.URL, Timeout: time.Second})
	defer cl.Close()
	require.NoError(t, cl.Ping(context.Background()))
}

func TestPing_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := New(Config{URL: srv.URL}).Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, topic.ErrConnection)
	assert.Contains(t, err.Error(), "503")
}

func TestPing_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := New(Config{URL: url, Timeout: 500 * time.Millisecond}).Ping(context.Background())
	require.Error(t, err)
	assert.True(t, topic.Retryable(err))
}
