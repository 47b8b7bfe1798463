package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyChunks(t *testing.T) {
	payload := make([]byte, 3*ChunkSize+100)
	for i := range payload {
		payload[i] = byte(i)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	ctx := context.Background()
	resp, err := Get(srv.Client(), srv.URL)(ctx)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.Status)

	var got []byte
	for {
		chunk, err := resp.Body.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.NotEmpty(t, chunk)
		require.LessOrEqual(t, len(chunk), ChunkSize)
		got = append(got, chunk...)
	}
	require.Equal(t, payload, got)

	// Exhaustion is sticky.
	_, err = resp.Body.Next(ctx)
	require.ErrorIs(t, err, io.EOF)
	_, err = resp.Body.Next(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestBodyContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	resp, err := Get(srv.Client(), srv.URL)(ctx)
	require.NoError(t, err)
	defer resp.Body.Close()

	cancel()
	_, err = resp.Body.Next(ctx)
	require.Error(t, err)
}

func TestDoPreservesHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient()
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := Do(client, req)(context.Background())
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
}

func TestNewClient(t *testing.T) {
	t.Run("DisablesTransparentCompression", func(t *testing.T) {
		client, err := NewClient()
		require.NoError(t, err)

		tr, ok := client.Transport.(*http.Transport)
		require.True(t, ok)
		assert.True(t, tr.DisableCompression)
		assert.Zero(t, client.Timeout)
	})

	t.Run("RejectsInvalidOptions", func(t *testing.T) {
		_, err := NewClient(WithTimeout(-time.Second))
		require.Error(t, err)

		_, err = NewClient(WithRateLimit(0, 1))
		require.Error(t, err)

		_, err = NewClient(WithRateLimit(10, 0))
		require.Error(t, err)
	})

	t.Run("RequestIDHeader", func(t *testing.T) {
		var got string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("X-Request-ID")
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		client, err := NewClient(WithRequestID())
		require.NoError(t, err)

		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.NotEmpty(t, got)
	})

	t.Run("RateLimitDelaysRequests", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		// 1 burst, 20 rps: the second request must wait roughly 50ms.
		client, err := NewClient(WithRateLimit(20, 1))
		require.NoError(t, err)

		start := time.Now()
		for range 2 {
			resp, err := client.Get(srv.URL)
			require.NoError(t, err)
			_ = resp.Body.Close()
		}
		assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	})
}
