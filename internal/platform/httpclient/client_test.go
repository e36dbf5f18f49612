package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func fastClient() *Client {
	return New(Options{Timeout: 2 * time.Second, RequestsPerSec: 100, MaxRetries: 3, MaxRetryTimeout: 5 * time.Second})
}

func TestPostJSON_OK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"a":1}`, string(body))
		_, _ = w.Write([]byte(`ok`))
	}))
	defer server.Close()

	out, err := fastClient().PostJSON(context.Background(), server.URL, map[string]string{"Authorization": "Bearer k"}, []byte(`{"a":1}`))

	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))
}

func TestPostJSON_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// тело должно передаваться заново при каждой попытке
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "payload", string(body))
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`done`))
	}))
	defer server.Close()

	out, err := fastClient().PostJSON(context.Background(), server.URL, nil, []byte("payload"))

	require.NoError(t, err)
	assert.Equal(t, "done", string(out))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPostJSON_ClientErrorIsPermanent(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := fastClient().PostJSON(context.Background(), server.URL, nil, nil)

	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPostJSON_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := New(Options{RequestsPerSec: 100, MaxRetries: 2, MaxRetryTimeout: 5 * time.Second})
	_, err := c.PostJSON(context.Background(), server.URL, nil, nil)

	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestStatusCode_NotHTTPError(t *testing.T) {
	assert.Equal(t, 0, StatusCode(context.Canceled))
}

func TestNew_LimiterRate(t *testing.T) {
	c := New(Options{RequestsPerSec: 2})

	assert.InDelta(t, 2.0, float64(c.Limiter.Limit()), 1e-9)
	assert.Equal(t, 2, c.Limiter.Burst())
}

func TestPostJSON_RetriesWaitForLimiter(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`done`))
	}))
	defer server.Close()

	// burst 1 и 5 запросов в секунду: третья попытка не раньше чем через 400ms
	c := New(Options{RequestsPerSec: 5, MaxRetries: 3, MaxRetryTimeout: 5 * time.Second})
	c.Limiter = rate.NewLimiter(5, 1)
	start := time.Now()
	_, err := c.PostJSON(context.Background(), server.URL, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.GreaterOrEqual(t, time.Since(start), 350*time.Millisecond)
}
