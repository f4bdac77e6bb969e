package etherscan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ourzora/drops-deployer/pkg/logger"
)

const (
	verifiedBody    = `{"status":"1","message":"OK","result":"[]"}`
	notVerifiedBody = `{"status":"0","message":"NOTOK","result":"Contract source code not verified"}`
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return srv
}

func TestClient_IsVerified(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		want    bool
		wantErr string
	}{
		{name: "verified", status: http.StatusOK, body: verifiedBody, want: true},
		{name: "not verified", status: http.StatusOK, body: notVerifiedBody},
		{
			name:    "api error",
			status:  http.StatusOK,
			body:    `{"status":"0","message":"NOTOK","result":"Invalid API Key"}`,
			wantErr: "explorer error: NOTOK: Invalid API Key",
		},
		{name: "http error", status: http.StatusBadGateway, body: "", wantErr: "HTTP 502"},
		{name: "malformed", status: http.StatusOK, body: "<html>", wantErr: "failed to decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "contract", r.URL.Query().Get("module"))
				assert.Equal(t, "getabi", r.URL.Query().Get("action"))
				assert.Equal(t, "0xabc", r.URL.Query().Get("address"))
				assert.Equal(t, "secret", r.URL.Query().Get("apikey"))

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := NewClient(logger.Test(t), srv.URL, "secret").IsVerified(t.Context(), "0xabc")
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_IsVerified_RedactsAPIKey(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(http.ResponseWriter, *http.Request) {})
	srv.Close()

	_, err := NewClient(logger.Test(t), srv.URL, "secret").IsVerified(t.Context(), "0xabc")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret")
}

func TestClient_WaitVerified(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			_, _ = w.Write([]byte(notVerifiedBody))
			return
		}
		_, _ = w.Write([]byte(verifiedBody))
	})

	c := NewClient(logger.Test(t), srv.URL, "secret", WithPolling(5, time.Millisecond))

	got, err := c.WaitVerified(t.Context(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, Verification{Verified: true, Explorer: srv.URL, Address: "0xabc", Attempts: 3}, got)
}

func TestClient_WaitVerified_Exhausted(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(notVerifiedBody))
	})

	c := NewClient(logger.Test(t), srv.URL, "secret", WithPolling(2, time.Millisecond))

	got, err := c.WaitVerified(t.Context(), "0xabc")
	require.ErrorIs(t, err, ErrNotVerified)
	assert.False(t, got.Verified)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_WaitVerified_Canceled(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(notVerifiedBody))
	})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := NewClient(logger.Test(t), srv.URL, "secret").WaitVerified(ctx, "0xabc")
	require.Error(t, err)
}
