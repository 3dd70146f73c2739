// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-health-keeper/internal/config"
	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/models"
)

func newTestAdapter(t *testing.T, serverURL string) *httpServerAdapter {
	t.Helper()

	a, err := NewHTTPServerAdapter(config.ClientAdapter{
		HTTPAddress:      serverURL,
		RequestTimeout:   2 * time.Second,
		RetryCount:       2,
		RetryWaitTime:    time.Millisecond,
		RetryMaxWaitTime: 5 * time.Millisecond,
	}, logger.Nop())
	require.NoError(t, err)

	a.SetToken("  test-token ")
	return a.(*httpServerAdapter)
}

func entry(id string) models.PushEntry {
	return models.PushEntry{
		ID:            id,
		EntityType:    models.EntityIntake,
		SealedPayload: "c2VhbGVk",
		Timestamp:     10,
		UpdatedAt:     20,
	}
}

func TestNewHTTPServerAdapter_EmptyAddress(t *testing.T) {
	_, err := NewHTTPServerAdapter(config.ClientAdapter{HTTPAddress: " "}, logger.Nop())
	assert.ErrorIs(t, err, ErrEmptyAddress)
}

func TestSetToken_Trims(t *testing.T) {
	a := newTestAdapter(t, "http://localhost:1")
	assert.Equal(t, "test-token", a.Token())
}

func TestPush_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/sync/push", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("Content-Encoding"))

		var req models.PushRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Entries, 2)
		assert.Equal(t, "a", req.Entries[0].ID)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"acceptedIds":["a"],"skippedIds":["b"]}`))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	got, err := a.Push(context.Background(), []models.PushEntry{entry("a"), entry("b")})

	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.AcceptedIDs)
	assert.Equal(t, []string{"b"}, got.SkippedIDs)
}

func TestPush_LargeBodyIsGzipped(t *testing.T) {
	entries := make([]models.PushEntry, 50)
	for i := range entries {
		entries[i] = entry(strings.Repeat("x", 20) + string(rune('a'+i%26)))
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "gzip", r.Header.Get("Content-Encoding"))

		zr, err := gzip.NewReader(r.Body)
		require.NoError(t, err)
		raw, err := io.ReadAll(zr)
		require.NoError(t, err)

		var req models.PushRequest
		require.NoError(t, json.Unmarshal(raw, &req))
		assert.Len(t, req.Entries, 50)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"acceptedIds":[],"skippedIds":[]}`))
	}))
	defer srv.Close()

	_, err := newTestAdapter(t, srv.URL).Push(context.Background(), entries)
	require.NoError(t, err)
}

func TestPush_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"acceptedIds":["a"],"skippedIds":[]}`))
	}))
	defer srv.Close()

	got, err := newTestAdapter(t, srv.URL).Push(context.Background(), []models.PushEntry{entry("a")})

	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.AcceptedIDs)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPush_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestAdapter(t, srv.URL).Push(context.Background(), []models.PushEntry{entry("a")})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransient)
	assert.True(t, IsTransient(err))
	assert.Equal(t, int32(3), calls.Load(), "first attempt plus two retries")
}

func TestPush_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "bad request", status: http.StatusBadRequest, want: ErrBadRequest},
		{name: "unauthorized", status: http.StatusUnauthorized, want: ErrUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, want: ErrForbidden},
		{name: "conflict", status: http.StatusConflict, want: ErrConflict},
		{name: "teapot", status: http.StatusTeapot, want: ErrUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			_, err := newTestAdapter(t, srv.URL).Push(context.Background(), []models.PushEntry{entry("a")})

			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, int32(1), calls.Load(), "client errors are not retried")
		})
	}
}

func TestPush_NoToken(t *testing.T) {
	a := newTestAdapter(t, "http://localhost:1")
	a.SetToken("")

	_, err := a.Push(context.Background(), []models.PushEntry{entry("a")})
	assert.ErrorIs(t, err, ErrNoTokenIsSet)
}

func TestPull_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/sync/pull", r.URL.Path)
		assert.Equal(t, "1500", r.URL.Query().Get("since"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		_, _ = w.Write([]byte(`{
			"entries":[{"id":"a","entityType":"intake","sealedPayload":"c2VhbGVk","timestamp":1,"updatedAt":2,"serverUpdatedAt":1501,"deleted":false}],
			"nextCursor":1501,
			"serverTime":1600
		}`))
	}))
	defer srv.Close()

	page, err := newTestAdapter(t, srv.URL).Pull(context.Background(), 1500, 2)

	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "a", page.Entries[0].ID)
	assert.Equal(t, int64(1501), page.Entries[0].ServerUpdatedAt)
	assert.Equal(t, int64(1501), page.NextCursor)
	assert.Equal(t, int64(1600), page.ServerTime)
}

func TestPull_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"entries":`))
	}))
	defer srv.Close()

	_, err := newTestAdapter(t, srv.URL).Pull(context.Background(), 0, 10)
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestPull_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestAdapter(t, srv.URL).Pull(context.Background(), 0, 10)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, IsAuthError(err))
	assert.False(t, IsTransient(err))
}

func TestPull_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestAdapter(t, url).Pull(context.Background(), 0, 10)
	assert.ErrorIs(t, err, ErrTransient)
}
