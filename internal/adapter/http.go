package adapter

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-health-keeper/internal/config"
	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/internal/utils"
	"github.com/MKhiriev/go-health-keeper/models"
)

const (
	pushPath = "/api/sync/push"
	pullPath = "/api/sync/pull"

	// push bodies at least this large are sent gzip-compressed
	gzipMinBodySize = 1024
)

type httpServerAdapter struct {
	client *utils.HTTPClient

	mu    sync.RWMutex
	token string

	logger *logger.Logger
}

// NewHTTPServerAdapter constructs an HTTP/REST implementation of [ServerAdapter].
// Every request is bounded by adapterCfg.RequestTimeout; network errors, 5xx
// and 429 responses are retried up to adapterCfg.RetryCount times with jittered
// exponential backoff between RetryWaitTime and RetryMaxWaitTime.
func NewHTTPServerAdapter(adapterCfg config.ClientAdapter, logger *logger.Logger) (ServerAdapter, error) {
	if strings.TrimSpace(adapterCfg.HTTPAddress) == "" {
		return nil, ErrEmptyAddress
	}

	client := utils.NewHTTPClient(adapterCfg.HTTPAddress, adapterCfg.RequestTimeout, utils.RetryPolicy{
		Count:       adapterCfg.RetryCount,
		WaitTime:    adapterCfg.RetryWaitTime,
		MaxWaitTime: adapterCfg.RetryMaxWaitTime,
	})

	return &httpServerAdapter{client: client, logger: logger}, nil
}

// SetToken implements [ServerAdapter]. It stores token (whitespace-trimmed) for
// use in the Authorization header of all subsequent requests.
func (h *httpServerAdapter) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

// Token implements [ServerAdapter].
func (h *httpServerAdapter) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// Push implements [ServerAdapter]. It POSTs the batch to /api/sync/push.
// Large bodies are compressed with gzip.
func (h *httpServerAdapter) Push(ctx context.Context, entries []models.PushEntry) (models.PushResponse, error) {
	req, err := h.authedRequest(ctx)
	if err != nil {
		return models.PushResponse{}, err
	}

	body, err := json.Marshal(models.PushRequest{Entries: entries})
	if err != nil {
		return models.PushResponse{}, fmt.Errorf("encode push request: %w", err)
	}

	if len(body) >= gzipMinBodySize {
		compressed, gzErr := compress(body)
		if gzErr != nil {
			return models.PushResponse{}, fmt.Errorf("compress push request: %w", gzErr)
		}
		body = compressed
		req.SetHeader("Content-Encoding", "gzip")
	}

	var result models.PushResponse
	resp, err := req.
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&result).
		Post(pushPath)
	if err != nil {
		return models.PushResponse{}, fmt.Errorf("%w: push request: %w", ErrTransient, err)
	}
	if err = mapHTTPError(resp); err != nil {
		h.logger.Debug().Err(err).
			Str("func", "*httpServerAdapter.Push").
			Int("entries", len(entries)).
			Msg("push rejected")
		return models.PushResponse{}, err
	}

	return result, nil
}

// Pull implements [ServerAdapter]. It GETs /api/sync/pull?since=&limit=.
func (h *httpServerAdapter) Pull(ctx context.Context, since int64, limit int) (models.PullResponse, error) {
	req, err := h.authedRequest(ctx)
	if err != nil {
		return models.PullResponse{}, err
	}

	resp, err := req.
		SetQueryParam("since", strconv.FormatInt(since, 10)).
		SetQueryParam("limit", strconv.Itoa(limit)).
		Get(pullPath)
	if err != nil {
		return models.PullResponse{}, fmt.Errorf("%w: pull request: %w", ErrTransient, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.PullResponse{}, err
	}

	var page models.PullResponse
	if err = json.Unmarshal(resp.Body(), &page); err != nil {
		return models.PullResponse{}, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	return page, nil
}

func (h *httpServerAdapter) authedRequest(ctx context.Context) (*resty.Request, error) {
	token := h.Token()
	if token == "" {
		return nil, ErrNoTokenIsSet
	}

	return h.client.R().
		SetContext(ctx).
		SetAuthToken(token), nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
