package utils

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPClient wraps resty.Client so adapters can add application-specific
// behavior while keeping the full resty API.
type HTTPClient struct {
	*resty.Client
}

// RetryPolicy configures resty's built-in jittered exponential backoff.
type RetryPolicy struct {
	Count       int
	WaitTime    time.Duration
	MaxWaitTime time.Duration
}

// NewHTTPClient returns an HTTPClient rooted at address. A bare host:port is
// prefixed with http://. Retries fire on transport errors, 5xx and 429.
//
// Example usage:
//
//	client := utils.NewHTTPClient("localhost:8080", 15*time.Second, utils.RetryPolicy{Count: 3})
//	resp, err := client.R().Get("/api/health")
func NewHTTPClient(address string, timeout time.Duration, retry RetryPolicy) *HTTPClient {
	client := resty.New().
		SetBaseURL(BaseURL(address)).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(retry.Count).
		AddRetryCondition(IsRetryable)

	if retry.WaitTime > 0 {
		client.SetRetryWaitTime(retry.WaitTime)
	}
	if retry.MaxWaitTime > 0 {
		client.SetRetryMaxWaitTime(retry.MaxWaitTime)
	}

	return &HTTPClient{Client: client}
}

// IsRetryable reports whether a request should be attempted again: the
// transport failed, the server failed, or it asked to slow down.
func IsRetryable(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return false
	}

	code := resp.StatusCode()
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}

// BaseURL normalizes a configured address into a URL without a trailing slash.
func BaseURL(address string) string {
	address = strings.TrimRight(strings.TrimSpace(address), "/")
	if strings.HasPrefix(address, "http://") || strings.HasPrefix(address, "https://") {
		return address
	}
	return "http://" + address
}
