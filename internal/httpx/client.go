// Package httpx holds the HTTP client shared by components that talk to
// remote file hosts (logo download, Telegram file API).
package httpx

import (
	"net"
	"net/http"
	"time"
)

const defaultTimeout = 60 * time.Second

// SharedClient returns an HTTP client with connection pooling.
// Use one instance per process instead of creating clients per call.
func SharedClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
