// Package httpclient builds the HTTP client shared by the game-server
// handshake and the ad network adapter.
package httpclient

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36"
	DefaultOrigin    = "https://game.whitebunny.wtf"
)

type Options struct {
	Timeout             time.Duration
	DialTimeout         time.Duration
	IdleConnTimeout     time.Duration
	MaxIdleConnsPerHost int
}

func New(opts Options) (*http.Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	if opts.IdleConnTimeout <= 0 {
		opts.IdleConnTimeout = 90 * time.Second
	}
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = 8
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: opts.DialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		IdleConnTimeout:     opts.IdleConnTimeout,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		TLSHandshakeTimeout: opts.DialTimeout,
	}
	// Negotiate h2 with the ad network while keeping HTTP/1.1 for servers
	// that only speak it (the polling handshake does).
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("configure http2 transport: %w", err)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}, nil
}

// BrowserHeaders mirrors what the game's web client sends.
func BrowserHeaders() http.Header {
	headers := http.Header{}
	headers.Set("User-Agent", DefaultUserAgent)
	headers.Set("Accept", "*/*")
	headers.Set("Accept-Language", "en-US,en;q=0.9")
	headers.Set("Origin", DefaultOrigin)
	headers.Set("Referer", DefaultOrigin+"/")
	return headers
}

// Apply copies headers onto req without replacing values already set.
func Apply(req *http.Request, headers http.Header) {
	for key, values := range headers {
		if req.Header.Get(key) != "" {
			continue
		}
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
}
