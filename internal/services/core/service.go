// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTimeout is the connect/read timeout applied to every request
const DefaultTimeout = 10 * time.Second

var (
	// Global HTTP client pool
	httpClients sync.Map

	// Common errors
	ErrServiceNotConfigured = errors.New("service is not configured")
	ErrNilResponse          = errors.New("received nil response from server")
)

// ServiceCore performs single blocking GET round trips against a service
type ServiceCore struct {
	Timeout   time.Duration
	UserAgent string
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode   int
	ContentType  string
	Body         []byte
	ResponseTime time.Duration
}

// getHTTPClient returns a client with the specified timeout
func getHTTPClient(timeout time.Duration) *http.Client {
	// Use the timeout as the key
	if client, ok := httpClients.Load(timeout); ok {
		return client.(*http.Client)
	}

	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DisableKeepAlives:   false,
		},
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	actual, _ := httpClients.LoadOrStore(timeout, client)
	return actual.(*http.Client)
}

func (s *ServiceCore) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultTimeout
}

// Fetch issues a GET request for url and reads the whole body.
// Non-2xx statuses are not errors; callers decide what a status means.
func (s *ServiceCore) Fetch(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	if url == "" {
		return nil, ErrServiceNotConfigured
	}

	timeout := s.timeout()
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	userAgent := s.UserAgent
	if userAgent == "" {
		userAgent = "plexbrr/1.0"
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Connection", "keep-alive")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()

	resp, err := getHTTPClient(s.timeout()).Do(req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNilResponse
	}

	body, err := ReadBody(resp)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		Body:         body,
		ResponseTime: time.Since(start),
	}, nil
}

// ReadBody reads and closes the response body
func ReadBody(resp *http.Response) ([]byte, error) {
	if resp == nil {
		return nil, ErrNilResponse
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}

// StatusError maps an unsuccessful status code to a descriptive error.
// It returns nil for 200 OK.
func StatusError(statusCode int) error {
	var err error
	switch statusCode {
	case http.StatusOK:
		return nil
	case http.StatusBadGateway:
		err = errors.New("service unavailable (502 bad gateway)")
	case http.StatusServiceUnavailable:
		err = errors.New("service unavailable (503)")
	case http.StatusGatewayTimeout:
		err = errors.New("service timeout (504)")
	case http.StatusUnauthorized:
		err = errors.New("unauthorized access (401)")
	case http.StatusForbidden:
		err = errors.New("access forbidden (403)")
	case http.StatusNotFound:
		err = errors.New("endpoint not found (404)")
	default:
		err = fmt.Errorf("service error (%d)", statusCode)
	}

	log.Debug().Err(err).Int("status", statusCode).Msg("Service returned unsuccessful status")
	return err
}
