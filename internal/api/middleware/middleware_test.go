// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRedactQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{name: "empty", query: "", expected: ""},
		{name: "plex token", query: "X-Plex-Token=abc&width=300", expected: "X-Plex-Token=%5BREDACTED%5D&width=300"},
		{name: "api key", query: "apiKey=abc", expected: "apiKey=%5BREDACTED%5D"},
		{name: "nothing sensitive", query: "limit=10&user=bob", expected: "limit=10&user=bob"},
		{name: "unparseable", query: "a=%zz", expected: "[REDACTED]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RedactQuery(tt.query))
		})
	}
}

func TestLoggerWith(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	r := gin.New()
	r.Use(LoggerWith(zerolog.New(&buf)))
	r.GET("/api/image", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/image?img=/x&token=secret", nil)
	r.ServeHTTP(w, req)

	out := buf.String()
	assert.Contains(t, out, `"status":200`)
	assert.Contains(t, out, "REDACTED")
	assert.NotContains(t, out, "secret")
}

func TestSecure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Secure(nil))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, "default-src 'none'; img-src 'self' data:; frame-ancestors 'none'", w.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
}

func TestSetupCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(SetupCORS())
	r.GET("/api/activity", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/activity", nil)
	req.Header.Set("Origin", "http://example.com")
	r.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
