// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package plex

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/plexbrr/internal/buildinfo"
	"github.com/autobrr/plexbrr/internal/config"
	"github.com/autobrr/plexbrr/internal/services/core"
	"github.com/autobrr/plexbrr/internal/types"
)

const (
	sessionsPath  = "/status/sessions"
	metadataPath  = "/library/metadata/"
	identityPath  = "/identity"
	transcodePath = "/photo/:/transcode"
)

var (
	ErrNotConfigured       = errors.New("plex: host and port are required")
	ErrParseXML            = errors.New("plex: malformed XML")
	ErrNoMediaContainer    = errors.New("plex: response has no MediaContainer")
	ErrNoMetadataElement   = errors.New("plex: metadata has neither Directory nor Video element")
	ErrUnknownMetadataType = errors.New("plex: unknown metadata type")
	ErrMalformedSession    = errors.New("plex: malformed session")
	ErrEmptyImagePath      = errors.New("plex: image path is required")
	ErrImageStatus         = errors.New("plex: image request failed")
)

// OutputFormat selects the representation returned by GetSessions and GetMetadata
type OutputFormat string

const (
	FormatRaw  OutputFormat = ""
	FormatDict OutputFormat = "dict"
	FormatJSON OutputFormat = "json"
)

// Client talks to a single Plex Media Server. Connection parameters are
// fixed at construction.
type Client struct {
	core.ServiceCore

	host  string
	port  string
	token string
	log   zerolog.Logger
}

type Option func(*Client)

// WithLogger overrides the logger used for warnings and debug traces
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.log = logger
	}
}

// NewClient creates a client for the configured server
func NewClient(cfg config.PlexConfig, opts ...Option) *Client {
	port := ""
	if cfg.Port > 0 {
		port = strconv.Itoa(cfg.Port)
	}

	c := &Client{
		ServiceCore: core.ServiceCore{
			Timeout:   core.DefaultTimeout,
			UserAgent: buildinfo.UserAgent(),
		},
		host:  cfg.Host,
		port:  port,
		token: cfg.Token,
		log:   log.With().Str("module", "plex").Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the server base url, or false when host or port is missing
func (c *Client) BaseURL() (string, bool) {
	if c.host == "" || c.port == "" {
		return "", false
	}
	return "http://" + c.host + ":" + c.port, true
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Accept":                   "application/xml",
		"X-Plex-Client-Identifier": "com.plexbrr.app",
		"X-Plex-Product":           "plexbrr",
		"X-Plex-Version":           "1.0.0",
	}
}

// request performs one GET against the server with the token appended as a query parameter
func (c *Client) request(ctx context.Context, path string) (*core.Response, error) {
	baseURL, ok := c.BaseURL()
	if !ok {
		return nil, ErrNotConfigured
	}

	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}

	return c.Fetch(ctx, baseURL+path+separator+"X-Plex-Token="+url.QueryEscape(c.token), c.headers())
}

// fetchXML performs a request and requires a 200 response
func (c *Client) fetchXML(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.request(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := core.StatusError(resp.StatusCode); err != nil {
		return nil, err
	}

	return resp.Body, nil
}

// GetSessions returns the current sessions document, either raw or converted
func (c *Client) GetSessions(ctx context.Context, format OutputFormat) (interface{}, error) {
	body, err := c.fetchXML(ctx, sessionsPath)
	if err != nil {
		return nil, err
	}

	return convertOutput(body, format)
}

// GetMetadata returns the metadata document for ratingKey, either raw or converted
func (c *Client) GetMetadata(ctx context.Context, ratingKey string, format OutputFormat) (interface{}, error) {
	body, err := c.fetchXML(ctx, metadataPath+ratingKey)
	if err != nil {
		return nil, err
	}

	return convertOutput(body, format)
}

func convertOutput(body []byte, format OutputFormat) (interface{}, error) {
	switch format {
	case FormatDict:
		return ConvertXMLToMap(body)
	case FormatJSON:
		return ConvertXMLToJSON(body)
	default:
		return body, nil
	}
}

// GetImage fetches an image through the server's photo transcoder.
// Width and height are only forwarded when both are set to a value other than "0".
func (c *Client) GetImage(ctx context.Context, img, width, height string) (*types.Image, error) {
	if img == "" {
		c.log.Warn().Msg("Failed to retrieve image. No image path given")
		return nil, ErrEmptyImagePath
	}

	if width == "" {
		width = "0"
	}
	if height == "" {
		height = "0"
	}

	imagePath := transcodePath + "?url=http://127.0.0.1:" + c.port + img
	if width != "0" && height != "0" {
		imagePath += "&width=" + width + "&height=" + height
	}

	resp, err := c.request(ctx, imagePath)
	if err != nil {
		c.log.Warn().Err(err).Str("image", img).Msg("Failed to retrieve image")
		return nil, err
	}

	c.log.Debug().Str("content_type", resp.ContentType).Msg("Image content type")

	if resp.StatusCode != 200 {
		c.log.Warn().Int("status", resp.StatusCode).Str("image", img).Msg("Failed to retrieve image")
		return nil, fmt.Errorf("%w: status code %d", ErrImageStatus, resp.StatusCode)
	}

	return &types.Image{
		ContentType: resp.ContentType,
		Data:        resp.Body,
	}, nil
}

// ServerIdentity describes the connected media server
type ServerIdentity struct {
	MachineIdentifier string `json:"machineIdentifier"`
	Version           string `json:"version"`
	Platform          string `json:"platform,omitempty"`
	ResponseTime      int64  `json:"responseTime"`
}

// Identity queries the server identity endpoint
func (c *Client) Identity(ctx context.Context) (*ServerIdentity, error) {
	resp, err := c.request(ctx, identityPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := core.StatusError(resp.StatusCode); err != nil {
		return nil, err
	}

	doc, err := parseXML(resp.Body)
	if err != nil {
		return nil, err
	}

	container := mediaContainer(doc)
	if container == nil {
		return nil, ErrNoMediaContainer
	}

	return &ServerIdentity{
		MachineIdentifier: GetXMLAttr(container, "machineIdentifier"),
		Version:           GetXMLAttr(container, "version"),
		Platform:          GetXMLAttr(container, "platform"),
		ResponseTime:      resp.ResponseTime.Milliseconds(),
	}, nil
}
