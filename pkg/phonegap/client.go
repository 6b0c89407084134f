// Package phonegap is a small client for the PhoneGap Build REST API. It
// authenticates once, then issues token-authenticated requests on behalf of
// the caller. The service owns all request semantics; this package only moves
// bytes and reports HTTP-level outcomes.
package phonegap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pgbuild/pkg/logger"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL   = "https://build.phonegap.com/api/v1"
	DefaultUserAgent = "pgbuild"

	tokenPath       = "/token"
	tokenQueryParam = "auth_token"
	formDataField   = "data"
)

var transport *http.Transport

func init() {
	transport = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
	}
}

type Options struct {
	BaseURL   string
	UserAgent string
	// HTTPClient replaces the pooled default, mostly for tests.
	HTTPClient *http.Client
}

type Client struct {
	rc      *resty.Client
	baseURL string
}

// Response is the decoded outcome of a non-download request. Data holds the
// decoded JSON document, or the raw body text when it is not JSON.
type Response struct {
	StatusCode int `json:"status_code" yaml:"status_code"`
	Data       any `json:"data" yaml:"data"`
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	hc := opts.HTTPClient
	if hc == nil {
		// No client-wide timeout: artifact downloads can outlive any sane
		// request deadline. Callers bound requests through the context.
		hc = &http.Client{Transport: transport}
	}

	rc := resty.NewWithClient(hc).
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{}).
		OnAfterResponse(logResponse)

	return &Client{rc: rc, baseURL: baseURL}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// restyLogger routes resty's own diagnostics into the application log.
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...interface{}) {
	logger.Error().Msgf(strings.TrimSpace(format), v...)
}

func (restyLogger) Warnf(format string, v ...interface{}) {
	logger.Warn().Msgf(strings.TrimSpace(format), v...)
}

func (restyLogger) Debugf(format string, v ...interface{}) {
	logger.Debug().Msgf(strings.TrimSpace(format), v...)
}

func logResponse(_ *resty.Client, resp *resty.Response) error {
	path := ""
	if raw := resp.RawResponse; raw != nil && raw.Request != nil {
		// path only: the query carries the auth token
		path = raw.Request.URL.Path
	}
	logger.Debug().
		Str("method", resp.Request.Method).
		Str("path", path).
		Int("status", resp.StatusCode()).
		Dur("duration", resp.Time()).
		Msg("build service response")
	return nil
}

// Auth exchanges username and password for an API token.
func (c *Client) Auth(ctx context.Context, username, password string) (*API, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBasicAuth(username, password).
		Post(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	if resp.IsError() {
		return nil, newAPIError(resp.StatusCode(), resp.Status(), resp.Body())
	}

	var tok struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body(), &tok); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tok.Token == "" {
		return nil, fmt.Errorf("token response did not contain a token")
	}

	logger.Debug().Msg("authenticated against build service")
	return &API{rc: c.rc, token: tok.Token}, nil
}
