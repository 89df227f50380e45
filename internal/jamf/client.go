// Package jamf talks to the Jamf Pro Classic and Pro APIs: bearer token
// sessions, dual format (JSON or XML) resource fetching and normalization of
// smart group records.
package jamf

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/jamfkit/sgscan/internal/common"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultAuthBackoff = 1500 * time.Millisecond
)

// Options configures a Client.
type Options struct {
	BaseURL     string
	Credentials Credentials
	VerifySSL   bool
	Timeout     time.Duration

	// AuthBackoff is multiplied by the attempt number between token requests.
	AuthBackoff time.Duration
}

// Client is an authenticated Jamf Pro API client. It is safe for concurrent
// use once Authenticate has returned.
type Client struct {
	baseURL *url.URL
	session *Session
	http    *resty.Client
}

func NewClient(opts Options) (*Client, error) {
	baseURL, err := ParseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.AuthBackoff <= 0 {
		opts.AuthBackoff = DefaultAuthBackoff
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !opts.VerifySSL {
		logrus.WithField("server", baseURL.Host).Warnln("TLS certificate verification is disabled")
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- opt-in via --no-verify-ssl
	}

	httpClient := &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	}

	api := resty.NewWithClient(httpClient).
		SetBaseURL(baseURL.String()).
		SetLogger(logrus.StandardLogger()).
		SetHeader("User-Agent", common.UserAgent())

	return &Client{
		baseURL: baseURL,
		session: newSession(baseURL.String(), opts.Credentials, httpClient, opts.AuthBackoff),
		http:    api,
	}, nil
}

// ParseBaseURL accepts a server address with or without scheme and returns
// it without a trailing slash. Plain hostnames default to https.
func ParseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("server URL is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", raw)
	}
	if len(parsed.Host) == 0 {
		return nil, fmt.Errorf("invalid server URL %q: missing host", raw)
	}

	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Hostname is the key used for persisted sessions.
func (c *Client) Hostname() string {
	return c.baseURL.Host
}

func (c *Client) Session() *Session {
	return c.session
}

// Authenticate obtains a bearer token. Call it once before fanning out
// concurrent requests so workers never race to authenticate.
func (c *Client) Authenticate(ctx context.Context) error {
	_, err := c.session.Token(ctx)
	return err
}

// Logout invalidates the current token on the server and forgets it.
func (c *Client) Logout(ctx context.Context) error {
	token, _ := c.session.Current()
	if len(token) == 0 {
		return nil
	}
	defer c.session.Clear()

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		Post(invalidateTokenPath)
	if err != nil {
		return &FetchError{Path: invalidateTokenPath, Err: err}
	}
	if !resp.IsSuccess() && resp.StatusCode() != http.StatusUnauthorized {
		return &FetchError{
			Path:       invalidateTokenPath,
			StatusCode: resp.StatusCode(),
			Body:       truncateBody(resp.String()),
		}
	}
	return nil
}

// authorized starts a request carrying the session's bearer token.
func (c *Client) authorized(ctx context.Context) (*resty.Request, error) {
	token, err := c.session.Token(ctx)
	if err != nil {
		return nil, err
	}
	return c.http.R().SetContext(ctx).SetAuthToken(token), nil
}
