package jamf

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	authTokenPath       = "/api/v1/auth/token"
	oauthTokenPath      = "/api/oauth/token"
	invalidateTokenPath = "/api/v1/auth/invalidate-token"

	maxAuthAttempts = 3

	// Tokens are renewed this long before the server says they expire.
	expiryLeeway = 30 * time.Second
)

// Credentials holds whatever the caller supplied to authenticate with.
type Credentials struct {
	Username string
	Password string

	// Token is a pre-issued bearer token. TokenExpiry is zero when unknown.
	Token       string
	TokenExpiry time.Time

	ClientID     string
	ClientSecret string
}

func (c Credentials) HasBasic() bool {
	return len(c.Username) > 0 && len(c.Password) > 0
}

func (c Credentials) HasClient() bool {
	return len(c.ClientID) > 0 && len(c.ClientSecret) > 0
}

func (c Credentials) HasToken() bool {
	return len(c.Token) > 0
}

// IsEmpty reports whether no usable credential was supplied at all.
func (c Credentials) IsEmpty() bool {
	return !c.HasToken() && !c.HasBasic() && !c.HasClient()
}

// Session owns the bearer token for one server. Token is idempotent: the
// first call authenticates and later calls return the cached token.
type Session struct {
	baseURL     string
	credentials Credentials
	auth        *resty.Client
	httpClient  *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
	now     func() time.Time
}

func newSession(baseURL string, credentials Credentials, httpClient *http.Client, backoff time.Duration) *Session {
	auth := resty.NewWithClient(httpClient).
		SetBaseURL(baseURL).
		SetLogger(logrus.StandardLogger()).
		SetHeader("Accept", "application/json").
		SetRetryCount(maxAuthAttempts-1).
		SetRetryWaitTime(backoff).
		SetRetryMaxWaitTime(backoff*maxAuthAttempts).
		SetRetryAfter(func(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
			return time.Duration(resp.Request.Attempt) * backoff, nil
		}).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || !resp.IsSuccess()
		})

	return &Session{
		baseURL:     baseURL,
		credentials: credentials,
		auth:        auth,
		httpClient:  httpClient,
		token:       credentials.Token,
		expires:     credentials.TokenExpiry,
		now:         time.Now,
	}
}

// Token returns a valid bearer token, authenticating when needed.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.validLocked() {
		return s.token, nil
	}

	var err error
	switch {
	case s.credentials.HasBasic():
		err = s.requestBasicToken(ctx)
	case s.credentials.HasClient():
		err = s.requestClientToken(ctx)
	case len(s.token) > 0:
		err = &AuthError{Err: fmt.Errorf("bearer token expired at %s", s.expires.Format(time.RFC3339))}
	default:
		err = &AuthError{Err: ErrNoCredentials}
	}
	if err != nil {
		return "", err
	}

	return s.token, nil
}

// Current returns the cached token and its expiry without authenticating.
func (s *Session) Current() (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.expires
}

// Clear forgets the cached token.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expires = time.Time{}
}

func (s *Session) validLocked() bool {
	if len(s.token) == 0 {
		return false
	}
	if s.expires.IsZero() {
		return true
	}
	return s.now().Add(expiryLeeway).Before(s.expires)
}

// requestBasicToken exchanges username and password for a bearer token.
// Non-success responses are retried with a linearly increasing delay.
func (s *Session) requestBasicToken(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{
		"server": s.baseURL,
		"user":   s.credentials.Username,
	}).Debugln("Requesting bearer token")

	resp, err := s.auth.R().
		SetContext(ctx).
		SetBasicAuth(s.credentials.Username, s.credentials.Password).
		Post(authTokenPath)
	if err != nil {
		return &AuthError{Err: fmt.Errorf("token request failed: %w", err)}
	}

	if !resp.IsSuccess() {
		return &AuthError{
			StatusCode: resp.StatusCode(),
			Err: fmt.Errorf("token request failed after %d attempts: %s",
				resp.Request.Attempt, truncateBody(resp.String())),
		}
	}

	token := gjson.GetBytes(resp.Body(), "token")
	if !token.Exists() || len(token.String()) == 0 {
		return &AuthError{StatusCode: resp.StatusCode(), Err: ErrMissingToken}
	}

	s.token = token.String()
	s.expires = time.Time{}

	if expires := gjson.GetBytes(resp.Body(), "expires"); expires.Exists() {
		if parsed, err := time.Parse(time.RFC3339, expires.String()); err == nil {
			s.expires = parsed
		} else {
			logrus.WithError(err).Debugln("Ignoring unparseable token expiry")
		}
	}

	logrus.WithField("expires", s.expires).Debugln("Obtained bearer token")
	return nil
}

// requestClientToken runs the OAuth client credentials grant used by API
// clients.
func (s *Session) requestClientToken(ctx context.Context) error {
	config := clientcredentials.Config{
		ClientID:     s.credentials.ClientID,
		ClientSecret: s.credentials.ClientSecret,
		TokenURL:     s.baseURL + oauthTokenPath,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	logrus.WithFields(logrus.Fields{
		"server":   s.baseURL,
		"clientId": s.credentials.ClientID,
	}).Debugln("Requesting client credentials token")

	token, err := config.Token(context.WithValue(ctx, oauth2.HTTPClient, s.httpClient))
	if err != nil {
		authErr := &AuthError{Err: fmt.Errorf("client credentials grant failed: %w", err)}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			authErr.StatusCode = retrieveErr.Response.StatusCode
		}
		return authErr
	}

	if len(token.AccessToken) == 0 {
		return &AuthError{Err: ErrMissingToken}
	}

	s.token = token.AccessToken
	s.expires = token.Expiry
	return nil
}
