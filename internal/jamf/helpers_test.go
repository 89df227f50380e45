package jamf

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

var basicCredentials = Credentials{Username: "admin", Password: "secret"}

// fakeJamf is a minimal Jamf Pro server. Resource handlers registered with
// handle require the bearer token issued by the token endpoint.
type fakeJamf struct {
	*httptest.Server

	mux           *http.ServeMux
	tokenHandler  http.HandlerFunc
	tokenRequests atomic.Int32
}

func newFakeJamf(t *testing.T) *fakeJamf {
	t.Helper()

	f := &fakeJamf{mux: http.NewServeMux()}
	f.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != basicCredentials.Username || pass != basicCredentials.Password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		respond(w, "application/json", http.StatusOK,
			`{"token":"`+testToken+`","expires":"2099-01-01T00:00:00Z"}`)
	}
	f.mux.HandleFunc("POST "+authTokenPath, func(w http.ResponseWriter, r *http.Request) {
		f.tokenRequests.Add(1)
		f.tokenHandler(w, r)
	})

	f.Server = httptest.NewServer(f.mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeJamf) handle(pattern string, handler http.HandlerFunc) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		handler(w, r)
	})
}

func (f *fakeJamf) client(t *testing.T, credentials Credentials) *Client {
	t.Helper()

	client, err := NewClient(Options{
		BaseURL:     f.URL,
		Credentials: credentials,
		VerifySSL:   true,
		Timeout:     5 * time.Second,
		AuthBackoff: time.Millisecond,
	})
	require.NoError(t, err)
	return client
}

func respond(w http.ResponseWriter, contentType string, status int, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// serveJSON answers with JSON whatever the Accept header says.
func serveJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		respond(w, "application/json;charset=UTF-8", http.StatusOK, body)
	}
}

// serveXML answers with XML whatever the Accept header says, like Classic
// API endpoints that ignore content negotiation.
func serveXML(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		respond(w, "text/xml;charset=UTF-8", http.StatusOK, body)
	}
}

func strPtr(s string) *string {
	return &s
}
