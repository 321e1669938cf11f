package api

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// errRT is an http.RoundTripper that always returns an error (simulates network failure).
type errRT struct{}

func (e *errRT) RoundTrip(*http.Request) (*http.Response, error) { return nil, fmt.Errorf("boom") }

// recorded captures what the test server saw.
type recorded struct {
	mu      sync.Mutex
	method  string
	uri     string
	body    string
	headers http.Header
}

func (r *recorded) snapshot() (method, uri, body string, h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.method, r.uri, r.body, r.headers
}

// newServer returns a Transport pointed at a server that records the request
// and replies with status and payload.
func newServer(t *testing.T, status int, payload string) (*Transport, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.method = r.Method
		rec.uri = r.URL.RequestURI()
		rec.body = string(buf)
		rec.headers = r.Header.Clone()
		rec.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)
	return NewTransport(srv.URL, srv.Client(), zerolog.Nop()), rec
}

func unreachable() *Transport {
	return NewTransport("http://127.0.0.1:0", &http.Client{Transport: &errRT{}}, zerolog.Nop())
}
