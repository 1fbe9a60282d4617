// Package mirrortest runs an in-process HTTPS server that answers for any
// host name, standing in for a mirror site, its media CDN and the origin
// platform in tests.
package mirrortest

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

type response struct {
	status      int
	contentType string
	body        []byte
}

// Server is a TLS test server keyed by host and path
type Server struct {
	server         *httptest.Server
	mu             sync.RWMutex
	responses      map[string]response
	errorResponses map[string]int
	delays         map[string]time.Duration
	failures       map[string]int
	requests       []string
	requestCount   int32
}

// NewServer starts a server with no routes. Unknown routes answer 404.
func NewServer() *Server {
	s := &Server{
		responses:      make(map[string]response),
		errorResponses: make(map[string]int),
		delays:         make(map[string]time.Duration),
		failures:       make(map[string]int),
	}
	s.server = httptest.NewTLSServer(http.HandlerFunc(s.handle))
	return s
}

func routeKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname() + u.EscapedPath()
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.requestCount, 1)

	host := r.Host
	if h, _, err := net.SplitHostPort(r.Host); err == nil {
		host = h
	}
	key := host + r.URL.EscapedPath()

	s.mu.Lock()
	s.requests = append(s.requests, "https://"+key)
	delay := s.delays[key]
	code := s.errorResponses[key]
	if code == 0 && s.failures[key] > 0 {
		s.failures[key]--
		code = http.StatusServiceUnavailable
	}
	resp, ok := s.responses[key]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if code > 0 {
		w.WriteHeader(code)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if resp.contentType != "" {
		w.Header().Set("Content-Type", resp.contentType)
	}
	w.WriteHeader(resp.status)
	_, _ = w.Write(resp.body)
}

// HandlePage serves html with the given status at rawURL
func (s *Server) HandlePage(rawURL string, status int, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[routeKey(rawURL)] = response{
		status:      status,
		contentType: "text/html; charset=utf-8",
		body:        []byte(html),
	}
}

// HandleMedia serves data as an image at rawURL
func (s *Server) HandleMedia(rawURL string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[routeKey(rawURL)] = response{
		status:      http.StatusOK,
		contentType: "image/jpeg",
		body:        data,
	}
}

// SetErrorResponse makes rawURL answer with code until cleared
func (s *Server) SetErrorResponse(rawURL string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorResponses[routeKey(rawURL)] = code
}

// FailTimes makes the next n requests to rawURL answer 503
func (s *Server) FailTimes(rawURL string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[routeKey(rawURL)] = n
}

// SetDelay holds responses for rawURL, released early when the client goes away
func (s *Server) SetDelay(rawURL string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[routeKey(rawURL)] = delay
}

// Client returns an HTTP client that dials this server for every host and
// skips certificate verification
func (s *Server) Client() *http.Client {
	addr := s.server.Listener.Addr().String()
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // test server certificate
	}
	return &http.Client{Transport: transport}
}

// URL returns the listener URL of the server
func (s *Server) URL() string {
	return s.server.URL
}

// Requests returns every requested URL in order
func (s *Server) Requests() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount returns the total number of requests
func (s *Server) RequestCount() int {
	return int(atomic.LoadInt32(&s.requestCount))
}

// Close shuts down the server
func (s *Server) Close() {
	s.server.Close()
}
