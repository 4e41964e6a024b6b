// Package swifttest runs an in-memory object storage service over HTTP for
// tests. It speaks v1 and v2 authentication, account, container and object
// requests, /info and temporary URLs, and can inject failures.
package swifttest

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const (
	DefaultUser    = "test:tester"
	DefaultKey     = "testing"
	DefaultTenant  = "test"
	DefaultAccount = "AUTH_test"
	DefaultRegion  = "RegionOne"

	// DefaultListingLimit is the page size when a listing has no limit.
	DefaultListingLimit = 10000
)

// Server is an in-memory storage service.
type Server struct {
	*httptest.Server

	// ListingLimit caps every listing page.
	ListingLimit int

	mu          sync.Mutex
	logger      logrus.FieldLogger
	token       string
	authCount   int
	requests    int
	failures    []int
	disconnects int
	accountMeta map[string]string
	containers  map[string]*container
	info        map[string]interface{}
}

// New starts a Server. Close it when done.
func New() *Server {
	s := &Server{
		ListingLimit: DefaultListingLimit,
		logger:       logrus.WithField("component", "swifttest"),
		token:        newToken(),
		accountMeta:  map[string]string{},
		containers:   map[string]*container{},
		info: map[string]interface{}{
			"swift": map[string]interface{}{
				"version":                "2.0",
				"container_listing_limit": DefaultListingLimit,
			},
			"tempurl": map[string]interface{}{
				"methods": []string{"GET", "HEAD", "PUT", "POST", "DELETE"},
			},
		},
	}

	router := mux.NewRouter().UseEncodedPath().SkipClean(true)
	router.Path("/auth/v1.0").Methods(http.MethodGet).HandlerFunc(s.authV1)
	router.Path("/v2.0/tokens").Methods(http.MethodPost).HandlerFunc(s.authV2)
	router.Path("/info").Methods(http.MethodGet).HandlerFunc(s.serveInfo)

	router.Path("/v1/{account}").Handler(s.storageMiddleware(http.HandlerFunc(s.serveAccount)))
	router.Path("/v1/{account}/{container}").Handler(s.storageMiddleware(http.HandlerFunc(s.serveContainer)))
	router.Path("/v1/{account}/{container}/{object:.+}").Handler(s.storageMiddleware(http.HandlerFunc(s.serveObject)))

	s.Server = httptest.NewServer(router)
	return s
}

// AuthURL returns the v1 auth endpoint.
func (s *Server) AuthURL() string {
	return s.URL + "/auth/v1.0"
}

// IdentityURL returns the v2 identity endpoint.
func (s *Server) IdentityURL() string {
	return s.URL + "/v2.0"
}

// StorageURL returns the account URL.
func (s *Server) StorageURL() string {
	return s.URL + "/v1/" + DefaultAccount
}

// Token returns the currently valid token.
func (s *Server) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// ExpireToken invalidates the current token so the next storage request
// gets a 401.
func (s *Server) ExpireToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = newToken()
}

// AuthCount is the number of successful authentications.
func (s *Server) AuthCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authCount
}

// Requests is the number of storage requests received.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// FailNext makes the next storage requests fail with the given statuses, in
// order.
func (s *Server) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, statuses...)
}

// DisconnectNext makes the next n storage requests drop the connection
// without a response.
func (s *Server) DisconnectNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnects += n
}

// SetInfo replaces the /info document.
func (s *Server) SetInfo(info map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = info
}

func (s *Server) authV1(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Auth-User") != DefaultUser || r.Header.Get("X-Auth-Key") != DefaultKey {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	s.mu.Lock()
	s.authCount++
	token := s.token
	s.mu.Unlock()

	w.Header().Set("X-Storage-Url", s.StorageURL())
	w.Header().Set("X-Auth-Token", token)
	w.Header().Set("X-Storage-Token", token)
	w.WriteHeader(http.StatusOK)
}

type v2Request struct {
	Auth struct {
		PasswordCredentials struct {
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"passwordCredentials"`
		TenantName string `json:"tenantName"`
		TenantID   string `json:"tenantId"`
	} `json:"auth"`
}

func (s *Server) authV2(w http.ResponseWriter, r *http.Request) {
	var req v2Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	creds := req.Auth.PasswordCredentials
	tenantOK := req.Auth.TenantName == DefaultTenant || req.Auth.TenantID == DefaultTenant
	if creds.Username != "tester" || creds.Password != DefaultKey || !tenantOK {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	s.authCount++
	token := s.token
	s.mu.Unlock()

	endpoint := map[string]string{
		"region":      DefaultRegion,
		"publicURL":   s.StorageURL(),
		"internalURL": s.StorageURL(),
		"adminURL":    s.URL + "/v1",
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access": map[string]interface{}{
			"token": map[string]string{"id": token},
			"serviceCatalog": []interface{}{
				map[string]interface{}{
					"type":      "object-store",
					"name":      "swift",
					"endpoints": []interface{}{endpoint},
				},
			},
		},
	})
}

func (s *Server) serveInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	info := s.info
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, info)
}

// storageMiddleware applies injected failures and checks the token or a
// temporary URL signature.
func (s *Server) storageMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Trans-Id", "tx"+strings.ReplaceAll(uuid.NewString(), "-", ""))

		s.mu.Lock()
		s.requests++
		disconnect := s.disconnects > 0
		if disconnect {
			s.disconnects--
		}
		failure := 0
		if !disconnect && len(s.failures) > 0 {
			failure, s.failures = s.failures[0], s.failures[1:]
		}
		token := s.token
		s.mu.Unlock()

		s.logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.EscapedPath(),
		}).Debug("Storage request")

		if disconnect {
			hijack(w)
			return
		}
		if failure != 0 {
			drain(r)
			http.Error(w, fmt.Sprintf("injected failure %d", failure), failure)
			return
		}
		if mux.Vars(r)["account"] != DefaultAccount {
			http.Error(w, "no such account", http.StatusNotFound)
			return
		}
		if r.Header.Get("X-Auth-Token") != token && !s.validTempURL(r) {
			drain(r)
			http.Error(w, "<html><h1>Unauthorized</h1></html>", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hijack(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "cannot hijack", http.StatusInternalServerError)
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetLinger(0)
	}
	_ = conn.Close()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newToken() string {
	return "AUTH_tk" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func unescape(v string) string {
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}
