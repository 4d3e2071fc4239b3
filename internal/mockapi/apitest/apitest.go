// Package apitest runs a seeded in-memory API for tests of the client
// packages.
package apitest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	qt "github.com/frankban/quicktest"

	"github.com/SigNoz/ecommerce-go-storefront/internal/api"
	"github.com/SigNoz/ecommerce-go-storefront/internal/mockapi"
	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
	"github.com/SigNoz/ecommerce-go-storefront/internal/services"
)

// Server is a running mock API that records every request it sees.
type Server struct {
	*httptest.Server
	Store *services.Store

	mu       sync.Mutex
	requests []string
}

// New starts a seeded server that is closed when the test ends.
func New(c *qt.C) *Server {
	store := services.NewStore(nil, nil)
	c.Assert(store.Seed(), qt.IsNil)
	s := &Server{Store: store}
	handler := mockapi.NewApp(store, nil).Handler()
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.RequestURI())
		s.mu.Unlock()
		handler.ServeHTTP(w, r)
	}))
	c.Cleanup(s.Close)
	return s
}

// Client returns a gateway client pointed at the server.
func (s *Server) Client(c *qt.C) *api.Client {
	client, err := api.New(api.Config{BaseURL: s.URL + "/api", HTTPClient: s.Server.Client()})
	c.Assert(err, qt.IsNil)
	return client
}

// LoginAs returns a client holding a credential for email.
func (s *Server) LoginAs(c *qt.C, email, password string) *api.Client {
	client := s.Client(c)
	_, err := client.Auth.Login(context.Background(), models.LoginCredentials{Email: email, Password: password})
	c.Assert(err, qt.IsNil)
	s.Reset()
	return client
}

// Customer returns a client logged in as the seeded customer.
func (s *Server) Customer(c *qt.C) *api.Client {
	return s.LoginAs(c, services.CustomerEmail, services.CustomerPassword)
}

// Admin returns a client logged in as the seeded admin.
func (s *Server) Admin(c *qt.C) *api.Client {
	return s.LoginAs(c, services.AdminEmail, services.AdminPassword)
}

// Requests returns "METHOD /path?query" for every request since the last
// Reset.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Count returns how many recorded requests start with prefix.
func (s *Server) Count(prefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

// Reset forgets the recorded requests.
func (s *Server) Reset() {
	s.mu.Lock()
	s.requests = nil
	s.mu.Unlock()
}
