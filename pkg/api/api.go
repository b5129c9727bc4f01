package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Server timeouts.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// API represents the HTTP server.
type API struct {
	Token      string // Bearer token; empty disables authentication.
	Addr       string
	registered bool
	mux        *http.ServeMux // Custom mux to avoid global collisions
	server     HTTPServer     // Optional injected server for testing
}

// New is a factory function creating a new API instance.
// The server parameter is optional and allows dependency injection for testing.
func New(token, addr string, server ...HTTPServer) *API {
	var injectedServer HTTPServer
	if len(server) > 0 {
		injectedServer = server[0]
	}

	logrus.WithFields(logrus.Fields{
		"addr":          addr,
		"authenticated": token != "",
	}).Debug("Initialized new API instance")

	return &API{
		Token:  token,
		Addr:   addr,
		mux:    http.NewServeMux(),
		server: injectedServer,
	}
}

// RegisterHandler registers an HTTP handler for the given path, behind the token if one is set.
func (a *API) RegisterHandler(path string, handler http.Handler) {
	if a.Token != "" {
		handler = a.RequireToken(handler)
	}

	a.mux.Handle(path, handler)
	a.registered = true
}

// Handler returns the routing handler, mainly for tests.
func (a *API) Handler() http.Handler {
	return a.mux
}

// Start starts the HTTP server.
// If blocking is true, it runs in the foreground and blocks until shutdown.
// If blocking is false, it runs in the background and shuts down when ctx ends.
func (a *API) Start(ctx context.Context, blocking bool) error {
	if !a.registered {
		logrus.Info("No handlers registered, skipping API start")

		return nil
	}

	server := a.server
	if server == nil {
		server = &http.Server{
			Addr:              a.Addr,
			Handler:           a.mux,
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
			BaseContext:       func(_ net.Listener) context.Context { return ctx },
		}
	}

	logrus.WithField("addr", a.Addr).Info("Starting HTTP API server")

	if blocking {
		return RunHTTPServer(ctx, server)
	}

	go func() {
		if err := RunHTTPServer(ctx, server); err != nil {
			logrus.WithError(err).Error("HTTP server failed")
		}
	}()

	return nil
}

// RequireToken wraps a handler with bearer token authentication.
func (a *API) RequireToken(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(auth, "Bearer ")

		if !found || subtle.ConstantTimeCompare([]byte(token), []byte(a.Token)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)

			return
		}

		handler.ServeHTTP(w, r)
	})
}

// HTTPServer interface for RunHTTPServer.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// RunHTTPServer starts the HTTP server and handles graceful shutdown.
func RunHTTPServer(ctx context.Context, server HTTPServer) error {
	errChan := make(chan error, 1)

	go func() {
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		return nil
	}
}
