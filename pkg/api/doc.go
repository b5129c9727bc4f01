// Package api provides the HTTP server exposing wud-triggers endpoints such as /metrics.
//
// Key components:
//   - API: Manages server setup and endpoint registration.
//   - RequireToken: Wraps handlers with bearer token validation when a token is configured.
//
// Usage example:
//
//	server := api.New(token, ":9090")
//	server.RegisterHandler("/metrics", handler)
//	if err := server.Start(ctx, false); err != nil {
//	    logrus.WithError(err).Error("API start failed")
//	}
//
// The package uses a custom ServeMux for routing, supports graceful shutdown,
// and integrates with logrus for logging server operations.
package api
