// Package api wires the service's HTTP endpoints onto the generic API server.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/getwud/wud-triggers/pkg/api"
	metricsAPI "github.com/getwud/wud-triggers/pkg/api/metrics"
)

// errStartAPI indicates that the HTTP API could not be started.
var errStartAPI = errors.New("failed to start HTTP API")

// SetupAndStartAPI exposes the metrics endpoint in the background.
//
// Nothing is started when addr is empty. A non-empty token protects the endpoint
// with bearer authentication.
//
// Parameters:
//   - ctx: The context controlling the API's lifecycle, enabling graceful shutdown on cancellation.
//   - addr: Listen address, such as ":9090".
//   - token: Bearer token required by clients, empty to leave the endpoint open.
//   - gatherer: Source of the exposed metrics.
//   - server: Optional server replacing the default http.Server.
//
// Returns:
//   - error: An error if the API fails to start (excluding clean shutdown), nil otherwise.
func SetupAndStartAPI(
	ctx context.Context,
	addr, token string,
	gatherer prometheus.Gatherer,
	server ...api.HTTPServer,
) error {
	if addr == "" {
		logrus.Debug("Metrics endpoint disabled")

		return nil
	}

	httpAPI := api.New(token, addr, server...)

	metricsHandler := metricsAPI.New(gatherer)
	httpAPI.RegisterHandler(metricsHandler.Path, metricsHandler.Handle)

	if token == "" {
		logrus.WithField("addr", addr).Warn("Metrics endpoint is not protected by a token")
	}

	if err := httpAPI.Start(ctx, false); err != nil &&
		!errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Error("Failed to start API")

		return fmt.Errorf("%w: %w", errStartAPI, err)
	}

	return nil
}
