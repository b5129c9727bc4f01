package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// loadTLSConfig reads the configured certificate files.
//
// Parameters:
//   - cfg: TLS settings with file paths.
//
// Returns:
//   - *tls.Config: Client TLS configuration.
//   - error: Non-nil if a file cannot be read or parsed.
func loadTLSConfig(cfg TLSConfiguration) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.RejectUnauthorized != nil && !*cfg.RejectUnauthorized, //nolint:gosec // Opt-in through tls.rejectunauthorized=false.
	}

	if cfg.CAChain != "" {
		pem, err := os.ReadFile(cfg.CAChain)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errTLSMaterial, err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("%w: no certificate found in %s", errTLSMaterial, cfg.CAChain)
		}

		tlsConfig.RootCAs = pool
	}

	if cfg.ClientCert != "" {
		certificate, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errTLSMaterial, err)
		}

		tlsConfig.Certificates = []tls.Certificate{certificate}
	}

	return tlsConfig, nil
}
