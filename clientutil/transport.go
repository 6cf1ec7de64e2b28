package clientutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/http2"
)

// NewTransport returns a transport which verifies certificates against the system
// roots, plus any PEM certificates in caFile, and keeps at most maxConns connections
// per host open so that concurrent callers share a bounded pool.
func NewTransport(maxConns int, caFile string) (*http.Transport, error) {
	if maxConns < 1 {
		return nil, fmt.Errorf("max conns must be positive, got %d", maxConns)
	}

	roots, err := x509.SystemCertPool()
	if err != nil || roots == nil {
		roots = x509.NewCertPool()
	}
	if caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		if !roots.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %q", caFile)
		}
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	t := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,
		TLSClientConfig: &tls.Config{
			RootCAs:    roots,
			MinVersion: tls.VersionTLS12,
		},
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          maxConns,
		MaxIdleConnsPerHost:   maxConns,
		MaxConnsPerHost:       maxConns,
	}
	// a custom TLS config turns off the automatic h2 upgrade
	if err := http2.ConfigureTransport(t); err != nil {
		return nil, fmt.Errorf("configure http2: %w", err)
	}
	return t, nil
}
