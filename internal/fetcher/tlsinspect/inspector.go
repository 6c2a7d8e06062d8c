// Package tlsinspect reads issuer and expiry from the leaf certificate a host
// presents during a TLS handshake.
package tlsinspect

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/JakeFAU/websight/internal/probe"
)

// ExpiryLayout renders a certificate's NotAfter as YYYYMMDD.
const ExpiryLayout = "20060102"

const (
	defaultPort    = 443
	defaultTimeout = 10 * time.Second
)

// Config controls the handshake.
type Config struct {
	// Port defaults to 443.
	Port int
	// Timeout bounds dial plus handshake when ctx carries no earlier deadline.
	Timeout time.Duration
	// RootCAs overrides the platform trust store when non-nil.
	RootCAs *x509.CertPool
}

// Inspector implements probe.TLSInspector over crypto/tls.
type Inspector struct {
	cfg Config
}

// New builds an Inspector.
func New(cfg Config) *Inspector {
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Inspector{cfg: cfg}
}

// Inspect opens a fresh TLS connection to the URL's host and reports the
// leaf certificate's issuer CN and expiry date. Headers are unused.
func (i *Inspector) Inspect(ctx context.Context, rawURL string, _ http.Header) (probe.TLSResult, error) {
	host := probe.ExtractHostname(rawURL)
	if host == "" {
		return probe.TLSResult{}, errors.New("inspect tls: empty hostname")
	}
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: i.cfg.Timeout},
		Config: &tls.Config{
			ServerName: host,
			RootCAs:    i.cfg.RootCAs,
			MinVersion: tls.VersionTLS12,
		},
	}
	addr := net.JoinHostPort(host, strconv.Itoa(i.cfg.Port))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return probe.TLSResult{}, fmt.Errorf("inspect tls %s: %w", addr, err)
	}
	defer conn.Close() //nolint:errcheck // read-only handshake

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return probe.TLSResult{}, fmt.Errorf("inspect tls %s: unexpected connection type %T", addr, conn)
	}
	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return probe.TLSResult{}, fmt.Errorf("inspect tls %s: no peer certificate", addr)
	}
	return FromCertificate(state.PeerCertificates[0]), nil
}

// FromCertificate extracts the issuer CN and the UTC expiry date.
func FromCertificate(cert *x509.Certificate) probe.TLSResult {
	return probe.TLSResult{
		IssuerCommonName: cert.Issuer.CommonName,
		Expiry:           cert.NotAfter.UTC().Format(ExpiryLayout),
	}
}
