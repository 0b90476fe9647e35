// Package tlsinfo fetches and parses a domain's X.509 certificate over a
// TLS handshake, grounded on original_source/src/ssl.rs.
package tlsinfo

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/BetterCallFirewall/urlscreen/internal/apierr"
)

const (
	warningDaysThreshold = 30
	connectionTimeout    = 5 * time.Second
	defaultPort          = "443"
)

// Info is the structured certificate information extracted from a domain's
// TLS handshake.
type Info struct {
	Issuer         string
	Subject        string
	ValidFrom      time.Time
	ValidTo        time.Time
	DaysRemaining  int64
	Version        int
	SerialNumber   string
	SecurityStatus string
}

// Fetcher retrieves certificate info for a domain.
type Fetcher struct {
	log *zap.Logger
}

// New builds a Fetcher.
func New(log *zap.Logger) *Fetcher {
	return &Fetcher{log: log}
}

// Fetch connects to domain:443, performs a TLS handshake accepting
// self-signed/expired/invalid certificates (to allow inspecting them rather
// than refusing to connect), and returns the peer certificate's parsed
// details.
func (f *Fetcher) Fetch(ctx context.Context, domain string) (*Info, error) {
	return f.fetchPort(ctx, domain, defaultPort)
}

// fetchPort is Fetch parameterized by port, split out so tests can target a
// local listener instead of the fixed default 443.
func (f *Fetcher) fetchPort(ctx context.Context, domain, port string) (*Info, error) {
	f.log.Info("retrieving SSL certificate", zap.String("domain", domain))

	dialer := &net.Dialer{Timeout: connectionTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(domain, port))
	if err != nil {
		return nil, apierr.Wrap(apierr.KindTLSHandshake, "failed to connect to server", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(connectionTimeout))

	tlsConn := tls.Client(conn, &tls.Config{
		ServerName:         domain,
		InsecureSkipVerify: true, //nolint:gosec // intentional: we inspect invalid/expired certs, not trust them
	})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, apierr.Wrap(apierr.KindTLSHandshake, "TLS handshake failed with "+domain, err)
	}
	defer tlsConn.Close()

	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, apierr.New(apierr.KindTLSHandshake, "no certificate presented by server")
	}

	return f.processCertificate(state.PeerCertificates[0])
}

func (f *Fetcher) processCertificate(cert *x509.Certificate) (*Info, error) {
	notBefore := cert.NotBefore.UTC()
	notAfter := cert.NotAfter.UTC()
	now := time.Now().UTC()
	daysRemaining := int64(notAfter.Sub(now).Hours() / 24)

	var status string
	switch {
	case now.After(notAfter):
		f.log.Warn("certificate has expired", zap.Time("expired", notAfter))
		status = "EXPIRED - Security Risk!"
	case daysRemaining < warningDaysThreshold:
		f.log.Warn("certificate expires soon", zap.Int64("days_remaining", daysRemaining))
		status = fmt.Sprintf("WARNING - Expires soon (%d days)", daysRemaining)
	default:
		f.log.Info("certificate is valid", zap.Int64("days_remaining", daysRemaining))
		status = fmt.Sprintf("Valid (%d days remaining)", daysRemaining)
	}

	serial := ""
	if cert.SerialNumber != nil {
		serial = fmt.Sprintf("%X", cert.SerialNumber)
	}

	return &Info{
		Issuer:         cert.Issuer.String(),
		Subject:        cert.Subject.String(),
		ValidFrom:      notBefore,
		ValidTo:        notAfter,
		DaysRemaining:  daysRemaining,
		Version:        cert.Version,
		SerialNumber:   serial,
		SecurityStatus: status,
	}, nil
}
