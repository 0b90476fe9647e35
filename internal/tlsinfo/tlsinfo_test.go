package tlsinfo

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BetterCallFirewall/urlscreen/internal/apierr"
)

func fakeCert(t *testing.T, notBeforeOffset, notAfterOffset time.Duration) *x509.Certificate {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(12345),
		Subject:      pkix.Name{CommonName: "test.example.com"},
		Issuer:       pkix.Name{CommonName: "Test CA"},
		NotBefore:    now.Add(notBeforeOffset),
		NotAfter:     now.Add(notAfterOffset),
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

func generateSelfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	require.NoError(t, err)

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
	}
}

func TestFetchReturnsCertificateDetails(t *testing.T) {
	cert := generateSelfSignedCert(t)
	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{cert}})
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				buf := make([]byte, 1024)
				conn.Read(buf)
				conn.Close()
			}()
		}
	}()

	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	f := New(zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	info, err := f.fetchPort(ctx, "127.0.0.1", port)
	require.NoError(t, err)
	assert.Equal(t, "CN=127.0.0.1", info.Subject)
}

func TestProcessCertificateSecurityStatus(t *testing.T) {
	f := New(zap.NewNop())

	almostExpired := fakeCert(t, -1*time.Hour, 5*24*time.Hour)
	info, err := f.processCertificate(almostExpired)
	require.NoError(t, err)
	assert.Contains(t, info.SecurityStatus, "WARNING")

	expired := fakeCert(t, -48*time.Hour, -24*time.Hour)
	info, err = f.processCertificate(expired)
	require.NoError(t, err)
	assert.Contains(t, info.SecurityStatus, "EXPIRED")

	healthy := fakeCert(t, -1*time.Hour, 365*24*time.Hour)
	info, err = f.processCertificate(healthy)
	require.NoError(t, err)
	assert.Contains(t, info.SecurityStatus, "Valid")
}

func TestFetchDialFailureWrapsApierr(t *testing.T) {
	f := New(zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := f.Fetch(ctx, "127.0.0.1.invalid.test")
	assert.Error(t, err)
	assert.Equal(t, apierr.KindTLSHandshake, apierr.KindOf(err))
}
