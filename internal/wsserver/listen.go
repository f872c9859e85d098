//go:build !wsserver_notls

package wsserver

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"time"
)

// TLSEnabled reports whether this build was compiled with TLS termination
// active. The production build (this file) always reports true; the
// wsserver_notls build tag swaps in listen_notls.go for local testing
// (spec.md §4.15 "a compile-time switch toggles TLS off for local testing").
const TLSEnabled = true

// Listen starts a TLS listener on addr using a freshly generated self-signed
// certificate. There is no certificate persistence or external CA
// involvement: spec.md's non-goals explicitly exclude "any security policy
// beyond accepting a self-signed TLS certificate", so a throwaway
// in-process certificate generated at boot is sufficient.
func Listen(addr string) (net.Listener, error) {
	cert, err := selfSignedCert()
	if err != nil {
		return nil, fmt.Errorf("wsserver: generate self-signed cert: %w", err)
	}
	return tls.Listen("tcp", addr, &tls.Config{Certificates: []tls.Certificate{cert}})
}

// Serve blocks serving handler on ln. Callers typically run it in its own
// goroutine.
func Serve(ln net.Listener, handler http.Handler) error {
	return http.Serve(ln, handler)
}

func selfSignedCert() (tls.Certificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, err
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{Organization: []string{"tacsuitcase"}, CommonName: "tacsuitcase-controller"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(10 * 365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}, nil
}
