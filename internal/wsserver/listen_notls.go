//go:build wsserver_notls

package wsserver

import (
	"net"
	"net/http"
)

// TLSEnabled is false in builds compiled with -tags wsserver_notls, used
// for local testing off-hardware (spec.md §4.15).
const TLSEnabled = false

// Listen starts a plain TCP listener, bypassing TLS entirely.
func Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// Serve blocks serving handler on ln.
func Serve(ln net.Listener, handler http.Handler) error {
	return http.Serve(ln, handler)
}
