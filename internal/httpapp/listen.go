package httpapp

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Listen probes host:port, and on "address in use" retries
// port+1..port+MaxPortRetries before giving up (spec.md §6, Exit
// semantics). It returns the bound listener and the port actually
// used, so callers can report a change to the caller/banner.
//
// Grounded on original_source/src/server.rs's run(): a probe-bind loop
// shared by both the TLS and plain-HTTP code paths there; Go's
// net.Listen lets a single loop serve both schemes, since TLS wrapping
// happens after the listener is already bound (see cmd/hotplate).
func Listen(host string, port int) (net.Listener, int, error) {
	originalPort := port
	var lastErr error

	for attempt := 0; attempt <= MaxPortRetries; attempt++ {
		tryPort := port + attempt
		addr := fmt.Sprintf("%s:%d", host, tryPort)

		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, tryPort, nil
		}
		lastErr = err
		if !isAddrInUse(err) {
			return nil, 0, err
		}
	}

	return nil, 0, fmt.Errorf(
		"ports %d-%d are all in use, please free a port or choose a different one: %w",
		originalPort, originalPort+MaxPortRetries, lastErr,
	)
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}
