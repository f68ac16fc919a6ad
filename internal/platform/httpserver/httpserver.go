// Package httpserver builds the http.Server both binaries listen on: the
// public license API and the localhost-only studio loopback.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server with timeouts sized for small JSON request bodies.
// Both APIs exchange documents of at most a few hundred kilobytes (exam
// images ride inline as data URLs), so a slow client is a stuck one.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
