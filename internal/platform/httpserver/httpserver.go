package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with sane defaults for polling clients: short
// header reads and keep-alives long enough to span a couple of poll cycles.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
}
