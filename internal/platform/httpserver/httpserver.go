// Package httpserver centralizes http.Server construction so every entry
// point gets the same timeouts.
package httpserver

import (
	"net/http"
	"time"
)

// New builds the claims API server. Request bodies are small JSON documents;
// the write timeout leaves headroom for the 30s handler timeout middleware.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
