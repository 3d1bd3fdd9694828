// Package site serves the embedded marketing site.
package site

import (
	"context"
	"net/http"
)

// Register attaches the embedded marketing site to mux at the root path.
// API routes must be registered on the same mux with more specific patterns.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.Handle("/", http.FileServer(FS()))
}
