// Package site handles the root of the HTTP surface.
package site

import (
	"context"
	"net/http"
)

// DocsPath is where the API documentation is served.
const DocsPath = "/api-docs"

// Register attaches the root route to mux. "/" redirects to the API docs;
// every other unmatched path is a 404.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/", NewRootHandler())
}

// RootHandler handles root path requests
type RootHandler struct{}

// NewRootHandler creates a new root handler
func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

// ServeHTTP redirects GET / to the API docs.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, DocsPath, http.StatusFound)
}
