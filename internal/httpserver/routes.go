package httpserver

import (
	"net/http"
)

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(s.StaticFS)))

	// Health check
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	// Input form
	mux.HandleFunc("GET /{$}", s.handleForm)

	// Request handler, form posts and query-string links alike
	mux.HandleFunc("POST /process", s.handleProcess)
	mux.HandleFunc("GET /process", s.handleProcess)
}
