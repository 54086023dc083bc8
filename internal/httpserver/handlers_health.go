package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-logr/logr"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var path string
	if res, ok := s.Script.(resolver); ok {
		p, err := res.Resolve()
		if err != nil {
			logr.FromContextOrDiscard(r.Context()).Error(err, "healthz")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		path = p
	}
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"script": path,
	})
}
