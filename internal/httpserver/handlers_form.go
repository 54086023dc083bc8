package httpserver

import (
	"net/http"

	"github.com/go-logr/logr"

	"github.com/justinpopa/netconf-web/internal/netconf"
)

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Title":    s.Title,
		"Versions": netconf.Versions(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.Templates.ExecuteTemplate(w, "form", data); err != nil {
		logr.FromContextOrDiscard(r.Context()).Error(err, "render form")
	}
}
