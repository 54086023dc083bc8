package httpserver

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/go-logr/logr"

	"github.com/justinpopa/netconf-web/internal/script"
)

// Invoker runs the network configuration collaborator. *script.Runner
// satisfies it.
type Invoker interface {
	Run(ctx context.Context, args ...string) (*script.Result, error)
}

// resolver is implemented by invokers that can report which executable
// they would start. /healthz uses it when available.
type resolver interface {
	Resolve() (string, error)
}

type Options struct {
	Log            logr.Logger
	Title          string
	SilentFailures bool
}

type Server struct {
	Log            logr.Logger
	Script         Invoker
	Title          string
	SilentFailures bool
	Templates      *template.Template
	StaticFS       fs.FS
}

func New(inv Invoker, opts Options, tmplFS fs.FS, staticFS fs.FS) (*Server, error) {
	tmpl, err := template.New("").ParseFS(tmplFS, "*.html")
	if err != nil {
		return nil, err
	}

	return &Server{
		Log:            opts.Log,
		Script:         inv,
		Title:          opts.Title,
		SilentFailures: opts.SilentFailures,
		Templates:      tmpl,
		StaticFS:       staticFS,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return RequestIDMiddleware(s.Log, LoggingMiddleware(RecoveryMiddleware(CSRFMiddleware(mux))))
}
