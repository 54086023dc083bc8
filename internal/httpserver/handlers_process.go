package httpserver

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime"
	"net/http"

	"github.com/go-logr/logr"

	"github.com/justinpopa/netconf-web/internal/netconf"
	"github.com/justinpopa/netconf-web/internal/script"
)

// trailer is appended to every /process response.
const trailer = "<p><a href='/'>Back to input form</a></p>"

const maxFormBytes = 1 << 20

// Input is the request after body and query have been merged. MAC is passed
// on untouched; the collaborator owns its validation.
type Input struct {
	MAC     string
	Version netconf.Version
}

type rawInput struct {
	MAC     string
	Version string
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	log := logr.FromContextOrDiscard(r.Context())

	raw := extractInput(w, r, log)
	v, err := netconf.ParseVersion(raw.Version)
	if err != nil {
		log.Info("rejected request", "reason", err.Error())
		respond(w, http.StatusBadRequest, nil,
			fmt.Sprintf("Invalid DHCP version %q. Choose DHCPv4 or DHCPv6.", raw.Version))
		return
	}
	in := Input{MAC: raw.MAC, Version: v}

	res, err := s.Script.Run(r.Context(), in.MAC, in.Version.String())
	var stdout []byte
	if res != nil {
		stdout = res.Stdout
	}
	if err == nil {
		respond(w, http.StatusOK, stdout, "")
		return
	}

	kv := []any{"mac_address", in.MAC, "dhcp_version", in.Version}
	if res != nil {
		kv = append(kv, "exit", res.ExitCode, "stderr", string(res.Stderr))
	}
	log.Error(err, "network configuration failed", kv...)

	if s.SilentFailures {
		respond(w, http.StatusOK, stdout, "")
		return
	}
	respond(w, http.StatusBadGateway, stdout, "Network configuration failed: "+describeFailure(err))
}

// extractInput reads mac_address and dhcp_version. A body value wins over a
// query value whenever the body carries the field, even empty. A body that
// cannot be parsed is logged and ignored entirely, including any pairs that
// did parse, so only the query is used.
func extractInput(w http.ResponseWriter, r *http.Request, log logr.Logger) rawInput {
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	}

	var err error
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		err = r.ParseMultipartForm(maxFormBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		log.Info("malformed request body, using query values", "err", err.Error())
		r.PostForm = nil
	}

	return rawInput{
		MAC:     field(r, "mac_address"),
		Version: field(r, "dhcp_version"),
	}
}

func field(r *http.Request, name string) string {
	if vs, ok := r.PostForm[name]; ok && len(vs) > 0 {
		return vs[0]
	}
	return r.URL.Query().Get(name)
}

// respond writes stdout unescaped, then the error paragraph if msg is set,
// then the trailer.
func respond(w http.ResponseWriter, status int, stdout []byte, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(stdout)
	if msg != "" {
		fmt.Fprintf(w, `<p class="error">%s</p>`, template.HTMLEscapeString(msg))
	}
	io.WriteString(w, trailer)
}

func describeFailure(err error) string {
	var exitErr *script.ExitError
	switch {
	case errors.Is(err, script.ErrNotFound):
		return "configuration script not found"
	case errors.Is(err, script.ErrTimeout):
		return "configuration script timed out"
	case errors.Is(err, script.ErrCanceled):
		return "request canceled"
	case errors.As(err, &exitErr):
		return fmt.Sprintf("configuration script exited with status %d", exitErr.Code)
	}
	return "configuration script could not be run"
}
