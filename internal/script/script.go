// Package script runs the external network configuration collaborator. The
// executable is started directly with an argument vector; no shell ever sees
// the arguments, so their content cannot change what gets executed.
package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"slices"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

var (
	// ErrNotFound covers a missing executable and one that cannot be executed.
	ErrNotFound = errors.New("script not found")
	ErrTimeout  = errors.New("script timed out")
	ErrCanceled = errors.New("script canceled")
)

// waitDelay bounds how long Run waits for output pipes after the process
// exits or is killed. A grandchild that inherited stdout would otherwise
// keep Run blocked.
const waitDelay = 2 * time.Second

// ExitError is returned when the script ran but exited non-zero.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Result is everything captured from one invocation. Stdout is passed on
// verbatim by callers; Stderr is for logs only.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Settings selects the executable. Args are placed before the per-call
// arguments, e.g. Path "python3" with Args ["network_config.py"].
type Settings struct {
	Path    string
	Args    []string
	Timeout time.Duration
}

type Runner struct {
	Log logr.Logger

	mu       sync.RWMutex
	settings Settings
}

func New(s Settings, log logr.Logger) *Runner {
	return &Runner{Log: log, settings: s}
}

// Settings returns a copy of the current settings.
func (r *Runner) Settings() Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.settings
	s.Args = slices.Clone(s.Args)
	return s
}

// Update swaps the settings used by subsequent calls to Run. Calls already
// in flight keep the settings they started with.
func (r *Runner) Update(s Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = s
	r.Log.Info("settings updated", "path", s.Path, "args", len(s.Args), "timeout", s.Timeout)
}

// Resolve reports the absolute path the executable resolves to.
func (r *Runner) Resolve() (string, error) {
	s := r.Settings()
	p, err := exec.LookPath(s.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotFound, s.Path, err)
	}
	return p, nil
}

// Run starts the script with args appended to the configured Args and waits
// for it to exit. The process is killed when ctx is done or the configured
// timeout passes.
//
// A Result is always returned, holding whatever was captured, even when err
// is non-nil. err is one of ErrNotFound, ErrTimeout, ErrCanceled (all
// wrapped) or an *ExitError.
func (r *Runner) Run(ctx context.Context, args ...string) (*Result, error) {
	s := r.Settings()

	runCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	argv := append(s.Args, args...)
	cmd := exec.CommandContext(runCtx, s.Path, argv...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	log := r.Log.WithValues("path", s.Path, "args", len(argv))
	if len(res.Stderr) > 0 {
		log.V(1).Info("script stderr", "stderr", string(res.Stderr))
	}

	err = classify(ctx, runCtx, err, res)
	if err != nil {
		log.V(1).Info("script failed", "err", err.Error(), "exit", res.ExitCode, "duration", res.Duration)
		return res, err
	}
	log.V(1).Info("script finished", "exit", res.ExitCode, "duration", res.Duration, "stdout_bytes", len(res.Stdout))
	return res, nil
}

func classify(parent, runCtx context.Context, err error, res *Result) error {
	if err == nil {
		return nil
	}
	switch {
	case parent.Err() != nil:
		return fmt.Errorf("%w: %v", ErrCanceled, parent.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, exec.ErrWaitDelay) && res.ExitCode == 0:
		// exited cleanly, something it spawned kept the pipes open
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("run script: %w", err)
}
