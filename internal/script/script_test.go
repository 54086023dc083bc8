package script_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justinpopa/netconf-web/internal/script"
	"github.com/justinpopa/netconf-web/internal/script/scripttest"
)

func TestMain(m *testing.M) {
	scripttest.Main(m)
}

func TestRunPassesArgumentsLiterally(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "pwned")
	inputs := []string{
		"; touch " + marker,
		"`touch " + marker + "`",
		"$(touch " + marker + ")",
		`"quoted" 'single' \back`,
		"a | touch " + marker + " && echo x > " + marker,
		"",
		"-flag-looking",
	}

	r := script.New(scripttest.Settings(t, scripttest.ModeArgs), testr.New(t))
	res, err := r.Run(context.Background(), inputs...)
	require.NoError(t, err)

	got, err := scripttest.DecodeArgs(res.Stdout)
	require.NoError(t, err)
	assert.Equal(t, inputs, got)

	_, err = os.Stat(marker)
	assert.True(t, errors.Is(err, os.ErrNotExist), "marker file must not exist")
}

func TestRunPrependsConfiguredArgs(t *testing.T) {
	s := scripttest.Settings(t, scripttest.ModeArgs)
	s.Args = []string{"network_config.py"}
	r := script.New(s, testr.New(t))

	res, err := r.Run(context.Background(), "00:11:22:33:44:55", "DHCPv4")
	require.NoError(t, err)

	got, err := scripttest.DecodeArgs(res.Stdout)
	require.NoError(t, err)
	assert.Equal(t, []string{"network_config.py", "00:11:22:33:44:55", "DHCPv4"}, got)
	assert.Equal(t, []string{"network_config.py"}, r.Settings().Args)
}

func TestRunCapturesStdout(t *testing.T) {
	scripttest.Output(t, "<p>Configured</p>")
	r := script.New(scripttest.Settings(t, scripttest.ModeEcho), testr.New(t))

	res, err := r.Run(context.Background(), "00:11:22:33:44:55", "DHCPv4")
	require.NoError(t, err)
	assert.Equal(t, "<p>Configured</p>", string(res.Stdout))
	assert.Equal(t, 0, res.ExitCode)
	assert.Empty(t, res.Stderr)
}

func TestRunNonZeroExit(t *testing.T) {
	scripttest.Output(t, "partial")
	r := script.New(scripttest.Settings(t, scripttest.ModeFail), testr.New(t))

	res, err := r.Run(context.Background())
	var exitErr *script.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "partial", string(res.Stdout))
	assert.Equal(t, "boom", string(res.Stderr))
}

func TestRunTimeout(t *testing.T) {
	s := scripttest.Settings(t, scripttest.ModeSleep)
	s.Timeout = 200 * time.Millisecond
	r := script.New(s, testr.New(t))

	start := time.Now()
	res, err := r.Run(context.Background())
	assert.ErrorIs(t, err, script.ErrTimeout)
	assert.NotNil(t, res)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunCanceledByCaller(t *testing.T) {
	r := script.New(scripttest.Settings(t, scripttest.ModeSleep), testr.New(t))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := r.Run(ctx)
	assert.ErrorIs(t, err, script.ErrCanceled)
}

func TestRunMissingExecutable(t *testing.T) {
	r := script.New(script.Settings{
		Path:    filepath.Join(t.TempDir(), "does-not-exist"),
		Timeout: time.Second,
	}, testr.New(t))

	res, err := r.Run(context.Background(), "00:11:22:33:44:55", "DHCPv4")
	assert.ErrorIs(t, err, script.ErrNotFound)
	require.NotNil(t, res)
	assert.Empty(t, res.Stdout)
	assert.Equal(t, -1, res.ExitCode)

	_, err = r.Resolve()
	assert.ErrorIs(t, err, script.ErrNotFound)
}

func TestRunMissingFromPath(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	r := script.New(script.Settings{Path: "netconfig-not-installed"}, testr.New(t))

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, script.ErrNotFound)
}

func TestUpdateAppliesToNextRun(t *testing.T) {
	scripttest.Output(t, "v1")
	s := scripttest.Settings(t, scripttest.ModeEcho)
	r := script.New(script.Settings{Path: "netconfig-not-installed"}, testr.New(t))

	r.Update(s)
	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1", string(res.Stdout))

	p, err := r.Resolve()
	require.NoError(t, err)
	assert.Equal(t, s.Path, p)
}

func TestRunIsRepeatable(t *testing.T) {
	r := script.New(scripttest.Settings(t, scripttest.ModeNetconfig), testr.New(t))

	first, err := r.Run(context.Background(), "00:11:22:33:44:55", "DHCPv6")
	require.NoError(t, err)
	second, err := r.Run(context.Background(), "00:11:22:33:44:55", "DHCPv6")
	require.NoError(t, err)
	assert.Equal(t, string(first.Stdout), string(second.Stdout))
	assert.Contains(t, string(first.Stdout), "2001:db8::211:22ff:fe33:4455")
}

func TestRunNetconfigUsage(t *testing.T) {
	r := script.New(scripttest.Settings(t, scripttest.ModeNetconfig), testr.New(t))

	res, err := r.Run(context.Background(), "only-one")
	var exitErr *script.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
	assert.Equal(t, "<h1>Error</h1>\n", string(res.Stdout))
}
