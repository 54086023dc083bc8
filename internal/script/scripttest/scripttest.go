// Package scripttest lets a test binary stand in for the collaborator. Call
// Main from TestMain, then point a runner at Settings(t, mode): the runner
// re-executes the test binary, which behaves according to mode instead of
// running tests.
package scripttest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/justinpopa/netconf-web/internal/netconf"
	"github.com/justinpopa/netconf-web/internal/script"
)

const (
	envMode   = "NETCONF_SCRIPTTEST_MODE"
	envStdout = "NETCONF_SCRIPTTEST_STDOUT"
)

const (
	// ModeArgs prints each argument JSON encoded on its own line.
	ModeArgs = "args"
	// ModeEcho prints the text given to Output and exits 0.
	ModeEcho = "echo"
	// ModeFail prints the text given to Output, writes to stderr, exits 3.
	ModeFail = "fail"
	// ModeSleep blocks for a minute.
	ModeSleep = "sleep"
	// ModeNetconfig behaves like the netconfig binary.
	ModeNetconfig = "netconfig"
)

// Main runs the fake collaborator when the mode variable is set and the
// tests otherwise.
func Main(m *testing.M) {
	if mode := os.Getenv(envMode); mode != "" {
		os.Exit(run(mode, os.Args[1:]))
	}
	os.Exit(m.Run())
}

// Settings returns runner settings that re-execute the current test binary
// in mode. It sets process environment, so callers cannot be parallel.
func Settings(t testing.TB, mode string) script.Settings {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("locate test binary: %v", err)
	}
	t.Setenv(envMode, mode)
	return script.Settings{Path: exe, Timeout: 10 * time.Second}
}

// Output sets what ModeEcho and ModeFail print.
func Output(t testing.TB, stdout string) {
	t.Helper()
	t.Setenv(envStdout, stdout)
}

// DecodeArgs parses ModeArgs output.
func DecodeArgs(stdout []byte) ([]string, error) {
	var args []string
	sc := bufio.NewScanner(bytes.NewReader(stdout))
	for sc.Scan() {
		var a string
		if err := json.Unmarshal(sc.Bytes(), &a); err != nil {
			return nil, fmt.Errorf("decode arg %q: %w", sc.Text(), err)
		}
		args = append(args, a)
	}
	return args, sc.Err()
}

func run(mode string, args []string) int {
	switch mode {
	case ModeArgs:
		for _, a := range args {
			b, _ := json.Marshal(a)
			fmt.Printf("%s\n", b)
		}
		return 0
	case ModeEcho:
		fmt.Print(os.Getenv(envStdout))
		return 0
	case ModeFail:
		fmt.Print(os.Getenv(envStdout))
		fmt.Fprint(os.Stderr, "boom")
		return 3
	case ModeSleep:
		time.Sleep(time.Minute)
		return 0
	case ModeNetconfig:
		if len(args) != 2 {
			fmt.Println("<h1>Error</h1>")
			return 1
		}
		if err := netconf.NewConfigurator(netconf.DefaultNetwork()).Render(os.Stdout, args[0], args[1]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(os.Stderr, "scripttest: unknown mode %q\n", mode)
	return 2
}
