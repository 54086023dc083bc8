// Command netconfctl runs the network configuration script once, the same
// way netconfd does for a form submission, and prints its output.
//
// Usage:
//
//	netconfctl [flags] <mac_address> <dhcp_version>
//
// Exit status is 0 on success, 1 when the script could not run or failed
// and 2 on usage errors, including an unknown DHCP version.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/justinpopa/netconf-web/internal/config"
	"github.com/justinpopa/netconf-web/internal/logging"
	"github.com/justinpopa/netconf-web/internal/netconf"
	"github.com/justinpopa/netconf-web/internal/script"
)

var version = "dev"

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("netconfctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: netconfctl [flags] <mac_address> <dhcp_version>")
		fs.PrintDefaults()
	}

	loader, err := config.NewLoader(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if cfg.Version {
		fmt.Fprintln(stdout, "netconfctl "+version)
		return exitOK
	}

	if fs.NArg() != 2 {
		fs.Usage()
		return exitUsage
	}
	mac, raw := fs.Arg(0), fs.Arg(1)
	v, err := netconf.ParseVersion(raw)
	if err != nil {
		fmt.Fprintf(stderr, "netconfctl: %v (want one of %v)\n", err, netconf.Versions())
		return exitUsage
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	runner := script.New(cfg.ScriptSettings(), log.WithName("script"))
	res, err := runner.Run(ctx, mac, v.String())
	if res != nil {
		stdout.Write(res.Stdout)
	}
	if err != nil {
		kv := []any{"script", cfg.Script}
		if res != nil && len(res.Stderr) > 0 {
			kv = append(kv, "stderr", string(res.Stderr))
		}
		log.Error(err, "network configuration failed", kv...)
		return exitFailure
	}
	return exitOK
}
