// Command netconfig is the default configuration script for netconfd. It
// takes a MAC address and a DHCP version, allocates an address the way a
// DHCP server on the lab network would, and prints the lease as HTML.
//
// Usage:
//
//	netconfig <mac_address> <dhcp_version>
//
// Set NETCONFIG_VERBOSE to log packet details to stderr.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	"github.com/justinpopa/netconf-web/internal/netconf"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	l := stdr.NewWithOptions(log.New(stderr, "netconfig ", log.LstdFlags), stdr.Options{})
	if os.Getenv("NETCONFIG_VERBOSE") != "" {
		stdr.SetVerbosity(1)
	}

	if len(args) != 2 {
		fmt.Fprintln(stdout, "<h1>Error</h1>")
		l.Info("usage: netconfig <mac_address> <dhcp_version>", "got", len(args))
		return 1
	}
	return configure(l, netconf.NewConfigurator(netconf.DefaultNetwork()), args[0], args[1], stdout)
}

func configure(l logr.Logger, c *netconf.Configurator, mac, version string, stdout io.Writer) int {
	b, err := c.Configure(mac, version)
	if err != nil {
		l.Info("configuration rejected", "mac", mac, "version", version, "reason", err.Error())
		if err := netconf.RenderError(stdout, netconf.Message(err)); err != nil {
			l.Error(err, "write output")
			return 1
		}
		return 0
	}

	l.V(1).Info("lease", "mac", netconf.FormatMAC(b.MAC), "addr", b.Addr.String(), "lease", b.LeaseTime.String())
	if err := netconf.RenderBinding(stdout, b); err != nil {
		l.Error(err, "write output")
		return 1
	}
	return 0
}
