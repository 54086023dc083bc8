package netconf

import (
	"net/netip"
	"time"
)

// Network describes the simulated segment clients are configured on.
type Network struct {
	V4Prefix  netip.Prefix
	V4Gateway netip.Addr
	V6Prefix  netip.Prefix
	V6Gateway netip.Addr
	LeaseTime time.Duration
}

// DefaultNetwork is 192.168.1.0/24 and 2001:db8::/64 with one hour leases.
func DefaultNetwork() Network {
	return Network{
		V4Prefix:  netip.MustParsePrefix("192.168.1.0/24"),
		V4Gateway: netip.MustParseAddr("192.168.1.1"),
		V6Prefix:  netip.MustParsePrefix("2001:db8::/64"),
		V6Gateway: netip.MustParseAddr("2001:db8::1"),
		LeaseTime: 3600 * time.Second,
	}
}
