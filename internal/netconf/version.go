package netconf

import (
	"errors"
	"fmt"
)

// Version is the DHCP protocol family a client asks to be configured for.
// The zero value means the caller did not pick one.
type Version string

const (
	VersionUnset Version = ""
	DHCPv4       Version = "DHCPv4"
	DHCPv6       Version = "DHCPv6"
)

var ErrUnknownVersion = errors.New("unknown DHCP version")

// Versions lists the selectable versions in form order.
func Versions() []Version {
	return []Version{DHCPv4, DHCPv6}
}

// ParseVersion accepts the exact spellings DHCPv4 and DHCPv6, and the empty
// string as VersionUnset. Anything else is ErrUnknownVersion.
func ParseVersion(s string) (Version, error) {
	switch v := Version(s); v {
	case VersionUnset, DHCPv4, DHCPv6:
		return v, nil
	}
	return VersionUnset, fmt.Errorf("%w: %q", ErrUnknownVersion, s)
}

func (v Version) String() string {
	return string(v)
}

// AddressField is the label used for the assigned address in rendered output.
func (v Version) AddressField() string {
	if v == DHCPv6 {
		return "assigned_ipv6"
	}
	return "assigned_ipv4"
}
