package netconf

import (
	"errors"
	"fmt"
	"io"
)

var ErrVersionRequired = errors.New("dhcp version is required")

// Configurator answers one (mac, version) request the way a DHCP server on
// its Network would.
type Configurator struct {
	Network   Network
	Allocator *Allocator
}

func NewConfigurator(n Network) *Configurator {
	return &Configurator{
		Network:   n,
		Allocator: NewAllocator(n),
	}
}

// Configure validates the raw arguments, allocates an address and returns
// the binding carried by the resulting reply packet.
func (c *Configurator) Configure(mac, version string) (Binding, error) {
	hw, err := ParseMAC(mac)
	if err != nil {
		return Binding{}, err
	}
	v, err := ParseVersion(version)
	if err != nil || v == VersionUnset {
		return Binding{}, ErrVersionRequired
	}

	switch v {
	case DHCPv4:
		addr, err := c.Allocator.AllocateV4(hw)
		if err != nil {
			return Binding{}, err
		}
		pkt, err := ReplyV4(c.Network, hw, addr)
		if err != nil {
			return Binding{}, fmt.Errorf("build dhcpv4 reply: %w", err)
		}
		return BindingFromV4(pkt)
	default:
		addr, err := c.Allocator.AllocateV6(hw)
		if err != nil {
			return Binding{}, err
		}
		msg, err := ReplyV6(c.Network, hw, addr)
		if err != nil {
			return Binding{}, err
		}
		return BindingFromV6(msg)
	}
}

// Render runs Configure and writes either the result or the error page.
// The returned error is only set when writing fails.
func (c *Configurator) Render(w io.Writer, mac, version string) error {
	b, err := c.Configure(mac, version)
	if err != nil {
		return RenderError(w, Message(err))
	}
	return RenderBinding(w, b)
}

// Message is the text shown to the user for a Configure error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrMissingMAC):
		return "MAC address is required"
	case errors.Is(err, ErrInvalidMAC):
		return "Invalid MAC address format. Please use format XX:XX:XX:XX:XX:XX"
	case errors.Is(err, ErrVersionRequired):
		return "Valid DHCP version (DHCPv4 or DHCPv6) is required"
	case errors.Is(err, ErrPoolExhausted):
		return "No available IPv4 addresses in the subnet"
	}
	return err.Error()
}
