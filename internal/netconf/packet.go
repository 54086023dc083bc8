package netconf

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/insomniacslk/dhcp/dhcpv6"
	"github.com/insomniacslk/dhcp/iana"
)

// Binding is an address handed to a client, as read back from the reply
// packet that carries it.
type Binding struct {
	MAC       net.HardwareAddr
	Version   Version
	Addr      netip.Addr
	LeaseTime time.Duration
}

var errNoAddress = errors.New("reply carries no address")

// ReplyV4 builds the DHCPACK a server on n would send for addr.
func ReplyV4(n Network, mac net.HardwareAddr, addr netip.Addr) (*dhcpv4.DHCPv4, error) {
	if !addr.Is4() {
		return nil, fmt.Errorf("dhcpv4 reply needs an IPv4 address, got %s", addr)
	}
	gw := net.IP(n.V4Gateway.AsSlice())
	return dhcpv4.New(
		dhcpv4.WithMessageType(dhcpv4.MessageTypeAck),
		dhcpv4.WithHwAddr(mac),
		dhcpv4.WithYourIP(addr.AsSlice()),
		dhcpv4.WithNetmask(net.CIDRMask(n.V4Prefix.Bits(), 32)),
		dhcpv4.WithRouter(gw),
		dhcpv4.WithOption(dhcpv4.OptServerIdentifier(gw)),
		dhcpv4.WithLeaseTime(uint32(n.LeaseTime/time.Second)),
	)
}

func BindingFromV4(pkt *dhcpv4.DHCPv4) (Binding, error) {
	addr, ok := netip.AddrFromSlice(pkt.YourIPAddr.To4())
	if !ok || addr.IsUnspecified() {
		return Binding{}, errNoAddress
	}
	return Binding{
		MAC:       pkt.ClientHWAddr,
		Version:   DHCPv4,
		Addr:      addr,
		LeaseTime: pkt.IPAddressLeaseTime(0),
	}, nil
}

// ReplyV6 builds a DHCPv6 Reply with a single IA_NA address for the client
// identified by its link-layer DUID.
func ReplyV6(n Network, mac net.HardwareAddr, addr netip.Addr) (*dhcpv6.Message, error) {
	if !addr.Is6() {
		return nil, fmt.Errorf("dhcpv6 reply needs an IPv6 address, got %s", addr)
	}
	msg, err := dhcpv6.NewMessage(
		dhcpv6.WithClientID(&dhcpv6.DUIDLL{HWType: iana.HWTypeEthernet, LinkLayerAddr: mac}),
		dhcpv6.WithIANA(dhcpv6.OptIAAddress{
			IPv6Addr:          addr.AsSlice(),
			PreferredLifetime: n.LeaseTime,
			ValidLifetime:     n.LeaseTime,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("build dhcpv6 reply: %w", err)
	}
	msg.MessageType = dhcpv6.MessageTypeReply
	return msg, nil
}

func BindingFromV6(msg *dhcpv6.Message) (Binding, error) {
	ia := msg.Options.OneIANA()
	if ia == nil {
		return Binding{}, errNoAddress
	}
	ia6 := ia.Options.OneAddress()
	if ia6 == nil {
		return Binding{}, errNoAddress
	}
	addr, ok := netip.AddrFromSlice(ia6.IPv6Addr)
	if !ok {
		return Binding{}, errNoAddress
	}

	b := Binding{
		Version:   DHCPv6,
		Addr:      addr,
		LeaseTime: ia6.ValidLifetime,
	}
	if ll, ok := msg.Options.ClientID().(*dhcpv6.DUIDLL); ok {
		b.MAC = ll.LinkLayerAddr
	}
	return b, nil
}
