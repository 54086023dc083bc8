package netconf

import (
	"fmt"
	"net"
	"net/netip"
)

// EUI64 builds the SLAAC style address for mac under prefix: FF:FE is
// inserted in the middle of the MAC and the universal/local bit is flipped.
// prefix must be IPv6 and no longer than /64.
func EUI64(prefix netip.Prefix, mac net.HardwareAddr) (netip.Addr, error) {
	if len(mac) != 6 {
		return netip.Addr{}, fmt.Errorf("eui-64 needs a 48-bit mac, got %d bytes", len(mac))
	}
	if !prefix.Addr().Is6() || prefix.Bits() > 64 {
		return netip.Addr{}, fmt.Errorf("eui-64 needs an IPv6 prefix of /64 or shorter, got %s", prefix)
	}
	b := prefix.Masked().Addr().As16()
	b[8] = mac[0] ^ 0x02
	b[9], b[10] = mac[1], mac[2]
	b[11], b[12] = 0xff, 0xfe
	b[13], b[14], b[15] = mac[3], mac[4], mac[5]
	return netip.AddrFrom16(b), nil
}
