package netconf

import (
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/insomniacslk/dhcp/dhcpv6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyV4(t *testing.T) {
	n := DefaultNetwork()
	mac := mustMAC(t, "00:11:22:33:44:55")

	pkt, err := ReplyV4(n, mac, netip.MustParseAddr("192.168.1.42"))
	require.NoError(t, err)
	assert.Equal(t, dhcpv4.MessageTypeAck, pkt.MessageType())
	assert.Equal(t, "255.255.255.0", net.IP(pkt.SubnetMask()).String())
	require.Len(t, pkt.Router(), 1)
	assert.Equal(t, "192.168.1.1", pkt.Router()[0].String())

	b, err := BindingFromV4(pkt)
	require.NoError(t, err)
	assert.Equal(t, DHCPv4, b.Version)
	assert.Equal(t, netip.MustParseAddr("192.168.1.42"), b.Addr)
	assert.Equal(t, time.Hour, b.LeaseTime)
	assert.Equal(t, mac.String(), b.MAC.String())
}

func TestReplyV4RejectsIPv6(t *testing.T) {
	_, err := ReplyV4(DefaultNetwork(), mustMAC(t, "00:11:22:33:44:55"), netip.MustParseAddr("2001:db8::1"))
	assert.Error(t, err)
}

func TestReplyV6(t *testing.T) {
	n := DefaultNetwork()
	mac := mustMAC(t, "00:11:22:33:44:55")
	addr := netip.MustParseAddr("2001:db8::211:22ff:fe33:4455")

	msg, err := ReplyV6(n, mac, addr)
	require.NoError(t, err)
	assert.Equal(t, dhcpv6.MessageTypeReply, msg.MessageType)

	b, err := BindingFromV6(msg)
	require.NoError(t, err)
	assert.Equal(t, DHCPv6, b.Version)
	assert.Equal(t, addr, b.Addr)
	assert.Equal(t, time.Hour, b.LeaseTime)
	assert.Equal(t, mac.String(), b.MAC.String())
}

func TestBindingFromV6WithoutAddress(t *testing.T) {
	msg, err := dhcpv6.NewMessage()
	require.NoError(t, err)
	_, err = BindingFromV6(msg)
	assert.ErrorIs(t, err, errNoAddress)
}
