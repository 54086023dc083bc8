package netconf

import (
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEUI64(t *testing.T) {
	mac, err := net.ParseMAC("00:11:22:33:44:55")
	require.NoError(t, err)

	got, err := EUI64(netip.MustParsePrefix("2001:db8::/64"), mac)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("2001:db8::211:22ff:fe33:4455"), got)

	// locally administered bit is flipped back off
	mac, _ = net.ParseMAC("02:00:00:00:00:01")
	got, err = EUI64(netip.MustParsePrefix("2001:db8:1:2::/64"), mac)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("2001:db8:1:2::ff:fe00:1"), got)
}

func TestEUI64Rejects(t *testing.T) {
	mac, _ := net.ParseMAC("00:11:22:33:44:55")
	_, err := EUI64(netip.MustParsePrefix("192.168.1.0/24"), mac)
	assert.Error(t, err)

	_, err = EUI64(netip.MustParsePrefix("2001:db8::/96"), mac)
	assert.Error(t, err)

	_, err = EUI64(netip.MustParsePrefix("2001:db8::/64"), net.HardwareAddr{1, 2, 3})
	assert.Error(t, err)
}
