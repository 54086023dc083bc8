package netconf

import (
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func newTestAllocator(n Network) (*Allocator, *clock) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	a := NewAllocator(n)
	a.Now = c.Now
	a.Pick = func(int) int { return 0 }
	return a, c
}

func mustMAC(t *testing.T, s string) net.HardwareAddr {
	t.Helper()
	hw, err := net.ParseMAC(s)
	require.NoError(t, err)
	return hw
}

func TestV4PoolSkipsReservedAddresses(t *testing.T) {
	a, _ := newTestAllocator(DefaultNetwork())
	pool := a.v4Pool()

	require.Len(t, pool, 253)
	assert.Equal(t, netip.MustParseAddr("192.168.1.2"), pool[0])
	assert.Equal(t, netip.MustParseAddr("192.168.1.254"), pool[len(pool)-1])
	assert.NotContains(t, pool, netip.MustParseAddr("192.168.1.1"))
}

func TestAllocateV4ReusesUnexpiredLease(t *testing.T) {
	a, c := newTestAllocator(DefaultNetwork())
	a.Pick = func(n int) int { return n - 1 }
	mac := mustMAC(t, "00:11:22:33:44:55")

	first, err := a.AllocateV4(mac)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("192.168.1.254"), first)

	c.now = c.now.Add(time.Minute)
	a.Pick = func(int) int { return 0 }
	again, err := a.AllocateV4(mac)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	l, ok := a.Lease(mac)
	require.True(t, ok)
	assert.Equal(t, c.now.Add(-time.Minute).Add(time.Hour), l.V4Expiry)
}

func TestAllocateV4SkipsTakenAddresses(t *testing.T) {
	a, _ := newTestAllocator(DefaultNetwork())

	one, err := a.AllocateV4(mustMAC(t, "00:00:00:00:00:01"))
	require.NoError(t, err)
	two, err := a.AllocateV4(mustMAC(t, "00:00:00:00:00:02"))
	require.NoError(t, err)

	assert.Equal(t, netip.MustParseAddr("192.168.1.2"), one)
	assert.Equal(t, netip.MustParseAddr("192.168.1.3"), two)
}

func TestAllocateV4Exhaustion(t *testing.T) {
	n := DefaultNetwork()
	n.V4Prefix = netip.MustParsePrefix("192.168.1.0/30")
	a, c := newTestAllocator(n)

	got, err := a.AllocateV4(mustMAC(t, "00:00:00:00:00:01"))
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("192.168.1.2"), got)

	_, err = a.AllocateV4(mustMAC(t, "00:00:00:00:00:02"))
	assert.ErrorIs(t, err, ErrPoolExhausted)

	// once the first lease runs out its address is free again
	c.now = c.now.Add(n.LeaseTime + time.Second)
	got, err = a.AllocateV4(mustMAC(t, "00:00:00:00:00:02"))
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("192.168.1.2"), got)
}

func TestAllocateV6KeepsV4Lease(t *testing.T) {
	a, _ := newTestAllocator(DefaultNetwork())
	mac := mustMAC(t, "00:11:22:33:44:55")

	v4, err := a.AllocateV4(mac)
	require.NoError(t, err)
	v6, err := a.AllocateV6(mac)
	require.NoError(t, err)

	assert.Equal(t, netip.MustParseAddr("2001:db8::211:22ff:fe33:4455"), v6)
	l, ok := a.Lease(mac)
	require.True(t, ok)
	assert.Equal(t, v4, l.IPv4)
	assert.Equal(t, v6, l.IPv6)
}
