package netconf

import (
	"errors"
	"math/rand/v2"
	"net"
	"net/netip"
	"sync"
	"time"

	"go4.org/netipx"
)

var ErrPoolExhausted = errors.New("no available IPv4 addresses in the subnet")

// Lease is what the allocator remembers about one MAC.
type Lease struct {
	IPv4     netip.Addr
	V4Expiry time.Time
	IPv6     netip.Addr
	V6Expiry time.Time
}

// Allocator hands out addresses on a Network. Leases live in memory only and
// are gone when the process exits.
type Allocator struct {
	Network Network
	// Now and Pick are replaceable for tests. Pick returns a value in [0, n).
	Now  func() time.Time
	Pick func(n int) int

	mu     sync.Mutex
	leases map[string]*Lease
}

func NewAllocator(n Network) *Allocator {
	return &Allocator{
		Network: n,
		Now:     time.Now,
		Pick:    rand.IntN,
		leases:  make(map[string]*Lease),
	}
}

// Lease returns the current lease record for mac, if any.
func (a *Allocator) Lease(mac net.HardwareAddr) (Lease, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.leases[mac.String()]
	if !ok {
		return Lease{}, false
	}
	return *l, true
}

// AllocateV4 returns the unexpired address mac already holds, or a random
// free address from the pool.
func (a *Allocator) AllocateV4(mac net.HardwareAddr) (netip.Addr, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.Now()
	key := mac.String()
	if l, ok := a.leases[key]; ok && l.IPv4.IsValid() && l.V4Expiry.After(now) {
		return l.IPv4, nil
	}

	taken := make(map[netip.Addr]bool)
	for _, l := range a.leases {
		if l.IPv4.IsValid() && l.V4Expiry.After(now) {
			taken[l.IPv4] = true
		}
	}

	var free []netip.Addr
	for _, ip := range a.v4Pool() {
		if !taken[ip] {
			free = append(free, ip)
		}
	}
	if len(free) == 0 {
		return netip.Addr{}, ErrPoolExhausted
	}

	ip := free[a.Pick(len(free))]
	l := a.lease(key)
	l.IPv4 = ip
	l.V4Expiry = now.Add(a.Network.LeaseTime)
	return ip, nil
}

// AllocateV6 derives the EUI-64 address for mac and records it.
func (a *Allocator) AllocateV6(mac net.HardwareAddr) (netip.Addr, error) {
	ip, err := EUI64(a.Network.V6Prefix, mac)
	if err != nil {
		return netip.Addr{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	l := a.lease(mac.String())
	l.IPv6 = ip
	l.V6Expiry = a.Now().Add(a.Network.LeaseTime)
	return ip, nil
}

func (a *Allocator) lease(key string) *Lease {
	l, ok := a.leases[key]
	if !ok {
		l = &Lease{}
		a.leases[key] = l
	}
	return l
}

// v4Pool is every host address of the v4 prefix except the gateway. Network
// and broadcast addresses are skipped unless the prefix is a /31 or /32.
func (a *Allocator) v4Pool() []netip.Addr {
	r := netipx.RangeOfPrefix(a.Network.V4Prefix)
	if !r.IsValid() {
		return nil
	}
	first, last := r.From(), r.To()
	if a.Network.V4Prefix.Bits() < 31 {
		first, last = first.Next(), last.Prev()
	}

	var pool []netip.Addr
	for ip := first; ip.IsValid() && ip.Compare(last) <= 0; ip = ip.Next() {
		if ip == a.Network.V4Gateway {
			continue
		}
		pool = append(pool, ip)
	}
	return pool
}
