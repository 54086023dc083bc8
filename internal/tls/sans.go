package tls

import (
	"bufio"
	"crypto/x509"
	"net"
	"net/netip"
	"os"
	"slices"
	"strings"
)

const resolvConf = "/etc/resolv.conf"

// SANs are the names a self-signed certificate is issued for. Both lists
// are kept sorted and free of duplicates.
type SANs struct {
	DNS []string
	IPs []netip.Addr
}

func newSANs(dns []string, ips []netip.Addr) SANs {
	s := SANs{DNS: slices.Clone(dns), IPs: slices.Clone(ips)}
	slices.Sort(s.DNS)
	s.DNS = slices.Compact(s.DNS)
	slices.SortFunc(s.IPs, netip.Addr.Compare)
	s.IPs = slices.Compact(s.IPs)
	return s
}

// DiscoverSANs collects localhost, the hostname qualified with each
// resolv.conf search domain, the loopback addresses and every address on
// an up, non-loopback interface.
func DiscoverSANs() SANs {
	dns := []string{"localhost"}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		hostname = strings.ToLower(hostname)
		dns = append(dns, hostname)
		for _, search := range readSearchDomains(resolvConf) {
			dns = append(dns, hostname+"."+search)
		}
	}

	ips := []netip.Addr{netip.IPv6Loopback(), netip.AddrFrom4([4]byte{127, 0, 0, 1})}
	ifaces, err := net.Interfaces()
	if err == nil {
		for _, iface := range ifaces {
			if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
				continue
			}
			addrs, err := iface.Addrs()
			if err != nil {
				continue
			}
			for _, addr := range addrs {
				pfx, err := netip.ParsePrefix(addr.String())
				if err != nil || pfx.Addr().IsLoopback() {
					continue
				}
				ips = append(ips, pfx.Addr().Unmap())
			}
		}
	}
	return newSANs(dns, ips)
}

// readSearchDomains parses "search" and "domain" directives.
func readSearchDomains(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var domains []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "search":
			domains = append(domains, fields[1:]...)
		case "domain":
			domains = append(domains, fields[1])
		}
	}
	return domains
}

// covers reports whether cert was issued for exactly s.
func (s SANs) covers(cert *x509.Certificate) bool {
	ips := make([]netip.Addr, 0, len(cert.IPAddresses))
	for _, ip := range cert.IPAddresses {
		if a, ok := netip.AddrFromSlice(ip); ok {
			ips = append(ips, a.Unmap())
		}
	}
	have := newSANs(cert.DNSNames, ips)
	return slices.Equal(have.DNS, s.DNS) && slices.Equal(have.IPs, s.IPs)
}

func (s SANs) netIPs() []net.IP {
	out := make([]net.IP, len(s.IPs))
	for i, a := range s.IPs {
		out[i] = net.IP(a.AsSlice())
	}
	return out
}
