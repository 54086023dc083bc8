package netconf

import (
	"errors"
	"net"
	"regexp"
	"strings"
)

var (
	ErrMissingMAC = errors.New("mac address is required")
	ErrInvalidMAC = errors.New("invalid mac address format")
)

var (
	macRe    = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})\n?$`)
	nonHexRe = regexp.MustCompile(`[^0-9A-Fa-f]`)
)

// ValidMAC reports whether s is six hex pairs separated by ':' or '-'. One
// trailing newline is tolerated; NormalizeMAC drops it.
func ValidMAC(s string) bool {
	return macRe.MatchString(s)
}

// NormalizeMAC strips everything but hex digits, upper-cases the rest and
// joins it back in colon separated pairs.
func NormalizeMAC(s string) string {
	hex := strings.ToUpper(nonHexRe.ReplaceAllString(s, ""))
	pairs := make([]string, 0, (len(hex)+1)/2)
	for i := 0; i < len(hex); i += 2 {
		end := min(i+2, len(hex))
		pairs = append(pairs, hex[i:end])
	}
	return strings.Join(pairs, ":")
}

// ParseMAC validates s and returns the hardware address.
func ParseMAC(s string) (net.HardwareAddr, error) {
	if s == "" {
		return nil, ErrMissingMAC
	}
	if !ValidMAC(s) {
		return nil, ErrInvalidMAC
	}
	return net.ParseMAC(NormalizeMAC(s))
}

// FormatMAC renders a hardware address the way NormalizeMAC does.
func FormatMAC(hw net.HardwareAddr) string {
	return strings.ToUpper(hw.String())
}
