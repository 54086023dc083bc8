package netconf

import (
	"bytes"
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderV4(t *testing.T) {
	c := NewConfigurator(DefaultNetwork())
	c.Allocator.Pick = func(int) int { return 8 }

	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf, "aa-bb-cc-dd-ee-ff", "DHCPv4"))

	want := `<!DOCTYPE html>
<html>
<body>
  <p>mac_address: "AA:BB:CC:DD:EE:FF"</p>
  <p>assigned_ipv4: "192.168.1.10"</p>
  <p>lease_time: "3600 seconds"</p>
</body>
</html>
`
	assert.Equal(t, want, buf.String())
}

func TestRenderV6(t *testing.T) {
	c := NewConfigurator(DefaultNetwork())

	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf, "00:11:22:33:44:55", "DHCPv6"))

	assert.Contains(t, buf.String(), `<p>assigned_ipv6: "2001:db8::211:22ff:fe33:4455"</p>`)
	assert.Contains(t, buf.String(), `<p>mac_address: "00:11:22:33:44:55"</p>`)
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		name    string
		mac     string
		version string
		want    string
	}{
		{"missing mac", "", "DHCPv4", "MAC address is required"},
		{"bad mac", "zz:zz", "DHCPv4", "Invalid MAC address format. Please use format XX:XX:XX:XX:XX:XX"},
		{"missing version", "00:11:22:33:44:55", "", "Valid DHCP version (DHCPv4 or DHCPv6) is required"},
		{"unknown version", "00:11:22:33:44:55", "DHCPv9", "Valid DHCP version (DHCPv4 or DHCPv6) is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewConfigurator(DefaultNetwork()).Render(&buf, tt.mac, tt.version))
			assert.Contains(t, buf.String(), "<h1>DHCP Configuration Error</h1>")
			assert.Contains(t, buf.String(), `<p style="color: red;">`+tt.want+`</p>`)
		})
	}
}

func TestRenderPoolExhausted(t *testing.T) {
	n := DefaultNetwork()
	n.V4Prefix = netip.MustParsePrefix("192.168.1.0/30")
	c := NewConfigurator(n)

	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf, "00:00:00:00:00:01", "DHCPv4"))
	buf.Reset()
	require.NoError(t, c.Render(&buf, "00:00:00:00:00:02", "DHCPv4"))
	assert.Contains(t, buf.String(), "No available IPv4 addresses in the subnet")
}

func TestRenderErrorEscapes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderError(&buf, `<script>alert("x")</script>`))
	assert.NotContains(t, buf.String(), "<script>")
	assert.Contains(t, buf.String(), "&lt;script&gt;")
}

func TestMessageFallsBackToError(t *testing.T) {
	assert.Equal(t, "boom", Message(errors.New("boom")))
}
