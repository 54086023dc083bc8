package netconf

import (
	"fmt"
	"html/template"
	"io"
)

const bindingPage = `<!DOCTYPE html>
<html>
<body>
  <p>mac_address: "{{.MAC}}"</p>
  <p>{{.Field}}: "{{.Addr}}"</p>
  <p>lease_time: "{{.LeaseTime}}"</p>
</body>
</html>
`

const errorPage = `<!DOCTYPE html>
<html>
<body>
    <h1>DHCP Configuration Error</h1>
    <p style="color: red;">{{.}}</p>
</body>
</html>
`

var pages = template.Must(template.Must(
	template.New("binding").Parse(bindingPage)).
	New("error").Parse(errorPage))

// RenderBinding writes the result page for b.
func RenderBinding(w io.Writer, b Binding) error {
	return pages.ExecuteTemplate(w, "binding", map[string]string{
		"MAC":       FormatMAC(b.MAC),
		"Field":     b.Version.AddressField(),
		"Addr":      b.Addr.String(),
		"LeaseTime": fmt.Sprintf("%d seconds", int64(b.LeaseTime.Seconds())),
	})
}

// RenderError writes the error page. msg is escaped.
func RenderError(w io.Writer, msg string) error {
	return pages.ExecuteTemplate(w, "error", msg)
}
