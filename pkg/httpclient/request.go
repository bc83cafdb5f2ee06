package httpclient

import (
	"fmt"
	"net/url"
	"strings"
)

// buildRequest renders the request line, Host, Content-Type/Content-Length
// (for POST), User-Agent, any additional pre-formatted headers, and the
// Connection header, matching the wire format HTTPClient.cpp writes before
// the blank line that separates headers from body.
func buildRequest(method string, u *url.URL, host, contentType string, bodyLen int, userAgent string, additionalHeaders []string, keepAlive bool) []byte {
	var b strings.Builder

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", method, path)
	fmt.Fprintf(&b, "Host: %s\r\n", host)

	if method == "POST" {
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
		fmt.Fprintf(&b, "Content-Length: %d\r\n", bodyLen)
	}

	if userAgent != "" {
		fmt.Fprintf(&b, "User-Agent: %s\r\n", userAgent)
	}

	for _, h := range additionalHeaders {
		b.WriteString(h)
		b.WriteString("\r\n")
	}

	if keepAlive {
		b.WriteString("Connection: Keep-Alive\r\n")
	} else {
		b.WriteString("Connection: Close\r\n")
	}

	b.WriteString("\r\n")
	return []byte(b.String())
}
