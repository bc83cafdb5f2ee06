package httpclient

import "net/textproto"

// canonicalHeaderKey normalizes a header field name the same way
// pkg/client/client.go's header loop does, via textproto's canonical MIME
// header casing, so lookups are case-insensitive regardless of how the
// server capitalized the field.
func canonicalHeaderKey(name string) string {
	return textproto.CanonicalMIMEHeaderKey(name)
}
