package httpclient

import (
	"bytes"
	"strconv"

	"github.com/glaretechnologies/glare-core-sub008/pkg/sockerr"
)

// parseHeaderBlock splits the header bytes returned by
// scratchBuffer.readUntilCRLFCRLF (status line + header lines, CRLF
// separated, terminator already stripped) into a ResponseInfo. Grounded on
// pkg/client/client.go's parseStatusLine/readHeaders, adapted to operate on
// an already-fully-buffered block instead of line-by-line bufio reads, and
// honoring RFC 7230 §3.2.4 continuation lines (a line starting with a space
// or tab extends the previous header's value).
func parseHeaderBlock(block []byte) (ResponseInfo, error) {
	lines := bytes.Split(block, []byte("\r\n"))
	if len(lines) == 0 {
		return ResponseInfo{}, sockerr.NewProtocolError("parse_response", "empty response")
	}

	info := ResponseInfo{Headers: make(map[string]string)}

	statusCode, statusLine, err := parseStatusLine(lines[0])
	if err != nil {
		return ResponseInfo{}, err
	}
	info.StatusCode = statusCode
	info.StatusLine = statusLine

	var lastKey string
	for _, raw := range lines[1:] {
		if len(raw) == 0 {
			continue
		}
		if raw[0] == ' ' || raw[0] == '\t' {
			if lastKey == "" {
				return ResponseInfo{}, sockerr.NewProtocolError("parse_response", "continuation line with no preceding header")
			}
			info.Headers[lastKey] += " " + string(bytes.TrimSpace(raw))
			continue
		}
		idx := bytes.IndexByte(raw, ':')
		if idx < 0 {
			return ResponseInfo{}, sockerr.NewProtocolError("parse_response", "malformed header line")
		}
		key := canonicalHeaderKey(string(bytes.TrimSpace(raw[:idx])))
		value := raw[idx+1:]
		if len(value) > 0 && value[0] == ' ' {
			value = value[1:]
		}
		if existing, ok := info.Headers[key]; ok {
			info.Headers[key] = existing + ", " + string(value)
		} else {
			info.HeaderOrder = append(info.HeaderOrder, key)
			info.Headers[key] = string(value)
		}
		lastKey = key
	}

	return info, nil
}

// parseStatusLine parses "HTTP/<major>.<minor> <code> <reason>", tolerating
// any amount of space before the status code, matching §6's acceptance
// grammar.
func parseStatusLine(line []byte) (int, string, error) {
	if !bytes.HasPrefix(line, []byte("HTTP/")) {
		return 0, "", sockerr.NewProtocolError("parse_response", "response does not start with HTTP/")
	}
	rest := line[len("HTTP/"):]

	fields := bytes.Fields(rest)
	if len(fields) < 2 {
		return 0, "", sockerr.NewProtocolError("parse_response", "malformed status line")
	}
	// fields[0] is "major.minor", fields[1] is the status code.
	code, err := strconv.Atoi(string(fields[1]))
	if err != nil || code < 100 || code > 999 {
		return 0, "", sockerr.NewProtocolError("parse_response", "malformed status code")
	}
	return code, string(line), nil
}
