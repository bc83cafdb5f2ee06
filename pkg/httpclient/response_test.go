package httpclient

import "testing"

func TestParseHeaderBlockBasic(t *testing.T) {
	block := []byte("HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 13\r\n")
	info, err := parseHeaderBlock(block)
	if err != nil {
		t.Fatalf("parseHeaderBlock: %v", err)
	}
	if info.StatusCode != 200 {
		t.Fatalf("StatusCode = %d, want 200", info.StatusCode)
	}
	if v, ok := info.Header("content-type"); !ok || v != "text/plain" {
		t.Fatalf("Content-Type = %q, %v", v, ok)
	}
	if v, ok := info.Header("Content-Length"); !ok || v != "13" {
		t.Fatalf("Content-Length = %q, %v", v, ok)
	}
}

func TestParseHeaderBlockContinuationLine(t *testing.T) {
	block := []byte("HTTP/1.1 200 OK\r\nX-Long: first\r\n second\r\n")
	info, err := parseHeaderBlock(block)
	if err != nil {
		t.Fatalf("parseHeaderBlock: %v", err)
	}
	if v, _ := info.Header("X-Long"); v != "first second" {
		t.Fatalf("X-Long = %q", v)
	}
}

func TestParseHeaderBlockDuplicateHeadersJoinWithComma(t *testing.T) {
	block := []byte("HTTP/1.1 200 OK\r\nSet-Cookie: a=1\r\nSet-Cookie: b=2\r\n")
	info, err := parseHeaderBlock(block)
	if err != nil {
		t.Fatalf("parseHeaderBlock: %v", err)
	}
	if v, _ := info.Header("Set-Cookie"); v != "a=1, b=2" {
		t.Fatalf("Set-Cookie = %q", v)
	}
}

func TestParseHeaderBlockMalformedStatusLine(t *testing.T) {
	if _, err := parseHeaderBlock([]byte("not a status line\r\n")); err == nil {
		t.Fatal("expected error for malformed status line")
	}
}

func TestParseHeaderBlockMalformedHeaderLine(t *testing.T) {
	block := []byte("HTTP/1.1 200 OK\r\nbroken-header-no-colon\r\n")
	if _, err := parseHeaderBlock(block); err == nil {
		t.Fatal("expected error for header line with no colon")
	}
}

func TestParseStatusLineVariants(t *testing.T) {
	cases := []struct {
		line    string
		code    int
		wantErr bool
	}{
		{"HTTP/1.1 200 OK", 200, false},
		{"HTTP/1.0 404 Not Found", 404, false},
		{"HTTP/1.1 204 No Content", 204, false},
		{"garbage", 0, true},
		{"HTTP/1.1 abc OK", 0, true},
	}
	for _, c := range cases {
		code, _, err := parseStatusLine([]byte(c.line))
		if c.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", c.line)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", c.line, err)
			continue
		}
		if code != c.code {
			t.Errorf("%q: code = %d, want %d", c.line, code, c.code)
		}
	}
}
