package warc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func record(recType, body string) string {
	return fmt.Sprintf("WARC/1.0\r\nWARC-Type: %s\r\nWARC-Record-ID: <urn:uuid:test>\r\nContent-Length: %d\r\n\r\n%s\r\n\r\n",
		recType, len(body), body)
}

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(s)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func TestReaderIteratesRecords(t *testing.T) {
	stream := record("warcinfo", "software: test") + record("metadata", `{"a":1}`)

	r, err := NewReader(strings.NewReader(stream))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	first, err := r.Next()
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	if first.Type != TypeWarcinfo {
		t.Errorf("expected warcinfo, got %q", first.Type)
	}

	second, err := r.Next()
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if second.Type != TypeMetadata {
		t.Errorf("expected metadata, got %q", second.Type)
	}
	body, err := io.ReadAll(second.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != `{"a":1}` {
		t.Errorf("unexpected body: %q", body)
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestReaderSkipsUnreadBodies(t *testing.T) {
	stream := record("metadata", `{"first":true}`) + record("metadata", `{"second":true}`)

	r, err := NewReader(strings.NewReader(stream))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	// Advance without touching the first body.
	if _, err := r.Next(); err != nil {
		t.Fatalf("first record: %v", err)
	}
	second, err := r.Next()
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	body, _ := io.ReadAll(second.Body)
	if string(body) != `{"second":true}` {
		t.Errorf("unexpected second body: %q", body)
	}
}

func TestReaderGzipStream(t *testing.T) {
	data := gzipped(t, record("metadata", `{"x":1}`))

	r, err := NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if rec.Type != TypeMetadata {
		t.Errorf("expected metadata, got %q", rec.Type)
	}
}

func TestReaderMultiMemberGzip(t *testing.T) {
	// Crawl archives gzip each record as its own member.
	data := append(gzipped(t, record("metadata", `{"x":1}`)), gzipped(t, record("metadata", `{"y":2}`))...)

	r, err := NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	count := 0
	for {
		_, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 records, got %d", count)
	}
}

func TestReaderHeaderLookupCaseInsensitive(t *testing.T) {
	stream := "WARC/1.0\r\nWARC-Type: metadata\r\nWARC-Target-URI: http://example.com/\r\nContent-Length: 2\r\n\r\n{}\r\n\r\n"

	r, err := NewReader(strings.NewReader(stream))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if got := rec.Header("warc-target-uri"); got != "http://example.com/" {
		t.Errorf("Header lookup failed: %q", got)
	}
	if got := rec.Header("WARC-Target-URI"); got != "http://example.com/" {
		t.Errorf("mixed-case Header lookup failed: %q", got)
	}
}

func TestReaderMalformedVersionLine(t *testing.T) {
	r, err := NewReader(strings.NewReader("this is not a warc file\r\n"))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if _, err := r.Next(); !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("expected ErrMalformedRecord, got %v", err)
	}
}

func TestReaderMissingContentLength(t *testing.T) {
	r, err := NewReader(strings.NewReader("WARC/1.0\r\nWARC-Type: metadata\r\n\r\n"))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if _, err := r.Next(); !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("expected ErrMalformedRecord, got %v", err)
	}
}

func TestReaderEmptyStream(t *testing.T) {
	r, err := NewReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
}
