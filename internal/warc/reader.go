// Package warc reads records from WARC-format archive files, including
// the gzip-compressed WAT metadata archives produced by web crawls.
package warc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Record types defined by the WARC specification that matter here.
const (
	TypeMetadata = "metadata"
	TypeWarcinfo = "warcinfo"
)

// ErrMalformedRecord is returned when a record header cannot be parsed.
var ErrMalformedRecord = errors.New("malformed warc record")

// Record is one entry of a WARC file. Body is only valid until the next
// call to Reader.Next.
type Record struct {
	Type    string
	Headers map[string]string
	Body    io.Reader
}

// Header returns a named WARC header, or "" when absent. Lookup is
// case-insensitive per the WARC spec.
func (r *Record) Header(name string) string {
	return r.Headers[strings.ToLower(name)]
}

// Reader iterates the records of a single WARC stream in order. It is a
// forward-only consumer: once Next advances, the previous record's body
// is gone.
type Reader struct {
	br   *bufio.Reader
	cur  *Record
	done bool
}

var gzipMagic = []byte{0x1f, 0x8b}

// NewReader opens a WARC stream. Gzip-compressed input (the usual on-disk
// form, including multi-member per-record gzip) is detected and
// decompressed transparently.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	magic, err := br.Peek(2)
	if err == nil && bytes.Equal(magic, gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		br = bufio.NewReaderSize(gz, 64*1024)
	}

	return &Reader{br: br}, nil
}

// Next returns the next record in the stream, or io.EOF when the stream
// is exhausted. Any other error means the container itself is corrupt and
// iteration cannot continue.
func (r *Reader) Next() (*Record, error) {
	if r.done {
		return nil, io.EOF
	}

	// Drain the previous record's body plus its trailing CRLF pair.
	if r.cur != nil {
		if _, err := io.Copy(io.Discard, r.cur.Body); err != nil {
			return nil, fmt.Errorf("skip record body: %w", err)
		}
		r.cur = nil
	}

	line, err := r.readHeaderLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.done = true
			return nil, io.EOF
		}
		return nil, err
	}

	if !strings.HasPrefix(line, "WARC/") {
		return nil, fmt.Errorf("%w: expected version line, got %q", ErrMalformedRecord, line)
	}

	headers := make(map[string]string, 8)
	for {
		line, err = r.readRawLine()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: bad header line %q", ErrMalformedRecord, line)
		}
		headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}

	length, err := strconv.ParseInt(headers["content-length"], 10, 64)
	if err != nil || length < 0 {
		return nil, fmt.Errorf("%w: missing or invalid Content-Length", ErrMalformedRecord)
	}

	rec := &Record{
		Type:    headers["warc-type"],
		Headers: headers,
		Body:    &trailerReader{r: r.br, n: length},
	}
	r.cur = rec
	return rec, nil
}

// readHeaderLine skips blank lines separating records, then returns the
// first non-empty line.
func (r *Reader) readHeaderLine() (string, error) {
	for {
		line, err := r.readRawLine()
		if err != nil {
			return "", err
		}
		if line != "" {
			return line, nil
		}
	}
}

func (r *Reader) readRawLine() (string, error) {
	line, err := r.br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line == "" {
			return "", io.EOF
		}
		if err != io.EOF {
			return "", err
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// trailerReader reads exactly n body bytes and then consumes the CRLF
// CRLF block terminator so the outer reader is positioned at the next
// record.
type trailerReader struct {
	r *bufio.Reader
	n int64
}

func (t *trailerReader) Read(p []byte) (int, error) {
	if t.n <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > t.n {
		p = p[:t.n]
	}
	n, err := t.r.Read(p)
	t.n -= int64(n)
	if t.n == 0 {
		t.consumeTrailer()
	}
	return n, err
}

func (t *trailerReader) consumeTrailer() {
	for i := 0; i < 4; i++ {
		b, err := t.r.ReadByte()
		if err != nil {
			return
		}
		if b != '\r' && b != '\n' {
			t.r.UnreadByte()
			return
		}
	}
}
