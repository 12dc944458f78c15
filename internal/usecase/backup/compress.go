package backup

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/ulikunitz/xz"
)

// Compression selects how a dump file is wrapped.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionXZ   Compression = "xz"
)

// ParseCompression accepts "none", "gzip"/"gz" and "xz"; empty means none.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "gzip", "gz":
		return CompressionGzip, nil
	case "xz":
		return CompressionXZ, nil
	default:
		return "", fmt.Errorf("backup: unknown compression %q", s)
	}
}

// CompressionFromPath guesses the compression from a file suffix.
func CompressionFromPath(path string) Compression {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		return CompressionGzip
	case strings.HasSuffix(lower, ".xz"):
		return CompressionXZ
	default:
		return CompressionNone
	}
}

// Extension is the file suffix appended for c.
func (c Compression) Extension() string {
	switch c {
	case CompressionGzip:
		return ".gz"
	case CompressionXZ:
		return ".xz"
	default:
		return ""
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewWriter wraps w. Closing the result flushes the compressor but leaves w
// open.
func NewWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionGzip:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	case CompressionXZ:
		return xz.NewWriter(w)
	case CompressionNone, "":
		return nopWriteCloser{w}, nil
	default:
		return nil, fmt.Errorf("backup: unknown compression %q", c)
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
)

// NewReader detects gzip and xz streams by their magic bytes and returns a
// decompressing reader. Anything else is read as is.
func NewReader(r io.Reader) (io.ReadCloser, Compression, error) {
	br := bufio.NewReader(r)
	magic, _ := br.Peek(len(xzMagic))

	switch {
	case bytes.HasPrefix(magic, gzipMagic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, "", fmt.Errorf("open gzip stream: %w", err)
		}
		return gz, CompressionGzip, nil
	case bytes.HasPrefix(magic, xzMagic):
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, "", fmt.Errorf("open xz stream: %w", err)
		}
		return io.NopCloser(xr), CompressionXZ, nil
	default:
		return io.NopCloser(br), CompressionNone, nil
	}
}
