// Package compression wraps the codecs used for time-series files and
// published payloads.
package compression

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Algorithm defines compression types
type Algorithm uint8

const (
	None   Algorithm = 0
	Snappy Algorithm = 1
)

// SnappyExtension marks snappy framed files
const SnappyExtension = ".sz"

// String returns the configuration name of the algorithm
func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	default:
		return fmt.Sprintf("algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm maps a configuration name to an Algorithm
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return None, nil
	case "snappy":
		return Snappy, nil
	default:
		return None, fmt.Errorf("unsupported compression algorithm: %s", name)
	}
}

// Compressor interface for compression algorithms
type Compressor interface {
	// Compress compresses a whole payload
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses a whole payload
	Decompress(data []byte) ([]byte, error)

	// NewReader wraps a compressed stream
	NewReader(r io.Reader) io.Reader

	// NewWriter wraps a stream; Close flushes but does not close w
	NewWriter(w io.Writer) io.WriteCloser

	// Algorithm returns the compression algorithm type
	Algorithm() Algorithm
}

// GetCompressor returns a compressor for the given algorithm
func GetCompressor(algo Algorithm) (Compressor, error) {
	switch algo {
	case None:
		return &NoneCompressor{}, nil
	case Snappy:
		return NewSnappyCompressor(), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %d", algo)
	}
}

// ForPath picks the compressor from a file name: ".sz" is snappy framed,
// anything else (including "-" for stdio) is plain text
func ForPath(path string) Compressor {
	if strings.EqualFold(filepath.Ext(path), SnappyExtension) {
		return NewSnappyCompressor()
	}
	return &NoneCompressor{}
}

// NoneCompressor is a no-op compressor
type NoneCompressor struct{}

func (n *NoneCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (n *NoneCompressor) Decompress(data []byte) ([]byte, error) {
	return data, nil
}

func (n *NoneCompressor) NewReader(r io.Reader) io.Reader {
	return r
}

func (n *NoneCompressor) NewWriter(w io.Writer) io.WriteCloser {
	return nopWriteCloser{w}
}

func (n *NoneCompressor) Algorithm() Algorithm {
	return None
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
