package compression

import (
	"fmt"
	"io"

	"github.com/golang/snappy"
)

// SnappyCompressor implements Compressor using Snappy. Payloads use the block
// format, streams use the framing format.
type SnappyCompressor struct{}

// NewSnappyCompressor creates a new Snappy compressor
func NewSnappyCompressor() *SnappyCompressor {
	return &SnappyCompressor{}
}

// Compress compresses data using Snappy
func (s *SnappyCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	return snappy.Encode(nil, data), nil
}

// Decompress decompresses Snappy compressed data
func (s *SnappyCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress failed: %w", err)
	}
	return decompressed, nil
}

// NewReader returns a reader decoding the snappy framing format
func (s *SnappyCompressor) NewReader(r io.Reader) io.Reader {
	return snappy.NewReader(r)
}

// NewWriter returns a buffered writer producing the snappy framing format
func (s *SnappyCompressor) NewWriter(w io.Writer) io.WriteCloser {
	return snappy.NewBufferedWriter(w)
}

// Algorithm returns Snappy
func (s *SnappyCompressor) Algorithm() Algorithm {
	return Snappy
}
