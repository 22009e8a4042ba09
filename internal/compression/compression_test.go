package compression

import (
	"bytes"
	"io"
	"testing"
)

func TestNoneCompressor_CompressDecompress(t *testing.T) {
	compressor := &NoneCompressor{}

	original := []byte("0.0 0.51 0.43 0.37")

	compressed, err := compressor.Compress(original)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if !bytes.Equal(original, compressed) {
		t.Error("NoneCompressor.Compress should return identical data")
	}

	decompressed, err := compressor.Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(original, decompressed) {
		t.Error("NoneCompressor.Decompress should return identical data")
	}
}

func TestGetCompressor(t *testing.T) {
	tests := []struct {
		name    string
		algo    Algorithm
		wantErr bool
	}{
		{"none", None, false},
		{"snappy", Snappy, false},
		{"unsupported", Algorithm(99), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := GetCompressor(tt.algo)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetCompressor(%d) error = %v, wantErr %v", tt.algo, err, tt.wantErr)
			}
			if err == nil && c.Algorithm() != tt.algo {
				t.Errorf("Algorithm() = %v, want %v", c.Algorithm(), tt.algo)
			}
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		input   string
		want    Algorithm
		wantErr bool
	}{
		{"", None, false},
		{"none", None, false},
		{"Snappy", Snappy, false},
		{"zstd", None, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAlgorithm(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAlgorithm(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestForPath(t *testing.T) {
	tests := []struct {
		path string
		want Algorithm
	}{
		{"rgb.txt", None},
		{"rgb.txt.sz", Snappy},
		{"RGB.SZ", Snappy},
		{"-", None},
		{"", None},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := ForPath(tt.path).Algorithm(); got != tt.want {
				t.Errorf("ForPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestNoneCompressor_Streams(t *testing.T) {
	var buf bytes.Buffer
	c := &NoneCompressor{}

	w := c.NewWriter(&buf)
	if _, err := io.WriteString(w, "plain"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	got, err := io.ReadAll(c.NewReader(&buf))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != "plain" {
		t.Errorf("got %q, want %q", got, "plain")
	}
}
