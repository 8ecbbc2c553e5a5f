package compression

import (
	"bytes"
	"compress/gzip"
	"io"
)

// Threshold is the payload size from which Compress gzips its input
const Threshold = 1024 // 1KB

// Compress gzips data when it is at least Threshold bytes long. The returned
// flag reports whether the output is compressed.
func Compress(data []byte) ([]byte, bool, error) {
	if len(data) < Threshold {
		return data, false, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, false, err
	}
	if err := zw.Close(); err != nil {
		return nil, false, err
	}

	// Incompressible data (most images) is kept as is.
	if buf.Len() >= len(data) {
		return data, false, nil
	}
	return buf.Bytes(), true, nil
}

// Decompress reverses Compress for data flagged as compressed
func Decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	return io.ReadAll(zr)
}
