package protocol

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Decompress inflates a zlib stream and verifies its checksum. Output
// larger than MaxInflatedSize fails with ErrInflatedTooLarge.
func Decompress(data []byte) ([]byte, error) {
	return decompress(data, MaxInflatedSize)
}

func decompress(data []byte, limit int64) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open zlib stream: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to inflate: %w", err)
	}
	if int64(len(out)) > limit {
		return nil, ErrInflatedTooLarge
	}
	return out, nil
}

// Compress deflates data into a zlib stream
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
