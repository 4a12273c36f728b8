package mermaidink

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"fmt"
)

// EncodePako compresses Mermaid source with zlib at best compression and
// encodes it as unpadded URL-safe base64. mermaid.ink expects exactly this
// encoding after the "pako:" prefix.
func EncodePako(code string) (string, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return "", fmt.Errorf("failed to create zlib writer: %w", err)
	}
	if _, err := zw.Write([]byte(code)); err != nil {
		return "", fmt.Errorf("failed to compress mermaid code: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to flush zlib writer: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}
