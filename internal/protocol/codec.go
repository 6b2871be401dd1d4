package protocol

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Encode packs a server message for a binary websocket frame.
func Encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func Decode(b []byte, v any) error {
	return msgpack.Unmarshal(b, v)
}

// PeekType returns the type field of a msgpack server message.
func PeekType(b []byte) (string, error) {
	var m struct {
		Type string `msgpack:"type"`
	}
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return "", err
	}
	return m.Type, nil
}

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

func zstdCodec() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if zstdErr != nil {
			return
		}
		zstdDec, zstdErr = zstd.NewReader(nil)
	})
	return zstdEnc, zstdDec, zstdErr
}

// CompressMinimap zlib-compresses a palette-index bitmap.
func CompressMinimap(bitmap []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(bitmap); err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecompressMinimap(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("minimap: %w", err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
