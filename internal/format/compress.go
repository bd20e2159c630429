package format

import (
	"fmt"

	"github.com/klauspost/compress/snappy"
)

// CompressionType represents the compression applied to record payloads.
type CompressionType uint8

const (
	// CompressionNone stores payloads as-is (default)
	CompressionNone CompressionType = 0

	// CompressionSnappy compresses payloads with snappy
	CompressionSnappy CompressionType = 1
)

// MaxDecompressedSize is the maximum size allowed for a decompressed payload
// to prevent decompression bomb attacks.
const MaxDecompressedSize = 100 * 1024 * 1024 // 100 MB

// String returns the string representation of the compression type.
func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionSnappy:
		return "snappy"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCompression parses a compression name as used in config files.
func ParseCompression(name string) (CompressionType, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "snappy":
		return CompressionSnappy, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression %q", name)
	}
}

// EncodePayload builds the record for payload. Compression is only kept when
// the payload is at least minSize bytes and shrinks by 5% or more.
func EncodePayload(payload []byte, compression CompressionType, minSize int) (*Record, error) {
	switch compression {
	case CompressionNone:
		return &Record{Flags: RecordFlagNone, Payload: payload}, nil
	case CompressionSnappy:
		if len(payload) < minSize {
			return &Record{Flags: RecordFlagNone, Payload: payload}, nil
		}
		compressed := snappy.Encode(nil, payload)
		if !ShouldCompress(len(payload), len(compressed), minSize) {
			return &Record{Flags: RecordFlagNone, Payload: payload}, nil
		}
		return &Record{Flags: RecordFlagSnappy, Payload: compressed}, nil
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", compression)
	}
}

// DecodePayload returns the caller-visible payload of a record.
func DecodePayload(rec *Record) ([]byte, error) {
	if rec.Flags&RecordFlagSnappy == 0 {
		if rec.Payload == nil {
			return []byte{}, nil
		}
		return rec.Payload, nil
	}

	n, err := snappy.DecodedLen(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: snappy header: %w", ErrRecordCorrupted, err)
	}
	if n > MaxDecompressedSize {
		return nil, fmt.Errorf("%w: decompressed payload of %d bytes exceeds maximum %d",
			ErrRecordCorrupted, n, MaxDecompressedSize)
	}

	out, err := snappy.Decode(nil, rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: snappy: %w", ErrRecordCorrupted, err)
	}
	return out, nil
}

// ShouldCompress reports whether compression is worth keeping: the original
// must be at least minSize and the compressed form at least 5% smaller.
func ShouldCompress(originalSize, compressedSize, minSize int) bool {
	if originalSize < minSize {
		return false
	}

	threshold := float64(originalSize) * 0.95
	return float64(compressedSize) < threshold
}
