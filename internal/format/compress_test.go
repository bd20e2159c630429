package format

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodePayload(t *testing.T) {
	compressible := bytes.Repeat([]byte("typedq "), 512)

	tests := []struct {
		name        string
		payload     []byte
		compression CompressionType
		minSize     int
		wantFlags   uint8
	}{
		{"none", compressible, CompressionNone, 0, RecordFlagNone},
		{"snappy compressible", compressible, CompressionSnappy, 64, RecordFlagSnappy},
		{"snappy below min size", []byte("tiny"), CompressionSnappy, 64, RecordFlagNone},
		{"snappy empty", []byte{}, CompressionSnappy, 0, RecordFlagNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := EncodePayload(tt.payload, tt.compression, tt.minSize)
			if err != nil {
				t.Fatalf("EncodePayload() error = %v", err)
			}
			if rec.Flags != tt.wantFlags {
				t.Errorf("Flags = %d, want %d", rec.Flags, tt.wantFlags)
			}

			got, err := DecodePayload(rec)
			if err != nil {
				t.Fatalf("DecodePayload() error = %v", err)
			}
			if !bytes.Equal(got, tt.payload) {
				t.Errorf("payload mismatch: got %d bytes, want %d bytes", len(got), len(tt.payload))
			}
		})
	}
}

func TestDecodePayload_BadSnappy(t *testing.T) {
	rec := &Record{Flags: RecordFlagSnappy, Payload: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}}

	_, err := DecodePayload(rec)
	if !errors.Is(err, ErrRecordCorrupted) {
		t.Errorf("DecodePayload() error = %v, want ErrRecordCorrupted", err)
	}
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		in      string
		want    CompressionType
		wantErr bool
	}{
		{"", CompressionNone, false},
		{"none", CompressionNone, false},
		{"snappy", CompressionSnappy, false},
		{"gzip", CompressionNone, true},
	}

	for _, tt := range tests {
		got, err := ParseCompression(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCompression(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseCompression(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestShouldCompress(t *testing.T) {
	if ShouldCompress(100, 10, 200) {
		t.Error("ShouldCompress() = true below min size")
	}
	if ShouldCompress(1000, 990, 0) {
		t.Error("ShouldCompress() = true for <5% savings")
	}
	if !ShouldCompress(1000, 500, 0) {
		t.Error("ShouldCompress() = false for 50% savings")
	}
}
