package format

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Record flags
const (
	RecordFlagNone   uint8 = 0
	RecordFlagSnappy uint8 = 1 << 0 // Payload is snappy-compressed
)

// RecordOverhead is the number of framing bytes around a payload.
// Layout: Length(4) + Flags(1) + CRC32C(4) = 9 bytes
const RecordOverhead = 9

// ErrRecordCorrupted is returned when a record fails framing or CRC checks.
var ErrRecordCorrupted = errors.New("record corrupted")

// Record is a single framed entry in the log file.
//
// Binary format (little-endian):
//
//	[Length:4][Flags:1][Payload:N][CRC32C:4]
//
// Length counts everything after the length field itself (1 + N + 4).
type Record struct {
	// Flags describes how Payload is stored
	Flags uint8

	// Payload is the stored bytes (compressed when RecordFlagSnappy is set)
	Payload []byte
}

// Size returns the total on-disk size of the record.
func (r *Record) Size() uint64 {
	return RecordOverhead + uint64(len(r.Payload))
}

// Marshal encodes the record with its CRC32C checksum.
// The checksum covers the length, flags and payload.
func (r *Record) Marshal() []byte {
	buf := make([]byte, r.Size())
	length := uint32(1 + len(r.Payload) + 4) //nolint:gosec // G115: bounded by MaxRecordSize

	binary.LittleEndian.PutUint32(buf[0:4], length)
	buf[4] = r.Flags
	copy(buf[5:], r.Payload)

	end := 5 + len(r.Payload)
	binary.LittleEndian.PutUint32(buf[end:], ComputeCRC32C(buf[:end]))

	return buf
}

// ReadRecordAt reads the record starting at offset. limit is the first offset
// past the readable region; a record crossing it is reported as corrupted.
// Returns the record and the offset of the next one.
func ReadRecordAt(r io.ReaderAt, offset, limit uint64) (*Record, uint64, error) {
	length, err := ReadRecordLength(r, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	buf := make([]byte, 4+uint64(length))
	if _, err := r.ReadAt(buf, int64(offset)); err != nil { //nolint:gosec // G115: offset < file size
		return nil, 0, fmt.Errorf("failed to read record at %d: %w", offset, err)
	}

	rec, err := UnmarshalRecord(buf)
	if err != nil {
		return nil, 0, fmt.Errorf("record at %d: %w", offset, err)
	}

	return rec, offset + uint64(len(buf)), nil
}

// ReadRecordLength reads and bounds-checks the length field at offset.
func ReadRecordLength(r io.ReaderAt, offset, limit uint64) (uint32, error) {
	if offset+4 > limit {
		return 0, fmt.Errorf("%w: length field at %d crosses limit %d", ErrRecordCorrupted, offset, limit)
	}

	var lenBuf [4]byte
	if _, err := r.ReadAt(lenBuf[:], int64(offset)); err != nil { //nolint:gosec // G115: offset < file size
		return 0, fmt.Errorf("failed to read record length at %d: %w", offset, err)
	}

	length := binary.LittleEndian.Uint32(lenBuf[:])
	if length < RecordOverhead-4 {
		return 0, fmt.Errorf("%w: invalid length %d at %d", ErrRecordCorrupted, length, offset)
	}
	if offset+4+uint64(length) > limit {
		return 0, fmt.Errorf("%w: record at %d (length %d) crosses limit %d",
			ErrRecordCorrupted, offset, length, limit)
	}

	return length, nil
}

// UnmarshalRecord decodes a complete record, verifying its checksum.
func UnmarshalRecord(buf []byte) (*Record, error) {
	if len(buf) < RecordOverhead {
		return nil, fmt.Errorf("%w: short record (%d bytes)", ErrRecordCorrupted, len(buf))
	}

	length := binary.LittleEndian.Uint32(buf[0:4])
	if int(length)+4 != len(buf) {
		return nil, fmt.Errorf("%w: length mismatch: header=%d actual=%d", ErrRecordCorrupted, length, len(buf)-4)
	}

	storedCRC := binary.LittleEndian.Uint32(buf[len(buf)-4:])
	computedCRC := ComputeCRC32C(buf[:len(buf)-4])
	if storedCRC != computedCRC {
		return nil, fmt.Errorf("%w: CRC mismatch: stored=%08x computed=%08x", ErrRecordCorrupted, storedCRC, computedCRC)
	}

	rec := &Record{Flags: buf[4]}
	if n := len(buf) - RecordOverhead; n > 0 {
		rec.Payload = make([]byte, n)
		copy(rec.Payload, buf[5:len(buf)-4])
	}

	return rec, nil
}
