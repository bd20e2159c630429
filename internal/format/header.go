package format

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// FileMagic identifies a typedq log file ("TDQF").
const FileMagic uint32 = 0x46514454

// Format version
const (
	FormatVersion1 uint16 = 1
	CurrentVersion uint16 = FormatVersion1
)

// HeaderSize is the fixed size of one header slot (64 bytes).
// Layout: Magic(4) + Version(2) + Flags(2) + Seq(8) + Count(8) + Head(8) +
//
//	Tail(8) + Reserved(20) + HeaderCRC(4) = 64 bytes
const HeaderSize = 64

// HeaderSlots is the number of header slots at the start of the file.
// Commits alternate between them so a torn header write never loses the
// previously committed state.
const HeaderSlots = 2

// DataStart is the file offset of the first record.
const DataStart = HeaderSize * HeaderSlots

// ErrHeaderCorrupted is returned when a header slot fails validation.
var ErrHeaderCorrupted = errors.New("header corrupted")

// Header is the committed state of a log file.
//
// Binary format (little-endian, 64 bytes):
//
//	[Magic:4][Version:2][Flags:2][Seq:8][Count:8][Head:8][Tail:8][Reserved:20][HeaderCRC:4]
type Header struct {
	// Magic is the file format identifier
	Magic uint32

	// Version is the format version
	Version uint16

	// Flags is reserved for file-wide properties
	Flags uint16

	// Seq increases by one on every commit; the slot with the highest
	// valid Seq is the current state
	Seq uint64

	// Count is the number of live records
	Count uint64

	// Head is the file offset of the oldest live record
	Head uint64

	// Tail is the file offset where the next record is appended
	Tail uint64

	// Reserved is space for future extensions
	Reserved [20]byte
}

// NewHeader returns the header of an empty log.
func NewHeader() *Header {
	return &Header{
		Magic:   FileMagic,
		Version: CurrentVersion,
		Seq:     1,
		Head:    DataStart,
		Tail:    DataStart,
	}
}

// Slot returns the slot index this header is committed to.
func (h *Header) Slot() int {
	return int(h.Seq % HeaderSlots)
}

// SlotOffset returns the file offset of the header slot for Seq.
func (h *Header) SlotOffset() int64 {
	return int64(h.Slot() * HeaderSize)
}

// LiveBytes returns the number of bytes occupied by live records.
func (h *Header) LiveBytes() uint64 {
	return h.Tail - h.Head
}

// Marshal encodes the header into binary format with CRC32C checksum.
func (h *Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	offset := 0

	binary.LittleEndian.PutUint32(buf[offset:], h.Magic)
	offset += 4
	binary.LittleEndian.PutUint16(buf[offset:], h.Version)
	offset += 2
	binary.LittleEndian.PutUint16(buf[offset:], h.Flags)
	offset += 2
	binary.LittleEndian.PutUint64(buf[offset:], h.Seq)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:], h.Count)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:], h.Head)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:], h.Tail)
	offset += 8
	copy(buf[offset:], h.Reserved[:])
	offset += 20

	binary.LittleEndian.PutUint32(buf[offset:], ComputeCRC32C(buf[:offset]))

	return buf
}

// UnmarshalHeader decodes and validates one header slot.
// A zeroed slot (never written) is reported as ErrHeaderCorrupted.
func UnmarshalHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("%w: short slot (%d bytes)", ErrHeaderCorrupted, len(buf))
	}
	buf = buf[:HeaderSize]

	storedCRC := binary.LittleEndian.Uint32(buf[HeaderSize-4:])
	computedCRC := ComputeCRC32C(buf[:HeaderSize-4])
	if storedCRC != computedCRC {
		return nil, fmt.Errorf("%w: CRC mismatch: stored=%08x computed=%08x",
			ErrHeaderCorrupted, storedCRC, computedCRC)
	}

	h := &Header{
		Magic:   binary.LittleEndian.Uint32(buf[0:4]),
		Version: binary.LittleEndian.Uint16(buf[4:6]),
		Flags:   binary.LittleEndian.Uint16(buf[6:8]),
		Seq:     binary.LittleEndian.Uint64(buf[8:16]),
		Count:   binary.LittleEndian.Uint64(buf[16:24]),
		Head:    binary.LittleEndian.Uint64(buf[24:32]),
		Tail:    binary.LittleEndian.Uint64(buf[32:40]),
	}
	copy(h.Reserved[:], buf[40:60])

	if err := h.Validate(); err != nil {
		return nil, err
	}

	return h, nil
}

// Validate checks the header for internal consistency.
func (h *Header) Validate() error {
	if h.Magic != FileMagic {
		return fmt.Errorf("%w: invalid magic number: got=%08x want=%08x", ErrHeaderCorrupted, h.Magic, FileMagic)
	}
	if h.Version == 0 || h.Version > CurrentVersion {
		return fmt.Errorf("%w: unsupported version: %d (current=%d)", ErrHeaderCorrupted, h.Version, CurrentVersion)
	}
	if h.Seq == 0 {
		return fmt.Errorf("%w: zero sequence", ErrHeaderCorrupted)
	}
	if h.Head < DataStart || h.Head > h.Tail {
		return fmt.Errorf("%w: invalid range head=%d tail=%d", ErrHeaderCorrupted, h.Head, h.Tail)
	}
	if h.Count == 0 && h.Head != h.Tail {
		return fmt.Errorf("%w: empty log with %d live bytes", ErrHeaderCorrupted, h.Tail-h.Head)
	}
	if h.Count > 0 && h.Tail-h.Head < uint64(h.Count)*RecordOverhead {
		return fmt.Errorf("%w: %d records cannot fit in %d bytes", ErrHeaderCorrupted, h.Count, h.Tail-h.Head)
	}
	return nil
}

// PickHeader returns the most recently committed valid header among the slots.
// Returns ErrHeaderCorrupted when no slot is valid.
func PickHeader(slots ...[]byte) (*Header, error) {
	var (
		best    *Header
		lastErr error
	)

	for i, slot := range slots {
		h, err := UnmarshalHeader(slot)
		if err != nil {
			lastErr = err
			continue
		}
		// A slot only holds sequences that map to it.
		if h.Slot() != i {
			lastErr = fmt.Errorf("%w: seq %d found in slot %d", ErrHeaderCorrupted, h.Seq, i)
			continue
		}
		if best == nil || h.Seq > best.Seq {
			best = h
		}
	}

	if best == nil {
		if lastErr == nil {
			lastErr = ErrHeaderCorrupted
		}
		return nil, lastErr
	}

	return best, nil
}
