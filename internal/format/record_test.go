package format

import (
	"bytes"
	"errors"
	"testing"
)

func TestRecord_Marshal_Unmarshal_Roundtrip(t *testing.T) {
	tests := []struct {
		name   string
		record *Record
	}{
		{"small payload", &Record{Flags: RecordFlagNone, Payload: []byte("hello, world!")}},
		{"large payload", &Record{Flags: RecordFlagNone, Payload: bytes.Repeat([]byte("x"), 1024*1024)}},
		{"empty payload", &Record{Flags: RecordFlagNone}},
		{"snappy flag", &Record{Flags: RecordFlagSnappy, Payload: []byte("compressed")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.record.Marshal()

			if uint64(len(data)) != tt.record.Size() {
				t.Errorf("marshaled size = %d, want %d", len(data), tt.record.Size())
			}

			got, err := UnmarshalRecord(data)
			if err != nil {
				t.Fatalf("UnmarshalRecord() error = %v", err)
			}
			if got.Flags != tt.record.Flags {
				t.Errorf("Flags = %d, want %d", got.Flags, tt.record.Flags)
			}
			if !bytes.Equal(got.Payload, tt.record.Payload) {
				t.Errorf("Payload mismatch: got %d bytes, want %d bytes", len(got.Payload), len(tt.record.Payload))
			}
		})
	}
}

func TestUnmarshalRecord_CRCMismatch(t *testing.T) {
	data := (&Record{Payload: []byte("payload")}).Marshal()
	data[6] ^= 0xFF

	_, err := UnmarshalRecord(data)
	if !errors.Is(err, ErrRecordCorrupted) {
		t.Errorf("UnmarshalRecord() error = %v, want ErrRecordCorrupted", err)
	}
}

func TestReadRecordAt(t *testing.T) {
	var buf bytes.Buffer
	first := &Record{Payload: []byte("first")}
	second := &Record{Payload: []byte("second")}
	buf.Write(first.Marshal())
	buf.Write(second.Marshal())

	r := bytes.NewReader(buf.Bytes())
	limit := uint64(buf.Len())

	got, next, err := ReadRecordAt(r, 0, limit)
	if err != nil {
		t.Fatalf("ReadRecordAt(0) error = %v", err)
	}
	if string(got.Payload) != "first" {
		t.Errorf("Payload = %q, want %q", got.Payload, "first")
	}
	if next != first.Size() {
		t.Errorf("next = %d, want %d", next, first.Size())
	}

	got, next, err = ReadRecordAt(r, next, limit)
	if err != nil {
		t.Fatalf("ReadRecordAt(next) error = %v", err)
	}
	if string(got.Payload) != "second" {
		t.Errorf("Payload = %q, want %q", got.Payload, "second")
	}
	if next != limit {
		t.Errorf("next = %d, want %d", next, limit)
	}
}

func TestReadRecordAt_CrossesLimit(t *testing.T) {
	data := (&Record{Payload: []byte("truncated")}).Marshal()
	r := bytes.NewReader(data)

	_, _, err := ReadRecordAt(r, 0, uint64(len(data)-1))
	if !errors.Is(err, ErrRecordCorrupted) {
		t.Errorf("ReadRecordAt() error = %v, want ErrRecordCorrupted", err)
	}
}

// FuzzUnmarshalRecord checks that arbitrary input never panics.
func FuzzUnmarshalRecord(f *testing.F) {
	f.Add((&Record{Payload: []byte("seed")}).Marshal())
	f.Add([]byte{})
	f.Add([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x00})

	f.Fuzz(func(t *testing.T, data []byte) {
		rec, err := UnmarshalRecord(data)
		if err == nil && rec == nil {
			t.Fatal("nil record without error")
		}
	})
}

func TestComputeCRC32C_CheckValue(t *testing.T) {
	if got := ComputeCRC32C([]byte("123456789")); got != 0xE3069283 {
		t.Errorf("ComputeCRC32C() = %#x, want 0xe3069283", got)
	}
}
