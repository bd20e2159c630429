package format

import (
	"errors"
	"testing"
)

func TestHeader_Marshal_Unmarshal_Roundtrip(t *testing.T) {
	h := &Header{
		Magic:   FileMagic,
		Version: CurrentVersion,
		Seq:     42,
		Count:   3,
		Head:    DataStart + 100,
		Tail:    DataStart + 400,
	}

	data := h.Marshal()
	if len(data) != HeaderSize {
		t.Fatalf("marshaled size = %d, want %d", len(data), HeaderSize)
	}

	got, err := UnmarshalHeader(data)
	if err != nil {
		t.Fatalf("UnmarshalHeader() error = %v", err)
	}

	if got.Seq != h.Seq || got.Count != h.Count || got.Head != h.Head || got.Tail != h.Tail {
		t.Errorf("UnmarshalHeader() = %+v, want %+v", got, h)
	}
}

func TestNewHeader_IsEmpty(t *testing.T) {
	h := NewHeader()

	if err := h.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if h.Count != 0 || h.LiveBytes() != 0 {
		t.Errorf("new header count=%d live=%d, want 0/0", h.Count, h.LiveBytes())
	}
	if h.Head != DataStart {
		t.Errorf("Head = %d, want %d", h.Head, DataStart)
	}
}

func TestUnmarshalHeader_Corruption(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{
			name:   "zeroed slot",
			mutate: func(b []byte) []byte { return make([]byte, HeaderSize) },
		},
		{
			name: "flipped bit",
			mutate: func(b []byte) []byte {
				b[20] ^= 0xFF
				return b
			},
		},
		{
			name:   "short slot",
			mutate: func(b []byte) []byte { return b[:10] },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := tt.mutate(NewHeader().Marshal())
			_, err := UnmarshalHeader(buf)
			if !errors.Is(err, ErrHeaderCorrupted) {
				t.Errorf("UnmarshalHeader() error = %v, want ErrHeaderCorrupted", err)
			}
		})
	}
}

func TestHeader_Validate(t *testing.T) {
	tests := []struct {
		name    string
		header  Header
		wantErr bool
	}{
		{"valid empty", Header{Magic: FileMagic, Version: 1, Seq: 1, Head: DataStart, Tail: DataStart}, false},
		{"valid one record", Header{Magic: FileMagic, Version: 1, Seq: 2, Count: 1, Head: DataStart, Tail: DataStart + 20}, false},
		{"bad magic", Header{Magic: 1, Version: 1, Seq: 1, Head: DataStart, Tail: DataStart}, true},
		{"future version", Header{Magic: FileMagic, Version: 9, Seq: 1, Head: DataStart, Tail: DataStart}, true},
		{"zero seq", Header{Magic: FileMagic, Version: 1, Head: DataStart, Tail: DataStart}, true},
		{"head before data", Header{Magic: FileMagic, Version: 1, Seq: 1, Head: 0, Tail: DataStart}, true},
		{"head past tail", Header{Magic: FileMagic, Version: 1, Seq: 1, Count: 1, Head: DataStart + 50, Tail: DataStart}, true},
		{"empty with bytes", Header{Magic: FileMagic, Version: 1, Seq: 1, Head: DataStart, Tail: DataStart + 9}, true},
		{"too many records", Header{Magic: FileMagic, Version: 1, Seq: 1, Count: 5, Head: DataStart, Tail: DataStart + 9}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.header.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPickHeader(t *testing.T) {
	older := NewHeader() // seq 1 -> slot 1
	newer := &Header{Magic: FileMagic, Version: 1, Seq: 2, Count: 1, Head: DataStart, Tail: DataStart + 12}

	t.Run("highest seq wins", func(t *testing.T) {
		got, err := PickHeader(newer.Marshal(), older.Marshal())
		if err != nil {
			t.Fatalf("PickHeader() error = %v", err)
		}
		if got.Seq != 2 {
			t.Errorf("Seq = %d, want 2", got.Seq)
		}
	})

	t.Run("torn newer slot falls back", func(t *testing.T) {
		torn := newer.Marshal()
		torn[30] ^= 0x01

		got, err := PickHeader(torn, older.Marshal())
		if err != nil {
			t.Fatalf("PickHeader() error = %v", err)
		}
		if got.Seq != 1 {
			t.Errorf("Seq = %d, want 1", got.Seq)
		}
	})

	t.Run("slot mismatch rejected", func(t *testing.T) {
		// seq 1 belongs in slot 1, not slot 0
		_, err := PickHeader(older.Marshal(), make([]byte, HeaderSize))
		if !errors.Is(err, ErrHeaderCorrupted) {
			t.Errorf("PickHeader() error = %v, want ErrHeaderCorrupted", err)
		}
	})

	t.Run("no valid slot", func(t *testing.T) {
		_, err := PickHeader(make([]byte, HeaderSize), make([]byte, HeaderSize))
		if !errors.Is(err, ErrHeaderCorrupted) {
			t.Errorf("PickHeader() error = %v, want ErrHeaderCorrupted", err)
		}
	})
}
