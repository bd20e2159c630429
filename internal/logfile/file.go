// Package logfile provides the durable, single-file record log behind a queue.
//
// A log file holds opaque byte records in FIFO order:
//
//	[header slot 0][header slot 1][record][record]...
//
// Appends write the record past the committed tail and then commit a new
// header; removes advance the committed head. Header commits alternate between
// the two slots with an increasing sequence number, so a torn header write
// leaves the previous commit readable. Bytes past the committed tail (a torn
// append) are truncated when the file is opened.
//
// A File is not safe for concurrent use; callers serialize access.
package logfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vnykmshr/typedq/internal/format"
	"github.com/vnykmshr/typedq/internal/logging"
)

var (
	// ErrEmpty is returned by Remove when the log holds no records.
	ErrEmpty = errors.New("logfile: empty")

	// ErrClosed is returned when operating on a closed file.
	ErrClosed = errors.New("logfile: closed")

	// ErrCorrupted indicates the file framing or header is damaged.
	ErrCorrupted = errors.New("logfile: corrupted")

	// ErrRecordTooLarge is returned when a payload exceeds MaxRecordSize.
	ErrRecordTooLarge = errors.New("logfile: record too large")

	// ErrLocked is returned when another handle holds the file lock.
	ErrLocked = errors.New("logfile: locked by another process")
)

// File is an open log file.
type File struct {
	path string
	opts *Options

	f      *os.File
	header *format.Header

	closed bool
}

// Open opens the log file at path, creating it if absent.
// If opts is nil, default options are used.
func Open(path string, opts *Options) (*File, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoopLogger{}
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644) //nolint:gosec // G304: Path is user-provided
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	lf := &File{
		path: path,
		opts: opts,
		f:    f,
	}

	if err := lf.recover(); err != nil {
		_ = unlockFile(f)
		_ = f.Close()
		return nil, err
	}

	opts.Logger.Debug("log file opened",
		logging.F("path", path),
		logging.F("count", lf.header.Count),
		logging.F("seq", lf.header.Seq),
	)

	return lf, nil
}

// recover loads the newest committed header, initializing a new file and
// discarding any bytes past the committed tail.
func (lf *File) recover() error {
	info, err := lf.f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	size := info.Size()

	buf := make([]byte, format.DataStart)
	n, err := lf.f.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read header: %w", err)
	}

	header, err := format.PickHeader(buf[:format.HeaderSize], buf[format.HeaderSize:])
	if err != nil {
		// A crash during creation leaves a short, all-zero file.
		if size <= format.DataStart && isZero(buf[:n]) {
			return lf.initialize()
		}
		return fmt.Errorf("%w: %s: %w", ErrCorrupted, lf.path, err)
	}

	if header.Tail > uint64(size) { //nolint:gosec // G115: size is non-negative
		return fmt.Errorf("%w: %s: committed tail %d beyond file size %d", ErrCorrupted, lf.path, header.Tail, size)
	}

	lf.header = header

	if uint64(size) > header.Tail { //nolint:gosec // G115: size is non-negative
		lf.opts.Logger.Warn("discarding uncommitted bytes past tail",
			logging.F("path", lf.path),
			logging.F("tail", header.Tail),
			logging.F("file_size", size),
		)
		if err := lf.f.Truncate(int64(header.Tail)); err != nil { //nolint:gosec // G115: tail <= size
			return fmt.Errorf("failed to truncate torn tail: %w", err)
		}
	}

	return nil
}

// initialize commits the header of an empty log.
func (lf *File) initialize() error {
	if err := lf.f.Truncate(0); err != nil {
		return fmt.Errorf("failed to reset log file: %w", err)
	}

	header := format.NewHeader()
	if _, err := lf.f.WriteAt(header.Marshal(), header.SlotOffset()); err != nil {
		return fmt.Errorf("failed to write initial header: %w", err)
	}
	// Pad to the data start so the first append lands past both slots.
	if err := lf.f.Truncate(format.DataStart); err != nil {
		return fmt.Errorf("failed to size log file: %w", err)
	}
	if err := lf.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync initial header: %w", err)
	}

	lf.header = header
	return nil
}

// commit writes next into its header slot and makes it the current state.
func (lf *File) commit(next *format.Header) error {
	if _, err := lf.f.WriteAt(next.Marshal(), next.SlotOffset()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if lf.opts.SyncWrites {
		if err := lf.f.Sync(); err != nil {
			return fmt.Errorf("failed to sync header: %w", err)
		}
	}

	lf.header = next
	return nil
}

// nextHeader returns a copy of the current header with the sequence advanced.
func (lf *File) nextHeader() *format.Header {
	next := *lf.header
	next.Seq++
	return &next
}

// Add appends one record at the tail.
func (lf *File) Add(payload []byte) error {
	if lf.closed {
		return ErrClosed
	}

	if lf.opts.MaxRecordSize > 0 && int64(len(payload)) > lf.opts.MaxRecordSize {
		return fmt.Errorf("%w: %d bytes exceeds maximum %d bytes", ErrRecordTooLarge, len(payload), lf.opts.MaxRecordSize)
	}

	rec, err := format.EncodePayload(payload, lf.opts.Compression, lf.opts.MinCompressionSize)
	if err != nil {
		return err
	}
	data := rec.Marshal()

	offset := lf.header.Tail
	if _, err := lf.f.WriteAt(data, int64(offset)); err != nil { //nolint:gosec // G115: offset < file size
		return fmt.Errorf("failed to write record: %w", err)
	}
	if lf.opts.SyncWrites {
		if err := lf.f.Sync(); err != nil {
			return fmt.Errorf("failed to sync record: %w", err)
		}
	}

	next := lf.nextHeader()
	next.Count++
	next.Tail += uint64(len(data))
	if err := lf.commit(next); err != nil {
		return err
	}

	lf.opts.Logger.Debug("record appended",
		logging.F("offset", offset),
		logging.F("size", len(data)),
		logging.F("compressed", rec.Flags&format.RecordFlagSnappy != 0),
	)

	return nil
}

// Peek returns the oldest record without removing it.
// ok is false when the log is empty.
func (lf *File) Peek() (payload []byte, ok bool, err error) {
	if lf.closed {
		return nil, false, ErrClosed
	}
	if lf.header.Count == 0 {
		return nil, false, nil
	}

	rec, _, err := format.ReadRecordAt(lf.f, lf.header.Head, lf.header.Tail)
	if err != nil {
		return nil, false, lf.wrapReadError(err)
	}

	payload, err = format.DecodePayload(rec)
	if err != nil {
		return nil, false, lf.wrapReadError(err)
	}

	return payload, true, nil
}

// Remove deletes the oldest record. Returns ErrEmpty if there is none.
func (lf *File) Remove() error {
	if lf.closed {
		return ErrClosed
	}
	if lf.header.Count == 0 {
		return ErrEmpty
	}

	length, err := format.ReadRecordLength(lf.f, lf.header.Head, lf.header.Tail)
	if err != nil {
		return lf.wrapReadError(err)
	}

	next := lf.nextHeader()
	next.Count--
	next.Head += 4 + uint64(length)
	if next.Count == 0 {
		next.Head = format.DataStart
		next.Tail = format.DataStart
	}

	if err := lf.commit(next); err != nil {
		return err
	}

	if next.Count == 0 {
		// Leftover bytes past the tail are also dropped on the next open.
		if err := lf.f.Truncate(format.DataStart); err != nil {
			lf.opts.Logger.Warn("failed to reclaim space of empty log",
				logging.F("path", lf.path),
				logging.F("error", err),
			)
		}
		return nil
	}

	lf.maybeCompact()
	return nil
}

// Size returns the number of records in the log.
func (lf *File) Size() int {
	return int(lf.header.Count) //nolint:gosec // G115: bounded by file size
}

// Path returns the path of the log file.
func (lf *File) Path() string {
	return lf.path
}

// ForEach calls fn for each record from oldest to newest until fn returns false.
// It does not modify the log.
func (lf *File) ForEach(fn func(index int, payload []byte) bool) error {
	if lf.closed {
		return ErrClosed
	}

	offset := lf.header.Head
	for i := 0; i < lf.Size(); i++ {
		rec, next, err := format.ReadRecordAt(lf.f, offset, lf.header.Tail)
		if err != nil {
			return lf.wrapReadError(err)
		}
		payload, err := format.DecodePayload(rec)
		if err != nil {
			return lf.wrapReadError(err)
		}
		if !fn(i, payload) {
			return nil
		}
		offset = next
	}

	return nil
}

// Clear removes every record and truncates the file to its headers.
func (lf *File) Clear() error {
	if lf.closed {
		return ErrClosed
	}

	next := lf.nextHeader()
	next.Count = 0
	next.Head = format.DataStart
	next.Tail = format.DataStart
	if err := lf.commit(next); err != nil {
		return err
	}

	if err := lf.f.Truncate(format.DataStart); err != nil {
		return fmt.Errorf("failed to truncate log file: %w", err)
	}
	return nil
}

// Sync flushes file contents to stable storage.
func (lf *File) Sync() error {
	if lf.closed {
		return ErrClosed
	}
	return lf.f.Sync()
}

// Close releases the file lock and closes the file.
func (lf *File) Close() error {
	if lf.closed {
		return nil
	}
	lf.closed = true

	syncErr := lf.f.Sync()
	_ = unlockFile(lf.f)
	if err := lf.f.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	if syncErr != nil {
		return fmt.Errorf("failed to sync log file: %w", syncErr)
	}
	return nil
}

// IsClosed returns whether the file has been closed.
func (lf *File) IsClosed() bool {
	return lf.closed
}

func (lf *File) wrapReadError(err error) error {
	if errors.Is(err, format.ErrRecordCorrupted) {
		return fmt.Errorf("%w: %s: %w", ErrCorrupted, lf.path, err)
	}
	return err
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
