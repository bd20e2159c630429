package logfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vnykmshr/typedq/internal/format"
	"github.com/vnykmshr/typedq/internal/logging"
)

// CompactSuffix is appended to the log path for the file being rebuilt.
const CompactSuffix = ".compact"

// Replaced in tests to inject failures after the rename.
var (
	reopenFile = os.OpenFile
	syncDir    = fsyncDir
)

// CompactionResult contains the result of a compaction operation.
type CompactionResult struct {
	// BytesFreed is the number of consumed-record bytes dropped
	BytesFreed int64

	// Duration is how long the rebuild took
	Duration time.Duration
}

// Stats describes the on-disk state of a log file.
type Stats struct {
	// Count is the number of live records
	Count uint64

	// FileSize is the current size of the file in bytes
	FileSize int64

	// LiveBytes is the number of bytes held by live records
	LiveBytes uint64

	// ReclaimableBytes is the number of bytes held by consumed records
	ReclaimableBytes uint64

	// Seq is the sequence number of the current header commit
	Seq uint64
}

// Stats returns the current file statistics.
func (lf *File) Stats() (*Stats, error) {
	if lf.closed {
		return nil, ErrClosed
	}

	info, err := lf.f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	return &Stats{
		Count:            lf.header.Count,
		FileSize:         info.Size(),
		LiveBytes:        lf.header.LiveBytes(),
		ReclaimableBytes: lf.header.Head - format.DataStart,
		Seq:              lf.header.Seq,
	}, nil
}

// maybeCompact runs compaction when consumed bytes pass the configured threshold
// and exceed the live bytes. Failures leave the original file in place.
func (lf *File) maybeCompact() {
	if lf.opts.CompactThreshold == 0 {
		return
	}

	reclaimable := lf.header.Head - format.DataStart
	if reclaimable < lf.opts.CompactThreshold || reclaimable <= lf.header.LiveBytes() {
		return
	}

	result, err := lf.Compact()
	if lf.opts.OnCompact != nil {
		lf.opts.OnCompact(result, err)
	}
	if err != nil {
		lf.opts.Logger.Error("background compaction failed",
			logging.F("path", lf.path),
			logging.F("applied", result != nil),
			logging.F("closed", lf.closed),
			logging.F("error", err),
		)
		return
	}

	lf.opts.Logger.Info("compaction completed",
		logging.F("path", lf.path),
		logging.F("bytes_freed", result.BytesFreed),
		logging.F("duration", result.Duration.String()),
	)
}

// Compact rewrites the file without the consumed records before the head.
//
// Live records are copied into a sibling file which is fsynced and renamed
// over the original, so a crash leaves either the old or the new file intact.
//
// A non-nil result with an error means the compacted file is in place but the
// rename may not be durable yet. If the new file cannot be reopened after the
// rename the File is closed and later calls return ErrClosed.
func (lf *File) Compact() (*CompactionResult, error) {
	if lf.closed {
		return nil, ErrClosed
	}

	start := time.Now()
	reclaimable := lf.header.Head - format.DataStart
	if reclaimable == 0 {
		return &CompactionResult{Duration: time.Since(start)}, nil
	}

	next := lf.nextHeader()
	next.Head = format.DataStart
	next.Tail = format.DataStart + lf.header.LiveBytes()

	tmpPath := lf.path + CompactSuffix
	if err := lf.writeCompacted(tmpPath, next); err != nil {
		_ = os.Remove(tmpPath)
		return nil, err
	}

	if err := os.Rename(tmpPath, lf.path); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to rename compacted file: %w", err)
	}

	// The old descriptor now points at the unlinked original.
	f, err := reopenFile(lf.path, os.O_RDWR, 0644) //nolint:gosec // G304: Path is user-provided
	if err == nil {
		if err = lockFile(f); err != nil {
			_ = f.Close()
		}
	}
	_ = unlockFile(lf.f)
	_ = lf.f.Close()
	if err != nil {
		lf.closed = true
		return nil, fmt.Errorf("failed to reopen compacted file: %w", err)
	}
	lf.f = f
	lf.header = next

	result := &CompactionResult{
		BytesFreed: int64(reclaimable), //nolint:gosec // G115: bounded by file size
	}
	err = syncDir(filepath.Dir(lf.path))
	result.Duration = time.Since(start)
	if err != nil {
		return result, fmt.Errorf("failed to sync directory: %w", err)
	}
	return result, nil
}

// writeCompacted writes header and live records into a new file at path.
func (lf *File) writeCompacted(path string, header *format.Header) error {
	out, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644) //nolint:gosec // G304: Path is user-provided
	if err != nil {
		return fmt.Errorf("failed to create compacted file: %w", err)
	}
	defer func() { _ = out.Close() }()

	if _, err := out.WriteAt(header.Marshal(), header.SlotOffset()); err != nil {
		return fmt.Errorf("failed to write compacted header: %w", err)
	}

	live := int64(lf.header.LiveBytes()) //nolint:gosec // G115: bounded by file size
	src := io.NewSectionReader(lf.f, int64(lf.header.Head), live) //nolint:gosec // G115: head < file size
	dst := io.NewOffsetWriter(out, format.DataStart)

	n, err := io.Copy(dst, src)
	if err != nil {
		return fmt.Errorf("failed to copy live records: %w", err)
	}
	if n != live {
		return fmt.Errorf("short copy: %d of %d bytes", n, live)
	}

	if err := out.Sync(); err != nil {
		return fmt.Errorf("failed to sync compacted file: %w", err)
	}
	return nil
}

// fsyncDir fsyncs a directory to ensure a rename is durable.
func fsyncDir(path string) error {
	d, err := os.Open(path) //nolint:gosec // G304: Path is user-provided
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	return d.Sync()
}
