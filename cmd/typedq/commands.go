package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"unicode/utf8"

	"code.cloudfoundry.org/bytefmt"
	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vnykmshr/typedq/pkg/typedq"
)

const (
	defaultPeekCount = 10
	previewLimit     = 100
)

// cli holds the global flags shared by every subcommand.
type cli struct {
	out        io.Writer
	configPath string
	logLevel   string
	logJSON    bool
	jsonOutput bool
	dropAll    bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:           "typedq",
		Short:         "Inspect and maintain typedq queue files",
		Long:          "typedq opens a queue file as raw records to show statistics, preview or drop head records, and compact the file.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to a YAML options file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
	root.PersistentFlags().BoolVar(&c.logJSON, "log-json", false, "write logs as JSON instead of console text")

	stats := &cobra.Command{
		Use:     "stats <file>",
		Short:   "Show queue statistics",
		Example: "typedq stats /var/lib/app/jobs.tdq --json",
		Args:    cobra.ExactArgs(1),
		RunE:    c.runStats,
	}
	stats.Flags().BoolVar(&c.jsonOutput, "json", false, "print statistics as JSON")

	peek := &cobra.Command{
		Use:     "peek <file> [count]",
		Short:   "Show the oldest records without removing them",
		Example: "typedq peek /var/lib/app/jobs.tdq 5",
		Args:    cobra.RangeArgs(1, 2),
		RunE:    c.runPeek,
	}

	drop := &cobra.Command{
		Use:     "drop <file> [count]",
		Short:   "Remove records from the head, such as one that no longer decodes",
		Long:    "drop removes count records (default 1) from the head. With --all it empties the file without reading the records.",
		Example: "typedq drop /var/lib/app/jobs.tdq 1",
		Args:    cobra.RangeArgs(1, 2),
		RunE:    c.runDrop,
	}
	drop.Flags().BoolVar(&c.dropAll, "all", false, "remove every record")

	compact := &cobra.Command{
		Use:   "compact <file>",
		Short: "Reclaim space held by consumed records",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runCompact,
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(c.out, "typedq version %s\n", typedq.Version)
		},
	}

	root.AddCommand(stats, peek, drop, compact, version)
	return root
}

// open opens the existing queue file at path as raw records using the
// global flags.
func (c *cli) open(path string) (*typedq.Queue[[]byte], error) {
	// Opening creates missing files; a typo should not leave an empty queue behind.
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("queue file: %w", err)
	}

	opts := typedq.DefaultOptions()
	level := typedq.LevelWarn

	if c.configPath != "" {
		loaded, fileLevel, err := typedq.LoadOptions(c.configPath)
		if err != nil {
			return nil, err
		}
		opts, level = loaded, fileLevel
	}

	if c.logLevel != "" {
		l, err := typedq.ParseLevel(c.logLevel)
		if err != nil {
			return nil, err
		}
		level = l
	}

	newLogger := typedq.NewConsoleLogger
	if c.logJSON {
		newLogger = typedq.NewProductionLogger
	}
	logger, err := newLogger(level)
	if err != nil {
		return nil, err
	}
	opts.Logger = logger

	return typedq.OpenWithCodec(path, typedq.RawCodec(), opts)
}

func (c *cli) runStats(_ *cobra.Command, args []string) error {
	q, err := c.open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = q.Close() }()

	stats, err := q.Stats()
	if err != nil {
		return err
	}

	if c.jsonOutput {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"path":              stats.Path,
			"count":             stats.Count,
			"file_size":         stats.FileSize,
			"live_bytes":        stats.LiveBytes,
			"reclaimable_bytes": stats.ReclaimableBytes,
			"seq":               stats.Seq,
		})
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Queue Statistics")
	fmt.Fprintln(w, "================")
	fmt.Fprintf(w, "Path:\t%s\n", stats.Path)
	fmt.Fprintf(w, "Records:\t%d\n", stats.Count)
	fmt.Fprintf(w, "File Size:\t%s\n", humanBytes(uint64(stats.FileSize))) //nolint:gosec // G115: file sizes are non-negative
	fmt.Fprintf(w, "Live Bytes:\t%s\n", humanBytes(stats.LiveBytes))
	fmt.Fprintf(w, "Reclaimable Bytes:\t%s\n", humanBytes(stats.ReclaimableBytes))
	fmt.Fprintf(w, "Commit Sequence:\t%d\n", stats.Seq)
	return w.Flush()
}

func (c *cli) runPeek(_ *cobra.Command, args []string) error {
	count, err := parseCount(args, defaultPeekCount)
	if err != nil {
		return err
	}

	q, err := c.open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = q.Close() }()

	shown := 0
	err = q.Scan(count, func(i int, record []byte) bool {
		fmt.Fprintf(c.out, "Record %d (%d bytes):\n  %s\n", i+1, len(record), renderRecord(record))
		shown++
		return true
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "%d of %d record(s) shown\n", shown, q.Count())
	return nil
}

func (c *cli) runDrop(_ *cobra.Command, args []string) error {
	count, err := parseCount(args, 1)
	if err != nil {
		return err
	}

	q, err := c.open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = q.Close() }()

	dropped := 0
	if c.dropAll {
		dropped, err = q.Clear()
		if err != nil {
			return err
		}
	} else {
		for dropped < count {
			_, ok, err := q.Dequeue()
			if err != nil {
				return fmt.Errorf("dropped %d record(s): %w", dropped, err)
			}
			if !ok {
				break
			}
			dropped++
		}
	}

	fmt.Fprintf(c.out, "Dropped %d record(s), %d remaining\n", dropped, q.Count())
	return nil
}

func (c *cli) runCompact(_ *cobra.Command, args []string) error {
	q, err := c.open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = q.Close() }()

	result, err := q.Compact()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Compaction Result")
	fmt.Fprintln(w, "=================")
	fmt.Fprintf(w, "Bytes Freed:\t%s\n", humanBytes(uint64(result.BytesFreed))) //nolint:gosec // G115: never negative
	fmt.Fprintf(w, "Duration:\t%s\n", result.Duration)
	return w.Flush()
}

// parseCount reads the optional positive count argument.
func parseCount(args []string, def int) (int, error) {
	if len(args) < 2 {
		return def, nil
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("invalid count %q: %w", args[1], err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("count must be positive")
	}
	return n, nil
}

// renderRecord shows a record as JSON when it holds MessagePack data, and as
// a truncated hex dump otherwise.
func renderRecord(record []byte) string {
	r := bytes.NewReader(record)
	var v interface{}
	if err := msgpack.NewDecoder(r).Decode(&v); err == nil && r.Len() == 0 {
		if out, err := json.Marshal(v); err == nil {
			return truncate(string(out))
		}
	}
	return "hex " + truncate(hex.EncodeToString(record))
}

// humanBytes formats n like "1.5M (1572864 bytes)".
func humanBytes(n uint64) string {
	return fmt.Sprintf("%s (%d bytes)", bytefmt.ByteSize(n), n)
}

// truncate shortens s to previewLimit runes.
func truncate(s string) string {
	if utf8.RuneCountInString(s) <= previewLimit {
		return s
	}
	return string([]rune(s)[:previewLimit]) + "..."
}
