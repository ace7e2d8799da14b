// Package logsource enumerates, opens and tails syslog files, including
// rotated and compressed generations.
package logsource

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	// ErrSourceNotFound is returned when the log file does not exist.
	ErrSourceNotFound = errors.New("log file does not exist")
	// ErrSourcePermission is returned when the log file cannot be read by the current user.
	ErrSourcePermission = errors.New("permission denied")
)

// SourceError describes a log file that could not be opened.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	switch {
	case errors.Is(e.Err, ErrSourcePermission):
		return fmt.Sprintf("cannot read %s: %v (try running as root)", e.Path, e.Err)
	case errors.Is(e.Err, ErrSourceNotFound):
		return fmt.Sprintf("cannot read %s: %v (check the logfile path and pptpd debug logging)", e.Path, e.Err)
	default:
		return fmt.Sprintf("cannot read %s: %v", e.Path, e.Err)
	}
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// sourceError classifies an os error into the source error taxonomy.
func sourceError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &SourceError{Path: path, Err: ErrSourceNotFound}
	case errors.Is(err, fs.ErrPermission):
		return &SourceError{Path: path, Err: ErrSourcePermission}
	default:
		return &SourceError{Path: path, Err: err}
	}
}

// rotationSuffix matches logrotate's numbered generations, e.g. ".1" or ".3.gz".
var rotationSuffix = regexp.MustCompile(`^\.(\d+)(?:\.gz|\.zst)?$`)

// Expand returns the files making up one logical log in chronological
// order. If rotated is false only path itself is returned.
//
// With rotation enabled every regular file matching path* is included: date-suffixed
// generations in ascending order, then numbered generations from the highest
// index down, then the live file.
func Expand(path string, rotated bool) ([]string, error) {
	if !rotated {
		if _, err := os.Stat(path); err != nil {
			return nil, sourceError(path, err)
		}
		return []string{path}, nil
	}

	matches, err := filepath.Glob(globEscape(path) + "*")
	if err != nil {
		return nil, fmt.Errorf("failed to expand %s: %w", path, err)
	}
	matches = regularFiles(matches)
	if len(matches) == 0 {
		return nil, &SourceError{Path: path, Err: ErrSourceNotFound}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return rotationLess(path, matches[i], matches[j])
	})
	return matches, nil
}

// regularFiles drops directories and other non-regular matches such as
// messages.d. Symlinks count by their target.
func regularFiles(paths []string) []string {
	out := paths[:0]
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, p)
	}
	return out
}

// rotationLess orders a before b when a holds older log lines.
func rotationLess(base, a, b string) bool {
	ra, rb := rotationRank(base, a), rotationRank(base, b)
	if ra.class != rb.class {
		return ra.class < rb.class
	}
	if ra.class == classNumbered && ra.index != rb.index {
		return ra.index > rb.index
	}
	return a < b
}

const (
	classDated = iota
	classNumbered
	classLive
)

type rank struct {
	class int
	index int
}

func rotationRank(base, name string) rank {
	if name == base {
		return rank{class: classLive}
	}
	suffix := strings.TrimPrefix(name, base)
	if sub := rotationSuffix.FindStringSubmatch(suffix); sub != nil {
		n, err := strconv.Atoi(sub[1])
		if err == nil {
			return rank{class: classNumbered, index: n}
		}
	}
	return rank{class: classDated}
}

// globEscape quotes glob metacharacters in a literal path.
func globEscape(path string) string {
	var b strings.Builder
	for _, r := range path {
		switch r {
		case '*', '?', '[', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsCompressed reports whether path is read through a decompressor.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, ".gz") || strings.HasSuffix(path, ".zst")
}

// Open opens a log file, transparently decompressing .gz and .zst files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path) // #nosec G304 -- path is the configured logfile or one of its rotations
	if err != nil {
		return nil, sourceError(path, err)
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
		}
		return &stackedReader{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to open zstd stream %s: %w", path, err)
		}
		return &stackedReader{Reader: zr, closers: []io.Closer{zstdCloser{zr}, f}}, nil
	default:
		return f, nil
	}
}

// stackedReader closes a decompressor and its underlying file together.
type stackedReader struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReader) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// zstdCloser adapts zstd.Decoder, whose Close returns nothing.
type zstdCloser struct {
	d *zstd.Decoder
}

func (z zstdCloser) Close() error {
	z.d.Close()
	return nil
}
