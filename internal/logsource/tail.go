package logsource

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Tail reads a growing log file incrementally. It remembers how many bytes
// of the file have been consumed and only feeds newer lines on each call to
// Advance.
//
// When the path is replaced by a new file (logrotate create mode) the old
// handle is drained to its end, including a final line without a newline,
// and the new file is then read from its start.
// When the file shrinks below the cursor (copytruncate) the cursor resets.
type Tail struct {
	path   string
	file   *os.File
	offset int64
}

// NewTail creates a Tail for path. The file is opened lazily.
func NewTail(path string) *Tail {
	return &Tail{path: path}
}

// Path returns the file being tailed.
func (t *Tail) Path() string {
	return t.path
}

// Offset returns the number of bytes consumed from the current file.
func (t *Tail) Offset() int64 {
	return t.offset
}

// Advance calls fn for every complete line appended since the last call and
// returns the number of lines fed. A trailing line without a newline is left
// for the next call unless final is true.
func (t *Tail) Advance(fn func(line string), final bool) (int, error) {
	if t.file == nil {
		f, err := os.Open(t.path) // #nosec G304 -- configured logfile
		if err != nil {
			return 0, sourceError(t.path, err)
		}
		t.file = f
		t.offset = 0
	}

	if err := t.checkTruncated(); err != nil {
		return 0, err
	}

	n, err := t.drain(fn, final)
	if err != nil {
		return n, err
	}

	rotated, err := t.rotated()
	if err != nil || !rotated {
		return n, err
	}

	// The replaced file gets no more lines, so a held back partial line is
	// complete as it stands.
	rest, err := t.drain(fn, true)
	n += rest
	if err != nil {
		return n, err
	}

	slog.Info("Log file rotated, following new file", "path", t.path, "consumed", t.offset)
	f, err := os.Open(t.path) // #nosec G304 -- configured logfile
	if err != nil {
		return n, sourceError(t.path, err)
	}
	_ = t.file.Close()
	t.file = f
	t.offset = 0

	more, err := t.drain(fn, final)
	return n + more, err
}

// Close releases the file handle.
func (t *Tail) Close() error {
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

// drain reads from the stored offset to the end of the open handle.
func (t *Tail) drain(fn func(line string), final bool) (int, error) {
	if _, err := t.file.Seek(t.offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek %s: %w", t.path, err)
	}

	r := bufio.NewReader(t.file)
	lines := 0
	for {
		line, err := r.ReadString('\n')
		if errors.Is(err, io.EOF) {
			if line != "" && final {
				fn(line)
				t.offset += int64(len(line))
				lines++
			}
			return lines, nil
		}
		if err != nil {
			return lines, fmt.Errorf("failed to read %s: %w", t.path, err)
		}
		fn(strings.TrimRight(line, "\r\n"))
		t.offset += int64(len(line))
		lines++
	}
}

// checkTruncated resets the cursor if the open file shrank below it.
func (t *Tail) checkTruncated() error {
	info, err := t.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", t.path, err)
	}
	if info.Size() < t.offset {
		slog.Info("Log file truncated, reading from start", "path", t.path, "size", info.Size(), "offset", t.offset)
		t.offset = 0
	}
	return nil
}

// rotated reports whether the path now names a different file than the open handle.
func (t *Tail) rotated() (bool, error) {
	current, err := t.file.Stat()
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", t.path, err)
	}
	next, err := os.Stat(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Rotated away and not recreated yet; keep the old handle.
			return false, nil
		}
		return false, sourceError(t.path, err)
	}
	return !os.SameFile(current, next), nil
}
