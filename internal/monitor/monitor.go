// Package monitor drives log parsing, aggregation and presentation, either
// once or as a periodic watch loop.
package monitor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/shini4i/pptpd-monitor/internal/logsource"
	"github.com/shini4i/pptpd-monitor/internal/render"
	"github.com/shini4i/pptpd-monitor/internal/session"
	"github.com/shini4i/pptpd-monitor/internal/stats"
)

// clearScreen moves the cursor home and clears the terminal.
const clearScreen = "\033[H\033[2J"

// Options configures a Monitor.
type Options struct {
	// LogFile is the live log file; rotations are found next to it.
	LogFile string
	// Rotated includes rotated and compressed generations of LogFile.
	Rotated bool
	// Delay is the refresh interval in watch mode.
	Delay time.Duration
	// Follow refreshes as soon as the log file changes, in addition to Delay.
	Follow bool
	// JSON renders a JSON report instead of the table.
	JSON bool

	// Now overrides the clock, mostly for tests.
	Now func() time.Time
	// Location is the time zone of log timestamps. Defaults to time.Local.
	Location *time.Location
}

// Monitor owns the session tracker and the tail of the live log file for
// the lifetime of a run.
type Monitor struct {
	opts    Options
	tracker *session.Tracker
	tail    *logsource.Tail
	probe   stats.InterfaceProbe
	out     io.Writer
	clear   bool
}

// New creates a Monitor writing to out. probe may be nil, in which case live
// counters are always zero.
func New(opts Options, probe stats.InterfaceProbe, out io.Writer) *Monitor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	classifier := session.NewClassifier(
		session.WithClock(opts.Now),
		session.WithLocation(opts.Location),
	)

	return &Monitor{
		opts:    opts,
		tracker: session.NewTracker(classifier),
		probe:   probe,
		out:     out,
		clear:   isTerminal(out),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Sessions returns a snapshot of every session parsed so far.
func (m *Monitor) Sessions() []session.Record {
	return m.tracker.Sessions()
}

// Load reads every source file once. The last plain file is kept open for
// incremental refreshes; if final is set its trailing partial line is
// consumed as well.
func (m *Monitor) Load(ctx context.Context, final bool) error {
	files, err := logsource.Expand(m.opts.LogFile, m.opts.Rotated)
	if err != nil {
		return err
	}

	last := len(files) - 1
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		slog.Info("Reading log file", "path", path)

		if i == last && !logsource.IsCompressed(path) {
			m.tail = logsource.NewTail(path)
			if _, err := m.tail.Advance(m.processLine, final); err != nil {
				return err
			}
			continue
		}
		if err := m.feedFile(path); err != nil {
			return err
		}
	}

	return nil
}

func (m *Monitor) feedFile(path string) error {
	rc, err := logsource.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	if err := m.tracker.Feed(rc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (m *Monitor) processLine(line string) {
	m.tracker.ProcessLine(line)
}

// Refresh feeds lines appended to the live log file since the last call and
// returns how many were read.
func (m *Monitor) Refresh(_ context.Context) (int, error) {
	if m.tail == nil {
		return 0, nil
	}
	return m.tail.Advance(m.processLine, false)
}

// Render aggregates the current sessions and writes them out.
func (m *Monitor) Render(ctx context.Context) error {
	sessions := m.tracker.Sessions()
	users := stats.Sorted(stats.Aggregate(ctx, sessions, m.probe))
	now := m.opts.Now()

	if m.opts.JSON {
		return render.JSON(m.out, users, sessions, now)
	}
	if m.clear {
		if _, err := io.WriteString(m.out, clearScreen); err != nil {
			return err
		}
	}
	return render.Table(m.out, users, now)
}

// Run parses the log once and renders the result.
func (m *Monitor) Run(ctx context.Context) error {
	defer m.Close()

	if err := m.Load(ctx, true); err != nil {
		return err
	}
	return m.Render(ctx)
}

// Watch parses the log, renders, and then refreshes every Delay until ctx is
// cancelled. Only a failure of the initial load is returned; later errors
// are logged and the loop carries on.
func (m *Monitor) Watch(ctx context.Context) error {
	defer m.Close()

	if err := m.Load(ctx, false); err != nil {
		return err
	}
	if m.tail == nil {
		slog.Warn("Newest log file is compressed, refreshes will not see new lines", "path", m.opts.LogFile)
	}
	if err := m.Render(ctx); err != nil {
		slog.Warn("Failed to render", "error", err)
	}

	var tick <-chan time.Time
	if m.opts.Delay > 0 {
		ticker := time.NewTicker(m.opts.Delay)
		defer ticker.Stop()
		tick = ticker.C
	}

	var changed <-chan struct{}
	if m.opts.Follow && m.tail != nil {
		notifier, err := logsource.NewNotifier(m.tail.Path())
		if err != nil {
			slog.Warn("Follow mode unavailable, falling back to polling", "error", err)
		} else {
			defer func() { _ = notifier.Close() }()
			changed = notifier.Changed()
		}
	}

	if tick == nil && changed == nil {
		return fmt.Errorf("watch mode needs a positive delay")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
		case <-changed:
		}

		if n, err := m.Refresh(ctx); err != nil {
			slog.Warn("Failed to refresh log", "path", m.opts.LogFile, "error", err)
		} else {
			slog.Debug("Refreshed log", "path", m.opts.LogFile, "lines", n)
		}
		if err := m.Render(ctx); err != nil {
			slog.Warn("Failed to render", "error", err)
		}
	}
}

// Close releases the live log file.
func (m *Monitor) Close() {
	if m.tail != nil {
		_ = m.tail.Close()
	}
}
