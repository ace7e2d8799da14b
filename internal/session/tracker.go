package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tracker owns the mapping from live PID to session record and the ordered
// list of every record seen so far.
//
// A Tracker is not safe for concurrent use; it is driven from a single
// processing path.
type Tracker struct {
	classifier *Classifier
	newID      func() string
	now        func() time.Time

	live     map[string]*Record
	sessions []*Record
}

// NewTracker creates an empty tracker that classifies lines with c.
func NewTracker(c *Classifier) *Tracker {
	return &Tracker{
		classifier: c,
		newID:      uuid.NewString,
		now:        c.now,
		live:       make(map[string]*Record),
	}
}

// ProcessLine applies a single log line to the session state.
// It returns true if the line belonged to a pppd session.
func (t *Tracker) ProcessLine(line string) bool {
	m, ok := t.classifier.Classify(strings.TrimSpace(line))
	if !ok {
		return false
	}

	rec, ok := t.live[m.PID]
	if !ok {
		rec = newRecord(t.newID(), m.PID)
		t.live[m.PID] = rec
		t.sessions = append(t.sessions, rec)
	}

	if m.Err != nil {
		slog.Debug("Ignoring malformed ip-up field", "pid", m.PID, "error", m.Err)
	}
	if m.IPUp != nil && m.IPUp.OpenedAt.After(t.now()) {
		// Most likely logged last year; see Classifier.parseTimestamp.
		slog.Debug("Session opened in the future", "pid", m.PID, "opened_at", m.IPUp.OpenedAt)
	}

	rec.apply(&m)

	if m.Exit {
		delete(t.live, m.PID)
	}
	return true
}

// Feed processes every line of r, including a final line without a newline.
// Lines of any length are accepted.
func (t *Tracker) Feed(r io.Reader) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			t.ProcessLine(line)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read log: %w", err)
		}
	}
}

// Sessions returns a snapshot of every record in first-seen order.
func (t *Tracker) Sessions() []Record {
	out := make([]Record, len(t.sessions))
	for i, rec := range t.sessions {
		out[i] = *rec
	}
	return out
}

// Live returns the number of PIDs that have not logged an exit yet.
func (t *Tracker) Live() int {
	return len(t.live)
}
