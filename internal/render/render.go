// Package render presents aggregated user statistics.
package render

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/netip"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/shini4i/pptpd-monitor/internal/session"
	"github.com/shini4i/pptpd-monitor/internal/stats"
)

// Title is printed above the table.
const Title = "PPTPD Client Statistics"

// lastSeenLayout formats the last-seen column.
const lastSeenLayout = "2006-01-02 15:04:05"

type column struct {
	header string
	width  int
	left   bool
}

var columns = []column{
	{header: "", width: 1, left: true},
	{header: "Username", width: 15, left: true},
	{header: "#", width: 6},
	{header: "RX", width: 8},
	{header: "TX", width: 8},
	{header: "Assigned IP", width: 18},
	{header: "Remote IP", width: 18},
	{header: "Int", width: 6},
	{header: "CRX", width: 8},
	{header: "CTX", width: 8},
	{header: "Duration/Last seen", width: 20},
}

// Table writes users as an aligned text table. The users are expected to be
// sorted already (see stats.Sorted); now is used for session durations.
func Table(w io.Writer, users []*stats.UserSummary, now time.Time) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, Title)
	fmt.Fprintln(bw)

	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = c.header
	}
	writeRow(bw, headers)

	for _, u := range users {
		writeRow(bw, userRow(u, now))
	}

	return bw.Flush()
}

func userRow(u *stats.UserSummary, now time.Time) []string {
	marker := ""
	if u.IsOpen() {
		marker = "*"
	}

	ip, remote := formatAddr(u.IP), formatAddr(u.RemoteIP)
	if u.Provisional() {
		ip = "(" + formatAddr(u.LastIP) + ")"
		remote = "(" + formatAddr(u.LastRemoteIP) + ")"
	}

	iface := u.Interface
	if iface == "" {
		iface = "-"
	}

	return []string{
		marker,
		u.Username,
		fmt.Sprintf("%d/%d", u.SessionsOpen, u.Sessions),
		stats.SizeOf(u.RX),
		stats.SizeOf(u.TX),
		ip,
		remote,
		iface,
		stats.SizeOf(u.CRX),
		stats.SizeOf(u.CTX),
		durationOrLastSeen(u, now),
	}
}

// durationOrLastSeen shows how long the current session has been up, or
// when the user was last seen if no session is open.
func durationOrLastSeen(u *stats.UserSummary, now time.Time) string {
	switch {
	case u.HasOpenedAt():
		return stats.FormatDuration(now.Sub(u.OpenedAt))
	case !u.LastSeen.IsZero():
		return u.LastSeen.Format(lastSeenLayout)
	default:
		return "-"
	}
}

func formatAddr(a netip.Addr) string {
	if !a.IsValid() {
		return "-"
	}
	return a.String()
}

func writeRow(w io.Writer, cells []string) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		c := columns[i]
		if c.left {
			parts[i] = runewidth.FillRight(cell, c.width)
		} else {
			parts[i] = runewidth.FillLeft(cell, c.width)
		}
	}
	fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, " "), " "))
}

// Report is the machine readable form of one refresh.
type Report struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Users       []*stats.UserSummary `json:"users"`
	Sessions    []session.Record     `json:"sessions,omitempty"`
}

// JSON writes users and, if given, the underlying sessions as indented JSON.
func JSON(w io.Writer, users []*stats.UserSummary, sessions []session.Record, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Report{GeneratedAt: now, Users: users, Sessions: sessions}); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
