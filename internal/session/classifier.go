package session

import (
	"errors"
	"fmt"
	"net/netip"
	"regexp"
	"strconv"
	"time"
)

// ErrMalformedTimestamp is reported when an ip-up line carries a timestamp
// that matches none of the known layouts.
var ErrMalformedTimestamp = errors.New("malformed ip-up timestamp")

// ErrMalformedAddress is reported when an ip-up line carries an address
// netip cannot parse, such as a dotted quad with leading zeros. The rest of
// the ip-up still applies with the address left absent.
var ErrMalformedAddress = errors.New("malformed ip-up address")

const (
	// syslogLayout is the classic BSD syslog timestamp. It carries no year.
	syslogLayout = "Jan _2 15:04:05"
)

// IPUp is the data carried by a pptpd-logwtmp ip-up line.
type IPUp struct {
	OpenedAt  time.Time
	Interface string
	Username  string
	IP        netip.Addr
}

// Accounting is the data carried by a "Sent N bytes, received M bytes" line.
type Accounting struct {
	TX uint64
	RX uint64
}

// Match is every field update recognized on one log line.
// A single line may carry several of them.
type Match struct {
	PID      string
	IPUp     *IPUp
	Close    *Accounting
	RemoteIP netip.Addr
	LocalIP  netip.Addr
	Exit     bool

	// Err is set when a shape matched but was dropped or applied in part,
	// for example an ip-up line with an unparseable timestamp. Other updates
	// still apply.
	Err error
}

// Regex patterns for pppd/pptpd syslog lines.
//
//	marker    pppd[<PID>]
//	ipup      <TIMESTAMP> <host> pppd[PID]: pptpd-logwtmp.so ip-up <INTERFACE> <USERNAME> <IP4>
//	close     Sent <TX> bytes, received <RX> bytes
//	remoteip  remote IP address <IP4>
//	localip   local IP address <IP4>
//	exit      pppd[PID]: Exit.
type patterns struct {
	marker   *regexp.Regexp
	ipUp     *regexp.Regexp
	close    *regexp.Regexp
	remoteIP *regexp.Regexp
	localIP  *regexp.Regexp
	exit     *regexp.Regexp
}

func compilePatterns() *patterns {
	return &patterns{
		marker:   regexp.MustCompile(`pppd\[(\d+)\]`),
		ipUp:     regexp.MustCompile(`^(.+?) [a-zA-Z0-9\-.]+ pppd\[\d+\]: (?:pptpd-logwtmp\.so )?ip-up ([a-z0-9]+) (\S+) (\d+\.\d+\.\d+\.\d+)`),
		close:    regexp.MustCompile(`Sent (\d+) bytes, received (\d+) bytes`),
		remoteIP: regexp.MustCompile(`remote IP address (\d+\.\d+\.\d+\.\d+)`),
		localIP:  regexp.MustCompile(`local IP address (\d+\.\d+\.\d+\.\d+)`),
		exit:     regexp.MustCompile(`pppd\[\d+\]: Exit\.`),
	}
}

// Classifier recognizes pppd log lines. It is immutable after construction
// and safe for concurrent use.
type Classifier struct {
	p   *patterns
	now func() time.Time
	loc *time.Location
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithClock sets the clock used to infer the year of syslog timestamps.
func WithClock(now func() time.Time) ClassifierOption {
	return func(c *Classifier) {
		c.now = now
	}
}

// WithLocation sets the time zone log timestamps are interpreted in.
func WithLocation(loc *time.Location) ClassifierOption {
	return func(c *Classifier) {
		c.loc = loc
	}
}

// NewClassifier compiles the line patterns once.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		p:   compilePatterns(),
		now: time.Now,
		loc: time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify extracts every recognized field from a trimmed log line.
// It returns false if the line does not belong to any pppd session.
func (c *Classifier) Classify(line string) (Match, bool) {
	marker := c.p.marker.FindStringSubmatch(line)
	if marker == nil {
		return Match{}, false
	}
	m := Match{PID: marker[1]}

	if sub := c.p.remoteIP.FindStringSubmatch(line); sub != nil {
		if addr, err := netip.ParseAddr(sub[1]); err == nil {
			m.RemoteIP = addr
		}
	}

	if sub := c.p.localIP.FindStringSubmatch(line); sub != nil {
		if addr, err := netip.ParseAddr(sub[1]); err == nil {
			m.LocalIP = addr
		}
	}

	if sub := c.p.ipUp.FindStringSubmatch(line); sub != nil {
		m.IPUp, m.Err = c.parseIPUp(sub)
	}

	if sub := c.p.close.FindStringSubmatch(line); sub != nil {
		tx, txErr := strconv.ParseUint(sub[1], 10, 64)
		rx, rxErr := strconv.ParseUint(sub[2], 10, 64)
		if txErr == nil && rxErr == nil {
			m.Close = &Accounting{TX: tx, RX: rx}
		}
	}

	m.Exit = c.p.exit.MatchString(line)

	return m, true
}

// parseIPUp returns nil for a bad timestamp. A bad address yields the ip-up
// without IP together with ErrMalformedAddress.
func (c *Classifier) parseIPUp(sub []string) (*IPUp, error) {
	openedAt, err := c.parseTimestamp(sub[1])
	if err != nil {
		return nil, err
	}
	up := &IPUp{
		OpenedAt:  openedAt,
		Interface: sub[2],
		Username:  sub[3],
	}

	ip, err := netip.ParseAddr(sub[4])
	if err != nil {
		return up, fmt.Errorf("%w: %q", ErrMalformedAddress, sub[4])
	}
	up.IP = ip
	return up, nil
}

// parseTimestamp accepts the BSD syslog layout, whose year is taken from the
// clock, and RFC 3339 as written by rsyslog's high precision template.
//
// The inferred year is ambiguous for lines written before a new year that
// are read after it; such timestamps land in the future and are left as is.
func (c *Classifier) parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(syslogLayout, s, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
	}
	year := c.now().In(c.loc).Year()
	return time.Date(year, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, c.loc), nil
}
