// Package session reconstructs PPTP sessions from pppd syslog lines.
package session

import (
	"net/netip"
	"time"
)

// Status is the lifecycle state of a session as observed in the log.
type Status string

const (
	// StatusUnknown means the PID was seen but neither ip-up nor accounting was logged.
	StatusUnknown Status = "unknown"
	// StatusOpen means an ip-up line was seen and no accounting line followed it yet.
	StatusOpen Status = "open"
	// StatusClosed means at least one close-accounting line was seen.
	StatusClosed Status = "closed"
)

// IsOpen returns true if the session is currently established.
func (s Status) IsOpen() bool {
	return s == StatusOpen
}

// Record holds everything known about one pppd process lifetime.
//
// Optional fields use their zero value for "absent": empty strings for
// Interface and Username, the invalid netip.Addr for addresses and the zero
// time for OpenedAt.
type Record struct {
	// ID uniquely identifies the record; PIDs are reused by the kernel.
	ID  string `json:"id"`
	PID string `json:"pid"`

	Interface string     `json:"interface,omitempty"`
	Username  string     `json:"username,omitempty"`
	IP        netip.Addr `json:"ip"`
	RemoteIP  netip.Addr `json:"remote_ip"`
	LocalIP   netip.Addr `json:"local_ip"`

	TX    uint64 `json:"tx"`
	RX    uint64 `json:"rx"`
	Total uint64 `json:"total"`

	Status   Status    `json:"status"`
	OpenedAt time.Time `json:"opened_at"`
}

// HasOpenedAt reports whether an ip-up timestamp was recorded.
func (r *Record) HasOpenedAt() bool {
	return !r.OpenedAt.IsZero()
}

func newRecord(id, pid string) *Record {
	return &Record{
		ID:     id,
		PID:    pid,
		Status: StatusUnknown,
	}
}

// apply folds one classified line into the record.
// Address and ip-up fields overwrite, accounting adds.
func (r *Record) apply(m *Match) {
	if m.RemoteIP.IsValid() {
		r.RemoteIP = m.RemoteIP
	}
	if m.LocalIP.IsValid() {
		r.LocalIP = m.LocalIP
	}
	if up := m.IPUp; up != nil {
		r.Status = StatusOpen
		r.OpenedAt = up.OpenedAt
		r.Interface = up.Interface
		r.Username = up.Username
		r.IP = up.IP
	}
	if acct := m.Close; acct != nil {
		r.Status = StatusClosed
		r.TX += acct.TX
		r.RX += acct.RX
		r.Total += acct.TX + acct.RX
	}
}
