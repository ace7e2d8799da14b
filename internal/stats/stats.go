// Package stats folds reconstructed sessions into per-user traffic summaries.
package stats

import (
	"net/netip"
	"time"
)

// UnknownUser is the bucket for sessions whose ip-up line was never seen,
// typically because it was rotated away before the session started.
const UnknownUser = "(unknown)"

// UserSummary contains the traffic statistics of one VPN user.
type UserSummary struct {
	Username string `json:"username"`

	// TX, RX and Total are accounted bytes summed over every session.
	TX    uint64 `json:"tx"`
	RX    uint64 `json:"rx"`
	Total uint64 `json:"total"`

	// CTX and CRX are the live interface counters of the last open session.
	// They are only meaningful when SessionsOpen > 0.
	CTX uint64 `json:"ctx"`
	CRX uint64 `json:"crx"`

	Sessions     int `json:"sessions"`
	SessionsOpen int `json:"sessions_open"`

	// Interface, IP, RemoteIP and OpenedAt come from the last open session.
	Interface string     `json:"interface,omitempty"`
	IP        netip.Addr `json:"ip"`
	RemoteIP  netip.Addr `json:"remote_ip"`
	OpenedAt  time.Time  `json:"opened_at"`

	// LastIP and LastRemoteIP come from the last session processed, open or not.
	LastIP       netip.Addr `json:"last_ip"`
	LastRemoteIP netip.Addr `json:"last_remote_ip"`

	// LastSeen is the open timestamp of the last session processed. It
	// follows log order, not timestamp order.
	LastSeen time.Time `json:"last_seen"`
}

// IsOpen returns true if the user has at least one open session.
func (u *UserSummary) IsOpen() bool {
	return u.SessionsOpen > 0
}

// Provisional reports whether no open session supplied a remote address, in
// which case the addresses shown come from the last closed session.
func (u *UserSummary) Provisional() bool {
	return !u.RemoteIP.IsValid()
}

// HasOpenedAt reports whether an open session timestamp is known.
func (u *UserSummary) HasOpenedAt() bool {
	return !u.OpenedAt.IsZero()
}
