package stats

import (
	"context"
	"log/slog"
	"sort"

	"github.com/shini4i/pptpd-monitor/internal/session"
)

// InterfaceProbe returns the live byte counters of a network interface.
type InterfaceProbe interface {
	Counters(ctx context.Context, iface string) (tx, rx uint64, err error)
}

// Aggregate folds sessions, in order, into per-user summaries.
//
// Every open session overwrites the user's interface, addresses and open time
// and triggers one probe call for its interface. A failed probe yields zero
// counters. Totals and session counts accumulate over all sessions.
func Aggregate(ctx context.Context, sessions []session.Record, probe InterfaceProbe) map[string]*UserSummary {
	users := make(map[string]*UserSummary)

	for i := range sessions {
		s := &sessions[i]

		name := s.Username
		if name == "" {
			name = UnknownUser
		}
		user, ok := users[name]
		if !ok {
			user = &UserSummary{Username: name}
			users[name] = user
		}

		if s.Status.IsOpen() {
			user.Interface = s.Interface
			user.IP = s.IP
			user.RemoteIP = s.RemoteIP
			user.OpenedAt = s.OpenedAt
			user.CTX, user.CRX = probeCounters(ctx, probe, s.Interface)
			user.SessionsOpen++
		}

		user.LastIP = s.IP
		user.LastRemoteIP = s.RemoteIP
		user.LastSeen = s.OpenedAt
		user.TX += s.TX
		user.RX += s.RX
		user.Total += s.TX + s.RX
		user.Sessions++
	}

	return users
}

func probeCounters(ctx context.Context, probe InterfaceProbe, iface string) (tx, rx uint64) {
	if probe == nil {
		return 0, 0
	}
	tx, rx, err := probe.Counters(ctx, iface)
	if err != nil {
		slog.Debug("Failed to read interface counters", "interface", iface, "error", err)
		return 0, 0
	}
	return tx, rx
}

// Sorted returns the summaries ordered by username.
func Sorted(users map[string]*UserSummary) []*UserSummary {
	out := make([]*UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Username < out[j].Username
	})
	return out
}
