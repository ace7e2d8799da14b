// Package probe reads cumulative byte counters of network interfaces.
package probe

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

const (
	// KindSysfs reads counters from /sys/class/net.
	KindSysfs = "sysfs"
	// KindIfconfig runs ifconfig and parses its output.
	KindIfconfig = "ifconfig"
)

var (
	// ErrInvalidInterface is returned for interface names that are not safe to use.
	ErrInvalidInterface = errors.New("invalid interface name")
	// ErrNoCounters is returned when no byte counters could be parsed.
	ErrNoCounters = errors.New("no byte counters found")
)

// Probe returns the transmitted and received byte counters of an interface.
type Probe interface {
	Counters(ctx context.Context, iface string) (tx, rx uint64, err error)
}

// Kinds lists the supported probe implementations.
func Kinds() []string {
	return []string{KindSysfs, KindIfconfig}
}

// New returns the probe implementation named by kind.
func New(kind string) (Probe, error) {
	switch kind {
	case "", KindSysfs:
		return NewSysfsProbe(), nil
	case KindIfconfig:
		return NewIfconfigProbe(NewExecRunner()), nil
	default:
		return nil, fmt.Errorf("unknown probe %q", kind)
	}
}

var interfaceNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// validateInterface rejects names that could escape sysfs or be taken as
// command line options.
func validateInterface(iface string) error {
	if iface == "" || iface == "." || iface == ".." || !interfaceNamePattern.MatchString(iface) || iface[0] == '-' {
		return fmt.Errorf("%w: %q", ErrInvalidInterface, iface)
	}
	return nil
}
