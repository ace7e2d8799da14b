package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// sysfsNetPath is the base path for network interface statistics.
const sysfsNetPath = "/sys/class/net"

// SysfsProbe reads tx_bytes and rx_bytes from sysfs.
type SysfsProbe struct {
	root string
}

// NewSysfsProbe creates a probe reading from /sys/class/net.
func NewSysfsProbe() *SysfsProbe {
	return &SysfsProbe{root: sysfsNetPath}
}

// Counters returns the cumulative byte counters for iface.
func (p *SysfsProbe) Counters(_ context.Context, iface string) (tx, rx uint64, err error) {
	if err := validateInterface(iface); err != nil {
		return 0, 0, err
	}
	statsDir := filepath.Join(p.root, iface, "statistics")

	tx, err = p.readStatFile(filepath.Join(statsDir, "tx_bytes"))
	if err != nil {
		return 0, 0, err
	}

	rx, err = p.readStatFile(filepath.Join(statsDir, "rx_bytes"))
	if err != nil {
		return 0, 0, err
	}

	return tx, rx, nil
}

// readStatFile reads a single stat file and parses it as uint64.
// The path is validated to ensure it's within the probe's root.
func (p *SysfsProbe) readStatFile(path string) (uint64, error) {
	cleanPath := filepath.Clean(path)
	if !strings.HasPrefix(cleanPath, filepath.Clean(p.root)+string(filepath.Separator)) {
		return 0, errors.New("invalid stats path: outside sysfs network directory")
	}

	data, err := os.ReadFile(cleanPath) // #nosec G304 -- path validated above
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
}
