package probe

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
)

// CommandRunner runs an external command and returns its standard output.
type CommandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner implements CommandRunner using os/exec.
type ExecRunner struct{}

// NewExecRunner creates a new ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Output runs the command and waits for it. No timeout is applied beyond ctx.
func (r *ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	// #nosec G204 -- arguments are a validated interface name
	return exec.CommandContext(ctx, name, args...).Output()
}

// Regex patterns for ifconfig output.
var (
	// Matches: RX bytes:1234 (1.2 KB)  TX bytes:5678 (5.6 KB)
	classicCounters = regexp.MustCompile(`RX bytes:(\d+) .+  TX bytes:(\d+)`)

	// Matches: RX packets 12  bytes 1234 (1.2 KB)
	modernRX = regexp.MustCompile(`RX packets \d+\s+bytes (\d+)`)

	// Matches: TX packets 12  bytes 5678 (5.6 KB)
	modernTX = regexp.MustCompile(`TX packets \d+\s+bytes (\d+)`)
)

// IfconfigProbe reads interface counters from ifconfig output.
type IfconfigProbe struct {
	runner  CommandRunner
	command string
}

// NewIfconfigProbe creates a probe that runs ifconfig through runner.
func NewIfconfigProbe(runner CommandRunner) *IfconfigProbe {
	return &IfconfigProbe{runner: runner, command: "ifconfig"}
}

// Counters runs "ifconfig <iface>" and returns its byte counters.
func (p *IfconfigProbe) Counters(ctx context.Context, iface string) (tx, rx uint64, err error) {
	if err := validateInterface(iface); err != nil {
		return 0, 0, err
	}
	out, err := p.runner.Output(ctx, p.command, iface)
	if err != nil {
		return 0, 0, fmt.Errorf("%s %s: %w", p.command, iface, err)
	}
	return ParseIfconfig(out)
}

// ParseIfconfig extracts (tx, rx) byte counters from ifconfig output in
// either the classic net-tools layout or the newer one.
func ParseIfconfig(out []byte) (tx, rx uint64, err error) {
	if m := classicCounters.FindSubmatch(out); m != nil {
		return parseCounterPair(m[2], m[1])
	}

	rxMatch := modernRX.FindSubmatch(out)
	txMatch := modernTX.FindSubmatch(out)
	if rxMatch != nil && txMatch != nil {
		return parseCounterPair(txMatch[1], rxMatch[1])
	}

	return 0, 0, ErrNoCounters
}

func parseCounterPair(txRaw, rxRaw []byte) (tx, rx uint64, err error) {
	tx, err = strconv.ParseUint(string(txRaw), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrNoCounters, err)
	}
	rx, err = strconv.ParseUint(string(rxRaw), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrNoCounters, err)
	}
	return tx, rx, nil
}
