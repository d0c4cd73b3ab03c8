// Package health provides port and process inspection helpers for the
// serving lifecycle. It offers standardized ways to probe a port and to
// reclaim one from a process left behind by a dead session.
package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ProcessKiller forcibly terminates whatever OS-level process is bound to
// the given TCP port. Implementations must treat a free port as success.
type ProcessKiller func(ctx context.Context, port int) error

// NetworkCheck verifies TCP connectivity to a host and port.
// It uses the provided context for timeout and cancellation control.
func NetworkCheck(ctx context.Context, host string, port int) error {
	if host == "" {
		return errors.New("host cannot be empty")
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port number: %d", port)
	}

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))
	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	conn.Close()
	return nil
}

// PortInUse reports whether something on this machine is accepting
// connections on the given local port.
func PortInUse(port int) bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return NetworkCheck(ctx, "127.0.0.1", port) == nil
}

// KillProcessByPort terminates any process listening on the given TCP port.
// A port with no listener is not an error. Processes belonging to other
// users may survive; the caller treats this as best-effort.
func KillProcessByPort(ctx context.Context, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port number: %d", port)
	}

	if _, err := exec.LookPath("lsof"); err == nil {
		return killWithLsof(ctx, port)
	}
	if _, err := exec.LookPath("fuser"); err == nil {
		return killWithFuser(ctx, port)
	}
	return errors.New("cannot reclaim port: neither lsof nor fuser found in PATH")
}

func killWithLsof(ctx context.Context, port int) error {
	cmd := exec.CommandContext(ctx, "lsof", "-t", "-i", fmt.Sprintf("tcp:%d", port))
	output, err := cmd.Output()
	if err != nil {
		// lsof exits nonzero when nothing matches; the port is simply free.
		return nil
	}

	for _, pid := range parsePIDs(string(output)) {
		if killErr := syscall.Kill(pid, syscall.SIGKILL); killErr != nil && !errors.Is(killErr, syscall.ESRCH) {
			return fmt.Errorf("failed to kill pid %d on port %d: %w", pid, port, killErr)
		}
	}
	return nil
}

func killWithFuser(ctx context.Context, port int) error {
	cmd := exec.CommandContext(ctx, "fuser", "-k", "-KILL", fmt.Sprintf("%d/tcp", port))
	if err := cmd.Run(); err != nil {
		// fuser exits nonzero when the port has no owner.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return fmt.Errorf("fuser failed for port %d: %w", port, err)
	}
	return nil
}

// parsePIDs extracts process ids from line-separated tool output, skipping
// anything that does not parse.
func parsePIDs(output string) []int {
	var pids []int
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}
