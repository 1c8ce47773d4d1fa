// Package dnsforward regenerates the dnsmasq drop-in that forwards
// the peer's DNS queries through the host. The file is fully
// rewritten on every change, never patched, so the step is naturally
// idempotent.
package dnsforward

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

const upstreamResolver = "127.0.0.1"

type Forwarder struct {
	ConfigPath    string
	Unit          string
	LinkInterface string
	ListenAddrs   []string
}

func New(configPath, unit, linkInterface string, listenAddrs []string) *Forwarder {
	return &Forwarder{
		ConfigPath:    configPath,
		Unit:          unit,
		LinkInterface: linkInterface,
		ListenAddrs:   listenAddrs,
	}
}

// Render produces the full drop-in content.
func (f *Forwarder) Render() string {
	var sb strings.Builder
	sb.WriteString("# Managed by bfbridge - do not edit manually\n")
	sb.WriteString("bind-interfaces\n")
	sb.WriteString(fmt.Sprintf("interface=%s\n", f.LinkInterface))
	for _, addr := range f.ListenAddrs {
		sb.WriteString(fmt.Sprintf("listen-address=%s\n", addr))
	}
	sb.WriteString("no-resolv\n")
	sb.WriteString(fmt.Sprintf("server=%s\n", upstreamResolver))
	return sb.String()
}

// Ensure writes the drop-in and restarts the unit when the on-disk
// content differs from the rendered one. A converged file with a
// stopped daemon still owes a restart: re-running the tool is the
// recovery mechanism.
func (f *Forwarder) Ensure() (bool, error) {
	content := f.Render()

	current, err := os.ReadFile(f.ConfigPath)
	if err == nil && string(current) == content {
		if f.Active() {
			return false, nil
		}
		if err := f.restart(); err != nil {
			return false, err
		}
		log.Info().Str("unit", f.Unit).Msg("DNS forwarder was stopped, restarted")
		return true, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to read %s: %w", f.ConfigPath, err)
	}

	if err := writeAtomic(f.ConfigPath, content); err != nil {
		return false, err
	}

	if err := f.restart(); err != nil {
		return true, err
	}

	log.Info().Str("unit", f.Unit).Str("config", f.ConfigPath).Msg("DNS forwarder reconfigured")
	return true, nil
}

func (f *Forwarder) restart() error {
	out, err := exec.Command("systemctl", "restart", f.Unit).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to restart %s: %w: %s", f.Unit, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Active reports whether the forwarder unit is running.
func (f *Forwarder) Active() bool {
	return exec.Command("systemctl", "is-active", "--quiet", f.Unit).Run() == nil
}

// Remove deletes the drop-in and restarts the unit so it stops
// listening on the link.
func (f *Forwarder) Remove() error {
	if err := os.Remove(f.ConfigPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to remove %s: %w", f.ConfigPath, err)
	}
	return f.restart()
}

func writeAtomic(path, content string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}
	return nil
}
