package peer

import (
	"strings"
	"testing"

	"bfbridge/models"
)

func dualConfig() models.BridgeConfig {
	cfg := models.Default()
	cfg.Mode = models.ModeDual
	return cfg
}

func TestConfigScriptDualResolver(t *testing.T) {
	script, err := ConfigScript(dualConfig())
	if err != nil {
		t.Fatalf("ConfigScript: %v", err)
	}

	// Dual mode: exactly two nameserver lines, one per family,
	// matching the host's link addresses.
	if strings.Count(script, "nameserver ") != 2 {
		t.Fatalf("expected exactly two nameserver entries:\n%s", script)
	}
	if !strings.Contains(script, "nameserver 192.168.100.1") {
		t.Fatalf("missing IPv4 nameserver:\n%s", script)
	}
	if !strings.Contains(script, "nameserver fd00:bf3::1") {
		t.Fatalf("missing IPv6 nameserver:\n%s", script)
	}
	if !strings.Contains(script, "> /etc/resolv.conf") {
		t.Fatalf("resolver file must be overwritten:\n%s", script)
	}
}

func TestConfigScriptFamilyIsolation(t *testing.T) {
	cfg := models.Default()
	cfg.Mode = models.ModeIPv4

	script, err := ConfigScript(cfg)
	if err != nil {
		t.Fatalf("ConfigScript: %v", err)
	}
	if strings.Contains(script, "ip -6") || strings.Contains(script, "accept_ra") {
		t.Fatalf("ipv4 mode must not emit IPv6 commands:\n%s", script)
	}
	if strings.Count(script, "nameserver ") != 1 {
		t.Fatalf("ipv4 mode must emit one nameserver line:\n%s", script)
	}

	cfg.Mode = models.ModeIPv6
	script, err = ConfigScript(cfg)
	if err != nil {
		t.Fatalf("ConfigScript: %v", err)
	}
	if strings.Contains(script, "ip route replace default via 192.168.100.1") {
		t.Fatalf("ipv6 mode must not emit IPv4 route commands:\n%s", script)
	}
}

func TestConfigScriptSuppressesRA(t *testing.T) {
	cfg := models.Default()
	cfg.Mode = models.ModeIPv6

	script, err := ConfigScript(cfg)
	if err != nil {
		t.Fatalf("ConfigScript: %v", err)
	}

	raOff := strings.Index(script, "accept_ra")
	raDrain := strings.Index(script, "route del default proto ra")
	replace := strings.Index(script, "ip -6 route replace default via fd00:bf3::1")
	if raOff == -1 || raDrain == -1 || replace == -1 {
		t.Fatalf("missing RA suppression or explicit route:\n%s", script)
	}
	// RA routes must be gone before the explicit route is installed.
	if !(raOff < raDrain && raDrain < replace) {
		t.Fatalf("RA suppression must precede the route replace:\n%s", script)
	}
}

func TestConfigScriptRouteMetric(t *testing.T) {
	cfg := models.Default()
	cfg.Mode = models.ModeIPv4

	script, err := ConfigScript(cfg)
	if err != nil {
		t.Fatalf("ConfigScript: %v", err)
	}
	if !strings.Contains(script, "ip route replace default via 192.168.100.1 dev tmfifo_net0 metric 1000") {
		t.Fatalf("default route must be replaced at the fixed metric:\n%s", script)
	}
}

func TestConfigScriptRejectsUnsafeTokens(t *testing.T) {
	cfg := dualConfig()
	cfg.LinkInterface = "tmfifo_net0; rm -rf /"
	if _, err := ConfigScript(cfg); err == nil {
		t.Fatal("expected unsafe interface name to be rejected")
	}

	cfg = dualConfig()
	cfg.LinkInterface = "$(reboot)"
	if _, err := ValidationScript(cfg); err == nil {
		t.Fatal("expected unsafe interface name to be rejected")
	}
}

func TestValidationScriptBestEffort(t *testing.T) {
	script, err := ValidationScript(dualConfig())
	if err != nil {
		t.Fatalf("ValidationScript: %v", err)
	}
	if strings.Contains(script, "set -e") {
		t.Fatalf("validation probes must not abort on first failure:\n%s", script)
	}
	if !strings.Contains(script, "ping -4") || !strings.Contains(script, "ping -6") {
		t.Fatalf("dual mode must probe both families:\n%s", script)
	}
}

func TestValidationScriptFamilyIsolation(t *testing.T) {
	cfg := models.Default()
	cfg.Mode = models.ModeIPv6

	script, err := ValidationScript(cfg)
	if err != nil {
		t.Fatalf("ValidationScript: %v", err)
	}
	if strings.Contains(script, "ping -4") {
		t.Fatalf("ipv6 mode must not probe IPv4:\n%s", script)
	}
}
