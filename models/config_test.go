package models

import (
	"errors"
	"testing"
)

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"ipv4", "ipv6", "dual"} {
		if _, err := ParseMode(valid); err != nil {
			t.Fatalf("ParseMode(%q): %v", valid, err)
		}
	}

	for _, invalid := range []string{"", "IPv4", "both", "v6"} {
		_, err := ParseMode(invalid)
		if !errors.Is(err, ErrInvalidMode) {
			t.Fatalf("ParseMode(%q): expected ErrInvalidMode, got %v", invalid, err)
		}
	}
}

func TestModeFamilies(t *testing.T) {
	if !ModeIPv4.WantV4() || ModeIPv4.WantV6() {
		t.Fatal("ipv4 mode must want exactly IPv4")
	}
	if ModeIPv6.WantV4() || !ModeIPv6.WantV6() {
		t.Fatal("ipv6 mode must want exactly IPv6")
	}
	if !ModeDual.WantV4() || !ModeDual.WantV6() {
		t.Fatal("dual mode must want both families")
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	for _, mode := range []Mode{ModeIPv4, ModeIPv6, ModeDual} {
		cfg := Default()
		cfg.Mode = mode
		if err := cfg.Validate(); err != nil {
			t.Fatalf("default config in mode %s must validate: %v", mode, err)
		}
	}
}

func TestValidateFamilyGating(t *testing.T) {
	// A broken IPv6 address must not matter in ipv4 mode.
	cfg := Default()
	cfg.Mode = ModeIPv4
	cfg.HostV6 = "not-an-address"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("ipv4 mode must ignore IPv6 fields: %v", err)
	}

	// And vice versa.
	cfg = Default()
	cfg.Mode = ModeIPv6
	cfg.HostV4 = "not-an-address"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("ipv6 mode must ignore IPv4 fields: %v", err)
	}

	// But the active family is checked.
	cfg = Default()
	cfg.Mode = ModeIPv4
	cfg.HostV4 = "not-an-address"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestValidateRejectsWrongFamily(t *testing.T) {
	cfg := Default()
	cfg.Mode = ModeIPv4
	cfg.HostV4 = "fd00:bf3::1/64"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("IPv6 address in an IPv4 field must be rejected, got %v", err)
	}

	cfg = Default()
	cfg.Mode = ModeIPv6
	cfg.HostV6 = "192.168.100.1/24"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("IPv4 address in an IPv6 field must be rejected, got %v", err)
	}
}

func TestValidateMissingFields(t *testing.T) {
	cfg := Default()
	cfg.LinkInterface = ""
	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("empty link interface: expected ErrInvalidConfig, got %v", err)
	}
	if errors.Is(err, ErrInvalidAddress) {
		t.Fatal("empty link interface is not an address problem")
	}

	cfg = Default()
	cfg.SSHUser = ""
	err = cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("empty ssh user: expected ErrInvalidConfig, got %v", err)
	}
	if errors.Is(err, ErrInvalidAddress) {
		t.Fatal("empty ssh user is not an address problem")
	}
}

func TestPeerSSHHost(t *testing.T) {
	cfg := Default()
	cfg.Mode = ModeIPv6
	if got := cfg.PeerSSHHost(); got != "fd00:bf3::2" {
		t.Fatalf("ipv6 mode should target the peer's v6 address, got %s", got)
	}

	cfg.Mode = ModeDual
	if got := cfg.PeerSSHHost(); got != "192.168.100.2" {
		t.Fatalf("dual mode should prefer the peer's v4 address, got %s", got)
	}

	cfg.SSHHost = "10.10.0.5"
	if got := cfg.PeerSSHHost(); got != "10.10.0.5" {
		t.Fatalf("explicit ssh host must win, got %s", got)
	}
}

func TestSubnets(t *testing.T) {
	cfg := Default()
	if got := cfg.SubnetV4(); got != "192.168.100.0/24" {
		t.Fatalf("unexpected IPv4 subnet %s", got)
	}
	if got := cfg.SubnetV6(); got != "fd00:bf3::/64" {
		t.Fatalf("unexpected IPv6 subnet %s", got)
	}
}

func TestAddressAccessors(t *testing.T) {
	cfg := Default()
	if cfg.HostV4IP() != "192.168.100.1" || cfg.PeerV4IP() != "192.168.100.2" {
		t.Fatalf("unexpected v4 addresses: %s / %s", cfg.HostV4IP(), cfg.PeerV4IP())
	}
	if cfg.HostV6IP() != "fd00:bf3::1" || cfg.PeerV6IP() != "fd00:bf3::2" {
		t.Fatalf("unexpected v6 addresses: %s / %s", cfg.HostV6IP(), cfg.PeerV6IP())
	}
}
