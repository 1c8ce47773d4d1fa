package models

import (
	"errors"
	"fmt"
	"net"
)

var (
	ErrInvalidMode    = errors.New("invalid mode")
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidConfig  = errors.New("invalid config")
)

// Mode selects which address families the bridge carries.
type Mode string

const (
	ModeIPv4 Mode = "ipv4"
	ModeIPv6 Mode = "ipv6"
	ModeDual Mode = "dual"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeIPv4, ModeIPv6, ModeDual:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q (expected ipv4, ipv6 or dual)", ErrInvalidMode, s)
}

func (m Mode) WantV4() bool { return m == ModeIPv4 || m == ModeDual }
func (m Mode) WantV6() bool { return m == ModeIPv6 || m == ModeDual }

// BridgeConfig describes one host-to-peer bridge. Built once from
// defaults, config file and flags, then treated as immutable.
type BridgeConfig struct {
	Mode          Mode
	LinkInterface string

	// Addresses are CIDR notation, host and peer sides of the link.
	HostV4 string
	PeerV4 string
	HostV6 string
	PeerV6 string
	// RoutedV6 is the prefix routed towards the peer.
	RoutedV6 string

	SSHUser    string
	SSHHost    string
	SSHKeyPath string

	// BFBPath, when set, is a firmware image to flash before probing.
	BFBPath string

	InstallPackages bool

	LogLevel string
}

// Default returns the built-in configuration. The 192.168.100.0/24 and
// fd00:bf3::/64 networks match the stock BlueField tmfifo setup.
func Default() BridgeConfig {
	return BridgeConfig{
		Mode:            ModeIPv6,
		LinkInterface:   "tmfifo_net0",
		HostV4:          "192.168.100.1/24",
		PeerV4:          "192.168.100.2/24",
		HostV6:          "fd00:bf3::1/64",
		PeerV6:          "fd00:bf3::2/64",
		RoutedV6:        "fd00:bf3::/64",
		SSHUser:         "ubuntu",
		SSHHost:         "",
		InstallPackages: true,
		LogLevel:        "info",
	}
}

// Validate checks the fields required by the selected mode. It only
// inspects the config, never the system.
func (c *BridgeConfig) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.LinkInterface == "" {
		return fmt.Errorf("%w: link interface is empty", ErrInvalidConfig)
	}
	if c.Mode.WantV4() {
		for name, cidr := range map[string]string{"host-v4": c.HostV4, "bf-v4": c.PeerV4} {
			if _, err := parseCIDR(cidr, false); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	if c.Mode.WantV6() {
		for name, cidr := range map[string]string{"host-v6": c.HostV6, "bf-v6": c.PeerV6, "prefix-v6": c.RoutedV6} {
			if _, err := parseCIDR(cidr, true); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	if c.SSHUser == "" {
		return fmt.Errorf("%w: ssh user is empty", ErrInvalidConfig)
	}
	return nil
}

// PeerSSHHost returns the address used for remote sessions: the
// explicit SSH host if set, otherwise the peer's link address for the
// active mode (IPv4 preferred in dual mode).
func (c *BridgeConfig) PeerSSHHost() string {
	if c.SSHHost != "" {
		return c.SSHHost
	}
	if c.Mode.WantV4() {
		return c.PeerV4IP()
	}
	return c.PeerV6IP()
}

// HostV4IP returns the host's IPv4 link address without the prefix.
func (c *BridgeConfig) HostV4IP() string { return ipOf(c.HostV4) }

// PeerV4IP returns the peer's IPv4 link address without the prefix.
func (c *BridgeConfig) PeerV4IP() string { return ipOf(c.PeerV4) }

// HostV6IP returns the host's IPv6 link address without the prefix.
func (c *BridgeConfig) HostV6IP() string { return ipOf(c.HostV6) }

// PeerV6IP returns the peer's IPv6 link address without the prefix.
func (c *BridgeConfig) PeerV6IP() string { return ipOf(c.PeerV6) }

// SubnetV4 returns the IPv4 link network in CIDR notation.
func (c *BridgeConfig) SubnetV4() string { return networkOf(c.HostV4) }

// SubnetV6 returns the IPv6 prefix masqueraded on egress.
func (c *BridgeConfig) SubnetV6() string { return networkOf(c.RoutedV6) }

func ipOf(cidr string) string {
	ip, _, err := net.ParseCIDR(cidr)
	if err != nil {
		return ""
	}
	return ip.String()
}

func networkOf(cidr string) string {
	_, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return ""
	}
	return ipnet.String()
}

func parseCIDR(cidr string, v6 bool) (*net.IPNet, error) {
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, cidr)
	}
	if v6 && ip.To4() != nil {
		return nil, fmt.Errorf("%w: %q is not IPv6", ErrInvalidAddress, cidr)
	}
	if !v6 && ip.To4() == nil {
		return nil, fmt.Errorf("%w: %q is not IPv4", ErrInvalidAddress, cidr)
	}
	ipnet.IP = ip
	return ipnet, nil
}
