// Package peer builds the shell programs pushed to the SmartNIC over
// the remote executor. The programs are fixed templates; the only
// variable parts are addresses and interface names, each checked
// against a safe token alphabet before interpolation.
package peer

import (
	"fmt"
	"regexp"
	"strings"

	"bfbridge/models"
)

const defaultRouteMetric = 1000

// Well-known probe targets. The hostname doubles as the resolver
// sanity check because it is served by the vendor's infrastructure
// the peer talks to anyway.
const (
	ProbeHostname = "linux.mellanox.com"
	probeAddrV4   = "8.8.8.8"
	probeAddrV6   = "2001:4860:4860::8888"
)

var safeToken = regexp.MustCompile(`^[0-9A-Za-z_.:/-]+$`)

func checkTokens(tokens ...string) error {
	for _, tok := range tokens {
		if tok == "" || !safeToken.MatchString(tok) {
			return fmt.Errorf("unsafe token %q in remote script parameters", tok)
		}
	}
	return nil
}

// ConfigScript renders the peer-side configuration program: link up,
// guarded address assignment, explicit default routes (displacing any
// RA-learned ones for IPv6) and the resolver file overwrite. The
// whole block is convergent, so re-running it is harmless.
func ConfigScript(cfg models.BridgeConfig) (string, error) {
	if err := checkTokens(cfg.LinkInterface); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("set -e\n")
	sb.WriteString(fmt.Sprintf("ip link set dev %s up\n", cfg.LinkInterface))

	var nameservers []string

	if cfg.Mode.WantV4() {
		if err := checkTokens(cfg.PeerV4, cfg.HostV4IP()); err != nil {
			return "", err
		}
		sb.WriteString(fmt.Sprintf("ip -4 addr show dev %s | grep -qw %s || ip addr add %s dev %s\n",
			cfg.LinkInterface, cfg.PeerV4, cfg.PeerV4, cfg.LinkInterface))
		sb.WriteString(fmt.Sprintf("ip route replace default via %s dev %s metric %d\n",
			cfg.HostV4IP(), cfg.LinkInterface, defaultRouteMetric))
		nameservers = append(nameservers, cfg.HostV4IP())
	}

	if cfg.Mode.WantV6() {
		if err := checkTokens(cfg.PeerV6, cfg.HostV6IP()); err != nil {
			return "", err
		}
		// An RA-learned default route would outrank the explicit one,
		// so RA acceptance is switched off and existing RA routes are
		// drained before the route replace.
		sb.WriteString(fmt.Sprintf("echo 0 > /proc/sys/net/ipv6/conf/%s/accept_ra\n", cfg.LinkInterface))
		sb.WriteString("while ip -6 route del default proto ra 2>/dev/null; do :; done\n")
		sb.WriteString(fmt.Sprintf("ip -6 addr show dev %s | grep -qw %s || ip -6 addr add %s dev %s\n",
			cfg.LinkInterface, cfg.PeerV6, cfg.PeerV6, cfg.LinkInterface))
		sb.WriteString(fmt.Sprintf("ip -6 route replace default via %s dev %s metric %d\n",
			cfg.HostV6IP(), cfg.LinkInterface, defaultRouteMetric))
		nameservers = append(nameservers, cfg.HostV6IP())
	}

	sb.WriteString("printf '")
	for _, ns := range nameservers {
		sb.WriteString(fmt.Sprintf("nameserver %s\\n", ns))
	}
	sb.WriteString("' > /etc/resolv.conf\n")

	sb.WriteString("echo '--- routes'\n")
	sb.WriteString("ip route show\n")
	if cfg.Mode.WantV6() {
		sb.WriteString("ip -6 route show\n")
	}
	sb.WriteString("echo '--- resolver'\n")
	sb.WriteString(fmt.Sprintf("getent hosts %s || true\n", ProbeHostname))

	return sb.String(), nil
}

// ValidationScript renders the post-configuration probes. No set -e:
// every probe runs regardless of earlier failures and marks its own
// result, since all of them are best-effort diagnostics.
func ValidationScript(cfg models.BridgeConfig) (string, error) {
	if err := checkTokens(cfg.LinkInterface); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("echo '--- link'\n")
	sb.WriteString(fmt.Sprintf("ip addr show dev %s\n", cfg.LinkInterface))
	sb.WriteString("echo '--- routes'\n")
	sb.WriteString("ip route show\n")
	if cfg.Mode.WantV6() {
		sb.WriteString("ip -6 route show\n")
	}

	if cfg.Mode.WantV4() {
		sb.WriteString(fmt.Sprintf("ping -4 -c 2 -W 3 %s || echo 'PROBE FAILED: ipv4 icmp'\n", probeAddrV4))
	}
	if cfg.Mode.WantV6() {
		sb.WriteString(fmt.Sprintf("ping -6 -c 2 -W 3 %s || echo 'PROBE FAILED: ipv6 icmp'\n", probeAddrV6))
	}

	sb.WriteString(fmt.Sprintf("getent hosts %s || echo 'PROBE FAILED: dns'\n", ProbeHostname))
	sb.WriteString(fmt.Sprintf("curl -sI -m 10 -o /dev/null http://%s && echo 'http ok' || echo 'PROBE FAILED: http'\n", ProbeHostname))

	return sb.String(), nil
}

// PackageInstallScript renders the diagnostics package installation
// run before validation. Skipped entirely with --no-install.
func PackageInstallScript() string {
	var sb strings.Builder
	sb.WriteString("export DEBIAN_FRONTEND=noninteractive\n")
	sb.WriteString("apt-get -qq update\n")
	sb.WriteString("apt-get -qq install -y iputils-ping curl dnsutils\n")
	return sb.String()
}
