// Package hostnet mutates the host side of the bridge: the link
// interface state, its addresses and the forwarding sysctls. All
// operations are idempotent (checked before applied) and report
// whether they changed anything.
package hostnet

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netlink/nl"
)

var ErrNoDefaultRoute = errors.New("no default route")

// FamilyV4 and FamilyV6 alias the netlink address families so callers
// don't import the nl package themselves.
const (
	FamilyV4 = nl.FAMILY_V4
	FamilyV6 = nl.FAMILY_V6
)

// EnsureLinkUp brings the named interface up if it is not already.
func EnsureLinkUp(name string) (bool, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return false, fmt.Errorf("failed to find link %s: %w", name, err)
	}
	if link.Attrs().Flags&net.FlagUp != 0 {
		return false, nil
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return false, fmt.Errorf("failed to bring %s up: %w", name, err)
	}
	return true, nil
}

// EnsureAddr assigns a CIDR address to the interface unless an equal
// address is already present.
func EnsureAddr(name, cidr string) (bool, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return false, fmt.Errorf("failed to find link %s: %w", name, err)
	}
	addr, err := netlink.ParseAddr(cidr)
	if err != nil {
		return false, fmt.Errorf("failed to parse address %s: %w", cidr, err)
	}
	existing, err := netlink.AddrList(link, nl.FAMILY_ALL)
	if err != nil {
		return false, fmt.Errorf("failed to list addresses of %s: %w", name, err)
	}
	for _, a := range existing {
		if a.Equal(*addr) {
			return false, nil
		}
	}
	if err := netlink.AddrAdd(link, addr); err != nil {
		return false, fmt.Errorf("failed to add %s to %s: %w", cidr, name, err)
	}
	return true, nil
}

// DefaultRouteInterface resolves the interface carrying the default
// route for the given family. Used both to pick the NAT egress
// interface and as the validate-before-mutate check: no default route
// for a required family aborts the run.
func DefaultRouteInterface(family int) (string, error) {
	routes, err := netlink.RouteList(nil, family)
	if err != nil {
		return "", fmt.Errorf("failed to list routes: %w", err)
	}
	idx, ok := defaultRouteLinkIndex(routes)
	if !ok {
		familyName := "IPv4"
		if family == nl.FAMILY_V6 {
			familyName = "IPv6"
		}
		return "", fmt.Errorf("%w for %s", ErrNoDefaultRoute, familyName)
	}
	link, err := netlink.LinkByIndex(idx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve link %d: %w", idx, err)
	}
	return link.Attrs().Name, nil
}

// defaultRouteLinkIndex picks the link index of the first default
// route. A multipath route has LinkIndex 0 on the route itself, so
// the first nexthop is taken instead.
func defaultRouteLinkIndex(routes []netlink.Route) (int, bool) {
	for _, route := range routes {
		if route.Dst != nil {
			if ones, _ := route.Dst.Mask.Size(); ones != 0 {
				continue
			}
		}
		if route.LinkIndex > 0 {
			return route.LinkIndex, true
		}
		for _, nh := range route.MultiPath {
			if nh.LinkIndex > 0 {
				return nh.LinkIndex, true
			}
		}
	}
	return 0, false
}

// forwardingSysctls returns the sysctl paths that must hold "1" for
// the family to be forwarded globally and on each given interface.
func forwardingSysctls(family int, ifaces ...string) []string {
	var paths []string
	if family == nl.FAMILY_V4 {
		paths = append(paths, "/proc/sys/net/ipv4/ip_forward")
		for _, iface := range ifaces {
			paths = append(paths, filepath.Join("/proc/sys/net/ipv4/conf", iface, "forwarding"))
		}
	} else {
		paths = append(paths, "/proc/sys/net/ipv6/conf/all/forwarding")
		for _, iface := range ifaces {
			paths = append(paths, filepath.Join("/proc/sys/net/ipv6/conf", iface, "forwarding"))
		}
	}
	return paths
}

// EnsureForwarding enables IP forwarding for the family, globally and
// on each of the given interfaces.
func EnsureForwarding(family int, ifaces ...string) (bool, error) {
	changed := false
	for _, path := range forwardingSysctls(family, ifaces...) {
		current, err := os.ReadFile(path)
		if err != nil {
			return changed, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if strings.TrimSpace(string(current)) == "1" {
			continue
		}
		if err := os.WriteFile(path, []byte("1"), 0644); err != nil {
			return changed, fmt.Errorf("failed to write %s: %w", path, err)
		}
		log.Debug().Str("sysctl", path).Msg("enabled forwarding")
		changed = true
	}
	return changed, nil
}

// RemoveAddr deletes a CIDR address from the interface if present.
func RemoveAddr(name, cidr string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("failed to find link %s: %w", name, err)
	}
	addr, err := netlink.ParseAddr(cidr)
	if err != nil {
		return fmt.Errorf("failed to parse address %s: %w", cidr, err)
	}
	existing, err := netlink.AddrList(link, nl.FAMILY_ALL)
	if err != nil {
		return fmt.Errorf("failed to list addresses of %s: %w", name, err)
	}
	for _, a := range existing {
		if a.Equal(*addr) {
			return netlink.AddrDel(link, addr)
		}
	}
	return nil
}
