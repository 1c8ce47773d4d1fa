package netfilterHelper

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/coreos/go-iptables/iptables"
)

// NATFamily holds the per-family parameters of the bridge NAT: the
// egress interface carrying the host's default route and the link
// subnet masqueraded out of it.
type NATFamily struct {
	Egress string
	Subnet string
}

// BridgeNAT manages the forwarding accept rules and the masquerade
// rule between the point-to-point link and the host's egress
// interface. Every insertion is guarded by an existence check, so
// Ensure may be re-run without creating duplicates.
type BridgeNAT struct {
	locker sync.Mutex

	fwdChain string
	natChain string
	linkName string
	v4       *NATFamily
	v6       *NATFamily
	nh       *NetfilterHelper
}

func (nh *NetfilterHelper) BridgeNAT(name, linkName string, v4, v6 *NATFamily) *BridgeNAT {
	return &BridgeNAT{
		fwdChain: nh.ChainPrefix + name + "_FWD",
		natChain: nh.ChainPrefix + name + "_NAT",
		linkName: linkName,
		v4:       v4,
		v6:       v6,
		nh:       nh,
	}
}

func forwardRuleSpecs(link, egress string) [][]string {
	return [][]string{
		{"-i", link, "-o", egress, "-j", "ACCEPT"},
		{"-i", egress, "-o", link, "-m", "state", "--state", "RELATED,ESTABLISHED", "-j", "ACCEPT"},
	}
}

func masqueradeRuleSpec(subnet, egress string) []string {
	return []string{"-s", subnet, "-o", egress, "-j", "MASQUERADE"}
}

func ensureChain(ipt *iptables.IPTables, table, chain string) (bool, error) {
	err := ipt.NewChain(table, chain)
	if err != nil {
		// Exit status 1 means the chain already exists
		if eerr, eok := err.(*iptables.Error); eok && eerr.ExitStatus() == 1 {
			return false, nil
		}
		return false, fmt.Errorf("failed to create chain: %w", err)
	}
	return true, nil
}

func appendUnique(ipt *iptables.IPTables, table, chain string, rule ...string) (bool, error) {
	exists, err := ipt.Exists(table, chain, rule...)
	if err != nil {
		return false, fmt.Errorf("failed to check rule: %w", err)
	}
	if exists {
		return false, nil
	}
	if err := ipt.Append(table, chain, rule...); err != nil {
		return false, fmt.Errorf("failed to append rule: %w", err)
	}
	return true, nil
}

func insertUnique(ipt *iptables.IPTables, table, chain string, pos int, rule ...string) (bool, error) {
	exists, err := ipt.Exists(table, chain, rule...)
	if err != nil {
		return false, fmt.Errorf("failed to check rule: %w", err)
	}
	if exists {
		return false, nil
	}
	if err := ipt.Insert(table, chain, pos, rule...); err != nil {
		return false, fmt.Errorf("failed to insert rule: %w", err)
	}
	return true, nil
}

func (b *BridgeNAT) insertIPTablesRules(ipt *iptables.IPTables, fam *NATFamily) (bool, error) {
	if ipt == nil || fam == nil {
		return false, nil
	}
	changed := false

	c, err := ensureChain(ipt, "filter", b.fwdChain)
	if err != nil {
		return changed, err
	}
	changed = changed || c

	for _, rule := range forwardRuleSpecs(b.linkName, fam.Egress) {
		c, err = appendUnique(ipt, "filter", b.fwdChain, rule...)
		if err != nil {
			return changed, err
		}
		changed = changed || c
	}

	c, err = insertUnique(ipt, "filter", "FORWARD", 1, "-j", b.fwdChain)
	if err != nil {
		return changed, fmt.Errorf("failed to link chain to FORWARD: %w", err)
	}
	changed = changed || c

	c, err = ensureChain(ipt, "nat", b.natChain)
	if err != nil {
		return changed, err
	}
	changed = changed || c

	c, err = appendUnique(ipt, "nat", b.natChain, masqueradeRuleSpec(fam.Subnet, fam.Egress)...)
	if err != nil {
		return changed, err
	}
	changed = changed || c

	c, err = appendUnique(ipt, "nat", "POSTROUTING", "-j", b.natChain)
	if err != nil {
		return changed, fmt.Errorf("failed to link chain to POSTROUTING: %w", err)
	}
	changed = changed || c

	return changed, nil
}

func (b *BridgeNAT) deleteIPTablesRules(ipt *iptables.IPTables) error {
	if ipt == nil {
		return nil
	}
	var errs []error

	if err := ipt.DeleteIfExists("filter", "FORWARD", "-j", b.fwdChain); err != nil {
		errs = append(errs, fmt.Errorf("failed to unlink chain: %w", err))
	}
	if err := ipt.ClearAndDeleteChain("filter", b.fwdChain); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete chain: %w", err))
	}

	if err := ipt.DeleteIfExists("nat", "POSTROUTING", "-j", b.natChain); err != nil {
		errs = append(errs, fmt.Errorf("failed to unlink chain: %w", err))
	}
	if err := ipt.ClearAndDeleteChain("nat", b.natChain); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete chain: %w", err))
	}

	return errors.Join(errs...)
}

// Ensure installs the chains and rules for every active family.
// Returns whether anything was added.
func (b *BridgeNAT) Ensure() (bool, error) {
	b.locker.Lock()
	defer b.locker.Unlock()

	changed4, err := b.insertIPTablesRules(b.nh.IPTables4, b.v4)
	if err != nil {
		return changed4, err
	}

	changed6, err := b.insertIPTablesRules(b.nh.IPTables6, b.v6)
	if err != nil {
		return changed4 || changed6, err
	}

	return changed4 || changed6, nil
}

// Remove tears the chains down. Best effort: a missing chain is not
// an error worth aborting over, all failures are joined and returned.
func (b *BridgeNAT) Remove() error {
	b.locker.Lock()
	defer b.locker.Unlock()

	var errs []error
	errs = append(errs, b.deleteIPTablesRules(b.nh.IPTables4))
	errs = append(errs, b.deleteIPTablesRules(b.nh.IPTables6))
	return errors.Join(errs...)
}

// Counters returns the rule listings with packet/byte counters for the
// bridge chains, one block per active family.
func (b *BridgeNAT) Counters() (string, error) {
	b.locker.Lock()
	defer b.locker.Unlock()

	var sb strings.Builder
	for _, ipt := range []*iptables.IPTables{b.nh.IPTables4, b.nh.IPTables6} {
		if ipt == nil {
			continue
		}
		for _, tc := range []struct{ table, chain string }{
			{"filter", b.fwdChain},
			{"nat", b.natChain},
		} {
			rules, err := ipt.ListWithCounters(tc.table, tc.chain)
			if err != nil {
				return sb.String(), fmt.Errorf("failed to list %s/%s: %w", tc.table, tc.chain, err)
			}
			for _, rule := range rules {
				sb.WriteString(rule)
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String(), nil
}
