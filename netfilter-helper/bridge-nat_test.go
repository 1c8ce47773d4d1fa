package netfilterHelper

import (
	"strings"
	"testing"
)

func TestForwardRuleSpecs(t *testing.T) {
	rules := forwardRuleSpecs("tmfifo_net0", "eth0")
	if len(rules) != 2 {
		t.Fatalf("expected 2 forward rules, got %d", len(rules))
	}

	outbound := strings.Join(rules[0], " ")
	if outbound != "-i tmfifo_net0 -o eth0 -j ACCEPT" {
		t.Fatalf("unexpected outbound rule: %s", outbound)
	}

	inbound := strings.Join(rules[1], " ")
	if !strings.Contains(inbound, "--state RELATED,ESTABLISHED") {
		t.Fatalf("inbound rule must be stateful: %s", inbound)
	}
	if !strings.HasPrefix(inbound, "-i eth0 -o tmfifo_net0") {
		t.Fatalf("inbound rule has wrong interfaces: %s", inbound)
	}
}

func TestMasqueradeRuleSpec(t *testing.T) {
	rule := strings.Join(masqueradeRuleSpec("192.168.100.0/24", "eth0"), " ")
	if rule != "-s 192.168.100.0/24 -o eth0 -j MASQUERADE" {
		t.Fatalf("unexpected masquerade rule: %s", rule)
	}
}

func TestBridgeNATChainNames(t *testing.T) {
	nh := &NetfilterHelper{ChainPrefix: "BFB_"}
	b := nh.BridgeNAT("BRIDGE", "tmfifo_net0", &NATFamily{Egress: "eth0", Subnet: "192.168.100.0/24"}, nil)
	if b.fwdChain != "BFB_BRIDGE_FWD" {
		t.Fatalf("unexpected forward chain name: %s", b.fwdChain)
	}
	if b.natChain != "BFB_BRIDGE_NAT" {
		t.Fatalf("unexpected nat chain name: %s", b.natChain)
	}
}

func TestBridgeNATSkipsNilIPTables(t *testing.T) {
	nh := &NetfilterHelper{ChainPrefix: "BFB_"}
	b := nh.BridgeNAT("BRIDGE", "tmfifo_net0", &NATFamily{Egress: "eth0", Subnet: "192.168.100.0/24"}, nil)

	// No iptables handles configured: nothing to do, no error.
	changed, err := b.Ensure()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Fatal("nothing should have changed without iptables handles")
	}
	if err := b.Remove(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
