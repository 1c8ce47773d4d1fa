package app

import (
	"context"
	"fmt"

	"bfbridge/constant"
	"bfbridge/dnsforward"
	"bfbridge/flash"
	"bfbridge/hostnet"
	netfilterHelper "bfbridge/netfilter-helper"
	"bfbridge/peer"
	"bfbridge/remote"

	"github.com/rs/zerolog/log"
)

// Run executes the single forward pass:
// Validate -> ConfigureHost -> [FlashFirmware] -> ProbeReachability ->
// ConfigurePeer -> Validate -> Report.
// Everything through the peer configuration is fatal on error; the
// closing validation probes are best-effort.
func (a *App) Run(ctx context.Context) error {
	if err := a.validate(); err != nil {
		return err
	}

	hostPlan := a.buildHostPlan()
	peerPlan := a.buildPeerPlan()

	if a.dryRun {
		for _, name := range hostPlan.Names() {
			log.Info().Str("step", name).Msg("dry-run")
		}
		if a.config.BFBPath != "" {
			log.Info().Str("step", "flash-firmware").Msg("dry-run")
		}
		for _, name := range peerPlan.Names() {
			log.Info().Str("step", name).Msg("dry-run")
		}
		return nil
	}

	if err := a.init(); err != nil {
		return err
	}

	if err := hostPlan.Execute(ctx); err != nil {
		return err
	}

	if a.config.BFBPath != "" {
		if err := flash.Flash(ctx, a.config.BFBPath, constant.RshimChannel); err != nil {
			return fmt.Errorf("step flash-firmware: %w", err)
		}
		// The peer reboots after a flash. No automatic re-probe:
		// re-running the tool once the peer is back finishes the job.
		log.Info().Msg("firmware flashed, peer is rebooting; re-run bfbridge once it is reachable")
		return nil
	}

	if err := peerPlan.Execute(ctx); err != nil {
		return err
	}

	a.report(ctx)
	return nil
}

func (a *App) init() error {
	a.executor = remote.NewExecutor(a.config.SSHUser, a.config.PeerSSHHost(), a.keyPath)

	nfh, err := netfilterHelper.New(chainPrefix, a.config.Mode.WantV4(), a.config.Mode.WantV6())
	if err != nil {
		return fmt.Errorf("netfilter helper init fail: %w", err)
	}
	a.nfHelper = nfh

	var v4, v6 *netfilterHelper.NATFamily
	if a.config.Mode.WantV4() {
		v4 = &netfilterHelper.NATFamily{Egress: a.egress4, Subnet: a.config.SubnetV4()}
	}
	if a.config.Mode.WantV6() {
		v6 = &netfilterHelper.NATFamily{Egress: a.egress6, Subnet: a.config.SubnetV6()}
	}
	a.bridgeNAT = nfh.BridgeNAT("BRIDGE", a.config.LinkInterface, v4, v6)

	a.forwarder = dnsforward.New(
		constant.DNSForwarderConfigPath,
		constant.DNSForwarderUnit,
		a.config.LinkInterface,
		a.listenAddrs(),
	)

	return nil
}

func (a *App) listenAddrs() []string {
	var addrs []string
	if a.config.Mode.WantV4() {
		addrs = append(addrs, a.config.HostV4IP())
	}
	if a.config.Mode.WantV6() {
		addrs = append(addrs, a.config.HostV6IP())
	}
	return addrs
}

func (a *App) buildHostPlan() *Plan {
	plan := &Plan{}

	plan.Add("link-up", func(ctx context.Context) (bool, error) {
		return hostnet.EnsureLinkUp(a.config.LinkInterface)
	})

	if a.config.Mode.WantV4() {
		plan.Add("host-address-ipv4", func(ctx context.Context) (bool, error) {
			return hostnet.EnsureAddr(a.config.LinkInterface, a.config.HostV4)
		})
		plan.Add("forwarding-ipv4", func(ctx context.Context) (bool, error) {
			return hostnet.EnsureForwarding(hostnet.FamilyV4, a.config.LinkInterface, a.egress4)
		})
	}
	if a.config.Mode.WantV6() {
		plan.Add("host-address-ipv6", func(ctx context.Context) (bool, error) {
			return hostnet.EnsureAddr(a.config.LinkInterface, a.config.HostV6)
		})
		plan.Add("forwarding-ipv6", func(ctx context.Context) (bool, error) {
			return hostnet.EnsureForwarding(hostnet.FamilyV6, a.config.LinkInterface, a.egress6)
		})
	}

	plan.Add("firewall", func(ctx context.Context) (bool, error) {
		return a.bridgeNAT.Ensure()
	})

	plan.Add("dns-forwarder", func(ctx context.Context) (bool, error) {
		return a.forwarder.Ensure()
	})

	return plan
}

func (a *App) buildPeerPlan() *Plan {
	plan := &Plan{}

	plan.Add("preflight-ssh", func(ctx context.Context) (bool, error) {
		if err := a.executor.Probe(ctx); err != nil {
			return false, fmt.Errorf("%w: %v (enroll the key with: ssh-copy-id -i %s.pub %s@%s)",
				ErrPreflightSSH, err, a.keyPath, a.config.SSHUser, a.config.PeerSSHHost())
		}
		return false, nil
	})

	if a.config.InstallPackages {
		plan.Add("peer-packages", func(ctx context.Context) (bool, error) {
			out, err := a.executor.RunScript(ctx, "sudo sh -s", peer.PackageInstallScript())
			if err != nil {
				return false, fmt.Errorf("package install failed: %w: %s", err, out)
			}
			return true, nil
		})
	}

	plan.Add("peer-config", func(ctx context.Context) (bool, error) {
		script, err := peer.ConfigScript(a.config)
		if err != nil {
			return false, err
		}
		out, err := a.executor.RunScript(ctx, "sudo sh -s", script)
		if err != nil {
			return false, fmt.Errorf("peer configuration failed: %w: %s", err, out)
		}
		log.Debug().Str("output", string(out)).Msg("peer configured")
		return true, nil
	})

	return plan
}
