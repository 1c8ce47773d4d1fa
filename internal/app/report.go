package app

import (
	"context"
	"fmt"
	"net"
	"time"

	"bfbridge/peer"

	"github.com/miekg/dns"
	"github.com/rs/zerolog/log"
)

// report runs the closing diagnostics on both sides. Everything here
// is best-effort: the configuration already succeeded, so failures
// are logged individually and never abort the run.
func (a *App) report(ctx context.Context) {
	a.reportPeer(ctx)
	a.reportHost()
}

func (a *App) reportPeer(ctx context.Context) {
	script, err := peer.ValidationScript(a.config)
	if err != nil {
		log.Warn().Err(err).Msg("failed to build peer validation script")
		return
	}
	out, err := a.executor.RunScript(ctx, "sh -s", script)
	if err != nil {
		log.Warn().Err(err).Msg("peer validation probes failed")
	}
	if len(out) > 0 {
		log.Info().Msg("peer diagnostics:\n" + string(out))
	}
}

func (a *App) reportHost() {
	counters, err := a.bridgeNAT.Counters()
	if err != nil {
		log.Warn().Err(err).Msg("failed to read firewall counters")
	} else {
		log.Info().Msg("firewall rules:\n" + counters)
	}

	if a.forwarder.Active() {
		log.Info().Str("unit", a.forwarder.Unit).Msg("DNS forwarder is active")
	} else {
		log.Warn().Str("unit", a.forwarder.Unit).Msg("DNS forwarder is not active")
	}

	for _, addr := range a.listenAddrs() {
		if err := queryForwarder(addr); err != nil {
			log.Warn().Err(err).Str("forwarder", addr).Msg("DNS probe failed")
		} else {
			log.Info().Str("forwarder", addr).Str("name", peer.ProbeHostname).Msg("DNS probe ok")
		}
	}
}

// queryForwarder resolves the probe hostname directly against the
// forwarder address the peer will be using.
func queryForwarder(addr string) error {
	c := &dns.Client{Timeout: 5 * time.Second}
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(peer.ProbeHostname), dns.TypeA)

	in, _, err := c.Exchange(m, net.JoinHostPort(addr, "53"))
	if err != nil {
		return err
	}
	if in.Rcode != dns.RcodeSuccess {
		return fmt.Errorf("query returned %s", dns.RcodeToString[in.Rcode])
	}
	return nil
}
