package app

import (
	"errors"
	"fmt"

	"bfbridge/hostnet"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// Down removes the host-side bridge state: firewall chains, link
// addresses and the DNS forwarder drop-in. Best effort and
// convergent, the peer is left untouched.
func (a *App) Down() error {
	if err := a.config.Validate(); err != nil {
		return err
	}
	if unix.Geteuid() != 0 {
		return fmt.Errorf("%w (re-run under sudo)", ErrNotRoot)
	}
	if err := a.init(); err != nil {
		return err
	}

	var errs []error

	if err := a.bridgeNAT.Remove(); err != nil {
		errs = append(errs, fmt.Errorf("firewall teardown: %w", err))
	}

	if a.config.Mode.WantV4() {
		if err := hostnet.RemoveAddr(a.config.LinkInterface, a.config.HostV4); err != nil {
			errs = append(errs, fmt.Errorf("remove host-v4: %w", err))
		}
	}
	if a.config.Mode.WantV6() {
		if err := hostnet.RemoveAddr(a.config.LinkInterface, a.config.HostV6); err != nil {
			errs = append(errs, fmt.Errorf("remove host-v6: %w", err))
		}
	}

	if err := a.forwarder.Remove(); err != nil {
		errs = append(errs, fmt.Errorf("dns forwarder teardown: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	log.Info().Msg("bridge state removed")
	return nil
}
