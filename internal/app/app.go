package app

import (
	"errors"

	"bfbridge/dnsforward"
	"bfbridge/models"
	netfilterHelper "bfbridge/netfilter-helper"
	"bfbridge/remote"
)

var (
	ErrNotRoot      = errors.New("root privileges required")
	ErrKeyNotFound  = errors.New("ssh private key not found")
	ErrPreflightSSH = errors.New("peer unreachable over ssh")
)

const chainPrefix = "BFB_"

// App drives one forward pass: validate, configure host, optionally
// flash, probe, configure peer, report. No retries, no rollback;
// every step is idempotent so the recovery mechanism is re-running
// the whole tool.
type App struct {
	config models.BridgeConfig
	dryRun bool

	// resolved during validation
	keyPath string
	egress4 string
	egress6 string

	nfHelper  *netfilterHelper.NetfilterHelper
	bridgeNAT *netfilterHelper.BridgeNAT
	forwarder *dnsforward.Forwarder
	executor  *remote.Executor
}

func New(cfg models.BridgeConfig, dryRun bool) *App {
	return &App{
		config: cfg,
		dryRun: dryRun,
	}
}
