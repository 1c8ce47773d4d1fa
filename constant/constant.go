package constant

// Set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

const (
	// DNSForwarderConfigPath is the dnsmasq drop-in regenerated on every run.
	DNSForwarderConfigPath = "/etc/dnsmasq.d/bfbridge.conf"
	// DNSForwarderUnit is the systemd unit restarted after regeneration.
	DNSForwarderUnit = "dnsmasq"

	// RshimChannel is the local flashing channel used by bfb-install.
	RshimChannel = "rshim0"
)
