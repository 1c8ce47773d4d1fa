package app

import (
	"fmt"
	"os"

	"bfbridge/models"
	"bfbridge/models/config"

	"gopkg.in/yaml.v3"
)

// LoadConfigFile reads the optional YAML configuration.
func LoadConfigFile(path string) (config.Config, error) {
	var cfg config.Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config file: %w", err)
	}
	return cfg, nil
}

// ApplyConfig overlays the file values onto the defaults. Only fields
// present in the file override; flags are applied afterwards and win.
func ApplyConfig(base *models.BridgeConfig, cfg config.Config) {
	b := cfg.Bridge
	if b == nil {
		return
	}

	if b.Mode != nil {
		base.Mode = models.Mode(*b.Mode)
	}
	if b.LinkInterface != nil {
		base.LinkInterface = *b.LinkInterface
	}
	if b.HostV4 != nil {
		base.HostV4 = *b.HostV4
	}
	if b.PeerV4 != nil {
		base.PeerV4 = *b.PeerV4
	}
	if b.HostV6 != nil {
		base.HostV6 = *b.HostV6
	}
	if b.PeerV6 != nil {
		base.PeerV6 = *b.PeerV6
	}
	if b.RoutedV6 != nil {
		base.RoutedV6 = *b.RoutedV6
	}

	if b.SSH != nil {
		if b.SSH.User != nil {
			base.SSHUser = *b.SSH.User
		}
		if b.SSH.Host != nil {
			base.SSHHost = *b.SSH.Host
		}
		if b.SSH.KeyPath != nil {
			base.SSHKeyPath = *b.SSH.KeyPath
		}
	}

	if b.BFBPath != nil {
		base.BFBPath = *b.BFBPath
	}
	if b.InstallPackages != nil {
		base.InstallPackages = *b.InstallPackages
	}
	if b.LogLevel != nil {
		base.LogLevel = *b.LogLevel
	}
}
