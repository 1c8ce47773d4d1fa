package config

// Config is the optional on-disk configuration file. Every field is a
// pointer so that only explicitly set values override the defaults.
type Config struct {
	ConfigVersion string  `yaml:"configVersion"`
	Bridge        *Bridge `yaml:"bridge,omitempty"`
}

type Bridge struct {
	Mode          *string `yaml:"mode,omitempty"`
	LinkInterface *string `yaml:"linkInterface,omitempty"`
	HostV4        *string `yaml:"hostV4,omitempty"`
	PeerV4        *string `yaml:"bfV4,omitempty"`
	HostV6        *string `yaml:"hostV6,omitempty"`
	PeerV6        *string `yaml:"bfV6,omitempty"`
	RoutedV6      *string `yaml:"prefixV6,omitempty"`

	SSH *SSH `yaml:"ssh,omitempty"`

	BFBPath         *string `yaml:"bfbPath,omitempty"`
	InstallPackages *bool   `yaml:"installPackages,omitempty"`
	LogLevel        *string `yaml:"logLevel,omitempty"`
}

type SSH struct {
	User    *string `yaml:"user,omitempty"`
	Host    *string `yaml:"host,omitempty"`
	KeyPath *string `yaml:"keyPath,omitempty"`
}
