package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"bfbridge/constant"
	"bfbridge/internal/app"
	"bfbridge/models"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type cliFlags struct {
	mode       string
	hostIf     string
	hostV4     string
	bfV4       string
	hostV6     string
	prefixV6   string
	bfV6       string
	bfSSHUser  string
	bfSSHHost  string
	sshKey     string
	bfb        string
	noInstall  bool
	dryRun     bool
	configPath string
	logLevel   string
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("bfbridge failed")
	}
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	cmd := &cobra.Command{
		Use:           "bfbridge",
		Short:         "Configure NAT and DNS forwarding between a host and its BlueField peer",
		Long:          "bfbridge brings up the point-to-point link to a BlueField SmartNIC, configures NAT and DNS forwarding on the host and configures the peer over SSH.",
		Version:       constant.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			setupLogging(cfg.LogLevel)

			log.Info().
				Str("version", constant.Version).
				Str("commit", constant.Commit).
				Str("mode", string(cfg.Mode)).
				Msg("starting bfbridge")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return app.New(cfg, flags.dryRun).Run(ctx)
		},
	}

	registerFlags(cmd, flags)
	cmd.AddCommand(newDownCmd())
	return cmd
}

func newDownCmd() *cobra.Command {
	flags := &cliFlags{}

	cmd := &cobra.Command{
		Use:           "down",
		Short:         "Remove the host-side bridge state (firewall chains, addresses, forwarder config)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			setupLogging(cfg.LogLevel)
			return app.New(cfg, false).Down()
		},
	}

	registerFlags(cmd, flags)
	return cmd
}

func registerFlags(cmd *cobra.Command, flags *cliFlags) {
	defaults := models.Default()

	cmd.Flags().StringVar(&flags.mode, "mode", string(defaults.Mode), "address families to bridge: ipv4, ipv6 or dual")
	cmd.Flags().StringVar(&flags.hostIf, "host-if", defaults.LinkInterface, "point-to-point link interface")
	cmd.Flags().StringVar(&flags.hostV4, "host-v4", defaults.HostV4, "host IPv4 address on the link (CIDR)")
	cmd.Flags().StringVar(&flags.bfV4, "bf-v4", defaults.PeerV4, "peer IPv4 address on the link (CIDR)")
	cmd.Flags().StringVar(&flags.hostV6, "host-v6", defaults.HostV6, "host IPv6 address on the link (CIDR)")
	cmd.Flags().StringVar(&flags.prefixV6, "prefix-v6", defaults.RoutedV6, "IPv6 prefix routed to the peer (CIDR)")
	cmd.Flags().StringVar(&flags.bfV6, "bf-v6", defaults.PeerV6, "peer IPv6 address on the link (CIDR)")
	cmd.Flags().StringVar(&flags.bfSSHUser, "bf-ssh-user", defaults.SSHUser, "SSH user on the peer")
	cmd.Flags().StringVar(&flags.bfSSHHost, "bf-ssh-host", "", "SSH host for the peer (defaults to the peer's link address)")
	cmd.Flags().StringVar(&flags.sshKey, "ssh-key", "", "private key for peer sessions (defaults to the invoking user's key)")
	cmd.Flags().StringVar(&flags.bfb, "bfb", "", "firmware image to flash before configuring the peer")
	cmd.Flags().BoolVar(&flags.noInstall, "no-install", false, "skip installing diagnostics packages on the peer")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print the plan without executing it")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "optional YAML configuration file")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", defaults.LogLevel, "log level")
}

// resolveConfig merges defaults, the optional config file and the
// explicitly set flags, in that order of precedence.
func resolveConfig(cmd *cobra.Command, flags *cliFlags) (models.BridgeConfig, error) {
	cfg := models.Default()

	if flags.configPath != "" {
		fileCfg, err := app.LoadConfigFile(flags.configPath)
		if err != nil {
			return cfg, err
		}
		app.ApplyConfig(&cfg, fileCfg)
	}

	set := cmd.Flags().Changed
	if set("mode") {
		cfg.Mode = models.Mode(flags.mode)
	}
	if set("host-if") {
		cfg.LinkInterface = flags.hostIf
	}
	if set("host-v4") {
		cfg.HostV4 = flags.hostV4
	}
	if set("bf-v4") {
		cfg.PeerV4 = flags.bfV4
	}
	if set("host-v6") {
		cfg.HostV6 = flags.hostV6
	}
	if set("prefix-v6") {
		cfg.RoutedV6 = flags.prefixV6
	}
	if set("bf-v6") {
		cfg.PeerV6 = flags.bfV6
	}
	if set("bf-ssh-user") {
		cfg.SSHUser = flags.bfSSHUser
	}
	if set("bf-ssh-host") {
		cfg.SSHHost = flags.bfSSHHost
	}
	if set("ssh-key") {
		cfg.SSHKeyPath = flags.sshKey
	}
	if set("bfb") {
		cfg.BFBPath = flags.bfb
	}
	if set("no-install") {
		cfg.InstallPackages = !flags.noInstall
	}
	if set("log-level") {
		cfg.LogLevel = flags.logLevel
	}

	return cfg, nil
}

func setupLogging(level string) {
	switch level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "disabled":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
