package app

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"bfbridge/hostnet"

	"golang.org/x/sys/unix"
)

// validate runs every precondition check before any mutation: config
// sanity, privileges, key presence, default-route discovery for the
// families the mode requires. A failure here guarantees the system
// was not touched.
func (a *App) validate() error {
	if err := a.config.Validate(); err != nil {
		return err
	}

	if unix.Geteuid() != 0 {
		return fmt.Errorf("%w (re-run under sudo)", ErrNotRoot)
	}

	keyPath, err := resolveKeyPath(a.config.SSHKeyPath)
	if err != nil {
		return err
	}
	a.keyPath = keyPath

	if a.config.Mode.WantV4() {
		a.egress4, err = hostnet.DefaultRouteInterface(hostnet.FamilyV4)
		if err != nil {
			return err
		}
	}
	if a.config.Mode.WantV6() {
		a.egress6, err = hostnet.DefaultRouteInterface(hostnet.FamilyV6)
		if err != nil {
			return err
		}
	}

	return nil
}

// resolveKeyPath picks the private key used for all remote sessions.
// An explicit path wins; otherwise the key is looked up under the
// invoking user's profile (SUDO_USER when running under sudo, since
// euid 0 is required and root's own keys are not the ones enrolled on
// the peer).
func resolveKeyPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("%w: %s", ErrKeyNotFound, explicit)
		}
		return explicit, nil
	}

	home, err := invokingUserHome()
	if err != nil {
		return "", err
	}

	candidates := []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_rsa"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: looked for %s (use --ssh-key)", ErrKeyNotFound, candidates)
}

func invokingUserHome() (string, error) {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		u, err := user.Lookup(sudoUser)
		if err != nil {
			return "", fmt.Errorf("failed to look up SUDO_USER %q: %w", sudoUser, err)
		}
		return u.HomeDir, nil
	}
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to resolve current user: %w", err)
	}
	return u.HomeDir, nil
}
