// Package flash drives the optional firmware (BFB) installation over
// the local rshim channel. After a flash the peer reboots on its own;
// the caller is expected to re-run the bridge setup once it is back.
package flash

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"
)

const flashTool = "bfb-install"

var ErrToolNotFound = errors.New("bfb-install not found on PATH")

// Installed reports whether the flashing tool is available.
func Installed() bool {
	_, err := exec.LookPath(flashTool)
	return err == nil
}

// Flash pushes the firmware image to the peer via the given rshim
// channel. Blocks until the tool finishes; its output is streamed to
// stderr since a flash can take minutes and silence reads as a hang.
func Flash(ctx context.Context, imagePath, rshim string) error {
	if _, err := exec.LookPath(flashTool); err != nil {
		return ErrToolNotFound
	}
	if _, err := os.Stat(imagePath); err != nil {
		return fmt.Errorf("firmware image %s: %w", imagePath, err)
	}

	log.Info().Str("image", imagePath).Str("rshim", rshim).Msg("flashing firmware, peer will reboot")

	cmd := exec.CommandContext(ctx, flashTool, "--bfb", imagePath, "--rshim", rshim)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w", flashTool, err)
	}
	return nil
}
