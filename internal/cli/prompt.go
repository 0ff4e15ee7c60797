package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// defaultConfirm returns the recovery confirmation hook. Recovery is only
// questioned when the process is unprivileged, passwordless sudo is
// unavailable and a human is attached; --yes and non-interactive runs
// proceed without asking.
func (a *App) defaultConfirm(yes bool) func() bool {
	return func() bool {
		if yes {
			return true
		}
		if a.Priv.IsRoot() || a.Priv.CanElevate(context.Background()) {
			return true
		}
		if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			return true
		}
		fmt.Fprint(os.Stderr, "not running as root and sudo is unavailable; most recovery actions will fail. Continue? [y/N] ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}
