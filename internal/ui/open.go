package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openerCommand returns the desktop opener for goos
func openerCommand(goos string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler"}
	default:
		return "xdg-open", nil
	}
}

// OpenURL hands url to the desktop's default viewer. The viewer is
// started detached; the triage screen keeps running.
func OpenURL(url string) error {
	name, args := openerCommand(runtime.GOOS)
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%s not found: %w", name, err)
	}

	cmd := exec.Command(path, append(args, url)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch %s: %w", name, err)
	}

	// Reap the child in the background
	go cmd.Wait()
	return nil
}
