//go:build darwin

package credentials

import "os/exec"

// readKeychain fetches a generic password from the macOS keychain via the
// security tool.
func readKeychain(service, account string) (string, bool) {
	out, err := exec.Command("security", "find-generic-password", "-s", service, "-a", account, "-w").Output()
	if err != nil {
		return "", false
	}
	return trimOutput(out), true
}
