//go:build !darwin

package credentials

// readKeychain reports no credentials on platforms without a keychain.
func readKeychain(service, account string) (string, bool) {
	return "", false
}
