package ens

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// UnknownAddress is the placeholder reporting tools use when an account is not known.
// It never resolves and never reaches the network.
const UnknownAddress = "unknown"

// NameSuffix is the canonical top-level domain appended to bare names.
const NameSuffix = ".eth"

// NormalizeAddress lowercases address and ensures the 0x prefix.
// It reports false for empty input and for UnknownAddress.
func NormalizeAddress(address string) (string, bool) {
	a := strings.ToLower(strings.TrimSpace(address))
	if a == "" || a == UnknownAddress {
		return "", false
	}
	if !strings.HasPrefix(a, "0x") {
		a = "0x" + a
	}
	return a, true
}

// ValidateAddress checks that addr is 20 bytes of hex, with or without the 0x prefix.
func ValidateAddress(addr string) error {
	addr = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(addr)), "0x")
	if len(addr) != 40 {
		return fmt.Errorf("invalid address length: expected 40 hex chars (with or without 0x prefix)")
	}
	if _, err := hex.DecodeString(addr); err != nil {
		return fmt.Errorf("invalid address: contains non-hex characters")
	}
	return nil
}

// LooksLikeAddress reports whether s is a hex address rather than a name.
func LooksLikeAddress(s string) bool {
	return ValidateAddress(s) == nil
}
