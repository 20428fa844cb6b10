package validate

import (
	"errors"
	"strings"
)

const walletAddressLength = 42

var (
	ErrWalletRequired = errors.New("wallet address is required")
	ErrWalletPrefix   = errors.New("wallet address must start with 0x")
	ErrWalletLength   = errors.New("wallet address must be 42 characters long")
)

// WalletAddress normalizes and validates an EVM wallet address.
// Returns the trimmed, lowercased address on success.
func WalletAddress(address string) (string, error) {
	address = strings.ToLower(strings.TrimSpace(address))

	if address == "" {
		return "", ErrWalletRequired
	}

	if !strings.HasPrefix(address, "0x") {
		return "", ErrWalletPrefix
	}

	if len(address) != walletAddressLength {
		return "", ErrWalletLength
	}

	return address, nil
}
