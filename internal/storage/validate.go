package storage

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ValidateTokenAddress checks that an address is a well-formed hex address.
func ValidateTokenAddress(address string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid token address format: %s (must be 0x followed by 40 hexadecimal characters)", address)
	}
	return nil
}

// NormalizeAddress lowercases an address for storage and comparison.
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}
