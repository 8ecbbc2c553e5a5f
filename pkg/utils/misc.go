package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
)

// HashContent returns the hex encoded sha256 digest of data
func HashContent(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// GetHostname returns the machine hostname or "unknown"
func GetHostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "unknown"
	}
	return name
}
