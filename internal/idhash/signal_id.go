package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSignalID computes a deterministic signal_id using SHA256.
// Formula: SHA256(strategy|code|signal_date|signal_index)
// Returns hex-encoded hash (64 characters).
func ComputeSignalID(strategy, code, signalDate string, signalIndex int) string {
	data := fmt.Sprintf("%s|%s|%s|%d", strategy, code, signalDate, signalIndex)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
