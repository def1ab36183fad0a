// Package integrity records where installed binaries came from and verifies
// them against their SHA-256 checksums.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// State is the outcome of comparing a file against its recorded checksum.
type State string

const (
	// StateVerified means the file matches the recorded checksum.
	StateVerified State = "verified"
	// StateModified means the file differs from the recorded checksum.
	StateModified State = "modified"
	// StateUnrecorded means no checksum was recorded for the file.
	StateUnrecorded State = "unrecorded"
	// StateMissing means the file does not exist.
	StateMissing State = "missing"
)

// CheckResult holds the outcome of a file integrity check.
type CheckResult struct {
	// Path is the filesystem path that was verified.
	Path string
	// Expected is the hex-encoded SHA-256 checksum that was expected.
	Expected string
	// Actual is the hex-encoded SHA-256 checksum that was computed.
	Actual string
	// State summarises the comparison.
	State State
	// Source and Installed come from the install record, when there is one.
	Source    string
	Installed time.Time
}

// HashFile computes the SHA-256 checksum of the file at path using streaming I/O.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("integrity: open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("integrity: hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyFile hashes path and compares it against expected. An empty expected
// checksum yields StateUnrecorded with Actual filled in.
func VerifyFile(path, expected string) (CheckResult, error) {
	actual, err := HashFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return CheckResult{Path: path, Expected: expected, State: StateMissing}, nil
	}
	if err != nil {
		return CheckResult{}, err
	}

	res := CheckResult{
		Path:     path,
		Expected: expected,
		Actual:   actual,
	}
	switch {
	case expected == "":
		res.State = StateUnrecorded
	case actual == expected:
		res.State = StateVerified
	default:
		res.State = StateModified
	}
	return res, nil
}
