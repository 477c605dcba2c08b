package emit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Marker is embedded in every generated file. Orphan cleanup and corruption
// detection use it to distinguish generator output from hand-written files.
const Marker = "Generated by routegen. DO NOT EDIT."

// MarkerComment is the marker as it appears in generated TypeScript modules.
const MarkerComment = "/* " + Marker + " */"

// IsGenerated reports whether file content carries the generator marker.
// JSON artifacts carry the marker in an x-generator field instead of a
// comment, so the check is on the marker text itself.
func IsGenerated(content []byte) bool {
	return bytes.Contains(content, []byte(Marker))
}

// Checksum returns the hex-encoded SHA-256 of content, recorded per artifact
// for corruption detection.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// SafeWrite writes content to path atomically: the bytes go to a temporary
// file in the destination directory which is then renamed into place, so a
// reader can never observe a partially written artifact. On failure the
// temporary file is removed.
func SafeWrite(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".routegen-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
