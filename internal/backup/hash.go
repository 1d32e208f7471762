package backup

import (
	"crypto/md5" //nolint:gosec // change detection, not a security boundary
	"encoding/hex"
	"io"
	"os"
)

// chunkSize mirrors the original detector's read granularity: stream the
// file instead of loading it whole, so backing up large files doesn't spike
// memory.
const chunkSize = 4096

// hashFile returns the hex-encoded MD5 digest of path's contents, read in
// chunkSize chunks. MD5 is used purely as a fast, deterministic
// content-change signal; it is never treated as a security primitive here.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New() //nolint:gosec // change detection, not a security boundary
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
