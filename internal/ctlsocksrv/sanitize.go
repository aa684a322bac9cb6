package ctlsocksrv

import (
	"path/filepath"
	"strings"
)

// SanitizePath canonicalizes a path received over the socket.
//  1. A "device:" prefix is kept and the rest is sanitized on its own.
//     A bare "device:" is returned unchanged
//  2. Leading slash(es) are dropped
//  3. It returns "" instead of "."
//  4. If the cleaned path points above the storage root (starts with ".."),
//     an empty string is returned
//
// See the TestSanitizePath testcases for examples.
func SanitizePath(path string) string {
	// (1)
	if i := strings.IndexByte(path, ':'); i > 0 && !strings.Contains(path[:i], "/") {
		dev, rest := path[:i+1], path[i+1:]
		if rest == "" {
			return dev
		}
		rest = SanitizePath(rest)
		if rest == "" {
			return ""
		}
		return dev + rest
	}
	// (2)
	path = strings.TrimLeft(path, "/")
	if len(path) == 0 {
		return ""
	}
	clean := filepath.Clean(path)
	// (3)
	if clean == "." {
		return ""
	}
	// (4)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return ""
	}
	return clean
}
