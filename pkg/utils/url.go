package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeURL makes a stored URL fetchable: values without a scheme get
// http:// prepended. Surrounding whitespace is dropped. A "://" only counts
// as a scheme separator when nothing of the path, query or fragment comes
// before it.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	switch {
	case u == "":
		return u
	case hasScheme(u):
		return u
	case strings.HasPrefix(u, "//"):
		return "http:" + u
	default:
		return "http://" + u
	}
}

func hasScheme(u string) bool {
	i := strings.Index(u, "://")
	return i > 0 && !strings.ContainsAny(u[:i], "/?#")
}

// HashURL creates a SHA256 hash of a URL string, used as a compact key for
// per-URL run statistics.
func HashURL(rawURL string) string {
	h := sha256.New()
	h.Write([]byte(rawURL))
	return hex.EncodeToString(h.Sum(nil))
}
