package hub

import (
	"slices"
	"strings"
)

// AllowedOrigin reports whether a page at origin may use the local api.
// Packaged renderers load from file://. No origin at all means the caller
// isn't a browser page. "null" is also sent by sandboxed iframes on any site,
// so it only passes when listed in allowed.
func AllowedOrigin(origin string, allowed []string) bool {
	if origin == "" || origin == "file://" {
		return true
	}
	return slices.Contains(allowed, strings.TrimSuffix(origin, "/"))
}
