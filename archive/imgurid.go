package archive

import (
	"regexp"
	"strings"

	"github.com/tidwall/match"
)

// Imgur IDs are 5-7 alphanumeric characters, optionally behind an
// album, gallery, or tag path segment. The trailing group rejects
// overlong IDs instead of silently truncating them.
var idPattern = regexp.MustCompile(`(?:i\.)?imgur\.(?:com|io)/(?:a/|gallery/|t/[^/]+/)?([a-zA-Z0-9]{5,7})(?:[^a-zA-Z0-9]|$)`)

var hostPatterns = []string{
	"imgur.com/*",
	"i.imgur.com/*",
	"m.imgur.com/*",
	"imgur.io/*",
	"i.imgur.io/*",
}

// Supported reports whether url looks like an imgur link at all. It is
// a cheap wildcard pre-filter; ExtractID is authoritative.
func Supported(url string) bool {
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimPrefix(url, "www.")
	for _, p := range hostPatterns {
		if match.Match(url, p) {
			return true
		}
	}
	return false
}

// ExtractID pulls the canonical short ID out of a source URL. A URL
// with no extractable ID yields ok=false; that is a normal outcome for
// malformed input, never an error.
func ExtractID(sourceURL string) (id string, ok bool) {
	m := idPattern.FindStringSubmatch(sourceURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}
