package offline

import (
	"net/http"
	"strings"
)

// DefaultPrefix and DefaultVersion name the cache generations,
// e.g. "sefra-static-v1".
const (
	DefaultPrefix  = "sefra"
	DefaultVersion = "v1"
)

// FallbackPath is served for navigation requests when the network is down.
const FallbackPath = "/index.html"

// DefaultManifest lists the assets precached on install.
var DefaultManifest = []string{
	"/",
	"/index.html",
	"/styles.css",
	"/script.js",
	"/analytics.js",
	"/assets/hero-home.webp",
	"/assets/logo-sefra.svg",
}

// IsNavigation reports whether req loads a document rather than a subresource.
func IsNavigation(req *http.Request) bool {
	if mode := req.Header.Get("Sec-Fetch-Mode"); mode != "" {
		return mode == "navigate"
	}
	return req.Method == http.MethodGet && strings.Contains(req.Header.Get("Accept"), "text/html")
}

// cacheKey identifies a same-origin request inside a generation.
func cacheKey(req *http.Request) string {
	return req.URL.RequestURI()
}
