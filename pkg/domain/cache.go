package domain

import (
	"net/http"
	"time"
)

// CachedResponse is a stored copy of a same-origin GET response.
type CachedResponse struct {
	Key      string      `json:"key"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header,omitempty"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

// Generations names the cache partitions owned by one worker version.
type Generations struct {
	Static  string `json:"static"`
	Dynamic string `json:"dynamic"`
}

// GenerationsFor builds version-tagged names, e.g. "sefra-static-v1".
func GenerationsFor(prefix, version string) Generations {
	return Generations{
		Static:  prefix + "-static-" + version,
		Dynamic: prefix + "-dynamic-" + version,
	}
}

// Current reports whether name belongs to this version.
func (g Generations) Current(name string) bool {
	return name == g.Static || name == g.Dynamic
}
