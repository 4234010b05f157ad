// Package acquisition captures campaign-tracking query parameters once per session.
package acquisition

import (
	"maps"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Keys are the recognized acquisition parameters, in capture order.
var Keys = []string{
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_term",
	"utm_content",
	"gclid",
	"fbclid",
}

// MaxValueLength bounds a captured value in bytes; longer values are
// truncated on a rune boundary.
const MaxValueLength = 256

// Params maps recognized parameter names to their values.
type Params map[string]string

// Extract picks the recognized keys out of a query string. Unknown keys and
// empty values are ignored.
func Extract(query url.Values) Params {
	out := make(Params)
	for _, key := range Keys {
		v := strings.TrimSpace(query.Get(key))
		if v == "" {
			continue
		}
		out[key] = truncate(v, MaxValueLength)
	}
	return out
}

// truncate cuts v to at most n bytes without splitting a rune.
func truncate(v string, n int) string {
	if len(v) <= n {
		return v
	}
	for n > 0 && !utf8.RuneStart(v[n]) {
		n--
	}
	return v[:n]
}

// ExtractURL parses raw as a URL (or bare query string) and extracts its parameters.
func ExtractURL(raw string) (Params, error) {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[i+1:]
	}
	query, err := url.ParseQuery(raw)
	if err != nil {
		return nil, err
	}
	return Extract(query), nil
}

// Capture returns the parameters to keep for a session. Parameters already
// stored win: they are read-only once captured. A first capture with no
// recognized keys stores nothing, so a later landing with UTMs can still fill it.
func Capture(stored, incoming Params) Params {
	if len(stored) > 0 {
		return maps.Clone(stored)
	}
	if len(incoming) == 0 {
		return nil
	}
	return maps.Clone(incoming)
}
