package session

import (
	"net/url"
	"strings"
	"sync"
)

// CodeParam is the entry URL query parameter carrying a one-time code.
const CodeParam = "code"

// AddressBar is the visible address of the application. Replace swaps the
// address without reloading the page.
type AddressBar interface {
	URL() string
	Replace(rawURL string)
}

// Location is an in-memory AddressBar.
type Location struct {
	mu  sync.Mutex
	url string
}

// NewLocation returns a Location showing rawURL.
func NewLocation(rawURL string) *Location {
	return &Location{url: rawURL}
}

func (l *Location) URL() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.url
}

func (l *Location) Replace(rawURL string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.url = rawURL
}

// ExtractCode returns the one-time code in rawURL and the URL without it.
// The query is scanned segment by segment, so a segment that does not decode
// still counts: a code with a bad escape is returned raw and stripped all the
// same. Every other segment and the fragment are kept byte for byte. found is
// false when rawURL has no code parameter at all; an empty code is found but
// blank. With repeated code parameters the first one wins and all are removed.
func ExtractCode(rawURL string) (code, stripped string, found bool) {
	rest, fragment, hasFragment := strings.Cut(rawURL, "#")
	base, query, hasQuery := strings.Cut(rest, "?")
	if !hasQuery {
		return "", rawURL, false
	}

	var kept []string
	for _, segment := range strings.Split(query, "&") {
		if segment == "" {
			continue
		}
		key, value, _ := strings.Cut(segment, "=")
		if unescape(key) != CodeParam {
			kept = append(kept, segment)
			continue
		}
		if !found {
			code, found = unescape(value), true
		}
	}
	if !found {
		return "", rawURL, false
	}

	stripped = base
	if len(kept) > 0 {
		stripped += "?" + strings.Join(kept, "&")
	}
	if hasFragment {
		stripped += "#" + fragment
	}
	return code, stripped, true
}

// unescape decodes a query component, leaving it raw when it does not decode.
func unescape(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return decoded
	}
	return s
}
