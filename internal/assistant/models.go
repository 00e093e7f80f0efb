package assistant

import "strings"

// Catalog is the closed set of chat models the relay exposes. The device
// picks one with the ?model= query parameter; everything it can send maps to
// one of these two entries.
type Catalog struct {
	Fast   string
	Strong string
}

// Strong-model aliases accepted from the device. Anything else falls back to
// the fast model, which keeps old firmware working unchanged.
var strongAliases = map[string]bool{
	"strong":  true,
	"gpt":     true,
	"gpt-oss": true,
}

// Resolve maps a model query string to a concrete model id. An empty query
// selects the fast model. Unrecognized values also select the fast model but
// are reported via the second return so the caller can log them.
func (c Catalog) Resolve(query string) (string, bool) {
	q := strings.ToLower(strings.TrimSpace(query))

	if q == "" {
		return c.Fast, true
	}

	if strongAliases[q] {
		return c.Strong, true
	}

	return c.Fast, false
}
