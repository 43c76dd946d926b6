package logging

import (
	"net/url"
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

var segmentSplitter = regexp.MustCompile(`[^a-z0-9]+`)

// redactor masks credentials in log fields. Values of keys naming a credential are
// replaced outright; URL fields lose their query string, where signed image links
// carry their tokens.
type redactor struct {
	sensitiveWords map[string]bool
	urlWords       map[string]bool
}

func newRedactor() *redactor {
	return &redactor{
		sensitiveWords: wordSet("secret", "password", "token", "apikey", "auth", "credential", "signature"),
		urlWords:       wordSet("url", "uri", "link"),
	}
}

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// redact returns a copy of the flattened key/value pairs with sensitive values masked.
func (r *redactor) redact(pairs []any) []any {
	if len(pairs) == 0 {
		return pairs
	}
	result := make([]any, len(pairs))
	copy(result, pairs)
	for i := 0; i+1 < len(result); i += 2 {
		key, ok := result[i].(string)
		if !ok {
			continue
		}
		switch {
		case r.matches(key, r.sensitiveWords):
			result[i+1] = redacted
		case r.matches(key, r.urlWords):
			if s, ok := result[i+1].(string); ok {
				result[i+1] = stripQuery(s)
			}
		}
	}
	return result
}

// matches reports whether a segment of key (split on non-alphanumerics) is in words.
func (r *redactor) matches(key string, words map[string]bool) bool {
	for _, part := range segmentSplitter.Split(strings.ToLower(key), -1) {
		if words[part] {
			return true
		}
	}
	return false
}

func stripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	u.RawQuery = ""
	u.User = nil
	return u.String() + "?" + redacted
}
