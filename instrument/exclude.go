package instrument

import (
	"os"
	"regexp"
	"strings"
)

// ExcludeList decides whether a request URL should bypass instrumentation
// entirely. Patterns are regular expressions matched anywhere in the full
// request URL, so a literal path segment like "/healthz" excludes every
// URL containing it.
type ExcludeList struct {
	patterns []string
	regex    *regexp.Regexp
}

// NewExcludeList builds an exclude list from individual patterns.
// Invalid patterns are dropped rather than failing the integration.
func NewExcludeList(patterns []string) *ExcludeList {
	valid := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := regexp.Compile(p); err != nil {
			continue
		}
		valid = append(valid, p)
	}

	el := &ExcludeList{patterns: valid}
	if len(valid) > 0 {
		el.regex = regexp.MustCompile(strings.Join(valid, "|"))
	}
	return el
}

// ParseExcludedURLs builds an exclude list from a comma-separated pattern
// string, the format used by the environment configuration.
func ParseExcludedURLs(s string) *ExcludeList {
	if strings.TrimSpace(s) == "" {
		return &ExcludeList{}
	}
	return NewExcludeList(strings.Split(s, ","))
}

// ExcludedURLsFromEnv reads TRACEWRAP_<COMPONENT>_EXCLUDED_URLS and parses
// it. An unset or empty variable yields an empty list that excludes
// nothing.
func ExcludedURLsFromEnv(component string) *ExcludeList {
	key := "TRACEWRAP_" + strings.ToUpper(component) + "_EXCLUDED_URLS"
	return ParseExcludedURLs(os.Getenv(key))
}

// Disabled reports whether the URL matches any exclusion pattern.
func (el *ExcludeList) Disabled(url string) bool {
	if el == nil || el.regex == nil {
		return false
	}
	return el.regex.MatchString(url)
}

// Empty reports whether the list carries no patterns.
func (el *ExcludeList) Empty() bool {
	return el == nil || el.regex == nil
}
