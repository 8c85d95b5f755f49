package activity

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"

	"github.com/runnerr0/tabtrail/internal/config"
)

// Filter decides which URLs are worth recording. Browser-internal pages,
// placeholder tabs, trivially short URLs and denylisted hosts are dropped.
type Filter struct {
	schemes []string
	tokens  []string
	minLen  int
	deny    []glob.Glob
}

// NewFilter compiles a Filter from capture settings. Denylist entries are
// host globs where '.' separates labels, so "*.bank.example" matches
// "www.bank.example" but not "bank.example".
func NewFilter(cfg config.CaptureConfig) (*Filter, error) {
	f := &Filter{minLen: cfg.MinURLLength}
	for _, s := range cfg.IgnoredSchemes {
		f.schemes = append(f.schemes, strings.ToLower(s))
	}
	for _, t := range cfg.PlaceholderTokens {
		f.tokens = append(f.tokens, strings.ToLower(t))
	}
	for _, pattern := range cfg.DenylistDomains {
		g, err := glob.Compile(strings.ToLower(pattern), '.')
		if err != nil {
			return nil, fmt.Errorf("compile denylist pattern %q: %w", pattern, err)
		}
		f.deny = append(f.deny, g)
	}
	return f, nil
}

// DefaultFilter returns the Filter for the default capture settings.
func DefaultFilter() *Filter {
	f, err := NewFilter(config.DefaultConfig().Capture)
	if err != nil {
		panic(err)
	}
	return f
}

// Allowed reports whether rawURL should be recorded. A nil Filter allows
// everything.
func (f *Filter) Allowed(rawURL string) bool {
	if f == nil {
		return true
	}
	if utf8.RuneCountInString(rawURL) < f.minLen {
		return false
	}
	lower := strings.ToLower(rawURL)
	for _, s := range f.schemes {
		if strings.HasPrefix(lower, s) {
			return false
		}
	}
	for _, t := range f.tokens {
		if strings.Contains(lower, t) {
			return false
		}
	}
	if len(f.deny) > 0 {
		host := Domain(rawURL)
		for _, g := range f.deny {
			if host != "" && g.Match(host) {
				return false
			}
		}
	}
	return true
}
