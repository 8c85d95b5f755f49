package activity

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	unknownDomain = "unknown domain"
	titleMaxRunes = 50
)

// DeriveTitle returns the hostname of rawURL. When rawURL has no parsable
// host, the raw string is truncated instead.
func DeriveTitle(rawURL string) string {
	if host := hostname(rawURL); host != "" {
		return host
	}
	if rawURL == "" {
		return unknownDomain
	}
	if utf8.RuneCountInString(rawURL) <= titleMaxRunes {
		return rawURL
	}
	return string([]rune(rawURL)[:titleMaxRunes]) + "..."
}

// DeriveFavicon returns <scheme>://<host>/favicon.ico for rawURL, or "" when
// the URL has no host.
func DeriveFavicon(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || u.Scheme == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/favicon.ico"
}

// Domain returns the lowercased hostname of rawURL, or "" when it has none.
func Domain(rawURL string) string {
	return hostname(rawURL)
}

func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
