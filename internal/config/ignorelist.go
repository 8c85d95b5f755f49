package config

// DefaultIgnoredSchemes returns the URL prefixes of browser-internal pages
// that are never recorded: the browser's own UI, extension pages and the
// generic about: scheme.
func DefaultIgnoredSchemes() []string {
	return []string{
		// Chromium family
		"chrome:",
		"chrome-extension:",
		"chrome-search:",
		"chrome-untrusted:",
		"devtools:",
		"edge:",
		"brave:",
		"opera:",
		"vivaldi:",

		// Firefox
		"moz-extension:",
		"resource:",

		// Generic
		"about:",
		"view-source:",
	}
}

// DefaultPlaceholderTokens returns substrings that mark placeholder pages
// such as the new tab page.
func DefaultPlaceholderTokens() []string {
	return []string{
		"newtab",
		"new tab",
		"blank",
	}
}
