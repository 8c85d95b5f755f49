// Package present holds the formatting, filtering and grouping used by the
// list views.
package present

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/runnerr0/tabtrail/internal/activity"
)

// RelativeTime renders t relative to now, e.g. "5 min ago" or "yesterday".
func RelativeTime(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < 2*time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d < 48*time.Hour:
		return "yesterday"
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d/(24*time.Hour)))
	}
	if t.Year() != now.Year() {
		return t.Format("Jan 2, 2006")
	}
	return t.Format("Jan 2")
}

// Truncate shortens s to at most max runes, ending in "..." when cut.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:max-3]) + "..."
}

var mobilePrefix = regexp.MustCompile(`(?i)^(www\.|m\.|mobile\.)`)

// SiteName turns a domain into a short display name: "www.github.com"
// becomes "Github".
func SiteName(domain string) string {
	if domain == "" {
		return "Unknown site"
	}
	name := mobilePrefix.ReplaceAllString(domain, "")
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}

// DomainHue hashes domain to a hue in [0, 360).
func DomainHue(domain string) int {
	var h int32
	for _, c := range domain {
		h = (h << 5) - h + int32(c)
	}
	return int(math.Abs(float64(h))) % 360
}

// DomainColor returns a stable hex colour for domain.
func DomainColor(domain string) string {
	if domain == "" {
		return "#b3b3b3"
	}
	r, g, b := hslToRGB(float64(DomainHue(domain)), 0.7, 0.6)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2
	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	to := func(v float64) uint8 { return uint8(math.Round((v + m) * 255)) }
	return to(r), to(g), to(b)
}

var importantParams = []string{"v", "watch", "q", "search", "id"}

// CleanURL returns host+path without a trailing slash. The query string is
// kept only when it carries a parameter that identifies the content.
func CleanURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	out := strings.TrimRight(u.Hostname()+u.Path, "/")
	if u.RawQuery != "" {
		q := u.Query()
		for _, p := range importantParams {
			if q.Has(p) {
				return out + "?" + u.RawQuery
			}
		}
	}
	return out
}

// Content types.
const (
	ContentVideo     = "video"
	ContentStreaming = "streaming"
	ContentCode      = "code"
	ContentSocial    = "social"
	ContentShopping  = "shopping"
	ContentWeb       = "web"
)

var contentRules = []struct {
	kind    string
	needles []string
}{
	{ContentVideo, []string{"youtube", "youtu.be"}},
	{ContentStreaming, []string{"netflix", "primevideo", "disney", "hulu"}},
	{ContentCode, []string{"github", "gitlab", "stackoverflow"}},
	{ContentSocial, []string{"twitter", "facebook", "instagram", "linkedin"}},
	{ContentShopping, []string{"amazon", "ebay", "shop"}},
}

// ContentType classifies a URL by its domain.
func ContentType(raw string) string {
	domain := activity.Domain(raw)
	if domain == "" {
		return ContentWeb
	}
	for _, rule := range contentRules {
		for _, n := range rule.needles {
			if strings.Contains(domain, n) {
				return rule.kind
			}
		}
	}
	return ContentWeb
}

// ContentIcon returns the glyph shown next to a content type.
func ContentIcon(kind string) string {
	switch kind {
	case ContentVideo:
		return "🎥"
	case ContentStreaming:
		return "📺"
	case ContentCode:
		return "💻"
	case ContentSocial:
		return "👥"
	case ContentShopping:
		return "🛒"
	default:
		return "🌐"
	}
}
