package sanitizer

import (
	"net/url"
	"strings"
)

const webcalScheme = "webcal://"

// NormalizeFeedURL canonicalizes a calendar feed location. webcal:// is rewritten to https://.
func NormalizeFeedURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if len(s) > len(webcalScheme) && strings.EqualFold(s[:len(webcalScheme)], webcalScheme) {
		s = "https://" + s[len(webcalScheme):]
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	return u.String()
}
