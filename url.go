package agentkb

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var multiSlashRe = regexp.MustCompile(`/+`)

// NormalizeURL canonicalizes a URL for deduplication: fragment and query are
// stripped, repeated slashes in the path are collapsed, and the trailing
// slash is removed. Only scheme, host, and path survive.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", Errorf(EINVALID, "invalid URL %q: %v", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", Errorf(EINVALID, "URL %q is not absolute", rawURL)
	}

	path := multiSlashRe.ReplaceAllString(u.Path, "/")
	path = strings.TrimSuffix(path, "/")

	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + path, nil
}

// SameRegistrableDomain reports whether two URLs share the same registrable
// domain (eTLD+1), so docs.example.com and example.com count as one site.
func SameRegistrableDomain(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	da, err := publicsuffix.EffectiveTLDPlusOne(ua.Hostname())
	if err != nil {
		// Hosts without a public suffix (IPs, localhost) compare exactly.
		return strings.EqualFold(ua.Hostname(), ub.Hostname())
	}
	db, err := publicsuffix.EffectiveTLDPlusOne(ub.Hostname())
	if err != nil {
		return false
	}
	return strings.EqualFold(da, db)
}
