// Package scope normalizes URLs and decides whether they fall inside the
// trusted domain allow-list.
package scope

import (
	"net/url"
	"strings"
)

// trackingParams are stripped from every normalized URL.
var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content"}

// NormalizeURL drops the fragment and tracking query parameters.
// It returns "" when raw is not an absolute URL.
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	u.Fragment = ""
	u.RawFragment = ""
	if u.RawQuery != "" {
		q := u.Query()
		for _, k := range trackingParams {
			q.Del(k)
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// NormalizeHost lower-cases a host and strips a leading "www.".
func NormalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(host)), "www.")
}

// HostOf returns the normalized host of raw, or "" if it cannot be parsed.
func HostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return NormalizeHost(u.Hostname())
}

// Checker reports whether URLs are http(s) and hosted on an allowed domain.
type Checker struct {
	allowed map[string]struct{}
	domains []string
}

func NewChecker(domains []string) *Checker {
	c := &Checker{allowed: make(map[string]struct{}, len(domains))}
	for _, d := range domains {
		h := NormalizeHost(d)
		if h == "" {
			continue
		}
		if _, ok := c.allowed[h]; ok {
			continue
		}
		c.allowed[h] = struct{}{}
		c.domains = append(c.domains, h)
	}
	return c
}

// Allowed reports whether raw is in scope.
func (c *Checker) Allowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	_, ok := c.allowed[NormalizeHost(u.Hostname())]
	return ok
}

// Domains returns the normalized allow-list in configuration order.
func (c *Checker) Domains() []string {
	out := make([]string, len(c.domains))
	copy(out, c.domains)
	return out
}
