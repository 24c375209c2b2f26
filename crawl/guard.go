package crawl

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iamtutumo/agentkb"
)

// privateCIDRs are pre-computed at package init to avoid re-parsing on
// every check.
var privateCIDRs []*net.IPNet

func init() {
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"100.64.0.0/10",  // CGNAT
		"169.254.0.0/16", // link-local
		"fc00::/7",       // IPv6 ULA
	} {
		_, parsed, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("bad CIDR %q: %v", cidr, err))
		}
		privateCIDRs = append(privateCIDRs, parsed)
	}
}

// Guard rejects URLs that would reach internal network addresses.
// The zero value is ready to use. Tests running against httptest servers
// can set AllowPrivate to crawl localhost.
type Guard struct {
	AllowPrivate bool

	// LookupHost overrides DNS resolution. Nil uses net.LookupHost.
	LookupHost func(host string) ([]string, error)
}

func (g *Guard) lookup(host string) ([]string, error) {
	if g.LookupHost != nil {
		return g.LookupHost(host)
	}
	return net.LookupHost(host)
}

// Check validates that a URL is safe to fetch: http(s) scheme and a host
// that does not resolve to a loopback, link-local, private, or multicast
// address. It runs on every fetch, not just the root, since redirects and
// discovered links can point anywhere. This is the fast-path check; the
// authoritative guard is the dialer from NewSafeTransport.
func (g *Guard) Check(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return agentkb.Errorf(agentkb.EFETCH, "invalid URL %q: %v", rawURL, err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return agentkb.Errorf(agentkb.EFETCH, "unsupported scheme %q (only http/https allowed)", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return agentkb.Errorf(agentkb.EFETCH, "missing hostname in URL %q", rawURL)
	}

	if g.AllowPrivate {
		return nil
	}

	ips, err := g.lookup(host)
	if err != nil {
		return agentkb.Errorf(agentkb.EFETCH, "dns lookup failed for %s: %v", host, err)
	}
	for _, ipStr := range ips {
		ip := net.ParseIP(ipStr)
		if ip == nil {
			continue
		}
		if isPrivateIP(ip) {
			return agentkb.Errorf(agentkb.EFETCH, "%s resolves to private/reserved address %s", host, ipStr)
		}
	}

	return nil
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsMulticast() || ip.IsUnspecified() {
		return true
	}
	for _, cidr := range privateCIDRs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// NewSafeTransport returns an http.Transport whose DialContext validates
// resolved IP addresses before connecting, preventing DNS rebinding between
// the Guard check and the actual connection.
func (g *Guard) NewSafeTransport() *http.Transport {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, fmt.Errorf("ssrf dialer: invalid address %q: %w", addr, err)
			}

			ips, err := net.DefaultResolver.LookupHost(ctx, host)
			if err != nil {
				return nil, fmt.Errorf("ssrf dialer: dns lookup %s: %w", host, err)
			}

			if !g.AllowPrivate {
				for _, ipStr := range ips {
					ip := net.ParseIP(ipStr)
					if ip == nil {
						continue
					}
					if isPrivateIP(ip) {
						return nil, fmt.Errorf("ssrf dialer: %s resolves to private address %s", host, ipStr)
					}
				}
			}

			// Connect to the first resolved IP directly so the address we
			// checked is the address we dial.
			return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0], port))
		},
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// CheckRedirect returns a redirect policy that re-validates every hop and
// stops after five redirects.
func (g *Guard) CheckRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 5 {
		return fmt.Errorf("stopped after 5 redirects")
	}
	if err := g.Check(req.URL.String()); err != nil {
		return fmt.Errorf("redirect blocked: %w", err)
	}
	return nil
}
