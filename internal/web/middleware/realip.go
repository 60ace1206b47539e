package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// proxySet is the parsed list of proxies whose forwarding headers are trusted.
type proxySet []*net.IPNet

// parseProxies accepts CIDRs and bare IPs. Invalid entries are logged and
// skipped.
func parseProxies(entries []string) proxySet {
	var set proxySet
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, network, err := net.ParseCIDR(entry); err == nil {
			set = append(set, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			slog.Warn("realip: invalid trusted proxy, skipping", "entry", entry)
			continue
		}
		bits := 128
		if ip.To4() != nil {
			ip, bits = ip.To4(), 32
		}
		set = append(set, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return set
}

func (s proxySet) contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, network := range s {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// forwardedClient returns the client address a trusted proxy reported, or
// "" when the headers carry no valid IP.
func forwardedClient(r *http.Request) string {
	if rip := strings.TrimSpace(r.Header.Get("X-Real-IP")); rip != "" {
		if ip := net.ParseIP(rip); ip != nil {
			return ip.String()
		}
		return ""
	}
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return ""
	}
	first, _, _ := strings.Cut(xff, ",")
	if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
		return ip.String()
	}
	return ""
}

// TrustedRealIP rewrites r.RemoteAddr from X-Real-IP or X-Forwarded-For,
// but only for connections from a trusted proxy. Otherwise the headers are
// ignored, so clients cannot spoof their address past the rate limiter.
func TrustedRealIP(trusted []string) func(http.Handler) http.Handler {
	proxies := parseProxies(trusted)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if proxies.contains(extractIP(r.RemoteAddr)) {
				if client := forwardedClient(r); client != "" {
					r.RemoteAddr = client
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the host part of r.RemoteAddr.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func extractIP(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}
