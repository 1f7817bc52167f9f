package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/JonMunkholm/audience/internal/core"
)

// Client records who is calling as a core.Client on the request context.
// The rate limiter, the request log and the engine's operation logs all read
// the IP from there; RemoteAddr is left untouched.
//
// Forwarding headers are only honoured when the connection comes from one of
// trustedProxies (CIDRs or single addresses). X-Real-IP wins when valid.
// Otherwise X-Forwarded-For is walked from the right, skipping trusted hops,
// and the first untrusted address is the client.
func Client(trustedProxies []string) func(http.Handler) http.Handler {
	trusted := parsePrefixes(trustedProxies)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := core.WithClient(r.Context(), core.Client{
				IP:        resolveIP(r, trusted),
				UserAgent: r.UserAgent(),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parsePrefixes(entries []string) []netip.Prefix {
	var out []netip.Prefix
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			slog.Warn("ignoring invalid trusted proxy", "entry", e, "error", err)
			continue
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out
}

func resolveIP(r *http.Request, trusted []netip.Prefix) string {
	peer, ok := parseAddr(hostOf(r.RemoteAddr))
	if !ok {
		return hostOf(r.RemoteAddr)
	}
	if !contains(trusted, peer) {
		return peer.String()
	}

	if ip, ok := parseAddr(r.Header.Get("X-Real-IP")); ok {
		return ip.String()
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		ip, ok := parseAddr(hops[i])
		if !ok {
			break
		}
		if !contains(trusted, ip) {
			return ip.String()
		}
	}
	return peer.String()
}

func hostOf(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func parseAddr(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func contains(prefixes []netip.Prefix, addr netip.Addr) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
