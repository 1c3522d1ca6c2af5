package auth

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// IPList matches addresses against single IPs and CIDR blocks
type IPList struct {
	prefixes []netip.Prefix
}

// NewIPList parses entries; a bare address becomes a /32 or /128 prefix
func NewIPList(entries []string) (*IPList, error) {
	list := &IPList{prefixes: make([]netip.Prefix, 0, len(entries))}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		prefix, err := parsePrefix(entry)
		if err != nil {
			return nil, err
		}
		list.prefixes = append(list.prefixes, prefix)
	}
	return list, nil
}

func parsePrefix(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid CIDR block %s: %v", s, err)
		}
		return prefix.Masked(), nil
	}

	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid IP address: %s", s)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Empty reports whether the list has no entries
func (l *IPList) Empty() bool {
	return l == nil || len(l.prefixes) == 0
}

// Contains reports whether ip falls inside any entry
func (l *IPList) Contains(ip string) bool {
	if l == nil {
		return false
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range l.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP resolves the caller address. Forwarding headers are honoured only
// when the direct peer is a trusted proxy; X-Forwarded-For is walked right to
// left and the first untrusted hop is the client.
func ClientIP(r *http.Request, trusted *IPList) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	if trusted.Empty() || !trusted.Contains(directIP) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop != "" && !trusted.Contains(hop) {
				return hop
			}
		}
		if first := strings.TrimSpace(hops[0]); first != "" {
			return first
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return directIP
}
