package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	apperrors "github.com/getmentor/getmentor-edge/pkg/errors"
)

// SecureRequestDetector decides whether a request arrived over HTTPS.
// X-Forwarded-Proto is only honoured when the immediate peer is a trusted proxy.
type SecureRequestDetector struct {
	trusted []netip.Prefix
}

// NewSecureRequestDetector parses trustedProxies, each an IP address or CIDR.
// An empty list means forwarded headers are never trusted.
func NewSecureRequestDetector(trustedProxies []string) (*SecureRequestDetector, error) {
	d := &SecureRequestDetector{trusted: make([]netip.Prefix, 0, len(trustedProxies))}

	for _, raw := range trustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		var prefix netip.Prefix
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, apperrors.InvalidInputError("TRUSTED_PROXIES", fmt.Sprintf("%q is not a valid CIDR", raw))
			}
			prefix = p.Masked()
		} else {
			addr, err := netip.ParseAddr(raw)
			if err != nil {
				return nil, apperrors.InvalidInputError("TRUSTED_PROXIES", fmt.Sprintf("%q is not a valid IP", raw))
			}
			addr = addr.Unmap()
			prefix = netip.PrefixFrom(addr, addr.BitLen())
		}

		d.trusted = append(d.trusted, prefix)
	}

	return d, nil
}

// TrustedProxyCount returns the number of parsed proxy ranges
func (d *SecureRequestDetector) TrustedProxyCount() int {
	if d == nil {
		return 0
	}
	return len(d.trusted)
}

// IsSecure reports whether r was received over a transport-secured connection,
// either directly (TLS terminated here) or via a trusted proxy that saw HTTPS.
func (d *SecureRequestDetector) IsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if d.TrustedProxyCount() == 0 || !d.isTrustedPeer(r.RemoteAddr) {
		return false
	}

	// Proxies chain values as "https, http"; the first one is the client-facing hop.
	proto := r.Header.Get("X-Forwarded-Proto")
	if i := strings.IndexByte(proto, ','); i >= 0 {
		proto = proto[:i]
	}
	return strings.EqualFold(strings.TrimSpace(proto), "https")
}

func (d *SecureRequestDetector) isTrustedPeer(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.WithZone("").Unmap()

	for _, prefix := range d.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
