package content

import (
	"fmt"
	"net"
)

// BlockInternalHosts rejects loopback, private, link-local and cloud
// metadata addresses so strict link validation cannot be pointed at the
// server's own network. Names that do not resolve are let through; the
// HTTP client reports those.
func BlockInternalHosts(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	switch {
	case ip.IsLoopback():
		return fmt.Errorf("blocked host: loopback address %s", host)
	case ip.IsPrivate():
		return fmt.Errorf("blocked host: private address %s", host)
	case ip.IsLinkLocalUnicast(), ip.IsUnspecified():
		// Covers the 169.254.169.254 metadata endpoint.
		return fmt.Errorf("blocked host: link-local address %s", host)
	}
	return nil
}
