package http

import "net"

// reservedIPBlocks contains CIDR ranges for private and reserved IP addresses
var reservedIPBlocks []*net.IPNet

func init() {
	cidrs := []string{
		"10.0.0.0/8",      // RFC 1918 - private
		"172.16.0.0/12",   // RFC 1918 - private
		"192.168.0.0/16",  // RFC 1918 - private
		"127.0.0.0/8",     // RFC 1122 - loopback
		"169.254.0.0/16",  // RFC 3927 - link-local
		"0.0.0.0/8",       // RFC 1122 - "this" network
		"100.64.0.0/10",   // RFC 6598 - shared address (CGNAT)
		"192.0.0.0/24",    // RFC 6890 - IETF protocol assignments
		"192.0.2.0/24",    // RFC 5737 - documentation
		"198.18.0.0/15",   // RFC 2544 - benchmarking
		"198.51.100.0/24", // RFC 5737 - documentation
		"203.0.113.0/24",  // RFC 5737 - documentation
		"224.0.0.0/4",     // RFC 5771 - multicast
		"240.0.0.0/4",     // RFC 1112 - reserved
		"::1/128",         // IPv6 loopback
		"::/128",          // IPv6 unspecified
		"2001:db8::/32",   // IPv6 documentation
		"fe80::/10",       // IPv6 link-local
		"fc00::/7",        // RFC 4193 - IPv6 unique local
		"ff00::/8",        // IPv6 multicast
	}
	for _, cidr := range cidrs {
		_, block, err := net.ParseCIDR(cidr)
		if err == nil {
			reservedIPBlocks = append(reservedIPBlocks, block)
		}
	}
}

// IsPublicIP reports whether ip is a routable address outside private and reserved ranges
func IsPublicIP(ip string) bool {
	return isPublicIP(net.ParseIP(ip))
}

func isPublicIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	for _, block := range reservedIPBlocks {
		if block.Contains(ip) {
			return false
		}
	}
	return true
}
