// Package utils provides small helpers shared by the session and the CLI.
package utils

import "net"

// LoopbackIPv4 is returned by LocalIPv4 when no other address is available.
const LoopbackIPv4 = "127.0.0.1"

// LocalIPv4 returns the first non-loopback IPv4 address among the machine's
// interface addresses, or LoopbackIPv4 when there is none.
//
// Returns:
//   - An IPv4 address in dotted form
func LocalIPv4() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return LoopbackIPv4
	}

	return firstIPv4(addrs)
}

func firstIPv4(addrs []net.Addr) string {
	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}

		if ip == nil || ip.IsLoopback() {
			continue
		}

		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}
	}

	return LoopbackIPv4
}
