package tool

import (
	"net"
	"slices"
)

// lanInterface reports whether iface can carry a LAN share link: up, not loopback, not a tunnel.
func lanInterface(iface net.Interface) bool {
	if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
		return false
	}
	return iface.Flags&net.FlagPointToPoint == 0 // utun / tun / vpn
}

// GetLocalIPv4s returns the IPv4 addresses other machines on the LAN can reach us at, sorted.
func GetLocalIPv4s() []string {
	result := make([]string, 0)
	ifaces, err := net.Interfaces()
	if err != nil {
		DefaultLogger.Debugf("Failed to list network interfaces: %v", err)
		return result
	}
	for _, iface := range ifaces {
		if !lanInterface(iface) {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.IsLoopback() || ipnet.IP.IsLinkLocalUnicast() {
				continue
			}
			if v4 := ipnet.IP.To4(); v4 != nil {
				result = append(result, v4.String())
			}
		}
	}
	slices.Sort(result)
	return slices.Compact(result)
}
