package net

import (
	"fmt"
	"net"

	"github.com/golang/glog"
)

// GetOutgoingIP finds the local address other machines on the LAN should use
// to reach this host.
func GetOutgoingIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		// Offline networks have no default route.
		return getLocalIPFallback()
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}

func getLocalIPFallback() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, address := range addrs {
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String(), nil
			}
		}
	}
	glog.Warning("[Net] no suitable local IP found, links will use loopback")
	return "127.0.0.1", nil
}

// RelayAddress returns the host:port peers should dial for a relay bound to
// port on this machine.
func RelayAddress(port int) string {
	ip, err := GetOutgoingIP()
	if err != nil {
		glog.Warningf("[Net] outgoing ip: %v", err)
		ip = "127.0.0.1"
	}
	return fmt.Sprintf("%s:%d", ip, port)
}
