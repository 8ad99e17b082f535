package udpsync

import (
	"net"
	"os"
)

// Identity is this device's own network identity, advertised in discovery
// replies and stamped on outgoing discovery requests.
type Identity struct {
	MAC      string
	Hostname string
	IP       string
}

// DetectIdentity resolves the local identity from the first usable
// non-loopback interface. Missing pieces stay empty; the protocol
// tolerates partial identity on both ends.
func DetectIdentity() Identity {
	var ident Identity
	if name, err := os.Hostname(); err == nil {
		ident.Hostname = name
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return ident
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		if ident.MAC == "" {
			ident.MAC = iface.HardwareAddr.String()
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.To4() == nil {
				continue
			}
			ident.IP = ipNet.IP.String()
			return ident
		}
	}
	return ident
}
