package truetime

import (
	"sort"
	"strings"

	psnet "github.com/shirou/gopsutil/v3/net"
)

//Replace at tests
var listInterfaces = psnet.Interfaces

//NetworkConnected is true when some non-loopback interface is up and has address
func NetworkConnected() (bool, error) {
	ifaces, err := listInterfaces()
	if err != nil {
		return false, err
	}
	for _, iface := range ifaces {
		if usableInterface(iface) {
			return true, nil
		}
	}
	return false, nil
}

func usableInterface(iface psnet.InterfaceStat) bool {
	up := false
	for _, f := range iface.Flags {
		switch f {
		case "up":
			up = true
		case "loopback":
			return false
		}
	}
	return up && 0 < len(iface.Addrs)
}

//connectivitySignature changes when usable interfaces or their addresses change
func connectivitySignature(ifaces psnet.InterfaceStatList) string {
	parts := []string{}
	for _, iface := range ifaces {
		if !usableInterface(iface) {
			continue
		}
		addrs := make([]string, 0, len(iface.Addrs))
		for _, a := range iface.Addrs {
			addrs = append(addrs, a.Addr)
		}
		sort.Strings(addrs)
		parts = append(parts, iface.Name+"="+strings.Join(addrs, ","))
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}
