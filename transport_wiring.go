package babelauth

import (
	"net"

	"github.com/msgboxio/babelauth/transport"
)

// NewInterface builds an Interface whose LinkLocalAddress seam is wired to
// a live socket: each call asks conn.LinkLocalAddress(netIface) and returns
// its address or error unchanged.
func NewInterface(name string, csas []CSA, authRxRequired bool, conn transport.Conn, netIface *net.Interface) *Interface {
	return &Interface{
		Name:           name,
		CSAs:           csas,
		AuthRxRequired: authRxRequired,
		LinkLocalAddress: func() (net.IP, error) {
			return conn.LinkLocalAddress(netIface)
		},
	}
}
