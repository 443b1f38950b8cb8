// Package transport supplies the authentication core's external socket and
// interface-address collaborators (spec.md §1 names these explicitly out of
// core scope: "socket I/O, interface enumeration and link-local address
// discovery"). It is modeled closely on the teacher's conn.go: a thin
// wrapper around golang.org/x/net/ipv6's PacketConn that recovers the
// receiving interface via control messages.
package transport

import (
	"io"
	"net"

	"github.com/msgboxio/log"
	"github.com/pkg/errors"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// BabelPort is the well-known UDP port for Babel protocol traffic.
const BabelPort = 6696

// Conn is the authentication core's view of a Babel socket: read/write
// packets, and ask "what is a link-local address of this interface".
type Conn interface {
	ReadPacket() (b []byte, remoteAddr net.Addr, iface *net.Interface, err error)
	WritePacket(b []byte, remoteAddr net.Addr) error
	LinkLocalAddress(iface *net.Interface) (net.IP, error)
	Close() error
}

var ErrNoLinkLocalAddress = errors.New("no link-local IPv6 address on interface")

type pconnV6 struct {
	*ipv6.PacketConn
}

func (c *pconnV6) Close() error { return c.PacketConn.Close() }

// Listen opens a UDP socket on address and returns a Conn. network "udp4"
// opens an IPv4 socket, for test harnesses that want to exercise the TLV
// codec over loopback without IPv6; any other value, "udp" included, opens
// an IPv6 ("udp6") socket.
func Listen(network, address string) (Conn, error) {
	if network == "udp4" {
		return listenUDP4(address)
	}
	udp, err := net.ListenPacket("udp6", address)
	if err != nil {
		return nil, errors.Wrap(err, "listen")
	}
	p := ipv6.NewPacketConn(udp)
	cf := ipv6.FlagSrc | ipv6.FlagDst | ipv6.FlagInterface
	if err := p.SetControlMessage(cf, true); err != nil {
		log.Warningf("transport: control message detection unavailable: %v", err)
	}
	return &pconnV6{p}, nil
}

func (c *pconnV6) ReadPacket() (b []byte, remoteAddr net.Addr, iface *net.Interface, err error) {
	buf := make([]byte, 2048)
	n, cm, addr, err := c.ReadFrom(buf)
	if err != nil {
		return nil, nil, nil, err
	}
	b = buf[:n]
	remoteAddr = addr
	if cm != nil && cm.IfIndex != 0 {
		iface, _ = net.InterfaceByIndex(cm.IfIndex)
	}
	log.V(1).Infof("transport: %d bytes from %v", n, remoteAddr)
	return
}

func (c *pconnV6) WritePacket(b []byte, remoteAddr net.Addr) error {
	n, err := c.WriteTo(b, nil, remoteAddr)
	if err != nil {
		return err
	}
	if n != len(b) {
		return io.ErrShortWrite
	}
	log.V(1).Infof("transport: %d bytes to %v", n, remoteAddr)
	return nil
}

// LinkLocalAddress returns one link-local IPv6 address configured on iface,
// or ErrNoLinkLocalAddress if none qualifies. Per spec §6/§9, when an
// interface carries more than one link-local address, whichever this
// returns is used for padding; a receiver seeing packets sent from a
// different actual source address will fail authentication. That
// limitation is inherited here unchanged.
func (c *pconnV6) LinkLocalAddress(iface *net.Interface) (net.IP, error) {
	return linkLocalAddress(iface)
}

func linkLocalAddress(iface *net.Interface) (net.IP, error) {
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, errors.Wrapf(err, "addresses for %s", iface.Name)
	}
	return SelectLinkLocalAddress(addrs)
}

// SelectLinkLocalAddress is the address-picker logic behind
// (*pconnV6).LinkLocalAddress, split out as a pure function of an address
// list so it can be exercised without a real network interface: the first
// /64 link-local IPv6 address in addrs, or ErrNoLinkLocalAddress.
func SelectLinkLocalAddress(addrs []net.Addr) (net.IP, error) {
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ones, bits := ipnet.Mask.Size()
		if bits != 128 || ones != 64 {
			continue
		}
		if ipnet.IP.To16() != nil && ipnet.IP.IsLinkLocalUnicast() {
			return ipnet.IP, nil
		}
	}
	return nil, ErrNoLinkLocalAddress
}

// udp4 path: kept for test harnesses only, mirrors the teacher's
// dual-stack accommodation for platforms/tests that can't bind udp6.
type pconnV4 struct {
	*ipv4.PacketConn
}

func (c *pconnV4) Close() error { return c.PacketConn.Close() }

func listenUDP4(address string) (Conn, error) {
	udp, err := net.ListenPacket("udp4", address)
	if err != nil {
		return nil, errors.Wrap(err, "listen")
	}
	p := ipv4.NewPacketConn(udp)
	cf := ipv4.FlagInterface
	if err := p.SetControlMessage(cf, true); err != nil {
		log.Warningf("transport: control message detection unavailable: %v", err)
	}
	return &pconnV4{p}, nil
}

func (c *pconnV4) ReadPacket() (b []byte, remoteAddr net.Addr, iface *net.Interface, err error) {
	buf := make([]byte, 2048)
	n, cm, addr, err := c.ReadFrom(buf)
	if err != nil {
		return nil, nil, nil, err
	}
	b = buf[:n]
	remoteAddr = addr
	if cm != nil && cm.IfIndex != 0 {
		iface, _ = net.InterfaceByIndex(cm.IfIndex)
	}
	return
}

func (c *pconnV4) WritePacket(b []byte, remoteAddr net.Addr) error {
	n, err := c.WriteTo(b, nil, remoteAddr)
	if err != nil {
		return err
	}
	if n != len(b) {
		return io.ErrShortWrite
	}
	return nil
}

func (c *pconnV4) LinkLocalAddress(iface *net.Interface) (net.IP, error) {
	return linkLocalAddress(iface)
}
