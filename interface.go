package babelauth

import "net"

// Interface is the per-interface state the core needs: its configured
// security associations, the authrxreq policy flag, its send counters and
// its own statistics pool.
type Interface struct {
	Name string
	CSAs []CSA

	// AuthRxRequired is spec §4.7's "authrxreq": when false, Check still
	// runs every verification and updates statistics but always returns
	// true (observation-only mode).
	AuthRxRequired bool

	SendCounters SendCounters
	Stats        Stats

	// LinkLocalAddress returns one link-local IPv6 address of this
	// interface, or an error if none is configured. Required by Make;
	// Check never calls it (the sender address is supplied by the
	// transport layer that received the packet).
	LinkLocalAddress func() (net.IP, error)
}
