// Package anm is the Authentic-Neighbors Memory: a per-peer, per-interface
// record of the last accepted (timestamp, packet-counter) pair, used by the
// inbound checker to enforce replay ordering.
//
// Design note: the reference C implementation (babeld's babel_auth.c) backs
// this with a linear list scanned on every lookup. Per spec §9 the contract
// is implementation-agnostic on this point, so this is backed by a map
// keyed on (address, interface) instead.
package anm

import (
	"net"
	"time"

	"github.com/msgboxio/log"
)

// Record is the last accepted (timestamp, packet-counter) from one peer on
// one interface, and when it was accepted.
type Record struct {
	LastTS   uint32
	LastPC   uint16
	LastRecv time.Time
}

type key struct {
	addr  [16]byte
	iface string
}

func makeKey(addr net.IP, iface string) key {
	var k key
	copy(k.addr[:], addr.To16())
	k.iface = iface
	return k
}

// Memory is the mutable set of ANM records for one routing process.
type Memory struct {
	records map[key]*Record
}

func New() *Memory {
	return &Memory{records: make(map[key]*Record)}
}

// Lookup returns the record for (addr, iface), or ok == false if absent.
func (m *Memory) Lookup(addr net.IP, iface string) (rec Record, ok bool) {
	r, found := m.records[makeKey(addr, iface)]
	if !found {
		return Record{}, false
	}
	return *r, true
}

// Upsert inserts or updates the record for (addr, iface) to the given
// (timestamp, packet-counter), accepted at now. The caller is responsible
// for having already checked the TS/PC ordering invariant.
func (m *Memory) Upsert(addr net.IP, iface string, ts uint32, pc uint16, now time.Time) {
	k := makeKey(addr, iface)
	r, ok := m.records[k]
	if !ok {
		r = &Record{}
		m.records[k] = r
		log.V(1).Infof("anm: new record for %s on %s", addr, iface)
	}
	r.LastTS, r.LastPC, r.LastRecv = ts, pc, now
}

// Sweep deletes every record whose last-received time is older than
// timeout relative to now. Scheduled periodically by an external timer;
// the core exposes only this primitive.
func (m *Memory) Sweep(now time.Time, timeout time.Duration) {
	for k, r := range m.records {
		if r.LastRecv.Add(timeout).Before(now) {
			delete(m.records, k)
		}
	}
}

// ClearAll empties the memory.
func (m *Memory) ClearAll() {
	m.records = make(map[key]*Record)
}

// Len reports the number of records currently held, for stats display.
func (m *Memory) Len() int {
	return len(m.records)
}
