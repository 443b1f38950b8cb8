package babelauth

// Stats holds the counters spec.md §6 names, one instance per interface
// plus one global instance, both updated on every operation.
type Stats struct {
	PlainRecv        uint64
	PlainSent        uint64
	AuthSent         uint64
	AuthSentNgNokeys uint64
	AuthRecvOk       uint64
	AuthRecvNgNokeys uint64
	AuthRecvNgNoTspc uint64
	AuthRecvNgTspc   uint64
	AuthRecvNgHmac   uint64
	InternalErr      uint64
}

// Reset zeroes every counter.
func (s *Stats) Reset() {
	*s = Stats{}
}
