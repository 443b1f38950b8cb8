// Package babelauth is the packet-authentication core of a Babel routing
// speaker: it attaches and verifies the TS/PC and HMAC TLVs of the Babel
// HMAC cryptographic authentication extension (RFC 9229) on every
// outbound and inbound packet.
//
// The package owns three pieces of state: the set of configured security
// associations per interface, a per-interface monotonic (timestamp,
// packet-counter) pair used to order outbound packets, and the
// authentic-neighbors memory recording the last accepted (timestamp,
// packet-counter) from each peer on each interface. Everything else —
// the Babel route-selection state machine, keychain storage, socket I/O —
// is a collaborator handed in from outside, the same way the teacher's
// Session treats the wire Conn and the Fsm as externally supplied.
package babelauth

import (
	"time"

	"github.com/msgboxio/babelauth/algo"
	"github.com/msgboxio/babelauth/anm"
	"github.com/msgboxio/babelauth/keychain"
)

// Babel HMAC authentication constants (RFC 9229 defines the mechanism;
// the concrete caps are a local policy choice bounding per-packet work).
const (
	// MaxDigestsIn bounds the number of local HMAC computations a single
	// inbound check may perform, regardless of how many HMAC TLVs or
	// candidate ESAs are present.
	MaxDigestsIn = 5
	// MaxDigestsOut bounds the number of HMAC TLVs a single outbound
	// build appends, regardless of how many ESAs are available.
	MaxDigestsOut = 5

	// MaxAuthSpace is the maximum number of bytes the outbound builder
	// can append to a packet body: one TS/PC TLV plus up to MaxDigestsOut
	// HMAC TLVs at the largest wired digest length.
	MaxAuthSpace = tspcTLVLen + MaxDigestsOut*(hmacHeaderTLVLen+maxDigestLen)

	tspcTLVLen       = 2 + 6
	hmacHeaderTLVLen = 2 + 2
)

var maxDigestLen = func() int {
	max := 0
	for _, a := range []algo.Algo{algo.SHA256, algo.SHA384, algo.BLAKE2s256} {
		if l := a.DigestLength(); l > max {
			max = l
		}
	}
	return max
}()

// TSBase selects the base the per-interface send counters advance from.
type TSBase int

const (
	// TSBaseUnix uses wall-clock seconds as the timestamp component,
	// falling back to the zero-base wrap rule when the clock has not
	// advanced since the last send.
	TSBaseUnix TSBase = iota
	// TSBaseZero uses a process-local counter starting from zero,
	// advancing the timestamp only on packet-counter wraparound.
	TSBaseZero
)

const DefaultAnmTimeout = 300 * time.Second

// KeychainLookup resolves a keychain by the name a CSA references it by.
type KeychainLookup func(name string) (*keychain.Keychain, bool)

// KeyFilter narrows a keychain's keys to those valid at now, for either
// sending or accepting.
type KeyFilter func(kc *keychain.Keychain, now time.Time) []keychain.Key

// AuthContext is the process-scoped state the core needs: timestamp base,
// ANM timeout policy, global statistics, and the authentic-neighbors
// memory itself. Interface-specific state lives in *Interface.
type AuthContext struct {
	TSBase      TSBase
	AnmTimeout  time.Duration
	Stats       Stats
	Memory      *anm.Memory
	LookupChain KeychainLookup

	// Now returns the current wallclock time, assumed non-decreasing.
	// Defaults to time.Now when nil.
	Now func() time.Time
}

// NewAuthContext constructs an AuthContext with the documented defaults:
// TSBaseUnix, a 300s ANM timeout, and a fresh, empty ANM.
func NewAuthContext(lookup KeychainLookup) *AuthContext {
	return &AuthContext{
		TSBase:      TSBaseUnix,
		AnmTimeout:  DefaultAnmTimeout,
		Memory:      anm.New(),
		LookupChain: lookup,
	}
}

func (c *AuthContext) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
