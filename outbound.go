package babelauth

import (
	"github.com/msgboxio/babelauth/algo"
	"github.com/msgboxio/babelauth/keychain"
	"github.com/msgboxio/babelauth/wire"
	"github.com/msgboxio/log"
)

// Make appends authentication TLVs to packet (a fully-formed, unauthenticated
// Babel packet: 4-byte header followed by body) and returns the resulting
// packet, per spec §4.4.
//
// Go adaptation note (see SPEC_FULL.md §10): the reference C signature
// mutates a caller-owned buffer sized for spare capacity and returns the
// new length. This returns a new packet built with append instead, and
// returns packet itself, untouched, on every failure path — the same
// atomicity guarantee, without requiring the caller to over-allocate.
func (c *AuthContext) Make(iface *Interface, packet []byte) []byte {
	if len(iface.CSAs) == 0 {
		c.Stats.PlainSent++
		iface.Stats.PlainSent++
		return packet
	}

	sender, err := iface.LinkLocalAddress()
	if err != nil {
		log.Errorf("babelauth: %s: %v", iface.Name, err)
		c.Stats.InternalErr++
		iface.Stats.InternalErr++
		return packet
	}
	var senderBytes [16]byte
	copy(senderBytes[:], sender.To16())

	now := c.now()
	esas := buildESAList(iface.CSAs, now, c.LookupChain, keychain.ValidForSend)
	if len(esas) == 0 {
		c.Stats.AuthSentNgNokeys++
		iface.Stats.AuthSentNgNokeys++
		log.Warningf("babelauth: interface %s has no valid keys", iface.Name)
	}

	iface.SendCounters.advance(c.TSBase, uint32(now.Unix()))

	scratch := append([]byte{}, packet...)
	scratch = wire.AppendTSPC(scratch, iface.SendCounters.PacketCounter, iface.SendCounters.Timestamp)

	n := len(esas)
	if n > MaxDigestsOut {
		n = MaxDigestsOut
	}
	type pending struct {
		esa    ESA
		offset int
	}
	placeholders := make([]pending, 0, n)
	for i := 0; i < n; i++ {
		var off int
		scratch, off = wire.AppendHMACPlaceholder(scratch, esas[i].KeyID, esas[i].HashAlgo.DigestLength(), senderBytes)
		placeholders = append(placeholders, pending{esas[i], off})
	}

	wire.PatchBodyLen(scratch, uint16(len(scratch)-wire.HeaderLen))

	padded, err := wire.Pad(scratch, senderBytes)
	if err != nil {
		// scratch is built entirely by this function, so a malformed
		// stream here means a bug in the TLV encoder, not attacker input.
		log.Errorf("babelauth: %s: built an unparsable packet: %v", iface.Name, err)
		c.Stats.InternalErr++
		iface.Stats.InternalErr++
		return packet
	}
	for _, p := range placeholders {
		digest, err := algo.HMAC(p.esa.HashAlgo, p.esa.KeyBytes, padded)
		if err != nil {
			log.Errorf("babelauth: hash function error: %v", err)
			c.Stats.InternalErr++
			iface.Stats.InternalErr++
			return packet
		}
		copy(scratch[p.offset:p.offset+len(digest)], digest)
	}

	c.Stats.AuthSent++
	iface.Stats.AuthSent++
	return scratch
}
