package babelauth

import (
	"crypto/hmac"
	"net"

	"github.com/msgboxio/babelauth/algo"
	"github.com/msgboxio/babelauth/keychain"
	"github.com/msgboxio/babelauth/wire"
	"github.com/msgboxio/log"
	"github.com/msgboxio/packets"
)

// Check verifies that packet, received from sender on iface, is authentic,
// per spec §4.3. It returns the OK/NG verdict; when iface.AuthRxRequired is
// false the verdict is still computed and counted but the return value is
// always true ("observation-only" mode, spec §4.7).
func (c *AuthContext) Check(iface *Interface, sender net.IP, packet []byte) bool {
	if len(iface.CSAs) == 0 {
		c.Stats.PlainRecv++
		iface.Stats.PlainRecv++
		return true
	}

	pc, ts, found, err := wire.FirstTSPC(packet)
	if err != nil || !found {
		c.Stats.AuthRecvNgNoTspc++
		iface.Stats.AuthRecvNgNoTspc++
		log.V(1).Infof("babelauth: %s: no TS/PC TLV in packet from %s", iface.Name, sender)
		return !iface.AuthRxRequired
	}

	last, _ := c.Memory.Lookup(sender, iface.Name)
	if !(ts > last.LastTS || (ts == last.LastTS && pc > last.LastPC)) {
		c.Stats.AuthRecvNgTspc++
		iface.Stats.AuthRecvNgTspc++
		log.V(1).Infof("babelauth: %s: TS/PC (%d/%d) from %s does not exceed stored (%d/%d)",
			iface.Name, ts, pc, sender, last.LastTS, last.LastPC)
		return !iface.AuthRxRequired
	}

	var senderBytes [16]byte
	copy(senderBytes[:], sender.To16())
	padded, err := wire.Pad(packet, senderBytes)
	if err != nil {
		c.Stats.AuthRecvNgHmac++
		iface.Stats.AuthRecvNgHmac++
		log.V(1).Infof("babelauth: %s: malformed TLV stream from %s: %v", iface.Name, sender, err)
		return !iface.AuthRxRequired
	}

	now := c.now()
	esas := buildESAList(iface.CSAs, now, c.LookupChain, keychain.ValidForAccept)
	if len(esas) == 0 {
		c.Stats.AuthRecvNgNokeys++
		iface.Stats.AuthRecvNgNokeys++
		log.Warningf("babelauth: interface %s has no valid keys", iface.Name)
	}

	var hmacTLVs []wire.TLV
	if err := wire.Walk(packet, func(t wire.TLV) bool {
		if t.Type == wire.MessageHMAC {
			hmacTLVs = append(hmacTLVs, t)
		}
		return true
	}); err != nil {
		c.Stats.AuthRecvNgHmac++
		iface.Stats.AuthRecvNgHmac++
		log.V(1).Infof("babelauth: %s: malformed TLV stream from %s: %v", iface.Name, sender, err)
		return !iface.AuthRxRequired
	}

	ok := false
	digestsDone := 0
outerLoop:
	for _, esa := range esas {
		if digestsDone >= MaxDigestsIn {
			break
		}
		var localDigest []byte
		for _, t := range hmacTLVs {
			if int(t.Length) != 2+esa.HashAlgo.DigestLength() {
				continue
			}
			keyID, _ := packets.ReadB16(t.Value, 0)
			if keyID != esa.KeyID {
				continue
			}
			if localDigest == nil {
				d, err := algo.HMAC(esa.HashAlgo, esa.KeyBytes, padded)
				digestsDone++
				if err != nil {
					log.Errorf("babelauth: hash function error: %v", err)
					c.Stats.InternalErr++
					iface.Stats.InternalErr++
					continue outerLoop
				}
				localDigest = d
			}
			if hmac.Equal(localDigest, t.Value[2:]) {
				ok = true
				break outerLoop
			}
		}
	}

	if ok {
		c.Memory.Upsert(sender, iface.Name, ts, pc, now)
		c.Stats.AuthRecvOk++
		iface.Stats.AuthRecvOk++
		log.V(1).Infof("babelauth: %s: accepted packet from %s, TS/PC now (%d/%d)", iface.Name, sender, ts, pc)
	} else {
		c.Stats.AuthRecvNgHmac++
		iface.Stats.AuthRecvNgHmac++
	}

	return !iface.AuthRxRequired || ok
}
