// Package wire implements the Babel packet framing the authentication core
// reads and writes: the 4-byte packet header, the PAD1/TLV stream, and the
// TS/PC and HMAC TLVs defined by the Babel HMAC authentication extension
// (RFC 9229). Field access goes through github.com/msgboxio/packets, the
// same fixed-width big-endian reader/writer the teacher uses for the IKE
// header in protocol.go.
package wire

import (
	"github.com/msgboxio/log"
	"github.com/msgboxio/packets"
	"github.com/pkg/errors"
)

const (
	HeaderLen = 4

	BabelMagic   = 42
	BabelVersion = 2
)

// TLV types relevant to authentication. Every other TLV type is opaque to
// this package and is copied through verbatim.
const (
	MessagePad1 uint8 = 0
	MessageTSPC uint8 = 16 // RFC 9229
	MessageHMAC uint8 = 17 // RFC 9229
)

const (
	tspcValueLen  = 6 // packet-counter(2) | timestamp(4)
	hmacHeaderLen = 2 // key-id(2), digest follows
)

var ErrShortPacket = errors.New("babel packet shorter than header")
var ErrTruncatedTLV = errors.New("babel packet truncated mid-TLV")

// Header is the 4-byte Babel packet header.
type Header struct {
	Magic   uint8
	Version uint8
	BodyLen uint16
}

// DecodeHeader reads the packet header from the start of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, ErrShortPacket
	}
	magic, _ := packets.ReadB8(b, 0)
	version, _ := packets.ReadB8(b, 1)
	bodyLen, _ := packets.ReadB16(b, 2)
	return Header{Magic: magic, Version: version, BodyLen: bodyLen}, nil
}

// EncodeHeader writes h into the first HeaderLen bytes of b. b must be at
// least HeaderLen bytes long.
func EncodeHeader(b []byte, h Header) {
	packets.WriteB8(b, 0, h.Magic)
	packets.WriteB8(b, 1, h.Version)
	packets.WriteB16(b, 2, h.BodyLen)
}

// PatchBodyLen overwrites the body-length field of an already-encoded
// packet in place. This is the only field the outbound builder is allowed
// to rewrite on an existing TLV stream, per spec.
func PatchBodyLen(b []byte, bodyLen uint16) {
	packets.WriteB16(b, 2, bodyLen)
}

// TLV is a decoded type/length/value record. Pad1 TLVs decode with
// Length == 0 and an empty Value, matching their on-wire absence of a
// length byte.
type TLV struct {
	Type   uint8
	Length uint8
	Value  []byte
	// Offset is the offset of this TLV's first byte (its Type byte) within
	// the buffer it was decoded from.
	Offset int
}

// Walk calls fn once per TLV found in the body (everything in b after the
// 4-byte header), in wire order, stopping early if fn returns false. It
// does not allocate per TLV; Value aliases b.
func Walk(b []byte, fn func(t TLV) bool) error {
	off := HeaderLen
	for off < len(b) {
		typ := b[off]
		if typ == MessagePad1 {
			if !fn(TLV{Type: typ, Offset: off}) {
				return nil
			}
			off++
			continue
		}
		if off+2 > len(b) {
			return ErrTruncatedTLV
		}
		length := b[off+1]
		end := off + 2 + int(length)
		if end > len(b) {
			return ErrTruncatedTLV
		}
		if !fn(TLV{Type: typ, Length: length, Value: b[off+2 : end], Offset: off}) {
			return nil
		}
		off = end
	}
	return nil
}

// FirstTSPC returns the value of the first well-formed (6-byte value) TS/PC
// TLV in the packet, if any. TS/PC TLVs of any other length are skipped;
// no TS/PC TLV after the returned one is consulted.
func FirstTSPC(b []byte) (pc uint16, ts uint32, ok bool, err error) {
	err = Walk(b, func(t TLV) bool {
		if t.Type != MessageTSPC {
			return true
		}
		if int(t.Length) != tspcValueLen {
			log.V(1).Infof("wire: ignoring malformed TS/PC TLV with length %d", t.Length)
			return true
		}
		pcv, _ := packets.ReadB16(t.Value, 0)
		tsv, _ := packets.ReadB32(t.Value, 2)
		pc, ts, ok = pcv, tsv, true
		return false
	})
	return
}

// AppendTSPC appends a TS/PC TLV to b and returns the result.
func AppendTSPC(b []byte, pc uint16, ts uint32) []byte {
	tlv := make([]byte, 2+tspcValueLen)
	packets.WriteB8(tlv, 0, MessageTSPC)
	packets.WriteB8(tlv, 1, tspcValueLen)
	packets.WriteB16(tlv, 2, pc)
	packets.WriteB32(tlv, 4, ts)
	return append(b, tlv...)
}

// AppendHMACPlaceholder appends an HMAC TLV whose digest field is filled
// with placeholder bytes (sender link-local address, zero padded), and
// returns the new buffer along with the absolute offset of the digest
// field within it (for later patching once the real digest is computed).
func AppendHMACPlaceholder(b []byte, keyID uint16, digestLen int, sender [16]byte) (out []byte, digestOffset int) {
	tlv := make([]byte, 2+hmacHeaderLen+digestLen)
	packets.WriteB8(tlv, 0, MessageHMAC)
	packets.WriteB8(tlv, 1, uint8(hmacHeaderLen+digestLen))
	packets.WriteB16(tlv, 2, keyID)
	putPaddedDigest(tlv[2+hmacHeaderLen:], sender)
	digestOffset = len(b) + 2 + hmacHeaderLen
	out = append(b, tlv...)
	return
}

func putPaddedDigest(dst []byte, sender [16]byte) {
	n := copy(dst, sender[:])
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// Pad returns a new buffer identical in length to packet, with every HMAC
// TLV's digest field replaced by (sender link-local address || zeros).
// This is the exact byte image both sides of the HMAC computation use.
//
// Pad walks the whole TLV stream the same way Walk does and returns
// ErrShortPacket/ErrTruncatedTLV on malformed input instead of indexing
// past the end of packet; attacker-supplied bytes must never panic this.
func Pad(packet []byte, sender [16]byte) ([]byte, error) {
	if len(packet) < HeaderLen {
		return nil, ErrShortPacket
	}
	padded := make([]byte, len(packet))
	copy(padded[:HeaderLen], packet[:HeaderLen])
	off := HeaderLen
	for off < len(packet) {
		typ := packet[off]
		if typ == MessagePad1 {
			padded[off] = typ
			off++
			continue
		}
		if off+2 > len(packet) {
			return nil, ErrTruncatedTLV
		}
		length := packet[off+1]
		end := off + 2 + int(length)
		if end > len(packet) {
			return nil, ErrTruncatedTLV
		}
		padded[off] = typ
		padded[off+1] = length
		valueStart := off + 2
		if typ == MessageHMAC && int(length) >= hmacHeaderLen {
			copy(padded[valueStart:valueStart+hmacHeaderLen], packet[valueStart:valueStart+hmacHeaderLen])
			putPaddedDigest(padded[valueStart+hmacHeaderLen:end], sender)
		} else {
			copy(padded[valueStart:end], packet[valueStart:end])
		}
		off = end
	}
	return padded, nil
}
