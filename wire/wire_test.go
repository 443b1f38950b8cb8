package wire

import (
	"bytes"
	"testing"
)

func buildPacket(tlvs ...[]byte) []byte {
	b := make([]byte, HeaderLen)
	EncodeHeader(b, Header{Magic: BabelMagic, Version: BabelVersion})
	for _, t := range tlvs {
		b = append(b, t...)
	}
	PatchBodyLen(b, uint16(len(b)-HeaderLen))
	return b
}

func tspcTLV(pc uint16, ts uint32) []byte {
	var out []byte
	out = AppendTSPC(nil, pc, ts)
	return out
}

func hmacTLV(keyID uint16, digest []byte) []byte {
	tlv := make([]byte, 2+2+len(digest))
	tlv[0] = MessageHMAC
	tlv[1] = byte(2 + len(digest))
	tlv[2] = byte(keyID >> 8)
	tlv[3] = byte(keyID)
	copy(tlv[4:], digest)
	return tlv
}

func TestHeaderRoundTrip(t *testing.T) {
	b := make([]byte, HeaderLen)
	EncodeHeader(b, Header{Magic: BabelMagic, Version: BabelVersion, BodyLen: 17})
	h, err := DecodeHeader(b)
	if err != nil {
		t.Fatal(err)
	}
	if h.Magic != BabelMagic || h.Version != BabelVersion || h.BodyLen != 17 {
		t.Errorf("got %+v", h)
	}
}

func TestDecodeHeaderShort(t *testing.T) {
	if _, err := DecodeHeader([]byte{1, 2}); err != ErrShortPacket {
		t.Errorf("got %v, want ErrShortPacket", err)
	}
}

func TestWalkPad1HasNoLength(t *testing.T) {
	packet := buildPacket([]byte{MessagePad1}, tspcTLV(5, 100))
	var types []uint8
	err := Walk(packet, func(tlv TLV) bool {
		types = append(types, tlv.Type)
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(types) != 2 || types[0] != MessagePad1 || types[1] != MessageTSPC {
		t.Errorf("got %v", types)
	}
}

func TestWalkTruncated(t *testing.T) {
	packet := buildPacket(tspcTLV(1, 1))
	truncated := packet[:len(packet)-2]
	if err := Walk(truncated, func(TLV) bool { return true }); err != ErrTruncatedTLV {
		t.Errorf("got %v, want ErrTruncatedTLV", err)
	}
}

func TestFirstTSPC(t *testing.T) {
	packet := buildPacket(tspcTLV(7, 12345), tspcTLV(99, 1))
	pc, ts, ok, err := FirstTSPC(packet)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || pc != 7 || ts != 12345 {
		t.Errorf("got pc=%d ts=%d ok=%v, want pc=7 ts=12345 ok=true", pc, ts, ok)
	}
}

func TestFirstTSPCAbsent(t *testing.T) {
	packet := buildPacket([]byte{MessagePad1})
	_, _, ok, err := FirstTSPC(packet)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected ok=false for packet without TS/PC TLV")
	}
}

func TestAppendHMACPlaceholderOffset(t *testing.T) {
	base := buildPacket(tspcTLV(1, 1))
	var sender [16]byte
	copy(sender[:], []byte{0xfe, 0x80, 0, 0, 0, 0, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8})
	out, off := AppendHMACPlaceholder(base, 42, 32, sender)
	if off != len(base)+4 {
		t.Errorf("digestOffset = %d, want %d", off, len(base)+4)
	}
	if !bytes.Equal(out[off:off+16], sender[:]) {
		t.Error("placeholder digest does not start with sender address")
	}
	for _, b := range out[off+16 : off+32] {
		if b != 0 {
			t.Error("placeholder digest padding is not zero")
		}
	}
}

func TestPadIsIdempotentOnPlaceholder(t *testing.T) {
	var sender [16]byte
	copy(sender[:], []byte{0xfe, 0x80, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14})
	base := buildPacket(tspcTLV(1, 1))
	withPlaceholder, _ := AppendHMACPlaceholder(base, 1, 32, sender)
	PatchBodyLen(withPlaceholder, uint16(len(withPlaceholder)-HeaderLen))

	padded, err := Pad(withPlaceholder, sender)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(padded, withPlaceholder) {
		t.Error("padding a packet that already carries placeholder digests should be a no-op")
	}
}

func TestPadReplacesRealDigest(t *testing.T) {
	var sender [16]byte
	copy(sender[:], []byte{0xfe, 0x80, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14})
	realDigest := bytes.Repeat([]byte{0xAB}, 32)
	packet := buildPacket(tspcTLV(1, 1), hmacTLV(9, realDigest))

	padded, err := Pad(packet, sender)
	if err != nil {
		t.Fatal(err)
	}
	if len(padded) != len(packet) {
		t.Fatalf("padded length %d != original %d", len(padded), len(packet))
	}
	if bytes.Equal(padded, packet) {
		t.Error("padding a packet with a real digest should change its bytes")
	}

	// non-HMAC TLVs and header must be untouched.
	if !bytes.Equal(padded[:HeaderLen], packet[:HeaderLen]) {
		t.Error("header changed by padding")
	}
	tspcEnd := HeaderLen + len(tspcTLV(1, 1))
	if !bytes.Equal(padded[HeaderLen:tspcEnd], packet[HeaderLen:tspcEnd]) {
		t.Error("TS/PC TLV changed by padding")
	}
}

func TestPadRejectsTruncatedTLVWithoutPanicking(t *testing.T) {
	var sender [16]byte
	packet := buildPacket(tspcTLV(1, 1))
	// a trailing type byte with no length byte following it.
	packet = append(packet, MessageHMAC)
	PatchBodyLen(packet, uint16(len(packet)-HeaderLen))

	if _, err := Pad(packet, sender); err != ErrTruncatedTLV {
		t.Fatalf("got %v, want ErrTruncatedTLV", err)
	}
}

func TestPadRejectsOverrunLength(t *testing.T) {
	var sender [16]byte
	packet := buildPacket(tspcTLV(1, 1))
	// a length byte claiming far more value bytes than actually follow.
	packet = append(packet, MessageHMAC, 0xFF)
	PatchBodyLen(packet, uint16(len(packet)-HeaderLen))

	if _, err := Pad(packet, sender); err != ErrTruncatedTLV {
		t.Fatalf("got %v, want ErrTruncatedTLV", err)
	}
}

func TestPadRejectsShortPacket(t *testing.T) {
	var sender [16]byte
	if _, err := Pad([]byte{1, 2}, sender); err != ErrShortPacket {
		t.Fatalf("got %v, want ErrShortPacket", err)
	}
}

func TestAppendTSPCEncoding(t *testing.T) {
	tlv := AppendTSPC(nil, 0x0102, 0x03040506)
	want := []byte{MessageTSPC, 6, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	if !bytes.Equal(tlv, want) {
		t.Errorf("got % x, want % x", tlv, want)
	}
}
