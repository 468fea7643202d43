package rtp

import "testing"

func TestParseHeader_BasicPacket(t *testing.T) {
	// header [80 61 00 01 00 00 00 64 DE AD BE EF] followed by payload
	// [65 AA].
	buf := []byte{0x80, 0x61, 0x00, 0x01, 0x00, 0x00, 0x00, 0x64, 0xDE, 0xAD, 0xBE, 0xEF, 0x65, 0xAA}

	h, offset, err := parseHeader(buf)
	if err != nil {
		t.Fatalf("parseHeader() error = %v", err)
	}

	if h.Version != 2 {
		t.Errorf("Version = %d, want 2", h.Version)
	}
	if h.PayloadType != 97 {
		t.Errorf("PayloadType = %d, want 97", h.PayloadType)
	}
	if h.SequenceNumber != 1 {
		t.Errorf("SequenceNumber = %d, want 1", h.SequenceNumber)
	}
	if h.Timestamp != 100 {
		t.Errorf("Timestamp = %d, want 100", h.Timestamp)
	}
	if offset != 12 {
		t.Errorf("offset = %d, want 12 (no CSRC)", offset)
	}
	if string(buf[offset:]) != string([]byte{0x65, 0xAA}) {
		t.Errorf("payload = % x, want [65 aa]", buf[offset:])
	}
}

func TestParseHeader_TooShort(t *testing.T) {
	_, _, err := parseHeader([]byte{0x80, 0x61})
	if err == nil {
		t.Fatal("expected error for short packet")
	}
}

func TestParseHeader_CSRCOffset(t *testing.T) {
	buf := make([]byte, 16+4)
	buf[0] = 0x82 // version 2, CC=2
	buf[1] = 0x61
	_, offset, err := parseHeader(buf)
	if err != nil {
		t.Fatalf("parseHeader() error = %v", err)
	}
	if offset != 12+4*2 {
		t.Errorf("offset = %d, want %d", offset, 12+4*2)
	}
}
