package h264

import (
	"bytes"
	"testing"
)

func TestNewNalUnit_DecodesHeader(t *testing.T) {
	n := NewNalUnit([]byte{0x65, 0xAA}, 1000, 4)
	if n.Type != TypeIDR {
		t.Errorf("Type = %d, want %d", n.Type, TypeIDR)
	}
	if n.RefIDC != 3 {
		t.Errorf("RefIDC = %d, want 3", n.RefIDC)
	}
}

func TestNalUnit_IsSlice(t *testing.T) {
	cases := []struct {
		typ  uint8
		want bool
	}{
		{TypeIDR, true},
		{TypeNonIDR, true},
		{TypeSPS, false},
		{TypeSEI, false},
		{TypeAUD, false},
	}
	for _, c := range cases {
		n := NalUnit{Type: c.typ}
		if got := n.IsSlice(); got != c.want {
			t.Errorf("IsSlice() for type %d = %v, want %v", c.typ, got, c.want)
		}
	}
}

func TestNalUnit_AppendAnnexB_FourByteStartCode(t *testing.T) {
	n := NewNalUnit([]byte{0x65, 0xAA}, 0, 4)
	got := n.appendAnnexB(nil)
	want := []byte{0, 0, 0, 1, 0x65, 0xAA}
	if !bytes.Equal(got, want) {
		t.Errorf("appendAnnexB() = % x, want % x", got, want)
	}
}

func TestNalUnit_AppendAnnexB_ThreeByteStartCode(t *testing.T) {
	n := NewNalUnit([]byte{0x65, 0xAA}, 0, 3)
	got := n.appendAnnexB(nil)
	want := []byte{0, 0, 1, 0x65, 0xAA}
	if !bytes.Equal(got, want) {
		t.Errorf("appendAnnexB() = % x, want % x", got, want)
	}
}

func TestParseSPS_ReturnsStubDimensions(t *testing.T) {
	d := ParseSPS([]byte{0x67, 0x42, 0x00, 0x1e})
	if d.Width != 1920 || d.Height != 1080 || d.FrameRate != 30 {
		t.Errorf("ParseSPS() = %+v, want stub 1920x1080@30", d)
	}
}
