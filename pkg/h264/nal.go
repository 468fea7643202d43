// Package h264 implements the access-unit assembler: it groups NAL units
// into complete access units (frames), classifies them,
// prepends cached SPS/PPS to key frames, and emits Annex-B byte-stream
// frames to a sink. It has no dependency on the rtp or rtsp packages — it
// is the leaf of the pipeline.
package h264

// NAL unit type values used by this module (ITU-T H.264 Annex B / RFC 6184).
const (
	TypeUnspecified uint8 = 0
	TypeNonIDR      uint8 = 1 // P-slice
	TypeIDR         uint8 = 5 // I-slice (key frame)
	TypeSEI         uint8 = 6
	TypeSPS         uint8 = 7
	TypePPS         uint8 = 8
	TypeAUD         uint8 = 9
	TypeSTAPA       uint8 = 24
	TypeFUA         uint8 = 28
)

// defaultStartCodeLen is used whenever a NalUnit doesn't specify one.
const defaultStartCodeLen = 4

// NalUnit is a single H.264 NAL unit as produced by the RTP depacketizer:
// the start code has already been stripped off (or was never present),
// and Payload begins with the one-byte NAL header.
type NalUnit struct {
	// Type is the 5-bit nal_unit_type.
	Type uint8
	// RefIDC is the 2-bit nal_ref_idc.
	RefIDC uint8
	// Payload is the full NAL unit including its one-byte header, excluding
	// any Annex-B start code.
	Payload []byte
	// Timestamp is the 32-bit RTP timestamp carried by the packet(s) this
	// NAL unit was reassembled from.
	Timestamp uint32
	// StartCodeLen is the start-code length to use when this NAL is
	// serialized (3 or 4; 0 means "use the default", 4).
	StartCodeLen int
}

// NewNalUnit decodes the NAL header byte of payload and builds a NalUnit
// carrying it, timestamp and start code length as given.
func NewNalUnit(payload []byte, timestamp uint32, startCodeLen int) NalUnit {
	var typ, refIDC uint8
	if len(payload) > 0 {
		typ = payload[0] & 0x1f
		refIDC = (payload[0] >> 5) & 0x03
	}
	return NalUnit{
		Type:         typ,
		RefIDC:       refIDC,
		Payload:      payload,
		Timestamp:    timestamp,
		StartCodeLen: startCodeLen,
	}
}

// IsSlice reports whether this NAL unit is an IDR (type 5) or non-IDR
// (type 1) slice, the only types that can open a new access unit.
func (n NalUnit) IsSlice() bool {
	return n.Type == TypeIDR || n.Type == TypeNonIDR
}

func (n NalUnit) startCodeLen() int {
	if n.StartCodeLen == 3 || n.StartCodeLen == 4 {
		return n.StartCodeLen
	}
	return defaultStartCodeLen
}

// appendAnnexB appends this NAL's start code and payload to dst.
func (n NalUnit) appendAnnexB(dst []byte) []byte {
	scLen := n.startCodeLen()
	dst = append(dst, 0x00, 0x00, 0x00, 0x01)
	if scLen == 3 {
		// 3-byte start code: drop the leading zero we just appended.
		dst = dst[:len(dst)-1]
		dst[len(dst)-3], dst[len(dst)-2], dst[len(dst)-1] = 0x00, 0x00, 0x01
	}
	return append(dst, n.Payload...)
}
