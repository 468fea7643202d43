// Package rtp implements the RTP depacketizer: header validation, the
// sequence-number discipline (loss/reorder/duplicate/resync), jitter and
// bitrate statistics, and FU-A reassembly into H.264 NAL units (without
// start codes; pkg/h264 adds the Annex-B framing).
package rtp

import (
	"fmt"

	"github.com/pion/rtp"
)

// Header is the 12-byte fixed RTP header. Fields are decoded with
// github.com/pion/rtp's Header.Unmarshal, but the payload offset is then
// computed by this package's own formula (12 + 4*CSRCCount) rather than
// pion/rtp's, because pion/rtp additionally strips any extension header
// from the payload. An extension header is conservatively left in the
// payload here — flagged in Extension but never
// unwrapped — so we deliberately
// keep our own offset math instead of the library's.
type Header struct {
	Version        uint8
	Padding        bool
	Extension      bool
	CSRCCount      uint8
	Marker         bool
	PayloadType    uint8
	SequenceNumber uint16
	Timestamp      uint32
	SSRC           uint32
}

// minHeaderLen is the fixed portion of the RTP header before any CSRC
// identifiers.
const minHeaderLen = 12

// parseHeader decodes the fixed 12-byte header plus CSRC list and returns
// the header together with the byte offset at which the payload begins:
// 12 + 4*CSRC-count.
func parseHeader(buf []byte) (Header, int, error) {
	if len(buf) < minHeaderLen {
		return Header{}, 0, fmt.Errorf("rtp: packet too short (%d bytes)", len(buf))
	}

	var h rtp.Header
	if _, err := h.Unmarshal(buf); err != nil {
		return Header{}, 0, fmt.Errorf("rtp: header decode: %w", err)
	}

	out := Header{
		Version:        h.Version,
		Padding:        h.Padding,
		Extension:      h.Extension,
		CSRCCount:      uint8(len(h.CSRC)),
		Marker:         h.Marker,
		PayloadType:    h.PayloadType,
		SequenceNumber: h.SequenceNumber,
		Timestamp:      h.Timestamp,
		SSRC:           h.SSRC,
	}

	offset := minHeaderLen + 4*int(out.CSRCCount)
	if offset > len(buf) {
		return Header{}, 0, fmt.Errorf("rtp: CSRC count overruns packet (offset %d, len %d)", offset, len(buf))
	}

	return out, offset, nil
}
