package rtp

import "github.com/fenwickstream/rtsp-ingest/pkg/h264"

// Observer receives NAL units, errors, and periodic statistics from a
// Depacketizer. The typical wiring forwards OnNAL straight
// into an h264.Assembler's AddNAL.
type Observer interface {
	// OnNAL is called once per NAL unit: either a single-NAL packet decoded
	// directly, or the result of a completed FU-A reassembly.
	OnNAL(nal h264.NalUnit)
	// OnSPS is called whenever a NAL unit of type 7 (SPS) arrives, in
	// addition to the OnNAL call for the same unit.
	OnSPS(payload []byte)
	// OnPPS is called whenever a NAL unit of type 8 (PPS) arrives, in
	// addition to the OnNAL call for the same unit.
	OnPPS(payload []byte)
	// OnError reports a non-fatal packet-level condition: a malformed
	// header, an empty payload, a discarded fragment. Packets of another
	// payload type are dropped without a call.
	OnError(err error)
	// OnStats is called every statsReportInterval packets. Depacketizer.Stats
	// returns a snapshot on demand without calling OnStats.
	OnStats(s Stats)
}
