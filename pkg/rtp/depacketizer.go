package rtp

import (
	"context"
	"fmt"
	"time"

	"github.com/fenwickstream/rtsp-ingest/pkg/h264"
)

// Depacketizer turns a stream of RTP packets for a single payload type into
// H.264 NAL units: it validates the header, runs the sequence-number
// discipline, reassembles FU-A fragments, and reports statistics.
//
// Single-NAL packets (RFC 6184 §5.6) and FU-A fragments (§5.8) are
// handled. STAP-A aggregation packets (§5.7, type 24) are not unpacked;
// DESIGN.md records the decision to pass the STAP-A payload through the
// single-NAL path unchanged rather than implement the aggregation-unit
// walk. Any stream that actually uses STAP-A will produce garbled output;
// that tradeoff is intentional and documented, not an oversight.
type Depacketizer struct {
	payloadType uint8
	observer    Observer

	seq   seqTracker
	fua   *fuaReassembler
	stats *statsTracker
}

// NewDepacketizer returns a Depacketizer that only accepts packets carrying
// payloadType; anything else is dropped silently, without an OnError call.
func NewDepacketizer(payloadType uint8, observer Observer, fragmentMaxBytes int, fragmentMaxAge time.Duration) *Depacketizer {
	return &Depacketizer{
		payloadType: payloadType,
		observer:    observer,
		fua:         newFUAReassembler(fragmentMaxBytes, fragmentMaxAge),
		stats:       newStatsTracker(),
	}
}

// ProcessPacket decodes one raw RTP packet received at arrival.
func (d *Depacketizer) ProcessPacket(buf []byte, arrival time.Time) {
	header, offset, err := parseHeader(buf)
	if err != nil {
		d.observer.OnError(fmt.Errorf("rtp: %w", err))
		return
	}

	if header.PayloadType != d.payloadType {
		return
	}

	payload := buf[offset:]

	status, lostAdjustment := d.seq.classify(header.SequenceNumber)
	d.stats.recordPacket(status, lostAdjustment, len(payload), arrival, header.Timestamp)

	if status == StatusDuplicate {
		if d.stats.shouldReport() {
			d.observer.OnStats(d.stats.snapshot())
		}
		return
	}

	if len(payload) == 0 {
		d.observer.OnError(fmt.Errorf("rtp: empty payload, dropped"))
		return
	}

	nalType := payload[0] & 0x1f
	switch nalType {
	case h264.TypeFUA:
		complete, ferr := d.fua.addFragment(payload, header.Timestamp)
		if ferr != nil {
			d.observer.OnError(fmt.Errorf("rtp: %w", ferr))
		} else if complete != nil {
			d.observer.OnNAL(h264.NewNalUnit(complete, header.Timestamp, 0))
		}
	case h264.TypeSPS:
		d.observer.OnNAL(h264.NewNalUnit(payload, header.Timestamp, 0))
		d.observer.OnSPS(payload)
	case h264.TypePPS:
		d.observer.OnNAL(h264.NewNalUnit(payload, header.Timestamp, 0))
		d.observer.OnPPS(payload)
	default:
		// Single-NAL packet, or an unsupported STAP-A passed through as-is
		// (see type doc comment).
		d.observer.OnNAL(h264.NewNalUnit(payload, header.Timestamp, 0))
	}

	if d.stats.shouldReport() {
		d.observer.OnStats(d.stats.snapshot())
	}
}

// Stats returns the current statistics snapshot on demand.
func (d *Depacketizer) Stats() Stats {
	return d.stats.snapshot()
}

// Run periodically sweeps the FU-A fragment buffer for stale in-flight
// reassembly, until ctx is canceled.
func (d *Depacketizer) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if d.fua.sweep() {
				d.observer.OnError(fmt.Errorf("rtp: discarded stale FU-A fragment"))
			}
		}
	}
}
