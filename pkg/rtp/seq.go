package rtp

// Sequence discipline constants.
const (
	MaxDropout  = 3000
	MaxMisorder = 100
)

// PacketStatus classifies an incoming RTP packet against the receiver's
// expected next sequence number.
type PacketStatus int

const (
	// StatusValid is the next expected sequence number in order.
	StatusValid PacketStatus = iota
	// StatusLost is a forward gap within MaxDropout; delivered, and the gap
	// size is added to packetsLost.
	StatusLost
	// StatusOutOfOrder arrived behind expected but within MaxMisorder;
	// delivered.
	StatusOutOfOrder
	// StatusDuplicate repeats the immediately preceding sequence number;
	// dropped.
	StatusDuplicate
	// StatusResync is a jump outside both windows, treated as a silent
	// resynchronization (no discontinuity marker is emitted); delivered.
	StatusResync
)

func (s PacketStatus) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusLost:
		return "lost"
	case StatusOutOfOrder:
		return "out_of_order"
	case StatusDuplicate:
		return "duplicate"
	case StatusResync:
		return "resync"
	default:
		return "unknown"
	}
}

// seqTracker implements the RTP sequence-number classification state
// machine: VALID, LOST, OUT_OF_ORDER, DUPLICATE, or RESYNC for every
// arriving sequence number. expected == -1 means "unset" (no packet
// observed yet).
//
// A forward gap (StatusLost) provisionally counts every skipped sequence
// number as lost. If one of those numbers shows up later as a reordered
// arrival within MAX_MISORDER, it was never actually lost, so classify
// reconciles the
// earlier tally via lostAdjustment (a negative return value the caller
// subtracts from its running packetsLost counter). This keeps the running
// counter matching what a human reading the final stream would call
// "lost": a gap that is later filled by a late arrival isn't loss.
type seqTracker struct {
	expected int32
	pending  map[uint16]struct{} // sequence numbers presumed lost, awaiting a possible late arrival
}

// classify evaluates seq against the tracker's expected value, updates the
// tracker, and returns the classification plus a signed adjustment to the
// running packetsLost counter (positive for a fresh gap, negative when a
// previously-presumed-lost number turns up reordered).
//
// On the very first packet (expected unset), the tracker initializes to
// seq and reports StatusValid.
func (t *seqTracker) classify(seq uint16) (PacketStatus, int) {
	if t.pending == nil {
		// A zero-value tracker has not seen a packet yet: mark expected unset.
		t.pending = make(map[uint16]struct{})
		t.expected = -1
	}

	if t.expected < 0 {
		t.expected = int32((uint32(seq) + 1) & 0xffff)
		return StatusValid, 0
	}

	delta := int32(seq) - t.expected
	// delta is computed on values in [0, 65535]; normalize to the signed
	// range (-32768, 32767] so "just behind" and "just ahead" read as small
	// magnitudes regardless of wraparound.
	if delta > 32767 {
		delta -= 65536
	} else if delta < -32768 {
		delta += 65536
	}

	switch {
	case delta == 0:
		delete(t.pending, seq)
		t.expected = uint16Add(t.expected, 1)
		return StatusValid, 0

	case delta > 0 && delta < MaxDropout:
		for s := t.expected; s != int32(seq); s = uint16Add(s, 1) {
			t.pending[uint16(s)] = struct{}{}
		}
		lost := int(delta)
		t.expected = uint16Add(int32(seq), 1)
		return StatusLost, lost

	case delta < 0 && delta > -MaxMisorder:
		if delta == -1 {
			return StatusDuplicate, 0
		}
		if _, wasPending := t.pending[seq]; wasPending {
			delete(t.pending, seq)
			return StatusOutOfOrder, -1
		}
		return StatusOutOfOrder, 0

	default:
		t.expected = uint16Add(int32(seq), 1)
		return StatusResync, 0
	}
}

// uint16Add adds delta to v and wraps the result into [0, 65535], returned
// widened back to int32 so the tracker's expected field never needs to be
// reinterpreted as unsigned by callers.
func uint16Add(v int32, delta int32) int32 {
	return int32((uint32(v) + uint32(delta)) & 0xffff)
}
