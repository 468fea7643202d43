package rtp

import "time"

// clockRate is the RTP timestamp clock rate assumed for jitter
// computation: a 90kHz clock, matching the video payload's media clock.
const clockRate = 90000

// statsReportInterval is how often Stats() is surfaced unprompted, in
// packets received.
const statsReportInterval = 10

// Stats is a snapshot of the depacketizer's running counters.
type Stats struct {
	PacketsReceived  int64
	PacketsLost      int64
	PacketsOutOfOrder int64
	PacketsDuplicate int64
	Bytes            int64
	BitrateBps       float64
	MeanJitter       float64 // RTP timestamp units
}

// jitterTracker implements the RFC 3550 §6.4.1 interarrival jitter
// estimate, simplified to a single video source (no per-SSRC table).
type jitterTracker struct {
	haveLast   bool
	lastArrival time.Time
	lastRTPTS  uint32
	jitter     float64
}

// update folds in one packet's arrival time and RTP timestamp, returning
// the running jitter estimate.
func (j *jitterTracker) update(arrival time.Time, rtpTS uint32) float64 {
	if !j.haveLast {
		j.haveLast = true
		j.lastArrival = arrival
		j.lastRTPTS = rtpTS
		return j.jitter
	}

	arrivalUnits := arrival.Sub(j.lastArrival).Seconds() * clockRate
	rtpUnits := float64(int64(rtpTS) - int64(j.lastRTPTS))
	d := arrivalUnits - rtpUnits
	if d < 0 {
		d = -d
	}
	j.jitter += (d - j.jitter) / 16

	j.lastArrival = arrival
	j.lastRTPTS = rtpTS
	return j.jitter
}

// statsTracker accumulates the counters behind a Stats snapshot.
type statsTracker struct {
	received    int64
	lost        int64
	outOfOrder  int64
	duplicate   int64
	bytes       int64
	jitter      jitterTracker
	windowStart time.Time
	windowBytes int64
}

func newStatsTracker() *statsTracker {
	return &statsTracker{windowStart: time.Now()}
}

func (s *statsTracker) recordPacket(status PacketStatus, lostAdjustment int, payloadLen int, arrival time.Time, rtpTS uint32) {
	if status == StatusDuplicate {
		s.duplicate++
		return
	}

	s.received++
	s.bytes += int64(payloadLen)
	s.windowBytes += int64(payloadLen)

	switch status {
	case StatusLost:
		s.lost += int64(lostAdjustment)
	case StatusOutOfOrder:
		s.outOfOrder++
		if lostAdjustment < 0 {
			s.lost += int64(lostAdjustment)
		}
	}

	s.jitter.update(arrival, rtpTS)
}

// snapshot returns the current Stats and resets the bitrate measurement
// window.
func (s *statsTracker) snapshot() Stats {
	elapsed := time.Since(s.windowStart).Seconds()
	var bitrate float64
	if elapsed > 0 {
		bitrate = float64(s.windowBytes*8) / elapsed
	}
	s.windowStart = time.Now()
	s.windowBytes = 0

	return Stats{
		PacketsReceived:   s.received,
		PacketsLost:       s.lost,
		PacketsOutOfOrder: s.outOfOrder,
		PacketsDuplicate:  s.duplicate,
		Bytes:             s.bytes,
		BitrateBps:        bitrate,
		MeanJitter:        s.jitter.jitter,
	}
}

func (s *statsTracker) shouldReport() bool {
	return s.received > 0 && s.received%statsReportInterval == 0
}
