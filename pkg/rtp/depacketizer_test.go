package rtp

import (
	"bytes"
	"testing"
	"time"

	"github.com/fenwickstream/rtsp-ingest/pkg/h264"
)

type recordingObserver struct {
	nals []h264.NalUnit
	sps  [][]byte
	pps  [][]byte
	errs []error
	stats []Stats
}

func (o *recordingObserver) OnNAL(n h264.NalUnit) { o.nals = append(o.nals, n) }
func (o *recordingObserver) OnSPS(payload []byte) { o.sps = append(o.sps, payload) }
func (o *recordingObserver) OnPPS(payload []byte) { o.pps = append(o.pps, payload) }
func (o *recordingObserver) OnError(err error)    { o.errs = append(o.errs, err) }
func (o *recordingObserver) OnStats(s Stats)      { o.stats = append(o.stats, s) }

func rtpPacket(seq uint16, timestamp uint32, pt uint8, payload []byte) []byte {
	buf := make([]byte, 12+len(payload))
	buf[0] = 0x80
	buf[1] = pt
	buf[2] = byte(seq >> 8)
	buf[3] = byte(seq)
	buf[4] = byte(timestamp >> 24)
	buf[5] = byte(timestamp >> 16)
	buf[6] = byte(timestamp >> 8)
	buf[7] = byte(timestamp)
	copy(buf[12:], payload)
	return buf
}

func TestDepacketizer_SingleNALRoundTrip(t *testing.T) {
	obs := &recordingObserver{}
	d := NewDepacketizer(97, obs, 0, 0)

	d.ProcessPacket(rtpPacket(1, 100, 97, []byte{0x65, 0xAA}), time.Now())

	if len(obs.nals) != 1 {
		t.Fatalf("got %d NALs, want 1", len(obs.nals))
	}
	if !bytes.Equal(obs.nals[0].Payload, []byte{0x65, 0xAA}) {
		t.Errorf("payload = % x, want [65 aa]", obs.nals[0].Payload)
	}
	if obs.nals[0].Type != h264.TypeIDR {
		t.Errorf("type = %d, want TypeIDR", obs.nals[0].Type)
	}
}

func TestDepacketizer_WrongPayloadTypeDropped(t *testing.T) {
	obs := &recordingObserver{}
	d := NewDepacketizer(97, obs, 0, 0)

	d.ProcessPacket(rtpPacket(1, 100, 35, []byte{0x65, 0xAA}), time.Now())

	if len(obs.nals) != 0 {
		t.Errorf("got %d NALs, want 0", len(obs.nals))
	}
	if len(obs.errs) != 0 {
		t.Errorf("got %d errors, want 0 (dropped silently)", len(obs.errs))
	}
}

func TestDepacketizer_DuplicateDropsDelivery(t *testing.T) {
	obs := &recordingObserver{}
	d := NewDepacketizer(97, obs, 0, 0)

	d.ProcessPacket(rtpPacket(1, 100, 97, []byte{0x65, 0x01}), time.Now())
	d.ProcessPacket(rtpPacket(2, 200, 97, []byte{0x41, 0x02}), time.Now())
	d.ProcessPacket(rtpPacket(2, 200, 97, []byte{0x41, 0x02}), time.Now())

	if len(obs.nals) != 2 {
		t.Fatalf("got %d NALs, want 2 (duplicate dropped)", len(obs.nals))
	}
}

func TestDepacketizer_SPSAndPPSReportedSeparately(t *testing.T) {
	obs := &recordingObserver{}
	d := NewDepacketizer(97, obs, 0, 0)

	sps := []byte{0x67, 0x01, 0x02}
	pps := []byte{0x68, 0x03}
	d.ProcessPacket(rtpPacket(1, 100, 97, sps), time.Now())
	d.ProcessPacket(rtpPacket(2, 100, 97, pps), time.Now())

	if len(obs.nals) != 2 {
		t.Fatalf("got %d NALs, want 2 (OnNAL still fires for SPS/PPS)", len(obs.nals))
	}
	if len(obs.sps) != 1 || !bytes.Equal(obs.sps[0], sps) {
		t.Errorf("OnSPS = %v, want one call with %x", obs.sps, sps)
	}
	if len(obs.pps) != 1 || !bytes.Equal(obs.pps[0], pps) {
		t.Errorf("OnPPS = %v, want one call with %x", obs.pps, pps)
	}
}

func TestDepacketizer_StatsReportedEveryTenPackets(t *testing.T) {
	obs := &recordingObserver{}
	d := NewDepacketizer(97, obs, 0, 0)

	for i := uint16(1); i <= 10; i++ {
		d.ProcessPacket(rtpPacket(i, uint32(i)*100, 97, []byte{0x41, byte(i)}), time.Now())
	}

	if len(obs.stats) != 1 {
		t.Fatalf("got %d stats reports, want 1 after 10 packets", len(obs.stats))
	}
	if obs.stats[0].PacketsReceived != 10 {
		t.Errorf("PacketsReceived = %d, want 10", obs.stats[0].PacketsReceived)
	}
}
