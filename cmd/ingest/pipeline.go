package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fenwickstream/rtsp-ingest/pkg/config"
	"github.com/fenwickstream/rtsp-ingest/pkg/h264"
	"github.com/fenwickstream/rtsp-ingest/pkg/logger"
	"github.com/fenwickstream/rtsp-ingest/pkg/rtp"
	"github.com/fenwickstream/rtsp-ingest/pkg/rtsp"
)

// rtpBridge adapts the depacketizer's NAL/error/stats callbacks into the
// assembler's input, keeping pkg/rtp and pkg/h264 from depending on each
// other's Observer type directly.
type rtpBridge struct {
	log       *logger.Logger
	assembler *h264.Assembler
}

func (b *rtpBridge) OnNAL(nal h264.NalUnit) { b.assembler.AddNAL(nal) }
func (b *rtpBridge) OnSPS(payload []byte)   { b.log.DebugRTP("SPS seen at RTP layer", "size", len(payload)) }
func (b *rtpBridge) OnPPS(payload []byte)   { b.log.DebugRTP("PPS seen at RTP layer", "size", len(payload)) }
func (b *rtpBridge) OnError(err error)      { b.log.Warn("rtp depacketizer", "error", err) }
func (b *rtpBridge) OnStats(s rtp.Stats) {
	b.log.Info("rtp stats",
		"received", s.PacketsReceived,
		"lost", s.PacketsLost,
		"out_of_order", s.PacketsOutOfOrder,
		"duplicate", s.PacketsDuplicate,
		"bitrate_bps", s.BitrateBps,
		"jitter", s.MeanJitter,
	)
}

// frameSink is the h264.Observer; this demo just logs, matching the
// "external decoder sink" being out of scope.
type frameSink struct {
	log        *logger.Logger
	frameCount int64
}

func (f *frameSink) OnFrame(au h264.AccessUnit) {
	f.frameCount++
	f.log.DebugH264("frame assembled",
		"type", au.Type.String(),
		"timestamp", au.Timestamp,
		"size", len(au.Data),
		"has_sps_pps", au.HasSPSPPS,
	)
	if f.frameCount%30 == 0 {
		f.log.Info("frames assembled", "count", f.frameCount)
	}
}

func (f *frameSink) OnSPS(payload []byte) {
	d := h264.ParseSPS(payload)
	f.log.Info("SPS cached", "width", d.Width, "height", d.Height, "frame_rate", d.FrameRate)
}

func (f *frameSink) OnPPS(payload []byte) {
	f.log.DebugH264("PPS cached", "size", len(payload))
}

func (f *frameSink) OnError(err error) { f.log.Warn("h264 assembler", "error", err) }

func (f *frameSink) OnStats(s h264.Stats) {
	f.log.Info("h264 stats",
		"frames_assembled", s.FramesAssembled,
		"i_frames", s.IFrames,
		"p_frames", s.PFrames,
		"frames_dropped", s.FramesDropped,
	)
}

// ingestSession implements rtsp.Observer and owns the downstream
// depacketizer/assembler pair. In UDP mode it also owns the RTP/RTCP
// sockets and a receive goroutine; in TCP mode interleaved frames arrive
// through the RTSP connection instead.
type ingestSession struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg *config.Config
	log *logger.Logger

	depacketizer *rtp.Depacketizer
	assembler    *h264.Assembler

	udpRTP  *rtp.UDPSocket
	udpRTCP *rtp.UDPSocket
}

func newIngestSession(ctx context.Context, cfg *config.Config, log *logger.Logger) *ingestSession {
	ctx, cancel := context.WithCancel(ctx)
	sink := &frameSink{log: log}
	assembler := h264.NewAssembler(sink, h264.WithFrameMaxAge(cfg.Timeouts.FrameMaxAge))
	bridge := &rtpBridge{log: log, assembler: assembler}
	depacketizer := rtp.NewDepacketizer(cfg.PayloadType, bridge, 0, cfg.Timeouts.FragmentMaxAge)

	return &ingestSession{
		ctx:          ctx,
		cancel:       cancel,
		cfg:          cfg,
		log:          log,
		depacketizer: depacketizer,
		assembler:    assembler,
	}
}

func (s *ingestSession) OnConnected() {
	s.log.Info("connected to RTSP server")
}

func (s *ingestSession) OnSDP(sdp *rtsp.SDPDescription) {
	track, ok := sdp.VideoTrack()
	s.log.Info("SDP received", "video_track_found", ok, "payload_type", track.PayloadType, "control", track.Control)
}

func (s *ingestSession) OnSetupComplete(clientRTP, clientRTCP int, isTCP bool) {
	s.log.Info("transport negotiated", "client_rtp", clientRTP, "client_rtcp", clientRTCP, "tcp_interleaved", isTCP)

	if isTCP {
		go s.depacketizer.Run(s.ctx, s.cfg.Timeouts.HousekeepingTick)
		go s.assembler.Run(s.ctx, s.cfg.Timeouts.HousekeepingTick)
		return
	}

	rtpSock, rtcpSock, err := bindExactUDP(clientRTP)
	if err != nil {
		s.log.Error("failed to bind negotiated UDP port", "port", clientRTP, "error", err)
		return
	}
	s.udpRTP = rtpSock
	s.udpRTCP = rtcpSock

	go s.depacketizer.Run(s.ctx, s.cfg.Timeouts.HousekeepingTick)
	go s.assembler.Run(s.ctx, s.cfg.Timeouts.HousekeepingTick)
	go s.receiveUDP()
}

func (s *ingestSession) receiveUDP() {
	buf := make([]byte, 64*1024)
	boundAt := time.Now()
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		n, ok, err := s.udpRTP.ReadPacket(buf)
		if err != nil {
			s.log.Warn("udp read error", "error", err)
			return
		}
		if !ok {
			if s.udpRTP.IdleWarning(boundAt) {
				s.log.Warn("no RTP data received — possible NAT/firewall blocking UDP")
			}
			continue
		}

		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		s.depacketizer.ProcessPacket(pkt, time.Now())
	}
}

func (s *ingestSession) OnPlayStarted() {
	s.log.Info("playback started")
}

func (s *ingestSession) OnError(err error) {
	s.log.Error("rtsp session error", "error", err)
	s.cancel()
}

func (s *ingestSession) OnInterleavedData(payload []byte, isRTP bool) {
	if !isRTP {
		return // RTCP channel, passed through but not processed
	}
	s.depacketizer.ProcessPacket(payload, time.Now())
}

func (s *ingestSession) Close() {
	s.cancel()
	s.assembler.Flush()
	if s.udpRTP != nil {
		s.udpRTP.Close()
	}
	if s.udpRTCP != nil {
		s.udpRTCP.Close()
	}
}

func bindExactUDP(port int) (rtpSock, rtcpSock *rtp.UDPSocket, err error) {
	rtpSock, rtcpSock, chosen, err := rtp.BindUDPPair([]config.PortPair{{RTP: port, RTCP: port + 1}})
	if err != nil {
		return nil, nil, err
	}
	if chosen.RTP != port {
		rtpSock.Close()
		rtcpSock.Close()
		return nil, nil, fmt.Errorf("negotiated port %d unavailable, got %d", port, chosen.RTP)
	}
	return rtpSock, rtcpSock, nil
}
