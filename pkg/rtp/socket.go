package rtp

import (
	"fmt"
	"net"
	"time"

	"github.com/fenwickstream/rtsp-ingest/pkg/config"
)

// Socket tunables.
const (
	udpReceiveBufferBytes = 640 * 1024
	udpReadTimeout        = 5 * time.Second
	udpIdleWarnAfter      = 25 * time.Second
	udpIdleWarnTimeouts   = 5
)

// UDPSocket wraps a bound UDP listener for the RTP (or RTCP) channel of a
// UDP-transport session.
type UDPSocket struct {
	conn          *net.UDPConn
	port          int
	consecutiveTO int
	lastPacketAt  time.Time
}

// BindUDPPair binds two adjacent UDP ports (rtpPort, rtpPort+1) for RTP and
// RTCP, trying each candidate pair in turn and falling back to two
// OS-assigned ephemeral ports, not necessarily adjacent, if every
// candidate is taken.
func BindUDPPair(candidates []config.PortPair) (rtpSock, rtcpSock *UDPSocket, chosen config.PortPair, err error) {
	for _, pair := range candidates {
		rtpSock, err = bindUDP(pair.RTP)
		if err != nil {
			continue
		}
		rtcpSock, err = bindUDP(pair.RTCP)
		if err != nil {
			rtpSock.Close()
			continue
		}
		return rtpSock, rtcpSock, pair, nil
	}

	// Every fixed candidate was taken: fall back to OS-assigned ports.
	rtpSock, err = bindUDP(0)
	if err != nil {
		return nil, nil, config.PortPair{}, fmt.Errorf("rtp: failed to bind ephemeral RTP port: %w", err)
	}
	rtcpSock, err = bindUDP(0)
	if err != nil {
		rtpSock.Close()
		return nil, nil, config.PortPair{}, fmt.Errorf("rtp: failed to bind ephemeral RTCP port: %w", err)
	}
	return rtpSock, rtcpSock, config.PortPair{RTP: rtpSock.port, RTCP: rtcpSock.port}, nil
}

func bindUDP(port int) (*UDPSocket, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, err
	}
	if err := conn.SetReadBuffer(udpReceiveBufferBytes); err != nil {
		conn.Close()
		return nil, fmt.Errorf("rtp: set receive buffer: %w", err)
	}

	return &UDPSocket{
		conn: conn,
		port: conn.LocalAddr().(*net.UDPAddr).Port,
	}, nil
}

// Port returns the locally bound port.
func (s *UDPSocket) Port() int { return s.port }

// Close releases the socket.
func (s *UDPSocket) Close() error { return s.conn.Close() }

// ReadPacket reads one UDP datagram with the configured read timeout. ok is
// false on a read timeout, distinguished from a hard error so the caller
// can track idle-timeout streaks without treating them as fatal.
func (s *UDPSocket) ReadPacket(buf []byte) (n int, ok bool, err error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(udpReadTimeout)); err != nil {
		return 0, false, err
	}

	n, err = s.conn.Read(buf)
	if err != nil {
		if ne, isNet := err.(net.Error); isNet && ne.Timeout() {
			s.consecutiveTO++
			return 0, false, nil
		}
		return 0, false, err
	}

	s.consecutiveTO = 0
	s.lastPacketAt = time.Now()
	return n, true, nil
}

// IdleWarning reports whether the socket has gone quiet long enough to
// warrant a warning: either no packet has ever arrived and
// udpIdleWarnAfter has elapsed since the socket was bound, or
// udpIdleWarnTimeouts consecutive reads have timed out.
func (s *UDPSocket) IdleWarning(boundAt time.Time) bool {
	if s.consecutiveTO >= udpIdleWarnTimeouts {
		return true
	}
	if s.lastPacketAt.IsZero() {
		return time.Since(boundAt) > udpIdleWarnAfter
	}
	return time.Since(s.lastPacketAt) > udpIdleWarnAfter
}
