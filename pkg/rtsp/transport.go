package rtsp

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fenwickstream/rtsp-ingest/pkg/config"
)

// portProbeLimiter paces the UDP candidate-port availability probes in the
// negotiation ladder so a long candidate list (or a caller-supplied one)
// can't hammer the local network stack's bind() path.
var portProbeLimiter = rate.NewLimiter(rate.Every(20*time.Millisecond), 1)

// transportInfo is the parsed content of a Transport response header.
type transportInfo struct {
	interleaved     bool
	interleavedLo   int
	interleavedHi   int
	serverPort      config.PortPair
	clientPort      config.PortPair
	hasServerPort   bool
	hasClientPort   bool
}

// parseTransportHeader extracts interleaved=, server_port=, and
// client_port= from a SETUP 200 OK's Transport header value.
func parseTransportHeader(value string) transportInfo {
	var info transportInfo
	for _, field := range strings.Split(value, ";") {
		field = strings.TrimSpace(field)
		switch {
		case strings.HasPrefix(field, "interleaved="):
			lo, hi, ok := parsePortRange(strings.TrimPrefix(field, "interleaved="))
			if ok {
				info.interleaved = true
				info.interleavedLo, info.interleavedHi = lo, hi
			}
		case strings.HasPrefix(field, "server_port="):
			lo, hi, ok := parsePortRange(strings.TrimPrefix(field, "server_port="))
			if ok {
				info.serverPort = config.PortPair{RTP: lo, RTCP: hi}
				info.hasServerPort = true
			}
		case strings.HasPrefix(field, "client_port="):
			lo, hi, ok := parsePortRange(strings.TrimPrefix(field, "client_port="))
			if ok {
				info.clientPort = config.PortPair{RTP: lo, RTCP: hi}
				info.hasClientPort = true
			}
		}
	}
	return info
}

func parsePortRange(s string) (lo, hi int, ok bool) {
	parts := strings.SplitN(s, "-", 2)
	lo, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	if len(parts) == 2 {
		hi, err = strconv.Atoi(parts[1])
		if err != nil {
			return lo, lo + 1, true
		}
		return lo, hi, true
	}
	return lo, lo + 1, true
}

func transportTCPInterleaved() string {
	return "RTP/AVP/TCP;unicast;interleaved=0-1"
}

func transportUDP(pair config.PortPair) string {
	return fmt.Sprintf("RTP/AVP;unicast;client_port=%d-%d", pair.RTP, pair.RTCP)
}

func transportUDPAuto() string {
	return "RTP/AVP;unicast"
}

// probeUDPPortPair reports whether both ports in pair are currently free
// to bind, by temporarily binding a UDP socket to each and releasing it.
func probeUDPPortPair(ctx context.Context, pair config.PortPair) bool {
	_ = portProbeLimiter.Wait(ctx)

	rtpConn, err := net.ListenUDP("udp", &net.UDPAddr{Port: pair.RTP})
	if err != nil {
		return false
	}
	defer rtpConn.Close()

	rtcpConn, err := net.ListenUDP("udp", &net.UDPAddr{Port: pair.RTCP})
	if err != nil {
		return false
	}
	defer rtcpConn.Close()

	return true
}

// stripSessionTimeout removes the ";timeout=N" suffix RTSP servers append
// to the Session header.
func stripSessionTimeout(session string) string {
	if idx := strings.Index(session, ";"); idx >= 0 {
		return strings.TrimSpace(session[:idx])
	}
	return strings.TrimSpace(session)
}
