package rtsp

import (
	"errors"
	"fmt"
)

// Sentinel errors for the fatal/surfaced error kinds raised during the
// handshake. Packet-, reassembly-, and frame-level anomalies belong to
// pkg/rtp and pkg/h264 respectively and are never surfaced here.
var (
	// ErrConnectFailed covers TCP connect and DNS failures.
	ErrConnectFailed = errors.New("rtsp: connection failed")
	// ErrProtocolFailure covers a non-200 response to OPTIONS/DESCRIBE/SETUP,
	// an empty SDP body, or a missing session id at PLAY.
	ErrProtocolFailure = errors.New("rtsp: protocol failure")
	// ErrTransportExhausted means every entry in the negotiation ladder
	// (TCP interleaved, every UDP candidate, UDP auto-assign) was refused.
	ErrTransportExhausted = errors.New("rtsp: transport negotiation exhausted")
)

// responseError wraps a non-2xx RTSP status line into an ErrProtocolFailure.
type responseError struct {
	method     string
	statusCode int
	statusText string
}

func (e *responseError) Error() string {
	return fmt.Sprintf("rtsp: %s got %d %s", e.method, e.statusCode, e.statusText)
}

func (e *responseError) Unwrap() error { return ErrProtocolFailure }
