// Package rtsp implements the RTSP/1.0 session controller: the
// OPTIONS -> DESCRIBE -> SETUP -> PLAY -> TEARDOWN handshake, transport
// negotiation (TCP interleaved first, then a UDP port-pair ladder), SDP
// parsing, and the interleaved-TCP demultiplexer.
package rtsp

import (
	"sync"
)

// State is a handshake state in the RTSP client state machine.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOptionsSent
	StateDescribeSent
	StateSetupNegotiating
	StatePlaying
	StateTeardown
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateOptionsSent:
		return "OPTIONS_SENT"
	case StateDescribeSent:
		return "DESCRIBE_SENT"
	case StateSetupNegotiating:
		return "SETUP_NEGOTIATING"
	case StatePlaying:
		return "PLAYING"
	case StateTeardown:
		return "TEARDOWN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// TransportMode is the negotiated media transport.
type TransportMode int

const (
	ModeUnset TransportMode = iota
	ModeTCPInterleaved
	ModeUDP
)

func (m TransportMode) String() string {
	switch m {
	case ModeTCPInterleaved:
		return "tcp-interleaved"
	case ModeUDP:
		return "udp"
	default:
		return "unset"
	}
}

// Session is the per-connect() state. Fields are written by exactly one
// goroutine (the dialog task) during the handshake and read-only
// afterward except for the sequence counter.
type Session struct {
	mu sync.Mutex

	Host          string
	Port          int
	RequestURL    string
	ContentBase   string
	SessionID     string
	VideoTrackURL string
	VideoPT       uint8

	Mode              TransportMode
	InterleavedRTP    int
	InterleavedRTCP   int
	ClientRTPPort     int
	ClientRTCPPort    int
	ServerRTPPort     int
	ServerRTCPPort    int

	seq int
}

// NewSession returns a Session for rtspURL, parsed into host/port/path by
// the caller.
func NewSession(host string, port int, requestURL string) *Session {
	return &Session{Host: host, Port: port, RequestURL: requestURL, seq: 0}
}

// NextCSeq atomically increments and returns the CSeq counter, which
// starts at 1.
func (s *Session) NextCSeq() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Observer receives transport lifecycle events from a Client.
type Observer interface {
	OnConnected()
	OnSDP(sdp *SDPDescription)
	OnSetupComplete(clientRTP, clientRTCP int, isTCP bool)
	OnPlayStarted()
	OnError(err error)
	// OnInterleavedData is called for every interleaved frame in TCP mode;
	// isRTP distinguishes channel 0 (RTP) from channel 1 (RTCP, passed
	// through unprocessed).
	OnInterleavedData(payload []byte, isRTP bool)
}
