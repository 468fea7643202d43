package rtsp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fenwickstream/rtsp-ingest/pkg/config"
	"github.com/fenwickstream/rtsp-ingest/pkg/logger"
)

// Client drives the OPTIONS -> DESCRIBE -> SETUP -> PLAY -> TEARDOWN
// handshake for one RTSP session. A Client is used for a single
// connect()/disconnect() cycle; start a new one to reconnect.
type Client struct {
	cfg      *config.Config
	observer Observer
	log      *logger.Logger
	corrID   uuid.UUID

	mu      sync.Mutex
	state   State
	conn    net.Conn
	reader  *bufio.Reader
	session *Session
	cancel  context.CancelFunc

	teardownOnce sync.Once
}

// NewClient constructs a Client for cfg. log may be nil, in which case a
// default info-level stdout logger with no debug categories is used.
func NewClient(cfg *config.Config, observer Observer, log *logger.Logger) *Client {
	if log == nil {
		log, _ = logger.New(logger.NewConfig())
	}
	return &Client{
		cfg:      cfg,
		observer: observer,
		log:      log,
		corrID:   uuid.New(),
		state:    StateIdle,
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.log.DebugRTSP("state transition", "correlation_id", c.corrID, "state", s.String())
}

// State returns the current handshake state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect begins the handshake asynchronously and returns immediately.
// Outcomes are reported entirely through the Observer.
func (c *Client) Connect() {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	go c.runHandshake(ctx)
}

// Disconnect sends TEARDOWN best-effort and releases the session socket.
// It is idempotent and never panics, safe to call more than once or
// before a handshake has completed.
func (c *Client) Disconnect() {
	c.teardownOnce.Do(func() {
		c.setState(StateTeardown)

		c.mu.Lock()
		conn := c.conn
		session := c.session
		cancel := c.cancel
		c.mu.Unlock()

		if conn != nil && session != nil {
			req := buildRequest("TEARDOWN", session.RequestURL, session.NextCSeq(), c.cfg.UserAgent, sessionHeader(session))
			_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.Timeouts.SessionRead))
			_, _ = conn.Write(req)
		}
		if cancel != nil {
			cancel()
		}
		if conn != nil {
			_ = conn.Close()
		}

		c.setState(StateClosed)
	})
}

func sessionHeader(s *Session) map[string]string {
	if s.SessionID == "" {
		return nil
	}
	return map[string]string{"Session": s.SessionID}
}

func (c *Client) runHandshake(ctx context.Context) {
	if err := c.doHandshake(ctx); err != nil {
		c.observer.OnError(err)
		c.setState(StateClosed)
	}
}

func (c *Client) doHandshake(ctx context.Context) error {
	c.setState(StateConnecting)

	u, err := url.Parse(c.cfg.RTSPURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "554"
	}

	dialer := net.Dialer{Timeout: c.cfg.Timeouts.Connect}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
		_ = tcpConn.SetKeepAlive(true)
	}

	portNum, _ := strconv.Atoi(port)
	c.mu.Lock()
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.session = NewSession(host, portNum, c.cfg.RTSPURL)
	c.mu.Unlock()

	c.observer.OnConnected()

	c.setState(StateOptionsSent)
	if _, err := c.roundTrip("OPTIONS", c.cfg.RTSPURL, nil); err != nil {
		return err
	}

	c.setState(StateDescribeSent)
	resp, err := c.roundTrip("DESCRIBE", c.cfg.RTSPURL, map[string]string{"Accept": "application/sdp"})
	if err != nil {
		return err
	}
	c.session.ContentBase = resp.Header("content-base")

	sdp, err := parseSDP(resp.Body)
	if err != nil {
		return err
	}
	c.observer.OnSDP(sdp)

	track, ok := sdp.VideoTrack()
	if !ok {
		return fmt.Errorf("%w: no video media section in SDP", ErrProtocolFailure)
	}
	c.session.VideoPT = track.PayloadType
	c.session.VideoTrackURL = buildSetupURL(track.Control, c.session.ContentBase, c.cfg.RTSPURL)

	c.setState(StateSetupNegotiating)
	if err := c.negotiateTransport(ctx); err != nil {
		return err
	}

	if err := c.play(); err != nil {
		return err
	}

	c.setState(StatePlaying)
	c.observer.OnPlayStarted()

	if c.session.Mode == ModeTCPInterleaved {
		go runInterleavedLoop(ctx, c.conn, c.reader, c.observer, c.cfg.Timeouts.StreamIdle)
	}

	return nil
}

// roundTrip sends a request for url with the session's CSeq counter and
// reads the response, erroring on a non-2xx status.
func (c *Client) roundTrip(method, url string, extra map[string]string) (*Response, error) {
	cseq := c.session.NextCSeq()
	req := buildRequest(method, url, cseq, c.cfg.UserAgent, extra)

	c.mu.Lock()
	conn, reader := c.conn, c.reader
	c.mu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.Timeouts.SessionRead)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	if _, err := conn.Write(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.cfg.Timeouts.SessionRead)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	resp, err := readResponse(reader, c.cfg.Timeouts.BodyRead)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocolFailure, err)
	}

	c.log.DebugRTSP("response", "correlation_id", c.corrID, "method", method, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &responseError{method: method, statusCode: resp.StatusCode, statusText: resp.StatusText}
	}

	return resp, nil
}

// negotiateTransport runs the deterministic ladder: TCP interleaved,
// then fixed UDP candidate pairs, then UDP auto-assign.
func (c *Client) negotiateTransport(ctx context.Context) error {
	if c.cfg.PreferredTransport != config.TransportUDP {
		if err := c.trySetupTCP(); err == nil {
			return nil
		}
	}

	if c.cfg.PreferredTransport != config.TransportTCP {
		for _, pair := range c.cfg.UDPPortCandidates {
			if !probeUDPPortPair(ctx, pair) {
				continue
			}
			if err := c.trySetupUDP(pair); err == nil {
				return nil
			}
		}

		if err := c.trySetupUDPAuto(); err == nil {
			return nil
		}
	}

	return ErrTransportExhausted
}

func (c *Client) trySetupTCP() error {
	resp, err := c.roundTrip("SETUP", c.session.VideoTrackURL, map[string]string{"Transport": transportTCPInterleaved()})
	if err != nil {
		return err
	}
	info := parseTransportHeader(resp.Header("transport"))
	if !info.interleaved {
		return fmt.Errorf("%w: SETUP accepted without interleaved=", ErrProtocolFailure)
	}

	c.session.Mode = ModeTCPInterleaved
	c.session.InterleavedRTP = info.interleavedLo
	c.session.InterleavedRTCP = info.interleavedHi
	c.finishSetup(resp)
	c.observer.OnSetupComplete(c.session.InterleavedRTP, c.session.InterleavedRTCP, true)
	return nil
}

func (c *Client) trySetupUDP(pair config.PortPair) error {
	resp, err := c.roundTrip("SETUP", c.session.VideoTrackURL, map[string]string{"Transport": transportUDP(pair)})
	if err != nil {
		return err
	}

	info := parseTransportHeader(resp.Header("transport"))
	c.session.Mode = ModeUDP
	c.session.ClientRTPPort, c.session.ClientRTCPPort = pair.RTP, pair.RTCP
	if info.hasServerPort {
		c.session.ServerRTPPort, c.session.ServerRTCPPort = info.serverPort.RTP, info.serverPort.RTCP
	}
	c.finishSetup(resp)
	c.observer.OnSetupComplete(c.session.ClientRTPPort, c.session.ClientRTCPPort, false)
	return nil
}

func (c *Client) trySetupUDPAuto() error {
	resp, err := c.roundTrip("SETUP", c.session.VideoTrackURL, map[string]string{"Transport": transportUDPAuto()})
	if err != nil {
		return err
	}

	info := parseTransportHeader(resp.Header("transport"))
	c.session.Mode = ModeUDP
	if info.hasClientPort {
		c.session.ClientRTPPort, c.session.ClientRTCPPort = info.clientPort.RTP, info.clientPort.RTCP
	}
	if info.hasServerPort {
		c.session.ServerRTPPort, c.session.ServerRTCPPort = info.serverPort.RTP, info.serverPort.RTCP
	}
	c.finishSetup(resp)
	c.observer.OnSetupComplete(c.session.ClientRTPPort, c.session.ClientRTCPPort, false)
	return nil
}

func (c *Client) finishSetup(resp *Response) {
	if sess := resp.Header("session"); sess != "" {
		c.session.SessionID = stripSessionTimeout(sess)
	}
}

// play sends PLAY and treats a response timeout as success, since many
// servers begin streaming without ever replying.
func (c *Client) play() error {
	if c.session.SessionID == "" {
		return fmt.Errorf("%w: missing session id at PLAY", ErrProtocolFailure)
	}

	cseq := c.session.NextCSeq()
	req := buildRequest("PLAY", c.session.RequestURL, cseq, c.cfg.UserAgent, sessionHeader(c.session))

	c.mu.Lock()
	conn, reader := c.conn, c.reader
	c.mu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.Timeouts.SessionRead)); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	if _, err := conn.Write(req); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.cfg.Timeouts.PlayResponse)); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	resp, err := readResponse(reader, c.cfg.Timeouts.BodyRead)
	if err != nil {
		if isTimeout(err) {
			c.log.DebugRTSP("PLAY response timed out, assuming success", "correlation_id", c.corrID)
			return nil
		}
		// A broken connection is still fatal; only a timeout is blessed.
		return fmt.Errorf("%w: %v", ErrProtocolFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &responseError{method: "PLAY", statusCode: resp.StatusCode, statusText: resp.StatusText}
	}
	return nil
}
