package rtsp

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/fenwickstream/rtsp-ingest/pkg/config"
	"github.com/fenwickstream/rtsp-ingest/pkg/logger"
)

type testObserver struct {
	connected     chan struct{}
	sdp           chan *SDPDescription
	setupComplete chan struct{}
	setupRTP      int
	setupRTCP     int
	setupIsTCP    bool
	played        chan struct{}
	errs          chan error
	interleaved   chan []byte
}

func newTestObserver() *testObserver {
	return &testObserver{
		connected:     make(chan struct{}, 1),
		sdp:           make(chan *SDPDescription, 1),
		setupComplete: make(chan struct{}, 1),
		played:        make(chan struct{}, 1),
		errs:          make(chan error, 4),
		interleaved:   make(chan []byte, 4),
	}
}

func (o *testObserver) OnConnected()  { o.connected <- struct{}{} }
func (o *testObserver) OnSDP(s *SDPDescription) { o.sdp <- s }
func (o *testObserver) OnSetupComplete(clientRTP, clientRTCP int, isTCP bool) {
	o.setupRTP, o.setupRTCP, o.setupIsTCP = clientRTP, clientRTCP, isTCP
	o.setupComplete <- struct{}{}
}
func (o *testObserver) OnPlayStarted()                         { o.played <- struct{}{} }
func (o *testObserver) OnError(err error)                      { o.errs <- err }
func (o *testObserver) OnInterleavedData(payload []byte, isRTP bool) {
	if isRTP {
		o.interleaved <- payload
	}
}

// TestClient_TCPInterleavedHappyPath drives the handshake against a mock
// server that accepts TCP-interleaved transport and sends one interleaved
// RTP frame after PLAY.
func TestClient_TCPInterleavedHappyPath(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	rtpPacket := []byte{0x80, 0x61, 0x00, 0x01, 0x00, 0x00, 0x00, 0x64, 0xDE, 0xAD, 0xBE, 0xEF, 0x65, 0xAA}

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)

		// OPTIONS
		readRequestLines(t, r)
		conn.Write([]byte("RTSP/1.0 200 OK\r\nCSeq: 1\r\n\r\n"))

		// DESCRIBE
		readRequestLines(t, r)
		sdp := "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\ns=stream\r\nt=0 0\r\nm=video 0 RTP/AVP 97\r\na=control:trackID=1\r\n"
		fmt.Fprintf(conn, "RTSP/1.0 200 OK\r\nCSeq: 2\r\nContent-Base: rtsp://%s/stream/\r\nContent-Length: %d\r\n\r\n%s",
			ln.Addr().String(), len(sdp), sdp)

		// SETUP
		readRequestLines(t, r)
		conn.Write([]byte("RTSP/1.0 200 OK\r\nCSeq: 3\r\nSession: ABC123;timeout=60\r\nTransport: RTP/AVP/TCP;unicast;interleaved=0-1\r\n\r\n"))

		// PLAY
		readRequestLines(t, r)
		conn.Write([]byte("RTSP/1.0 200 OK\r\nCSeq: 4\r\nSession: ABC123\r\n\r\n"))

		// one interleaved RTP frame
		frame := append([]byte{0x24, 0x00, 0x00, byte(len(rtpPacket))}, rtpPacket...)
		conn.Write(frame)

		time.Sleep(200 * time.Millisecond)
	}()

	addr := ln.Addr().(*net.TCPAddr)
	rtspURL := fmt.Sprintf("rtsp://127.0.0.1:%d/stream", addr.Port)

	cfg, err := config.New(rtspURL, 97, config.WithTransport(config.TransportTCP))
	if err != nil {
		t.Fatalf("config.New() error = %v", err)
	}

	log, _ := logger.New(logger.NewConfig())
	obs := newTestObserver()
	client := NewClient(cfg, obs, log)
	client.Connect()
	defer client.Disconnect()

	select {
	case <-obs.connected:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnConnected")
	}

	select {
	case <-obs.setupComplete:
	case err := <-obs.errs:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnSetupComplete")
	}
	if !obs.setupIsTCP {
		t.Error("setupIsTCP = false, want true")
	}

	select {
	case <-obs.played:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnPlayStarted")
	}

	select {
	case payload := <-obs.interleaved:
		if len(payload) != len(rtpPacket) {
			t.Errorf("interleaved payload len = %d, want %d", len(payload), len(rtpPacket))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for interleaved RTP data")
	}

	<-serverDone
}

func readRequestLines(t *testing.T, r *bufio.Reader) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("reading request: %v", err)
		}
		if strings.TrimSpace(line) == "" {
			return
		}
	}
}
