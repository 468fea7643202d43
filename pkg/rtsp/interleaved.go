package rtsp

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// interleavedMagic is the '$' byte RFC 2326 §10.12 uses to mark an
// interleaved frame inside the RTSP TCP stream.
const interleavedMagic = 0x24

// interleavedBackoff is how long the demux loop pauses after an
// unexpected I/O error before retrying.
const interleavedBackoff = 100 * time.Millisecond

// runInterleavedLoop reads `$`-framed RTP/RTCP payloads from conn via r
// until ctx is canceled, forwarding each to observer. idleTimeout is
// re-armed as a rolling deadline before every read, so a stalled or
// silently-dropped connection surfaces as a read timeout instead of
// blocking forever. Read timeouts are non-fatal; any other I/O error
// triggers a short backoff and retry.
func runInterleavedLoop(ctx context.Context, conn net.Conn, r *bufio.Reader, observer Observer, idleTimeout time.Duration) {
	header := make([]byte, 4)

	for {
		if ctx.Err() != nil {
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(idleTimeout))
		_, err := readFull(r, header)
		if err != nil {
			if isTimeout(err) {
				observer.OnError(fmt.Errorf("rtsp: interleaved stream idle for %s", idleTimeout))
				continue
			}
			if ctx.Err() != nil {
				return
			}
			observer.OnError(fmt.Errorf("rtsp: interleaved read: %w", err))
			time.Sleep(interleavedBackoff)
			continue
		}

		if header[0] != interleavedMagic {
			observer.OnError(fmt.Errorf("rtsp: interleaved frame missing magic byte, got 0x%02x", header[0]))
			time.Sleep(interleavedBackoff)
			continue
		}

		channel := header[1]
		length := binary.BigEndian.Uint16(header[2:4])

		payload := make([]byte, length)
		_ = conn.SetReadDeadline(time.Now().Add(idleTimeout))
		if _, err := readFull(r, payload); err != nil {
			if isTimeout(err) {
				observer.OnError(fmt.Errorf("rtsp: interleaved stream idle for %s", idleTimeout))
				continue
			}
			observer.OnError(fmt.Errorf("rtsp: interleaved payload read: %w", err))
			time.Sleep(interleavedBackoff)
			continue
		}

		observer.OnInterleavedData(payload, channel == 0)
	}
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
