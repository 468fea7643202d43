package h264

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Default tunables.
const (
	DefaultMaxFrameBytes = 2 * 1024 * 1024 // single-frame size cap forces immediate finalization
	DefaultFrameMaxAge   = 5 * time.Second // in-progress frame older than this is discarded
	DefaultQueueCap      = 20              // bounded output queue; oldest dropped on overflow
)

// building is the access unit currently being accumulated.
type building struct {
	typ       FrameType
	timestamp uint32
	nals      []NalUnit
	size      int
	startedAt time.Time
}

// Assembler groups Annex-B framed NAL units sharing an RTP timestamp into
// access units, classifies them, and prepends cached SPS/PPS to key
// frames.
type Assembler struct {
	observer      Observer
	maxFrameBytes int
	frameMaxAge   time.Duration
	queueCap      int

	mu    sync.Mutex
	sps   []byte
	pps   []byte
	cur   *building
	queue []AccessUnit
	stats Stats
}

// AssemblerOption configures an Assembler at construction.
type AssemblerOption func(*Assembler)

// WithMaxFrameBytes overrides DefaultMaxFrameBytes.
func WithMaxFrameBytes(n int) AssemblerOption {
	return func(a *Assembler) { a.maxFrameBytes = n }
}

// WithFrameMaxAge overrides DefaultFrameMaxAge.
func WithFrameMaxAge(d time.Duration) AssemblerOption {
	return func(a *Assembler) { a.frameMaxAge = d }
}

// WithQueueCap overrides DefaultQueueCap.
func WithQueueCap(n int) AssemblerOption {
	return func(a *Assembler) { a.queueCap = n }
}

// NewAssembler returns an Assembler reporting to observer.
func NewAssembler(observer Observer, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		observer:      observer,
		maxFrameBytes: DefaultMaxFrameBytes,
		frameMaxAge:   DefaultFrameMaxAge,
		queueCap:      DefaultQueueCap,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddNAL feeds one NAL unit into the assembler.
func (a *Assembler) AddNAL(n NalUnit) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch n.Type {
	case TypeSPS:
		a.sps = append([]byte(nil), n.Payload...)
		a.observer.OnSPS(a.sps)
		return
	case TypePPS:
		a.pps = append([]byte(nil), n.Payload...)
		a.observer.OnPPS(a.pps)
		return
	case TypeAUD:
		a.finalizeLocked()
		return
	}

	if n.IsSlice() {
		if a.cur != nil && n.Timestamp != a.cur.timestamp {
			a.finalizeLocked()
		}
		if a.cur == nil {
			typ := FrameP
			if n.Type == TypeIDR {
				typ = FrameI
			}
			a.cur = &building{typ: typ, timestamp: n.Timestamp, startedAt: time.Now()}
		}
		a.appendLocked(n)
		return
	}

	// Non-slice, non-SPS/PPS/AUD NAL (e.g. SEI): only attaches to a frame
	// already in progress with a matching timestamp; otherwise it has
	// nowhere to go and is dropped.
	if a.cur != nil && n.Timestamp == a.cur.timestamp {
		a.appendLocked(n)
	}
}

func (a *Assembler) appendLocked(n NalUnit) {
	a.cur.nals = append(a.cur.nals, n)
	a.cur.size += len(n.Payload)
	if a.cur.size >= a.maxFrameBytes {
		a.observer.OnError(fmt.Errorf("h264: frame exceeded %d bytes, forcing finalization", a.maxFrameBytes))
		a.stats.FramesDropped++
		a.finalizeLocked()
	}
}

// finalizeLocked closes out the in-progress frame, if any, serializes it to
// Annex-B, prepends SPS/PPS for key frames, and pushes it to the bounded
// output queue.
func (a *Assembler) finalizeLocked() {
	if a.cur == nil || len(a.cur.nals) == 0 {
		a.cur = nil
		return
	}

	au := AccessUnit{
		Type:       a.cur.typ,
		Timestamp:  a.cur.timestamp,
		ReceivedAt: time.Now(),
	}

	if au.Type == FrameI && a.sps != nil && a.pps != nil {
		au.Data = NewNalUnit(a.sps, a.cur.timestamp, 0).appendAnnexB(au.Data)
		au.Data = NewNalUnit(a.pps, a.cur.timestamp, 0).appendAnnexB(au.Data)
		au.HasSPSPPS = true
	}
	for _, n := range a.cur.nals {
		au.Data = n.appendAnnexB(au.Data)
	}

	a.cur = nil
	a.stats.FramesAssembled++
	if au.Type == FrameI {
		a.stats.IFrames++
	} else {
		a.stats.PFrames++
	}

	a.queue = append(a.queue, au)
	if len(a.queue) > a.queueCap {
		a.queue = a.queue[1:]
		a.stats.FramesQueued++
		a.observer.OnError(fmt.Errorf("h264: output queue exceeded %d frames, dropped oldest", a.queueCap))
	}

	a.observer.OnFrame(au)
}

// Flush forces finalization of any in-progress frame, e.g. on stream
// teardown.
func (a *Assembler) Flush() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finalizeLocked()
}

// Stats returns a snapshot of the running counters.
func (a *Assembler) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Run periodically discards an in-progress frame older than frameMaxAge and
// reports statistics, until ctx is canceled.
func (a *Assembler) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.sweep()
			a.observer.OnStats(a.Stats())
		}
	}
}

func (a *Assembler) sweep() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cur != nil && time.Since(a.cur.startedAt) > a.frameMaxAge {
		a.observer.OnError(fmt.Errorf("h264: in-progress frame discarded after %s", a.frameMaxAge))
		a.stats.FramesDropped++
		a.cur = nil
	}
}
