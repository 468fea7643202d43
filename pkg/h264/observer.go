package h264

// Observer receives assembled frames and cache/error/statistics events
// from an Assembler. Methods are called synchronously from
// whichever goroutine feeds NAL units to the assembler or calls Flush,
// except OnStats and the stale-frame OnError, which come from the goroutine
// running Run; implementations that need to do real work should hand off
// to their own goroutine.
type Observer interface {
	// OnFrame is called once per completed access unit.
	OnFrame(au AccessUnit)
	// OnSPS is called whenever a fresh SPS NAL is cached, with its raw
	// payload (including the one-byte NAL header).
	OnSPS(payload []byte)
	// OnPPS is called whenever a fresh PPS NAL is cached.
	OnPPS(payload []byte)
	// OnError reports a non-fatal assembly condition: a frame finalized
	// early for reaching the size cap, a stale in-progress frame discarded, or the
	// bounded output queue overflowing.
	OnError(err error)
	// OnStats is called on the housekeeping tick with a snapshot of the
	// assembler's running counters.
	OnStats(s Stats)
}

// Stats is a snapshot of the assembler's running counters.
type Stats struct {
	FramesAssembled int64
	FramesDropped   int64 // forced-finalized or discarded for exceeding caps
	FramesQueued    int64 // evicted from the bounded output queue
	IFrames         int64
	PFrames         int64
}
