package h264

import "time"

// FrameType classifies an assembled access unit.
type FrameType int

const (
	FrameUnknown FrameType = iota
	FrameI
	FrameP
)

func (t FrameType) String() string {
	switch t {
	case FrameI:
		return "I"
	case FrameP:
		return "P"
	default:
		return "UNKNOWN"
	}
}

// Dimensions describes the decoded picture geometry. SPS bit-level
// parsing (width/height/frame-rate extraction) is left as an open
// question; DESIGN.md records the decision to stub it rather than
// implement the exp-Golomb SPS walk, so ParseSPS returns the same fixed
// value for every SPS. AccessUnit carries no Dimensions.
type Dimensions struct {
	Width     int
	Height    int
	FrameRate float64
}

// stubDimensions is returned by ParseSPS until real SPS parsing lands.
var stubDimensions = Dimensions{Width: 1920, Height: 1080, FrameRate: 30}

// ParseSPS returns the picture dimensions encoded in an SPS NAL payload.
// This is currently a stub (see Dimensions) that ignores payload entirely.
func ParseSPS(payload []byte) Dimensions {
	return stubDimensions
}

// AccessUnit is one assembled frame: the concatenation of every NAL unit
// sharing a single RTP timestamp, in
// Annex-B byte-stream form, with SPS/PPS prepended when the frame is a key
// frame and both have been cached.
type AccessUnit struct {
	Type       FrameType
	Timestamp  uint32
	Data       []byte
	HasSPSPPS  bool
	ReceivedAt time.Time
}
