// Package config holds the single construction struct that configures the
// whole ingestion pipeline.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Transport selects which RTP transport the session controller should
// negotiate.
type Transport string

const (
	// TransportAuto runs the full negotiation ladder: TCP interleaved first,
	// then UDP candidate ports, then UDP with server-assigned ports.
	TransportAuto Transport = "auto"
	// TransportTCP forces TCP-interleaved and fails if the server refuses it.
	TransportTCP Transport = "tcp"
	// TransportUDP skips straight to the UDP candidate-port ladder.
	TransportUDP Transport = "udp"
)

// PortPair is a client_port=R-R+1 candidate for the UDP ladder.
type PortPair struct {
	RTP  int
	RTCP int
}

// Timeouts holds every duration the pipeline waits on.
type Timeouts struct {
	Connect          time.Duration // RTSP TCP connect. Default 15s.
	SessionRead      time.Duration // RTSP request/response read. Default 10s.
	PlayResponse     time.Duration // PLAY response wait before "assume success". Default 10s.
	UDPIdle          time.Duration // UDP receive idle timeout per read. Default 5s. Not read by pkg/rtp, whose UDPSocket uses a fixed 5s.
	StreamIdle       time.Duration // TCP-interleaved read idle timeout per frame. Default 30s.
	FragmentMaxAge   time.Duration // FU-A fragment buffer max age. Default 5s.
	FrameMaxAge      time.Duration // In-progress access unit max age. Default 5s.
	HousekeepingTick time.Duration // Periodic sweep/stats-report tick. Default 1s.
	BodyRead         time.Duration // RTSP response body read budget. Default 10s.
}

// DefaultTimeouts returns the baseline timeout values.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Connect:          15 * time.Second,
		SessionRead:      10 * time.Second,
		PlayResponse:     10 * time.Second,
		UDPIdle:          5 * time.Second,
		StreamIdle:       30 * time.Second,
		FragmentMaxAge:   5 * time.Second,
		FrameMaxAge:      5 * time.Second,
		HousekeepingTick: 1 * time.Second,
		BodyRead:         10 * time.Second,
	}
}

// DefaultUDPPortCandidates is the fixed port-pair ladder tried in order:
// (6000,6001) -> (7000,7001) -> (8000,8001) -> (5004,5005).
func DefaultUDPPortCandidates() []PortPair {
	return []PortPair{
		{RTP: 6000, RTCP: 6001},
		{RTP: 7000, RTCP: 7001},
		{RTP: 8000, RTCP: 8001},
		{RTP: 5004, RTCP: 5005},
	}
}

// Config is the single struct passed at construction. Nothing else is read
// from the environment, a CLI, or persisted state.
type Config struct {
	// RTSPURL is the full rtsp:// URL of the stream to pull.
	RTSPURL string
	// PayloadType is the negotiated RTP payload type for the video track.
	// Packets carrying any other payload type are silently dropped.
	PayloadType uint8
	// PreferredTransport selects the negotiation strategy. Zero value
	// behaves as TransportAuto.
	PreferredTransport Transport
	// UDPPortCandidates overrides the fixed port ladder. New starts from
	// DefaultUDPPortCandidates(); Validate rejects an empty list.
	UDPPortCandidates []PortPair
	// Timeouts overrides individual timeout defaults. New fills zero
	// fields from DefaultTimeouts() field-by-field; Validate does not.
	Timeouts Timeouts
	// UserAgent overrides the default User-Agent header.
	UserAgent string
}

// Option mutates a Config during construction. Most callers are better off
// filling in the Config struct literal directly; Option exists for
// embedders that build the pipeline incrementally.
type Option func(*Config)

// WithTransport sets the preferred transport.
func WithTransport(t Transport) Option {
	return func(c *Config) { c.PreferredTransport = t }
}

// WithUDPPortCandidates overrides the UDP port ladder.
func WithUDPPortCandidates(pairs []PortPair) Option {
	return func(c *Config) { c.UDPPortCandidates = pairs }
}

// WithTimeouts overrides the timeout table.
func WithTimeouts(t Timeouts) Option {
	return func(c *Config) { c.Timeouts = t }
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Config) { c.UserAgent = ua }
}

// New builds a Config for rtspURL/payloadType, applies defaults for any
// field an Option doesn't touch, and validates the result.
func New(rtspURL string, payloadType uint8, opts ...Option) (*Config, error) {
	c := &Config{
		RTSPURL:            rtspURL,
		PayloadType:        payloadType,
		PreferredTransport: TransportAuto,
		UDPPortCandidates:  DefaultUDPPortCandidates(),
		Timeouts:           DefaultTimeouts(),
		UserAgent:          "Universal-RTSP-Client/1.0",
	}

	for _, opt := range opts {
		opt(c)
	}

	c.applyTimeoutDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) applyTimeoutDefaults() {
	d := DefaultTimeouts()
	if c.Timeouts.Connect == 0 {
		c.Timeouts.Connect = d.Connect
	}
	if c.Timeouts.SessionRead == 0 {
		c.Timeouts.SessionRead = d.SessionRead
	}
	if c.Timeouts.PlayResponse == 0 {
		c.Timeouts.PlayResponse = d.PlayResponse
	}
	if c.Timeouts.UDPIdle == 0 {
		c.Timeouts.UDPIdle = d.UDPIdle
	}
	if c.Timeouts.StreamIdle == 0 {
		c.Timeouts.StreamIdle = d.StreamIdle
	}
	if c.Timeouts.FragmentMaxAge == 0 {
		c.Timeouts.FragmentMaxAge = d.FragmentMaxAge
	}
	if c.Timeouts.FrameMaxAge == 0 {
		c.Timeouts.FrameMaxAge = d.FrameMaxAge
	}
	if c.Timeouts.HousekeepingTick == 0 {
		c.Timeouts.HousekeepingTick = d.HousekeepingTick
	}
	if c.Timeouts.BodyRead == 0 {
		c.Timeouts.BodyRead = d.BodyRead
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.RTSPURL == "" {
		return fmt.Errorf("missing rtsp_url")
	}

	u, err := url.Parse(c.RTSPURL)
	if err != nil {
		return fmt.Errorf("invalid rtsp_url: %w", err)
	}
	if u.Scheme != "rtsp" {
		return fmt.Errorf("invalid rtsp_url scheme %q, want \"rtsp\"", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid rtsp_url: missing host")
	}

	switch c.PreferredTransport {
	case "", TransportAuto, TransportTCP, TransportUDP:
	default:
		return fmt.Errorf("invalid preferred_transport %q", c.PreferredTransport)
	}

	if len(c.UDPPortCandidates) == 0 {
		return fmt.Errorf("missing udp_port_candidates")
	}

	return nil
}
