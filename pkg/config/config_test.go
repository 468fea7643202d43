package config

import (
	"testing"
	"time"
)

func TestNew_AppliesDefaults(t *testing.T) {
	cfg, err := New("rtsp://camera.local/stream", 96)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.PreferredTransport != TransportAuto {
		t.Errorf("PreferredTransport = %q, want %q", cfg.PreferredTransport, TransportAuto)
	}
	if len(cfg.UDPPortCandidates) != 4 {
		t.Errorf("UDPPortCandidates len = %d, want 4", len(cfg.UDPPortCandidates))
	}
	if cfg.Timeouts.Connect != 15*time.Second {
		t.Errorf("Timeouts.Connect = %v, want 15s", cfg.Timeouts.Connect)
	}
	if cfg.Timeouts.StreamIdle != 30*time.Second {
		t.Errorf("Timeouts.StreamIdle = %v, want 30s", cfg.Timeouts.StreamIdle)
	}
	if cfg.UserAgent == "" {
		t.Error("UserAgent should default to a non-empty value")
	}
}

func TestNew_OptionsOverrideDefaults(t *testing.T) {
	customTimeouts := Timeouts{Connect: 5 * time.Second}
	cfg, err := New("rtsp://camera.local/stream", 96,
		WithTransport(TransportTCP),
		WithUDPPortCandidates([]PortPair{{RTP: 9000, RTCP: 9001}}),
		WithTimeouts(customTimeouts),
		WithUserAgent("custom-agent/2.0"),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.PreferredTransport != TransportTCP {
		t.Errorf("PreferredTransport = %q, want %q", cfg.PreferredTransport, TransportTCP)
	}
	if len(cfg.UDPPortCandidates) != 1 || cfg.UDPPortCandidates[0].RTP != 9000 {
		t.Errorf("UDPPortCandidates = %+v, want single 9000/9001 pair", cfg.UDPPortCandidates)
	}
	// Connect was explicitly set; the rest should still fall back to defaults.
	if cfg.Timeouts.Connect != 5*time.Second {
		t.Errorf("Timeouts.Connect = %v, want 5s", cfg.Timeouts.Connect)
	}
	if cfg.Timeouts.SessionRead != DefaultTimeouts().SessionRead {
		t.Errorf("Timeouts.SessionRead = %v, want default", cfg.Timeouts.SessionRead)
	}
	if cfg.UserAgent != "custom-agent/2.0" {
		t.Errorf("UserAgent = %q, want custom-agent/2.0", cfg.UserAgent)
	}
}

func TestNew_RejectsMissingURL(t *testing.T) {
	if _, err := New("", 96); err == nil {
		t.Fatal("expected error for empty rtsp_url")
	}
}

func TestNew_RejectsNonRTSPScheme(t *testing.T) {
	if _, err := New("http://camera.local/stream", 96); err == nil {
		t.Fatal("expected error for non-rtsp scheme")
	}
}

func TestNew_RejectsMissingHost(t *testing.T) {
	if _, err := New("rtsp:///stream", 96); err == nil {
		t.Fatal("expected error for missing host")
	}
}

func TestValidate_RejectsEmptyUDPPortCandidates(t *testing.T) {
	cfg := &Config{
		RTSPURL:           "rtsp://camera.local/stream",
		UDPPortCandidates: nil,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty UDPPortCandidates")
	}
}

func TestValidate_RejectsUnknownTransport(t *testing.T) {
	cfg := &Config{
		RTSPURL:            "rtsp://camera.local/stream",
		PreferredTransport: Transport("bogus"),
		UDPPortCandidates:  DefaultUDPPortCandidates(),
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown transport")
	}
}

func TestDefaultUDPPortCandidates_Order(t *testing.T) {
	want := []PortPair{
		{RTP: 6000, RTCP: 6001},
		{RTP: 7000, RTCP: 7001},
		{RTP: 8000, RTCP: 8001},
		{RTP: 5004, RTCP: 5005},
	}
	got := DefaultUDPPortCandidates()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
