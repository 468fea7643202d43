package rtsp

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	psdp "github.com/pion/sdp/v3"
)

// MediaSection is one `m=` line's essentials.
type MediaSection struct {
	Kind        string
	PayloadType uint8
	Control     string // defaults to "*" when a=control is absent
}

// SDPDescription is the minimally-parsed result of a DESCRIBE response
// body.
type SDPDescription struct {
	Media []MediaSection
}

// parseSDP decodes body with pion/sdp/v3 and reduces it to the kind,
// payload type, and control attribute this pipeline cares about.
func parseSDP(body []byte) (*SDPDescription, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("rtsp: %w: empty SDP body", ErrProtocolFailure)
	}

	var sd psdp.SessionDescription
	if err := sd.Unmarshal(body); err != nil {
		return nil, fmt.Errorf("rtsp: parsing SDP: %w", err)
	}

	desc := &SDPDescription{}
	for _, md := range sd.MediaDescriptions {
		section := MediaSection{Kind: md.MediaName.Media, Control: "*"}

		if len(md.MediaName.Formats) > 0 {
			if pt, err := strconv.Atoi(md.MediaName.Formats[0]); err == nil {
				section.PayloadType = uint8(pt)
			}
		}

		for _, attr := range md.Attributes {
			if attr.Key == "control" && attr.Value != "" {
				section.Control = attr.Value
			}
		}

		desc.Media = append(desc.Media, section)
	}

	if len(desc.Media) == 0 {
		return nil, fmt.Errorf("rtsp: %w: SDP has no media sections", ErrProtocolFailure)
	}

	return desc, nil
}

// VideoTrack returns the first video media section, if any.
func (d *SDPDescription) VideoTrack() (MediaSection, bool) {
	for _, m := range d.Media {
		if m.Kind == "video" {
			return m, true
		}
	}
	return MediaSection{}, false
}

// buildSetupURL turns an SDP control attribute into an absolute SETUP
// URL, per RFC 2326 §C.1.1's rules for absolute, rooted, relative, and
// wildcard control values.
func buildSetupURL(track, contentBase, rtspURL string) string {
	switch {
	case strings.HasPrefix(track, "rtsp://"):
		return track
	case strings.HasPrefix(track, "/"):
		base := contentBase
		if base == "" {
			base = schemeHostPort(rtspURL)
		}
		return strings.TrimSuffix(base, "/") + track
	case track == "*":
		return rtspURL
	default:
		base := contentBase
		if base == "" {
			base = rtspURL
		}
		return strings.TrimSuffix(base, "/") + "/" + track
	}
}

// schemeHostPort reduces rtspURL to "rtsp://host:port" with no path, used
// as the fallback base for an absolute-path control attribute.
func schemeHostPort(rtspURL string) string {
	u, err := url.Parse(rtspURL)
	if err != nil {
		return rtspURL
	}
	return u.Scheme + "://" + u.Host
}
