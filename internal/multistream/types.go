// Package multistream implements destination management and fan-out
// orchestration: which streaming services to deliver to, how to reorient
// video between them, and driving the restreamer engine to do it.
package multistream

import "fmt"

// Service identifies a streaming platform a destination delivers to.
type Service int

const (
	ServiceCustom Service = iota
	ServiceTwitch
	ServiceYouTube
	ServiceFacebook
	ServiceKick
	ServiceTikTok
	ServiceInstagram
	ServiceX
)

// Services lists all known services in declaration order.
func Services() []Service {
	return []Service{
		ServiceCustom,
		ServiceTwitch,
		ServiceYouTube,
		ServiceFacebook,
		ServiceKick,
		ServiceTikTok,
		ServiceInstagram,
		ServiceX,
	}
}

// String returns the display name of the service.
func (s Service) String() string {
	switch s {
	case ServiceCustom:
		return "Custom"
	case ServiceTwitch:
		return "Twitch"
	case ServiceYouTube:
		return "YouTube"
	case ServiceFacebook:
		return "Facebook"
	case ServiceKick:
		return "Kick"
	case ServiceTikTok:
		return "TikTok"
	case ServiceInstagram:
		return "Instagram"
	case ServiceX:
		return "X"
	default:
		return fmt.Sprintf("Service(%d)", int(s))
	}
}

// ParseService maps a display name back to its Service.
func ParseService(name string) (Service, error) {
	for _, s := range Services() {
		if s.String() == name {
			return s, nil
		}
	}
	return ServiceCustom, fmt.Errorf("unknown service %q", name)
}

// Valid reports whether s is a known service.
func (s Service) Valid() bool {
	return s >= ServiceCustom && s <= ServiceX
}

// IngestURL returns the RTMP ingest base URL for the service, chosen by the
// destination's orientation. Auto is treated as Horizontal here; only TikTok
// distinguishes orientations at the ingest level. Custom has no fixed
// ingest and returns the empty string.
func (s Service) IngestURL(o Orientation) string {
	switch s {
	case ServiceCustom:
		return ""
	case ServiceTwitch:
		return "rtmp://live.twitch.tv/app"
	case ServiceYouTube:
		return "rtmp://a.rtmp.youtube.com/live2"
	case ServiceFacebook:
		return "rtmps://live-api-s.facebook.com:443/rtmp"
	case ServiceKick:
		return "rtmp://stream.kick.com/app"
	case ServiceTikTok:
		if o == OrientationVertical {
			return "rtmp://live.tiktok.com/live"
		}
		return "rtmp://live.tiktok.com/live/horizontal"
	case ServiceInstagram:
		return "rtmps://live-upload.instagram.com:443/rtmp"
	case ServiceX:
		return "rtmp://ingest.pscp.tv:80/x"
	default:
		return ""
	}
}

// Orientation classifies the aspect of a video frame or the layout a
// destination expects.
type Orientation int

const (
	// OrientationAuto means "detect from the source". It is never a concrete
	// target for delivery; URL selection treats it as Horizontal.
	OrientationAuto Orientation = iota
	OrientationHorizontal
	OrientationVertical
	OrientationSquare
)

// String returns the display name of the orientation.
func (o Orientation) String() string {
	switch o {
	case OrientationAuto:
		return "Auto"
	case OrientationHorizontal:
		return "Horizontal"
	case OrientationVertical:
		return "Vertical"
	case OrientationSquare:
		return "Square"
	default:
		return fmt.Sprintf("Orientation(%d)", int(o))
	}
}

// ParseOrientation maps a display name back to its Orientation.
func ParseOrientation(name string) (Orientation, error) {
	switch name {
	case "Auto":
		return OrientationAuto, nil
	case "Horizontal":
		return OrientationHorizontal, nil
	case "Vertical":
		return OrientationVertical, nil
	case "Square":
		return OrientationSquare, nil
	default:
		return OrientationAuto, fmt.Errorf("unknown orientation %q", name)
	}
}

// Valid reports whether o is a known orientation.
func (o Orientation) Valid() bool {
	return o >= OrientationAuto && o <= OrientationSquare
}
