package rtc

import (
	"github.com/pion/sdp/v3"
)

// Description is what the core needs to know about a session description.
type Description struct {
	Ufrag string
	Kinds []string
}

// Describe parses raw SDP. The ufrag is taken from the first media section
// that carries one, falling back to the session level.
func Describe(raw string) (Description, error) {
	var sd sdp.SessionDescription
	if err := sd.UnmarshalString(raw); err != nil {
		return Description{}, err
	}
	var d Description
	for _, m := range sd.MediaDescriptions {
		d.Kinds = append(d.Kinds, m.MediaName.Media)
		if d.Ufrag == "" {
			if v, ok := m.Attribute("ice-ufrag"); ok {
				d.Ufrag = v
			}
		}
	}
	if d.Ufrag == "" {
		if v, ok := sd.Attribute("ice-ufrag"); ok {
			d.Ufrag = v
		}
	}
	return d, nil
}
