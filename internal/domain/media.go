package domain

import "fmt"

type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// MediaKinds lists kinds in the order transceivers are created.
var MediaKinds = []MediaKind{MediaAudio, MediaVideo}

func ParseMediaKind(s string) (MediaKind, error) {
	switch MediaKind(s) {
	case MediaVideo, MediaAudio:
		return MediaKind(s), nil
	}
	return "", fmt.Errorf("unknown media kind %q", s)
}

// ToggleMode selects how a media toggle is applied.
type ToggleMode string

const (
	// ToggleSoft mutes the existing track; negotiation is untouched.
	ToggleSoft ToggleMode = "soft"
	// ToggleHard stops or re-acquires the capture track.
	ToggleHard ToggleMode = "hard"
)

func ParseToggleMode(s string) (ToggleMode, error) {
	switch ToggleMode(s) {
	case "", ToggleSoft:
		return ToggleSoft, nil
	case ToggleHard:
		return ToggleHard, nil
	}
	return "", fmt.Errorf("unknown toggle mode %q", s)
}

// MediaState is what the local participant announces to the room.
type MediaState struct {
	IsVideo bool `json:"isVideo"`
	IsAudio bool `json:"isAudio"`
}
