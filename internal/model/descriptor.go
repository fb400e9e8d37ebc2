package model

import "fmt"

// StreamKind distinguishes how a stream carries audio.
type StreamKind string

const (
	// StreamKindAdaptive is a video-only stream; audio must be downloaded
	// separately and muxed in afterwards.
	StreamKindAdaptive StreamKind = "adaptive"

	// StreamKindProgressive is a single stream that already contains both
	// video and audio.
	StreamKindProgressive StreamKind = "progressive"
)

// StreamDescriptor describes one downloadable stream variant of a video.
// Descriptors are produced by the fetch service and never mutated afterwards.
type StreamDescriptor struct {
	Itag          int
	Resolution    string // quality label, e.g. "1080p"
	Kind          StreamKind
	MimeType      string // e.g. "video/mp4; codecs=\"avc1.640028\""
	AudioQuality  string // for audio streams, e.g. "AUDIO_QUALITY_MEDIUM"
	ContentLength int64  // bytes, 0 if unknown
}

// IsAdaptive returns true if the stream needs a separate audio download.
func (sd StreamDescriptor) IsAdaptive() bool {
	return sd.Kind == StreamKindAdaptive
}

// Label returns the display string used in the resolution selector.
func (sd StreamDescriptor) Label() string {
	if sd.Kind == StreamKindProgressive {
		return fmt.Sprintf("%s (progressive) itag:%d", sd.Resolution, sd.Itag)
	}
	return fmt.Sprintf("%s itag:%d", sd.Resolution, sd.Itag)
}
