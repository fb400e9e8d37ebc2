package fetch

import (
	"context"
	"errors"
	"testing"

	"github.com/kkdai/youtube/v2"

	"github.com/ytget/tubemux/internal/model"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		expected  string
		expectErr bool
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"watch url without www", "https://youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"mobile url", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"short url", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"embed path", "https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"details path", "https://www.youtube.com/details?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"http scheme", "http://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"missing scheme", "www.youtube.com/watch?v=dQw4w9WgXcQ", "", true},
		{"wrong host", "https://vimeo.com/12345", "", true},
		{"watch without id", "https://www.youtube.com/watch", "", true},
		{"empty short url", "https://youtu.be/", "", true},
		{"not a url", "not a url at all", "", true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			id, err := ExtractVideoID(test.url)
			if test.expectErr {
				if err == nil {
					t.Errorf("expected error for %s, got id %q", test.url, id)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != test.expected {
				t.Errorf("ExtractVideoID(%s) = %s, expected %s", test.url, id, test.expected)
			}
		})
	}
}

func TestFetch_InvalidURL(t *testing.T) {
	service := NewService()

	info, err := service.Fetch(context.Background(), "https://example.com/watch?v=abc")
	if err == nil {
		t.Fatal("expected error for non-YouTube URL")
	}
	if info != nil {
		t.Error("expected nil info on error")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Errorf("expected *FetchError, got %T", err)
	}
	if fetchErr.URL != "https://example.com/watch?v=abc" {
		t.Errorf("FetchError.URL = %s, expected the submitted URL", fetchErr.URL)
	}
}

func TestOpenStream_InvalidURL(t *testing.T) {
	service := NewService()

	_, _, err := service.OpenStream(context.Background(), "nonsense", 22)
	if err == nil {
		t.Fatal("expected error for invalid URL")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Errorf("expected *FetchError, got %T", err)
	}
}

func TestBuildDescriptors(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, QualityLabel: "360p", Height: 360, AudioChannels: 2},
		{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, QualityLabel: "1080p", Height: 1080},
		{ItagNo: 248, MimeType: `video/webm; codecs="vp9"`, QualityLabel: "1080p", Height: 1080},
		{ItagNo: 22, MimeType: `video/mp4; codecs="avc1.64001F, mp4a.40.2"`, QualityLabel: "720p", Height: 720, AudioChannels: 2},
		{ItagNo: 136, MimeType: `video/mp4; codecs="avc1.4d401f"`, QualityLabel: "720p", Height: 720},
		{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 130000},
	}

	descriptors := buildDescriptors(formats)

	expected := []struct {
		itag int
		kind model.StreamKind
	}{
		{137, model.StreamKindAdaptive},    // 1080p, webm twin dropped by mime filter
		{136, model.StreamKindAdaptive},    // 720p adaptive before progressive
		{22, model.StreamKindProgressive},  // 720p progressive
		{18, model.StreamKindProgressive},  // 360p
	}

	if len(descriptors) != len(expected) {
		t.Fatalf("got %d descriptors, expected %d: %v", len(descriptors), len(expected), descriptors)
	}
	for i, want := range expected {
		if descriptors[i].Itag != want.itag {
			t.Errorf("descriptor %d itag = %d, expected %d", i, descriptors[i].Itag, want.itag)
		}
		if descriptors[i].Kind != want.kind {
			t.Errorf("descriptor %d kind = %s, expected %s", i, descriptors[i].Kind, want.kind)
		}
	}
}

func TestBuildDescriptors_SkipsAudioAndUnlabelled(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`},
		{ItagNo: 999, MimeType: `video/mp4; codecs="avc1"`}, // no quality label
	}

	if descriptors := buildDescriptors(formats); len(descriptors) != 0 {
		t.Errorf("expected no descriptors, got %v", descriptors)
	}
}

func TestBuildDescriptors_SkipsWebmOnlyResolutions(t *testing.T) {
	// 2160p is often served in webm only; it must not be offered since the
	// mp4 output takes codec copies from mp4 sources only.
	formats := youtube.FormatList{
		{ItagNo: 313, MimeType: `video/webm; codecs="vp9"`, QualityLabel: "2160p", Height: 2160},
		{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, QualityLabel: "1080p", Height: 1080},
	}

	descriptors := buildDescriptors(formats)
	if len(descriptors) != 1 {
		t.Fatalf("got %d descriptors, expected 1: %v", len(descriptors), descriptors)
	}
	if descriptors[0].Resolution != "1080p" {
		t.Errorf("descriptor resolution = %s, expected 1080p", descriptors[0].Resolution)
	}
}

func TestFormatForItag(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, QualityLabel: "1080p"},
		{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`},
	}

	format := formatForItag(formats, 140)
	if format == nil {
		t.Fatal("expected a format for itag 140")
	}
	if format.ItagNo != 140 {
		t.Errorf("format itag = %d, expected 140", format.ItagNo)
	}

	if format := formatForItag(formats, 22); format != nil {
		t.Errorf("expected nil for unknown itag, got %+v", format)
	}
}

func TestBestAudioDescriptor(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 249, MimeType: `audio/webm; codecs="opus"`, Bitrate: 60000},
		{ItagNo: 139, MimeType: `audio/mp4; codecs="mp4a.40.5"`, Bitrate: 50000, AudioQuality: "AUDIO_QUALITY_LOW"},
		{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 130000, AudioQuality: "AUDIO_QUALITY_MEDIUM"},
		{ItagNo: 22, MimeType: `video/mp4; codecs="avc1, mp4a"`, Bitrate: 2000000},
	}

	audio := bestAudioDescriptor(formats)
	if audio == nil {
		t.Fatal("expected an audio descriptor")
	}
	if audio.Itag != 140 {
		t.Errorf("audio itag = %d, expected 140 (highest bitrate mp4)", audio.Itag)
	}
	if audio.AudioQuality != "AUDIO_QUALITY_MEDIUM" {
		t.Errorf("audio quality = %s, expected AUDIO_QUALITY_MEDIUM", audio.AudioQuality)
	}
}

func TestBestAudioDescriptor_NoAudio(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, QualityLabel: "1080p"},
	}

	if audio := bestAudioDescriptor(formats); audio != nil {
		t.Errorf("expected nil audio descriptor, got %+v", audio)
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	inner := errors.New("network down")
	err := &FetchError{URL: "https://youtu.be/abc", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to find the wrapped error")
	}
	if err.Error() == "" {
		t.Error("expected non-empty error message")
	}
}
