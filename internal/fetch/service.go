package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	"github.com/ytget/tubemux/internal/model"
)

// Thumbnail download constants
const (
	ThumbnailTimeout = 15 * time.Second
)

// Stream selection constants. Only mp4 sources are offered: the output
// container is mp4 and streams are codec-copied, never transcoded, so webm
// video and opus audio cannot be taken.
const (
	VideoMimePrefix = "video/mp4"
	AudioMimePrefix = "audio/mp4"
)

// VideoInfo holds everything the UI needs to show a fetched video and
// everything the dispatcher needs to download it.
type VideoInfo struct {
	ID           string
	Title        string
	Author       string
	Duration     time.Duration
	ThumbnailURL string
	Streams      []model.StreamDescriptor
	Audio        *model.StreamDescriptor // best mp4 audio stream, nil if none
}

// Service resolves YouTube URLs into metadata and stream descriptors.
type Service struct {
	client     youtube.Client
	httpClient *http.Client

	videos      map[string]*youtube.Video // keyed by video ID
	videosMutex sync.RWMutex
}

// NewService creates a new fetch service
func NewService() *Service {
	return &Service{
		httpClient: &http.Client{Timeout: ThumbnailTimeout},
		videos:     make(map[string]*youtube.Video),
	}
}

// Fetch resolves a YouTube URL into video metadata and stream descriptors.
func (s *Service) Fetch(ctx context.Context, rawURL string) (*VideoInfo, error) {
	videoID, err := ExtractVideoID(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	video, err := s.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	s.videosMutex.Lock()
	s.videos[video.ID] = video
	s.videosMutex.Unlock()

	info := &VideoInfo{
		ID:       video.ID,
		Title:    video.Title,
		Author:   video.Author,
		Duration: video.Duration,
		Streams:  buildDescriptors(video.Formats),
		Audio:    bestAudioDescriptor(video.Formats),
	}
	if len(video.Thumbnails) > 0 {
		// Thumbnails are ordered smallest first; take the largest.
		info.ThumbnailURL = video.Thumbnails[len(video.Thumbnails)-1].URL
	}

	if len(info.Streams) == 0 {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("no downloadable streams")}
	}

	zap.S().Debugf("Fetched video %s: %q with %d streams", info.ID, info.Title, len(info.Streams))
	return info, nil
}

// Thumbnail downloads the preview image bytes for a fetched video.
func (s *Service) Thumbnail(ctx context.Context, thumbURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, thumbURL, nil)
	if err != nil {
		return nil, &FetchError{URL: thumbURL, Err: err}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: thumbURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: thumbURL, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	return io.ReadAll(resp.Body)
}

// OpenStream opens the media stream for one itag of a previously fetched
// video. The video metadata is re-fetched if it is no longer cached.
func (s *Service) OpenStream(ctx context.Context, rawURL string, itag int) (io.ReadCloser, int64, error) {
	videoID, err := ExtractVideoID(rawURL)
	if err != nil {
		return nil, 0, &FetchError{URL: rawURL, Err: err}
	}

	s.videosMutex.RLock()
	video, cached := s.videos[videoID]
	s.videosMutex.RUnlock()

	if !cached {
		video, err = s.client.GetVideoContext(ctx, videoID)
		if err != nil {
			return nil, 0, &FetchError{URL: rawURL, Err: err}
		}
		s.videosMutex.Lock()
		s.videos[video.ID] = video
		s.videosMutex.Unlock()
	}

	format := formatForItag(video.Formats, itag)
	if format == nil {
		return nil, 0, &FetchError{URL: rawURL, Err: fmt.Errorf("no stream with itag %d", itag)}
	}

	return s.client.GetStreamContext(ctx, video, format)
}

// formatForItag returns the format carrying the given itag, or nil when the
// video does not offer it.
func formatForItag(formats youtube.FormatList, itag int) *youtube.Format {
	matches := formats.Itag(itag)
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

// buildDescriptors converts the raw format list into display-ready stream
// descriptors: mp4 video only, one per (resolution, kind), ordered by
// resolution descending with adaptive streams first.
func buildDescriptors(formats youtube.FormatList) []model.StreamDescriptor {
	type entry struct {
		desc   model.StreamDescriptor
		height int
	}
	type key struct {
		label string
		kind  model.StreamKind
	}
	seen := make(map[key]bool)

	var entries []entry
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, VideoMimePrefix) || f.QualityLabel == "" {
			continue
		}

		kind := model.StreamKindAdaptive
		if f.AudioChannels > 0 {
			kind = model.StreamKindProgressive
		}

		k := key{label: f.QualityLabel, kind: kind}
		if seen[k] {
			continue
		}
		seen[k] = true

		entries = append(entries, entry{
			desc: model.StreamDescriptor{
				Itag:          f.ItagNo,
				Resolution:    f.QualityLabel,
				Kind:          kind,
				MimeType:      f.MimeType,
				ContentLength: f.ContentLength,
			},
			height: f.Height,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].height != entries[j].height {
			return entries[i].height > entries[j].height
		}
		// Same height: adaptive before progressive
		return entries[i].desc.Kind == model.StreamKindAdaptive && entries[j].desc.Kind == model.StreamKindProgressive
	})

	descriptors := make([]model.StreamDescriptor, 0, len(entries))
	for _, e := range entries {
		descriptors = append(descriptors, e.desc)
	}
	return descriptors
}

// bestAudioDescriptor picks the highest-bitrate mp4 audio stream, avoiding
// webm/opus which the mp4 container cannot take with a plain codec copy.
func bestAudioDescriptor(formats youtube.FormatList) *model.StreamDescriptor {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, AudioMimePrefix) {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	if best == nil {
		return nil
	}
	return &model.StreamDescriptor{
		Itag:          best.ItagNo,
		Resolution:    "audio",
		Kind:          model.StreamKindAdaptive,
		MimeType:      best.MimeType,
		AudioQuality:  best.AudioQuality,
		ContentLength: best.ContentLength,
	}
}

// ExtractVideoID pulls the video ID out of the common YouTube URL shapes:
//
//	http(s)://(www|m).youtube.com/watch?v={ID}
//	http(s)://(www|m).youtube.com/v/{ID}
//	http(s)://youtu.be/{ID}
func ExtractVideoID(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("URL must start with http:// or https://")
	}

	var id string
	switch parsed.Hostname() {
	case "www.youtube.com", "m.youtube.com", "youtube.com":
		if strings.HasPrefix(parsed.Path, "/v/") {
			id = strings.SplitN(parsed.Path, "/", 3)[2]
		} else if parsed.Path == "/watch" || parsed.Path == "/details" {
			id = parsed.Query().Get("v")
		}
	case "youtu.be":
		id = strings.Trim(parsed.Path, "/")
	default:
		return "", fmt.Errorf("unrecognised hostname %q", parsed.Hostname())
	}

	if id == "" {
		return "", fmt.Errorf("could not extract video ID")
	}
	return id, nil
}
